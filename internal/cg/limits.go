/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cg reports the memory limit and cpu quota the current process runs under.
package cg

import (
	"mosn.io/ballast/internal/cg/cgroups"
)

const (
	// VersionV1 is reported for a legacy hierarchy, VersionV2 for the unified one.
	VersionV1 = "cgroup"
	VersionV2 = "cgroup2"

	_procPathMountInfo = "/proc/self/mountinfo"
	_procPathCGroup    = "/proc/self/cgroup"
)

// ErrNotFound indicates the process does not run under cgroupfs.
var ErrNotFound = cgroups.ErrCGroupFSNotFound

// Limits of the current cgroup. A value of -1 means no limit.
type Limits struct {
	Version     string
	MemoryBytes int64
	CPUQuota    float64 // cores, quota / period
}

// Unlimited is the value reported when nothing could be read.
func Unlimited() Limits {
	return Limits{MemoryBytes: -1, CPUQuota: -1}
}

// Loader reads limits through the given proc files; tests point it at a temp dir.
type Loader struct {
	MountInfo  string
	ProcCGroup string
}

// Load reads the limits of the current process.
func Load() (Limits, error) {
	return Loader{MountInfo: _procPathMountInfo, ProcCGroup: _procPathCGroup}.Load()
}

func (l Loader) Load() (Limits, error) {
	limits := Unlimited()
	hierarchy, err := cgroups.Load(l.MountInfo, l.ProcCGroup)
	if err != nil {
		return limits, err
	}
	limits.Version = hierarchy.Version()

	mem, defined, err := hierarchy.MemLimit()
	if err != nil {
		return limits, err
	}
	if defined {
		limits.MemoryBytes = mem
	}

	quota, defined, err := hierarchy.CPUQuota()
	if err != nil {
		return limits, err
	}
	if defined {
		limits.CPUQuota = quota
	}
	return limits, nil
}
