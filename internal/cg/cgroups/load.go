// Licensed to the Apache Software Foundation (ASF) under one or more
// contributor license agreements.  See the NOTICE file distributed with
// this work for additional information regarding copyright ownership.
// The ASF licenses this file to You under the Apache License, Version 2.0
// (the "License"); you may not use this file except in compliance with
// the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cgroups locates the cgroup of a process through its mountinfo and
// reads the memory and cpu limits applied to it.
package cgroups

import "errors"

// ErrCGroupFSNotFound indicates that the system is not using cgroups.
var ErrCGroupFSNotFound = errors.New("cgroupfs not found")

type ICGroups interface {
	// CPUQuota returns the quota in cores, (-1, false, nil) when unlimited.
	CPUQuota() (float64, bool, error)
	// MemLimit returns the limit in bytes, (-1, false, nil) when unlimited.
	MemLimit() (int64, bool, error)
	// Version returns the file system type of the hierarchy.
	Version() string
}

// Load resolves the hierarchy from the given mountinfo and cgroup files.
// The unified hierarchy wins when the process has an entry in it; a hybrid
// host without one falls back to the v1 controllers.
func Load(mountInfoPath, procCGroupPath string) (ICGroups, error) {
	mps, err := parseMountInfo(mountInfoPath)
	if err != nil {
		return nil, err
	}
	subsystems, err := parseCGroupSubsystems(procCGroupPath)
	if err != nil {
		return nil, err
	}

	hasV1 := false
	for _, mp := range mps {
		switch mp.FSType {
		case _cgroupv2FSType:
			cg, err := newCGroups2(mp, subsystems)
			if errors.Is(err, ErrNotV2) {
				continue
			}
			if err != nil {
				return nil, err
			}
			return cg, nil
		case _cgroupFSType:
			hasV1 = true
		}
	}
	if hasV1 {
		cgroups, err := newCGroups(mps, subsystems)
		if err != nil {
			return nil, err
		}
		return cgroups, nil
	}
	return nil, ErrCGroupFSNotFound
}
