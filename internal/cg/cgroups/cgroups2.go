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

package cgroups

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// _cgroupv2FSType is the unified hierarchy file system type in
	// `/proc/$PID/mountinfo`.
	_cgroupv2FSType = "cgroup2"
	_cgroupv2CPUMax = "cpu.max"
	_cgroupv2MEMMax = "memory.max"

	_cgroupV2CPUMaxDefaultPeriod = 100000
	_cgroupV2Unlimited           = "max"
)

const (
	_cgroupv2CPUMaxQuotaIndex = iota
	_cgroupv2CPUMaxPeriodIndex
)

// ErrNotV2 indicates that the process is not in the unified hierarchy.
var ErrNotV2 = errors.New("not using cgroups2")

// CGroups2 is the group of the process in the unified hierarchy.
type CGroups2 struct {
	*CGroup
	groupPath string
}

func newCGroups2(mountInfo *MountPoint, subsystems map[string]*CGroupSubsys) (*CGroups2, error) {
	// the unified hierarchy is the entry with id 0
	var v2subsys *CGroupSubsys
	for _, subsys := range subsystems {
		if subsys.ID == 0 {
			v2subsys = subsys
			break
		}
	}
	if v2subsys == nil {
		return nil, ErrNotV2
	}

	cgroupPath, err := mountInfo.Translate(v2subsys.Name)
	if err != nil {
		return nil, err
	}
	return &CGroups2{
		CGroup:    NewCGroup(cgroupPath),
		groupPath: v2subsys.Name,
	}, nil
}

// MemLimit reads memory.max. "max" or a missing file returns (-1, false, nil).
func (cg *CGroups2) MemLimit() (int64, bool, error) {
	text, err := cg.readFirstLine(_cgroupv2MEMMax)
	if os.IsNotExist(err) {
		return -1, false, nil
	}
	if err != nil {
		return -1, false, err
	}
	if text == _cgroupV2Unlimited {
		return -1, false, nil
	}
	max, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return -1, false, fmt.Errorf("parse max memory failed, invalid format. %w", err)
	}
	return max, true, nil
}

// CPUQuota reads "$MAX $PERIOD" from cpu.max, the period defaults to 100ms.
// A quota of "max" returns (-1, false, nil).
func (cg *CGroups2) CPUQuota() (float64, bool, error) {
	text, err := cg.readFirstLine(_cgroupv2CPUMax)
	if os.IsNotExist(err) {
		return -1, false, nil
	}
	if err != nil {
		return -1, false, err
	}

	fields := strings.Fields(text)
	if len(fields) == 0 || len(fields) > 2 {
		return -1, false, fmt.Errorf("invalid format of %s: %q", _cgroupv2CPUMax, text)
	}
	if fields[_cgroupv2CPUMaxQuotaIndex] == _cgroupV2Unlimited {
		return -1, false, nil
	}

	max, err := strconv.Atoi(fields[_cgroupv2CPUMaxQuotaIndex])
	if err != nil {
		return -1, false, err
	}
	period := _cgroupV2CPUMaxDefaultPeriod
	if len(fields) == 2 {
		period, err = strconv.Atoi(fields[_cgroupv2CPUMaxPeriodIndex])
		if err != nil {
			return -1, false, err
		}
	}
	if period <= 0 {
		return -1, false, nil
	}
	return float64(max) / float64(period), true, nil
}

// Version return version of cgroupfs.
func (cg *CGroups2) Version() string {
	return _cgroupv2FSType
}
