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
	"os"
)

const (
	// _cgroupFSType is the cgroup v1 file system type in `/proc/$PID/mountinfo`.
	_cgroupFSType       = "cgroup"
	_cgroupSubsysCPU    = "cpu"
	_cgroupSubsysMemory = "memory"

	_cgroupCPUCFSQuotaUsParam  = "cpu.cfs_quota_us"
	_cgroupCPUCFSPeriodUsParam = "cpu.cfs_period_us"
	_cgroupMemLimitParam       = "memory.limit_in_bytes"

	// the kernel reports "no limit" as a page aligned MaxInt64
	_cgroupMemUnlimitedMin = int64(1) << 62
)

// CGroups maps every mounted v1 subsystem to the group of the process.
type CGroups map[string]*CGroup

func newCGroups(mountInfo []*MountPoint, subsystems map[string]*CGroupSubsys) (CGroups, error) {
	cgroups := make(CGroups)
	for _, mp := range mountInfo {
		if mp.FSType != _cgroupFSType {
			continue
		}
		for _, opt := range mp.SuperOptions {
			subsys, exists := subsystems[opt]
			if !exists {
				continue
			}
			cgroupPath, err := mp.Translate(subsys.Name)
			if err != nil {
				return nil, err
			}
			cgroups[opt] = NewCGroup(cgroupPath)
		}
	}
	return cgroups, nil
}

// MemLimit reads memory.limit_in_bytes. An unset limit returns (-1, false, nil).
func (cg CGroups) MemLimit() (int64, bool, error) {
	memCGroup, ok := cg[_cgroupSubsysMemory]
	if !ok {
		return -1, false, nil
	}
	memLimit, err := memCGroup.readInt(_cgroupMemLimitParam)
	if os.IsNotExist(err) {
		return -1, false, nil
	}
	if err != nil {
		return -1, false, err
	}
	if memLimit <= 0 || memLimit >= _cgroupMemUnlimitedMin {
		return -1, false, nil
	}
	return memLimit, true, nil
}

// CPUQuota is cpu.cfs_quota_us / cpu.cfs_period_us. A quota of -1 returns
// (-1, false, nil).
func (cg CGroups) CPUQuota() (float64, bool, error) {
	cpuCGroup, exists := cg[_cgroupSubsysCPU]
	if !exists {
		return -1, false, nil
	}

	cfsQuotaUs, err := cpuCGroup.readInt(_cgroupCPUCFSQuotaUsParam)
	if os.IsNotExist(err) {
		return -1, false, nil
	}
	if defined := cfsQuotaUs > 0; err != nil || !defined {
		return -1, false, err
	}

	cfsPeriodUs, err := cpuCGroup.readInt(_cgroupCPUCFSPeriodUsParam)
	if err != nil {
		return -1, false, err
	}
	if cfsPeriodUs <= 0 {
		return -1, false, nil
	}
	return float64(cfsQuotaUs) / float64(cfsPeriodUs), true, nil
}

func (cg CGroups) Version() string {
	return _cgroupFSType
}
