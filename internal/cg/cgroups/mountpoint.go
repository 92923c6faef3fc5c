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
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type mountPointFormatInvalidError struct {
	line string
}

func (err mountPointFormatInvalidError) Error() string {
	return fmt.Sprintf("invalid format for MountPoint: %q", err.line)
}

type pathNotExposedFromMountPointError struct {
	mountPoint string
	root       string
	path       string
}

func (err pathNotExposedFromMountPointError) Error() string {
	return fmt.Sprintf("path %q is not a descendant of mount point root %q and cannot be exposed from %q", err.path, err.root, err.mountPoint)
}

const (
	_mountInfoSep               = " "
	_mountInfoOptsSep           = ","
	_mountInfoOptionalFieldsSep = "-"
)

// fields before the optional ones
const (
	_miFieldIDMountID = iota
	_miFieldIDParentID
	_miFieldIDDeviceID
	_miFieldIDRoot
	_miFieldIDMountPoint
	_miFieldIDOptions
	_miFieldIDOptionalFields

	_miFieldCountFirstHalf
)

// fields after the "-" separator
const (
	_miFieldOffsetFSType = iota
	_miFieldOffsetMountSource
	_miFieldOffsetSuperOptions

	_miFieldCountSecondHalf
)

const _miFieldCountMin = _miFieldCountFirstHalf + _miFieldCountSecondHalf

// MountPoint is one line of `/proc/$PID/mountinfo`, see proc(5).
// Only the fields needed to locate a cgroup hierarchy are kept.
type MountPoint struct {
	MountID      int
	Root         string
	MountPoint   string
	FSType       string
	SuperOptions []string
}

// NewMountPointFromLine parses a line read from `/proc/$PID/mountinfo`.
func NewMountPointFromLine(line string) (*MountPoint, error) {
	fields := strings.Split(line, _mountInfoSep)
	if len(fields) < _miFieldCountMin {
		return nil, mountPointFormatInvalidError{line}
	}

	mountID, err := strconv.Atoi(fields[_miFieldIDMountID])
	if err != nil {
		return nil, err
	}
	if _, err := strconv.Atoi(fields[_miFieldIDParentID]); err != nil {
		return nil, err
	}

	for i, field := range fields[_miFieldIDOptionalFields:] {
		if field != _mountInfoOptionalFieldsSep {
			continue
		}
		fsTypeStart := _miFieldIDOptionalFields + i + 1
		if len(fields) != fsTypeStart+_miFieldCountSecondHalf {
			return nil, mountPointFormatInvalidError{line}
		}
		return &MountPoint{
			MountID:      mountID,
			Root:         fields[_miFieldIDRoot],
			MountPoint:   fields[_miFieldIDMountPoint],
			FSType:       fields[fsTypeStart+_miFieldOffsetFSType],
			SuperOptions: strings.Split(fields[fsTypeStart+_miFieldOffsetSuperOptions], _mountInfoOptsSep),
		}, nil
	}
	return nil, mountPointFormatInvalidError{line}
}

// Translate converts an absolute path inside the mounted file system to the
// path it is reachable at in the current mount namespace. A cgroup outside
// the mount root, eg. the host group seen from a cgroup namespace, is an error.
func (mp *MountPoint) Translate(absPath string) (string, error) {
	relPath, err := filepath.Rel(mp.Root, absPath)
	if err != nil {
		return "", err
	}
	if relPath == ".." || strings.HasPrefix(relPath, "../") {
		return "", pathNotExposedFromMountPointError{
			mountPoint: mp.MountPoint,
			root:       mp.Root,
			path:       absPath,
		}
	}
	return filepath.Join(mp.MountPoint, relPath), nil
}

// parseMountInfo parses procPathMountInfo, usually `/proc/$PID/mountinfo`.
func parseMountInfo(procPathMountInfo string) ([]*MountPoint, error) {
	mountInfoFile, err := os.Open(procPathMountInfo)
	if err != nil {
		return nil, err
	}
	defer mountInfoFile.Close() // nolint: errcheck

	mps := make([]*MountPoint, 0, 10)
	scanner := bufio.NewScanner(mountInfoFile)
	for scanner.Scan() {
		mountPoint, err := NewMountPointFromLine(scanner.Text())
		if err != nil {
			return nil, err
		}
		mps = append(mps, mountPoint)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mps, nil
}
