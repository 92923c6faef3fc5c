package cgroups

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMountPointFromLine(t *testing.T) {
	testTable := []struct {
		name     string
		line     string
		expected *MountPoint
	}{
		{
			name: "rootfs",
			line: "1 0 252:0 / / rw,noatime - ext4 /dev/dm-0 rw,errors=remount-ro",
			expected: &MountPoint{
				MountID:      1,
				Root:         "/",
				MountPoint:   "/",
				FSType:       "ext4",
				SuperOptions: []string{"rw", "errors=remount-ro"},
			},
		},
		{
			name: "cgroup v1",
			line: "35 25 0:30 /kubepods/pod1 /sys/fs/cgroup/memory rw,nosuid shared:16 master:3 - cgroup cgroup rw,memory",
			expected: &MountPoint{
				MountID:      35,
				Root:         "/kubepods/pod1",
				MountPoint:   "/sys/fs/cgroup/memory",
				FSType:       "cgroup",
				SuperOptions: []string{"rw", "memory"},
			},
		},
		{
			name: "cgroup2",
			line: "30 23 0:26 / /sys/fs/cgroup rw,nosuid,nodev - cgroup2 cgroup2 rw,nsdelegate",
			expected: &MountPoint{
				MountID:      30,
				Root:         "/",
				MountPoint:   "/sys/fs/cgroup",
				FSType:       "cgroup2",
				SuperOptions: []string{"rw", "nsdelegate"},
			},
		},
	}

	for _, tt := range testTable {
		mountPoint, err := NewMountPointFromLine(tt.line)
		assert.NoError(t, err, tt.name)
		assert.Equal(t, tt.expected, mountPoint, tt.name)
	}
}

func TestNewMountPointFromLineErr(t *testing.T) {
	lines := []string{
		"x 0 252:0 / / rw - ext4 /dev/dm-0 rw",
		"1 x 252:0 / / rw - ext4 /dev/dm-0 rw",
		"1 0 252:0 / / rw ext4 /dev/dm-0 rw",
		"1 0 252:0 / / rw shared:1 - ext4 /dev/dm-0",
		"garbage",
	}

	for _, line := range lines {
		mountPoint, err := NewMountPointFromLine(line)
		assert.Nil(t, mountPoint, line)
		assert.Error(t, err, line)
	}
}

func TestMountPointTranslate(t *testing.T) {
	mp, err := NewMountPointFromLine("31 23 0:24 /docker/abc /sys/fs/cgroup/cpu rw shared:1 - cgroup cgroup rw,cpu")
	require.NoError(t, err)

	translated, err := mp.Translate("/docker/abc")
	assert.NoError(t, err)
	assert.Equal(t, "/sys/fs/cgroup/cpu", translated)

	translated, err = mp.Translate("/docker/abc/nested")
	assert.NoError(t, err)
	assert.Equal(t, "/sys/fs/cgroup/cpu/nested", translated)

	for _, path := range []string{"/", "/docker", "/docker/abcd", "/system.slice/docker.service"} {
		translated, err := mp.Translate(path)
		assert.Equal(t, "", translated, path)
		assert.Equal(t, pathNotExposedFromMountPointError{
			mountPoint: "/sys/fs/cgroup/cpu",
			root:       "/docker/abc",
			path:       path,
		}, err, path)
	}

	// relative paths cannot be related to an absolute root
	_, err = mp.Translate("docker/abc")
	assert.Error(t, err)
}

func TestParseMountInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mountinfo")
	writeFile(t, path, "1 0 252:0 / / rw - ext4 /dev/dm-0 rw\n30 1 0:26 / /sys/fs/cgroup rw - cgroup2 cgroup2 rw\n")

	mps, err := parseMountInfo(path)
	require.NoError(t, err)
	require.Len(t, mps, 2)
	assert.Equal(t, "cgroup2", mps[1].FSType)

	_, err = parseMountInfo(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
