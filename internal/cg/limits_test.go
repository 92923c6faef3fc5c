package cg

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// newLoader writes the proc files of a process in a temp dir.
func newLoader(t *testing.T, mountInfo, cgroup string) Loader {
	dir := t.TempDir()
	l := Loader{
		MountInfo:  filepath.Join(dir, "mountinfo"),
		ProcCGroup: filepath.Join(dir, "cgroup"),
	}
	writeFile(t, l.MountInfo, mountInfo)
	writeFile(t, l.ProcCGroup, cgroup)
	return l
}

func TestLoadV2(t *testing.T) {
	testTable := []struct {
		name      string
		mountRoot string
		group     string
		memMax    string
		cpuMax    string
		expected  Limits
	}{
		{
			name:      "limited",
			mountRoot: "/",
			group:     "/kubepods/pod1",
			memMax:    "2147483648\n",
			cpuMax:    "100000 100000\n",
			expected:  Limits{Version: VersionV2, MemoryBytes: 2147483648, CPUQuota: 1},
		},
		{
			name:      "unlimited",
			mountRoot: "/",
			group:     "/",
			memMax:    "max\n",
			cpuMax:    "max 100000\n",
			expected:  Limits{Version: VersionV2, MemoryBytes: -1, CPUQuota: -1},
		},
		{
			// a private cgroup namespace mounts the group itself
			name:      "namespaced group",
			mountRoot: "/kubepods/pod1",
			group:     "/kubepods/pod1",
			memMax:    "1048576",
			cpuMax:    "200000 100000",
			expected:  Limits{Version: VersionV2, MemoryBytes: 1048576, CPUQuota: 2},
		},
	}

	for _, tt := range testTable {
		t.Run(tt.name, func(t *testing.T) {
			mount := t.TempDir()
			l := newLoader(t,
				fmt.Sprintf("30 23 0:26 %s %s rw,nosuid - cgroup2 cgroup2 rw\n", tt.mountRoot, mount),
				fmt.Sprintf("0::%s\n", tt.group))

			rel, err := filepath.Rel(tt.mountRoot, tt.group)
			require.NoError(t, err)
			dir := filepath.Join(mount, rel)
			writeFile(t, filepath.Join(dir, "memory.max"), tt.memMax)
			writeFile(t, filepath.Join(dir, "cpu.max"), tt.cpuMax)

			limits, err := l.Load()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, limits)
		})
	}
}

func TestLoadV2InvalidCPUMax(t *testing.T) {
	mount := t.TempDir()
	l := newLoader(t, fmt.Sprintf("30 23 0:26 / %s rw - cgroup2 cgroup2 rw\n", mount), "0::/\n")
	writeFile(t, filepath.Join(mount, "cpu.max"), "1 2 3")

	limits, err := l.Load()
	assert.Error(t, err)
	assert.Equal(t, VersionV2, limits.Version)
	assert.Equal(t, -1.0, limits.CPUQuota)
}

func TestLoadV1(t *testing.T) {
	mount := t.TempDir()
	l := newLoader(t,
		fmt.Sprintf("33 25 0:29 / %s/memory rw shared:15 - cgroup cgroup rw,memory\n"+
			"34 25 0:30 / %s/cpu,cpuacct rw shared:16 - cgroup cgroup rw,cpu,cpuacct\n", mount, mount),
		"4:memory:/docker/abc\n3:cpu,cpuacct:/docker/abc\n2:cpuset:/\n")
	writeFile(t, filepath.Join(mount, "memory", "docker", "abc", "memory.limit_in_bytes"), "536870912\n")
	writeFile(t, filepath.Join(mount, "cpu,cpuacct", "docker", "abc", "cpu.cfs_quota_us"), "150000\n")
	writeFile(t, filepath.Join(mount, "cpu,cpuacct", "docker", "abc", "cpu.cfs_period_us"), "100000\n")

	limits, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, Limits{Version: VersionV1, MemoryBytes: 536870912, CPUQuota: 1.5}, limits)
}

func TestLoadV1Unlimited(t *testing.T) {
	mount := t.TempDir()
	l := newLoader(t,
		fmt.Sprintf("33 25 0:29 / %s/memory rw - cgroup cgroup rw,memory\n"+
			"34 25 0:30 / %s/cpu rw - cgroup cgroup rw,cpu\n", mount, mount),
		"4:memory:/\n3:cpu:/\n")
	writeFile(t, filepath.Join(mount, "memory", "memory.limit_in_bytes"), "9223372036854771712\n")
	writeFile(t, filepath.Join(mount, "cpu", "cpu.cfs_quota_us"), "-1\n")
	writeFile(t, filepath.Join(mount, "cpu", "cpu.cfs_period_us"), "100000\n")

	limits, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, Limits{Version: VersionV1, MemoryBytes: -1, CPUQuota: -1}, limits)
}

func TestLoadNotFound(t *testing.T) {
	l := newLoader(t, "1 0 252:0 / / rw - ext4 /dev/dm-0 rw\n", "1:name=systemd:/\n")

	limits, err := l.Load()
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, Unlimited(), limits)

	l.ProcCGroup = filepath.Join(t.TempDir(), "missing")
	limits, err = l.Load()
	assert.Error(t, err)
	assert.Equal(t, Unlimited(), limits)
}
