package cgroups

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCGroupSubsysFromLine(t *testing.T) {
	testTable := []struct {
		line     string
		expected *CGroupSubsys
	}{
		{
			line:     "0::/kubepods.slice/pod1",
			expected: &CGroupSubsys{ID: 0, Subsystems: []string{""}, Name: "/kubepods.slice/pod1"},
		},
		{
			line:     "4:cpu,cpuacct:/docker/abc",
			expected: &CGroupSubsys{ID: 4, Subsystems: []string{"cpu", "cpuacct"}, Name: "/docker/abc"},
		},
		{
			// the group name may contain the separator
			line:     "9:memory:/system.slice/cri-containerd:abc",
			expected: &CGroupSubsys{ID: 9, Subsystems: []string{"memory"}, Name: "/system.slice/cri-containerd:abc"},
		},
	}

	for _, tt := range testTable {
		subsys, err := NewCGroupSubsysFromLine(tt.line)
		assert.NoError(t, err, tt.line)
		assert.Equal(t, tt.expected, subsys, tt.line)
	}
}

func TestNewCGroupSubsysFromLineErr(t *testing.T) {
	subsys, err := NewCGroupSubsysFromLine("1:cpu")
	assert.Nil(t, subsys)
	assert.Equal(t, cgroupSubsysFormatInvalidError{"1:cpu"}, err)

	_, parseErr := strconv.Atoi("x")
	subsys, err = NewCGroupSubsysFromLine("x:cpu:/")
	assert.Nil(t, subsys)
	assert.Equal(t, parseErr, err)
}

func TestParseCGroupSubsystems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cgroup")
	writeFile(t, path, "4:memory:/docker/abc\n3:cpu,cpuacct:/docker/abc\n\n0::/\n")

	subsystems, err := parseCGroupSubsystems(path)
	require.NoError(t, err)
	assert.Len(t, subsystems, 4)
	assert.Equal(t, "/docker/abc", subsystems["cpuacct"].Name)
	assert.Equal(t, 0, subsystems[""].ID)

	writeFile(t, path, "memory:/\n")
	_, err = parseCGroupSubsystems(path)
	assert.Error(t, err)
}
