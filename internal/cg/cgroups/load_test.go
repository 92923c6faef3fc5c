package cgroups

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type procFiles struct {
	mountInfo string
	cgroup    string
}

func newProcFiles(t *testing.T, mountInfo, cgroup string) procFiles {
	dir := t.TempDir()
	p := procFiles{
		mountInfo: filepath.Join(dir, "mountinfo"),
		cgroup:    filepath.Join(dir, "cgroup"),
	}
	writeFile(t, p.mountInfo, mountInfo)
	writeFile(t, p.cgroup, cgroup)
	return p
}

func TestLoadV1(t *testing.T) {
	root := t.TempDir()
	mountInfo := fmt.Sprintf("1 0 252:0 / / rw - ext4 /dev/dm-0 rw\n"+
		"33 25 0:29 /docker/abc %s/memory rw shared:15 - cgroup cgroup rw,memory\n"+
		"34 25 0:30 / %s/cpu,cpuacct rw shared:16 - cgroup cgroup rw,cpu,cpuacct\n", root, root)
	p := newProcFiles(t, mountInfo, "4:memory:/docker/abc\n3:cpu,cpuacct:/docker/abc\n1:name=systemd:/\n")

	icg, err := Load(p.mountInfo, p.cgroup)
	require.NoError(t, err)
	assert.Equal(t, "cgroup", icg.Version())

	cgroups, ok := icg.(CGroups)
	require.True(t, ok)
	assert.Len(t, cgroups, 3)
	// the memory mount exposes the group as its root
	assert.Equal(t, filepath.Join(root, "memory"), cgroups["memory"].Path())
	assert.Equal(t, filepath.Join(root, "cpu,cpuacct", "docker", "abc"), cgroups["cpu"].Path())
	assert.Equal(t, cgroups["cpu"].Path(), cgroups["cpuacct"].Path())
}

func TestLoadV2(t *testing.T) {
	root := t.TempDir()
	mountInfo := fmt.Sprintf("30 23 0:26 / %s rw - cgroup2 cgroup2 rw,nsdelegate\n", root)

	testTable := []struct {
		name     string
		cgroup   string
		wantPath string
		wantErr  error
	}{
		{name: "root", cgroup: "0::/\n", wantPath: root},
		{name: "subdir", cgroup: "0::/kubepods/pod1\n", wantPath: filepath.Join(root, "kubepods", "pod1")},
		{name: "no unified entry", cgroup: "4:memory:/\n", wantErr: ErrCGroupFSNotFound},
	}

	for _, tt := range testTable {
		t.Run(tt.name, func(t *testing.T) {
			p := newProcFiles(t, mountInfo, tt.cgroup)
			icg, err := Load(p.mountInfo, p.cgroup)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, icg)
				return
			}
			require.NoError(t, err)
			cg, ok := icg.(*CGroups2)
			require.True(t, ok)
			assert.Equal(t, tt.wantPath, cg.Path())
		})
	}
}

func TestLoadHybridFallsBackToV1(t *testing.T) {
	root := t.TempDir()
	mountInfo := fmt.Sprintf("30 23 0:26 / %s/unified rw - cgroup2 cgroup2 rw\n"+
		"33 25 0:29 / %s/memory rw - cgroup cgroup rw,memory\n", root, root)
	p := newProcFiles(t, mountInfo, "4:memory:/\n")

	icg, err := Load(p.mountInfo, p.cgroup)
	require.NoError(t, err)
	assert.Equal(t, "cgroup", icg.Version())
}

func TestLoadErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	ok := newProcFiles(t, "1 0 252:0 / / rw - ext4 /dev/dm-0 rw\n", "0::/\n")
	invalidCGroup := newProcFiles(t, "1 0 252:0 / / rw - ext4 /dev/dm-0 rw\n", "memory\n")
	invalidMountInfo := newProcFiles(t, "random line\n", "0::/\n")
	untranslatable := newProcFiles(t, "31 23 0:24 /docker/abc /sys/fs/cgroup/cpu rw - cgroup cgroup rw,cpu\n", "3:cpu:/system.slice\n")

	testTable := []struct {
		name           string
		mountInfoPath  string
		procCGroupPath string
	}{
		{name: "mountinfo not found", mountInfoPath: missing, procCGroupPath: ok.cgroup},
		{name: "cgroup not found", mountInfoPath: ok.mountInfo, procCGroupPath: missing},
		{name: "invalid cgroup", mountInfoPath: invalidCGroup.mountInfo, procCGroupPath: invalidCGroup.cgroup},
		{name: "invalid mountinfo", mountInfoPath: invalidMountInfo.mountInfo, procCGroupPath: invalidMountInfo.cgroup},
		{name: "untranslatable", mountInfoPath: untranslatable.mountInfo, procCGroupPath: untranslatable.cgroup},
		{name: "no cgroupfs", mountInfoPath: ok.mountInfo, procCGroupPath: ok.cgroup},
	}

	for _, tt := range testTable {
		t.Run(tt.name, func(t *testing.T) {
			icg, err := Load(tt.mountInfoPath, tt.procCGroupPath)
			assert.Nil(t, icg)
			assert.Error(t, err)
		})
	}
}
