package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mosn.io/ballast"
	"mosn.io/ballast/server"
)

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MEMORY_ONLY", "true")

	var got *flags
	cmd := newRootCmd(func(f *flags) error {
		got = f
		return nil
	})
	cmd.SetArgs([]string{"--port", "7070", "--collect-interval", "1s", "--no-cgroup"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, 7070, got.cfg.Port)
	assert.True(t, got.cfg.MemoryOnly)
	assert.Equal(t, time.Second, got.cfg.CollectInterval)
	assert.True(t, got.noCGroup)
	assert.Equal(t, server.MemoryOnly, variant(got))
}

func TestBuildOptions(t *testing.T) {
	var f *flags
	cmd := newRootCmd(func(got *flags) error {
		f = got
		return nil
	})
	cmd.SetArgs([]string{"--default-mb", "64", "--no-cgroup", "--report-url", "http://127.0.0.1:1/events"})
	require.NoError(t, cmd.Execute())

	b, err := ballast.New(buildOptions(f, ballast.NewStdLogger())...)
	require.NoError(t, err)
	defer b.Stop()

	assert.Equal(t, 64, b.Memory.DefaultTargetMB())
	assert.Equal(t, ballast.ContainerLimits{MemoryBytes: -1, CPUQuota: -1}, b.Limits())
	assert.Equal(t, server.Resource, variant(f))
}

func TestRejectsArgs(t *testing.T) {
	cmd := newRootCmd(func(f *flags) error { return nil })
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.Execute())
}
