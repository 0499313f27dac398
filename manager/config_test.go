package manager_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/spillmem/manager"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := manager.FromEnv()
	require.Zero(t, cfg.DeviceLimit)
	require.True(t, cfg.OnDemand)
	require.False(t, cfg.StatExpose)
}

func TestFromEnvParsesValues(t *testing.T) {
	t.Setenv(manager.EnvDeviceLimit, "1048576")
	t.Setenv(manager.EnvOnDemand, "off")
	t.Setenv(manager.EnvStatExpose, "on")

	cfg := manager.FromEnv()
	require.Equal(t, int64(1048576), cfg.DeviceLimit)
	require.False(t, cfg.OnDemand)
	require.True(t, cfg.StatExpose)
}

func TestFromEnvIgnoresMalformed(t *testing.T) {
	t.Setenv(manager.EnvDeviceLimit, "plenty")
	t.Setenv(manager.EnvOnDemand, "maybe")

	cfg := manager.FromEnv()
	require.Zero(t, cfg.DeviceLimit)
	require.True(t, cfg.OnDemand)
}
