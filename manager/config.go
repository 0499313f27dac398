// File: manager/config.go
// Author: momentics
// License: Apache-2.0

package manager

import (
	"os"
	"strconv"
	"strings"
)

// Config controls spill behavior.
type Config struct {
	// DeviceLimit is the device-memory budget in bytes; zero or
	// negative disables budget enforcement.
	DeviceLimit int64

	// OnDemand enables spilling from the allocator's out-of-memory
	// callback.
	OnDemand bool

	// StatExpose enables exposure statistics.
	StatExpose bool
}

// Environment variables read by FromEnv.
const (
	EnvDeviceLimit = "SPILLMEM_DEVICE_LIMIT"
	EnvOnDemand    = "SPILLMEM_ON_DEMAND"
	EnvStatExpose  = "SPILLMEM_STAT_EXPOSE"
)

// FromEnv builds a Config from the environment. Unset or malformed
// values fall back to the defaults: no limit, on-demand spilling
// enabled, exposure statistics disabled.
func FromEnv() Config {
	return Config{
		DeviceLimit: envInt(EnvDeviceLimit, 0),
		OnDemand:    envBool(EnvOnDemand, true),
		StatExpose:  envBool(EnvStatExpose, false),
	}
}

func envInt(name string, def int64) int64 {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envBool(name string, def bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "1", "yes":
		return true
	case "false", "off", "0", "no":
		return false
	default:
		return def
	}
}
