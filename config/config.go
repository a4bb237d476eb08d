// Package config carries the engine-wide tunables that opteryx's
// config.py keeps as module-level constants: how big a greedy operator is
// allowed to get before raising OutOfMemory, the target morsel size the
// MorselDefragment operator coalesces towards, the K below which a
// Sort-then-Limit is lowered to a HeapSort, and where (if anywhere) a
// query profile is written.
//
// Values are layered env > default through spf13/viper (no config file is
// read), the same
// library denisvmedia-inventario uses for its application configuration.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	EnvPrefix = "MORSELQ"

	// EngineVersion is reported as the engine_version row of SHOW
	// VARIABLES. VERSION() returns its own literal and does not read it.
	EngineVersion = "0.1.0"
)

// Config is the resolved set of engine tunables for one Engine instance.
type Config struct {
	// MorselSize is the number of rows MorselDefragment coalesces small
	// batches up to.
	MorselSize int
	// MaxGreedyMemoryBytes bounds the buffered state of greedy operators
	// (Aggregate, AggregateAndGroup, Sort, Join build side) before they
	// raise errkind.OutOfMemory. Zero means unbounded.
	MaxGreedyMemoryBytes int64
	// HeapSortThreshold is the largest K for which a Sort immediately
	// followed by a Limit is lowered to a HeapSort by the physical
	// planner.
	HeapSortThreshold int64
	// ProfileLocation, if non-empty, is where per-query profiling output
	// (the rendered logical plan plus timings) is appended.
	ProfileLocation string
}

// Default returns the engine's built-in defaults, the same values opteryx
// ships in config.py before any environment override is applied.
func Default() *Config {
	return &Config{
		MorselSize:           64 * 1024,
		MaxGreedyMemoryBytes: 0,
		HeapSortThreshold:    1000,
		ProfileLocation:      "",
	}
}

// Load resolves a Config from the environment, overriding Default. Keys are
// read as MORSELQ_MORSEL_SIZE, MORSELQ_MAX_GREEDY_MEMORY_BYTES,
// MORSELQ_HEAP_SORT_THRESHOLD, MORSELQ_PROFILE_LOCATION.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	v.SetDefault("morsel_size", cfg.MorselSize)
	v.SetDefault("max_greedy_memory_bytes", cfg.MaxGreedyMemoryBytes)
	v.SetDefault("heap_sort_threshold", cfg.HeapSortThreshold)
	v.SetDefault("profile_location", cfg.ProfileLocation)

	return &Config{
		MorselSize:           v.GetInt("morsel_size"),
		MaxGreedyMemoryBytes: v.GetInt64("max_greedy_memory_bytes"),
		HeapSortThreshold:    v.GetInt64("heap_sort_threshold"),
		ProfileLocation:      v.GetString("profile_location"),
	}
}
