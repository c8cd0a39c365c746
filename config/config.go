// Package config holds the global simulator parameters: window and fetch
// shape, lane counts, cache geometries and latencies, and predictor
// toggles. It mirrors the free-standing extern-declared globals of the
// reference harness as a single struct so the simulator can be
// constructed, copied, and serialized like any other Go value.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Track selects which instructions are candidates for value prediction.
type Track uint64

const (
	// TrackAll makes every eligible instruction a VP candidate.
	TrackAll Track = iota
	// TrackLoadsOnly restricts candidates to load instructions.
	TrackLoadsOnly
	// TrackLoadsOnlyHitMiss restricts candidates to loads and additionally
	// exposes the data-cache hit/miss outcome to the predictor.
	TrackLoadsOnlyHitMiss
	// numTracks bounds the valid Track values.
	numTracks
)

// Valid reports whether t is one of the known tracks.
func (t Track) Valid() bool {
	return t < numTracks
}

// CacheConfig describes one level of the memory hierarchy.
type CacheConfig struct {
	SizeBytes int    `json:"size_bytes"`
	Assoc     int    `json:"assoc"`
	BlockSize int    `json:"block_size"`
	Latency   uint64 `json:"latency"`
}

// Config holds every tunable of the microarchitecture simulator.
type Config struct {
	// Value predictor toggles.
	VPEnable  bool  `json:"vp_enable"`
	VPPerfect bool  `json:"vp_perfect"`
	VPTrack   Track `json:"vp_track"`

	// Window and fetch-bundle shape.
	WindowSize          int  `json:"window_size"`
	FetchWidth          int  `json:"fetch_width"`
	FetchNumBranch      int  `json:"fetch_num_branch"`
	FetchStopAtIndirect bool `json:"fetch_stop_at_indirect"`
	FetchStopAtTaken    bool `json:"fetch_stop_at_taken"`
	FetchModelICache    bool `json:"fetch_model_icache"`

	// Branch/indirect prediction perfection shortcuts.
	PerfectBranchPred   bool `json:"perfect_branch_pred"`
	PerfectIndirectPred bool `json:"perfect_indirect_pred"`

	// Execution resources.
	PipelineFillLatency uint64 `json:"pipeline_fill_latency"`
	NumLdStLanes        int    `json:"num_ldst_lanes"`
	NumALULanes         int    `json:"num_alu_lanes"`

	// Memory system.
	PrefetcherEnable bool `json:"prefetcher_enable"`
	PerfectCache     bool `json:"perfect_cache"`
	WriteAllocate    bool `json:"write_allocate"`

	IC CacheConfig `json:"icache"`
	L1 CacheConfig `json:"l1"`
	L2 CacheConfig `json:"l2"`
	L3 CacheConfig `json:"l3"`

	MainMemoryLatency uint64 `json:"main_memory_latency"`
}

// Default returns the harness's stock configuration.
func Default() Config {
	return Config{
		VPEnable:  false,
		VPPerfect: false,
		VPTrack:   TrackAll,

		WindowSize:          512,
		FetchWidth:          16,
		FetchNumBranch:      16,
		FetchStopAtIndirect: true,
		FetchStopAtTaken:    true,
		FetchModelICache:    true,

		PerfectBranchPred:   false,
		PerfectIndirectPred: false,

		PipelineFillLatency: 5,
		NumLdStLanes:        8,
		NumALULanes:         16,

		PrefetcherEnable: true,
		PerfectCache:     false,
		WriteAllocate:    true,

		IC: CacheConfig{SizeBytes: 1 << 17, Assoc: 8, BlockSize: 64, Latency: 0},
		L1: CacheConfig{SizeBytes: 1 << 16, Assoc: 8, BlockSize: 64, Latency: 3},
		L2: CacheConfig{SizeBytes: 1 << 20, Assoc: 8, BlockSize: 64, Latency: 12},
		L3: CacheConfig{SizeBytes: 1 << 23, Assoc: 16, BlockSize: 128, Latency: 60},

		MainMemoryLatency: 150,
	}
}

// Load reads a Config from a JSON file, starting from Default() so that
// a partial file only overrides the fields it mentions.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as indented JSON.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func isPow2(n int) bool { return n > 0 && n&(n-1) == 0 }

// Validate checks the invariants the cache hierarchy and schedulers depend
// on: cache geometries must divide evenly into a power-of-two set count,
// and the window must be able to hold at least one instruction.
func (c Config) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive, got %d", c.WindowSize)
	}
	if !c.VPTrack.Valid() {
		return fmt.Errorf("invalid vp track %d", c.VPTrack)
	}
	for name, cc := range map[string]CacheConfig{"icache": c.IC, "l1": c.L1, "l2": c.L2, "l3": c.L3} {
		if !isPow2(cc.BlockSize) {
			return fmt.Errorf("%s: block size %d is not a power of two", name, cc.BlockSize)
		}
		if cc.Assoc <= 0 || cc.SizeBytes%(cc.Assoc*cc.BlockSize) != 0 {
			return fmt.Errorf("%s: size %d is not divisible by assoc*blocksize", name, cc.SizeBytes)
		}
		numSets := cc.SizeBytes / (cc.Assoc * cc.BlockSize)
		if !isPow2(numSets) {
			return fmt.Errorf("%s: number of sets %d is not a power of two", name, numSets)
		}
	}
	return nil
}

// Clone returns an independent copy of c.
func (c Config) Clone() Config {
	return c
}
