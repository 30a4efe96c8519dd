// Package config provides configuration management for the voxel engine core.
// It handles loading, validation, and merging of configuration from files,
// environment variables, and built-in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects where the authoritative copy of paged world data lives.
type Mode string

const (
	// ModeLocal keeps the world file entirely on local disk.
	ModeLocal Mode = "local"
	// ModeCloud streams pages to/from a remote object store backend.
	ModeCloud Mode = "cloud"
	// ModeHybrid keeps a local working set and archives cold pages remotely.
	ModeHybrid Mode = "hybrid"
)

// Config is the complete configuration surface for the core engine.
type Config struct {
	Mode     Mode   `json:"mode" yaml:"mode"`
	StateDir string `json:"state_dir" yaml:"state_dir"`

	World     WorldConfig     `json:"world" yaml:"world"`
	Physics   PhysicsConfig   `json:"physics" yaml:"physics"`
	Streaming StreamingConfig `json:"streaming" yaml:"streaming"`
	Lighting  LightingConfig  `json:"lighting" yaml:"lighting"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
}

// WorldConfig controls the chunk/page tiling of the voxel field.
type WorldConfig struct {
	ChunkSize       uint32 `json:"chunk_size" yaml:"chunk_size"`
	PageSizeVoxels  uint32 `json:"page_size_voxels" yaml:"page_size_voxels"`
	MaxResidentPages uint32 `json:"max_resident_pages" yaml:"max_resident_pages"`
	// MaxChunkCoord bounds the dense chunk spatial hash window to
	// [-MaxChunkCoord, MaxChunkCoord) on each axis.
	MaxChunkCoord int32 `json:"max_chunk_coord" yaml:"max_chunk_coord"`
	// ViewDistanceChunks is the radius, in chunks, that the chunk manager
	// keeps loaded around each observer.
	ViewDistanceChunks int32 `json:"view_distance_chunks" yaml:"view_distance_chunks"`
	// ChunkCacheSize bounds the hysteresis cache of recently-unloaded
	// chunks kept around in case an observer backtracks.
	ChunkCacheSize int `json:"chunk_cache_size" yaml:"chunk_cache_size"`
	// WorldSizePages bounds the page table's dense Morton-ordered entry
	// array, in pages per axis. Distinct from MaxChunkCoord: the page
	// table and the chunk spatial hash tile the world at different
	// granularities and are sized independently.
	WorldSizePages [3]uint32 `json:"world_size_pages" yaml:"world_size_pages"`
}

// PhysicsConfig controls the fixed-step solver.
type PhysicsConfig struct {
	Timestep           float64 `json:"timestep_seconds" yaml:"timestep_seconds"`
	MaxSubsteps        int     `json:"max_substeps" yaml:"max_substeps"`
	Gravity            float64 `json:"gravity" yaml:"gravity"`
	TerminalVelocity   float64 `json:"terminal_velocity" yaml:"terminal_velocity"`
	Iterations         int     `json:"iterations" yaml:"iterations"`
	PositionCorrection float64 `json:"position_correction" yaml:"position_correction"`
	SleepThreshold     float64 `json:"sleep_threshold" yaml:"sleep_threshold"`
	SpatialCell        float64 `json:"spatial_cell" yaml:"spatial_cell"`
}

// StreamingConfig controls the paging pipeline and predictive loader.
type StreamingConfig struct {
	MaxConcurrentUploads int     `json:"max_concurrent_uploads" yaml:"max_concurrent_uploads"`
	MaxMappedMemoryBytes int64   `json:"max_mapped_memory_bytes" yaml:"max_mapped_memory_bytes"`
	PredictHorizonSeconds float64 `json:"predict_horizon_seconds" yaml:"predict_horizon_seconds"`
	PredictSamples       int     `json:"predict_samples" yaml:"predict_samples"`
	MaxAttempts          int     `json:"max_attempts" yaml:"max_attempts"`
	InitialBackoff       time.Duration `json:"initial_backoff" yaml:"initial_backoff"`
}

// LightingConfig controls the BFS light propagator.
type LightingConfig struct {
	MaxLight    uint8 `json:"max_light" yaml:"max_light"`
	Falloff     uint8 `json:"falloff" yaml:"falloff"`
	IterationCap int  `json:"iteration_cap" yaml:"iteration_cap"`
}

// StorageConfig selects and configures the page-blob backend.
type StorageConfig struct {
	// Backend is one of "local", "s3", "gcs", "azure", "spaces".
	Backend    string `json:"backend" yaml:"backend"`
	LocalPath  string `json:"local_path" yaml:"local_path"`
	Bucket     string `json:"bucket" yaml:"bucket"`
	Region     string `json:"region" yaml:"region"`
	Prefix     string `json:"prefix" yaml:"prefix"`
}

// Default returns the engine's built-in default configuration, matching the
// defaults enumerated in the core specification.
func Default() *Config {
	return &Config{
		Mode:     ModeLocal,
		StateDir: defaultStateDir(),
		World: WorldConfig{
			ChunkSize:        32,
			PageSizeVoxels:   64,
			MaxResidentPages: 16384,
			MaxChunkCoord:    256,
			ViewDistanceChunks: 8,
			ChunkCacheSize:   256,
			WorldSizePages:   [3]uint32{64, 64, 64},
		},
		Physics: PhysicsConfig{
			Timestep:           1.0 / 60.0,
			MaxSubsteps:        4,
			Gravity:            -9.81,
			TerminalVelocity:   -54.0,
			Iterations:         4,
			PositionCorrection: 0.2,
			SleepThreshold:     0.1,
			SpatialCell:        4.0,
		},
		Streaming: StreamingConfig{
			MaxConcurrentUploads:  32,
			MaxMappedMemoryBytes:  256 << 20,
			PredictHorizonSeconds: 2.0,
			PredictSamples:        10,
			MaxAttempts:           3,
			InitialBackoff:        100 * time.Millisecond,
		},
		Lighting: LightingConfig{
			MaxLight:     15,
			Falloff:      1,
			IterationCap: 65536,
		},
		Storage: StorageConfig{
			Backend:   "local",
			LocalPath: defaultStateDir() + "/world",
		},
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".voxelcore"
	}
	return home + "/.voxelcore"
}

// Load reads a configuration file (YAML or JSON, by extension) layered over
// the built-in defaults and environment variable overrides. An empty path
// loads defaults plus environment overrides only.
func Load(path string) (*Config, error) {
	loader := NewConfigLoader()
	loader.AddSource(&DefaultConfigSource{priority: 0})
	if path != "" {
		loader.AddSource(&FileConfigSource{path: path, priority: 10})
	}
	loader.AddSource(&EnvironmentConfigSource{prefix: "VOXELCORE_", priority: 20})
	return loader.Load()
}

// String renders the resolved config as indented JSON for diagnostics/CLI surfaces.
func (c *Config) String() string {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("<config marshal error: %v>", err)
	}
	return string(b)
}

func marshalYAML(c *Config) ([]byte, error) {
	return yaml.Marshal(c)
}
