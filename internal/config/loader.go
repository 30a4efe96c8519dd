package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigLoader loads configuration from a set of prioritized sources and
// merges them, highest priority last.
type ConfigLoader struct {
	sources   []ConfigSource
	validator *ConfigValidator
}

// ConfigSource is a single contributor to the final configuration.
type ConfigSource interface {
	Load() (*Config, error)
	Priority() int
	Name() string
}

// DefaultConfigSource always contributes the built-in defaults.
type DefaultConfigSource struct {
	priority int
}

func (s *DefaultConfigSource) Load() (*Config, error) { return Default(), nil }
func (s *DefaultConfigSource) Priority() int          { return s.priority }
func (s *DefaultConfigSource) Name() string           { return "defaults" }

// FileConfigSource loads a YAML or JSON configuration file.
type FileConfigSource struct {
	path     string
	priority int
}

func (s *FileConfigSource) Priority() int { return s.priority }
func (s *FileConfigSource) Name() string  { return "file:" + s.path }

func (s *FileConfigSource) Load() (*Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", s.path, err)
	}

	cfg := &Config{}
	if strings.HasSuffix(s.path, ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing json config %s: %w", s.path, err)
		}
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing yaml config %s: %w", s.path, err)
	}
	return cfg, nil
}

// EnvironmentConfigSource overlays a handful of tunables from environment
// variables, prefixed to avoid collisions with the host process.
type EnvironmentConfigSource struct {
	prefix   string
	priority int
}

func (s *EnvironmentConfigSource) Priority() int { return s.priority }
func (s *EnvironmentConfigSource) Name() string  { return "environment" }

func (s *EnvironmentConfigSource) Load() (*Config, error) {
	cfg := &Config{}

	if v := os.Getenv(s.prefix + "CHUNK_SIZE"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid %sCHUNK_SIZE: %w", s.prefix, err)
		}
		cfg.World.ChunkSize = uint32(n)
	}
	if v := os.Getenv(s.prefix + "PAGE_SIZE_VOXELS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid %sPAGE_SIZE_VOXELS: %w", s.prefix, err)
		}
		cfg.World.PageSizeVoxels = uint32(n)
	}
	if v := os.Getenv(s.prefix + "MAX_RESIDENT_PAGES"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid %sMAX_RESIDENT_PAGES: %w", s.prefix, err)
		}
		cfg.World.MaxResidentPages = uint32(n)
	}
	if v := os.Getenv(s.prefix + "VIEW_DISTANCE_CHUNKS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid %sVIEW_DISTANCE_CHUNKS: %w", s.prefix, err)
		}
		cfg.World.ViewDistanceChunks = int32(n)
	}
	if v := os.Getenv(s.prefix + "STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv(s.prefix + "MODE"); v != "" {
		cfg.Mode = Mode(v)
	}

	return cfg, nil
}

// NewConfigLoader creates an empty loader.
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{validator: NewConfigValidator()}
}

// AddSource registers a configuration source.
func (cl *ConfigLoader) AddSource(source ConfigSource) {
	cl.sources = append(cl.sources, source)
}

// Load merges all registered sources by ascending priority (later sources
// win ties on individual fields that are set) and validates the result.
func (cl *ConfigLoader) Load() (*Config, error) {
	sort.SliceStable(cl.sources, func(i, j int) bool {
		return cl.sources[i].Priority() < cl.sources[j].Priority()
	})

	merged := Default()
	for _, source := range cl.sources {
		partial, err := source.Load()
		if err != nil {
			return nil, fmt.Errorf("loading source %s: %w", source.Name(), err)
		}
		merged = mergeConfigs(merged, partial)
	}

	if errs := cl.validator.Validate(merged); len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return merged, nil
}

// mergeConfigs overlays non-zero fields from overlay onto base. Only the
// fields exposed through the environment/file sources are considered;
// zero values are treated as "not set" for the override layer.
func mergeConfigs(base, overlay *Config) *Config {
	result := *base

	if overlay.Mode != "" {
		result.Mode = overlay.Mode
	}
	if overlay.StateDir != "" {
		result.StateDir = overlay.StateDir
	}

	if overlay.World.ChunkSize != 0 {
		result.World.ChunkSize = overlay.World.ChunkSize
	}
	if overlay.World.PageSizeVoxels != 0 {
		result.World.PageSizeVoxels = overlay.World.PageSizeVoxels
	}
	if overlay.World.MaxResidentPages != 0 {
		result.World.MaxResidentPages = overlay.World.MaxResidentPages
	}
	if overlay.World.MaxChunkCoord != 0 {
		result.World.MaxChunkCoord = overlay.World.MaxChunkCoord
	}
	if overlay.World.ViewDistanceChunks != 0 {
		result.World.ViewDistanceChunks = overlay.World.ViewDistanceChunks
	}
	if overlay.World.ChunkCacheSize != 0 {
		result.World.ChunkCacheSize = overlay.World.ChunkCacheSize
	}
	if overlay.World.WorldSizePages != ([3]uint32{}) {
		result.World.WorldSizePages = overlay.World.WorldSizePages
	}

	if overlay.Physics.Timestep != 0 {
		result.Physics.Timestep = overlay.Physics.Timestep
	}
	if overlay.Physics.MaxSubsteps != 0 {
		result.Physics.MaxSubsteps = overlay.Physics.MaxSubsteps
	}
	if overlay.Physics.Gravity != 0 {
		result.Physics.Gravity = overlay.Physics.Gravity
	}
	if overlay.Physics.TerminalVelocity != 0 {
		result.Physics.TerminalVelocity = overlay.Physics.TerminalVelocity
	}
	if overlay.Physics.Iterations != 0 {
		result.Physics.Iterations = overlay.Physics.Iterations
	}
	if overlay.Physics.PositionCorrection != 0 {
		result.Physics.PositionCorrection = overlay.Physics.PositionCorrection
	}
	if overlay.Physics.SleepThreshold != 0 {
		result.Physics.SleepThreshold = overlay.Physics.SleepThreshold
	}
	if overlay.Physics.SpatialCell != 0 {
		result.Physics.SpatialCell = overlay.Physics.SpatialCell
	}

	if overlay.Streaming.MaxConcurrentUploads != 0 {
		result.Streaming.MaxConcurrentUploads = overlay.Streaming.MaxConcurrentUploads
	}
	if overlay.Streaming.MaxMappedMemoryBytes != 0 {
		result.Streaming.MaxMappedMemoryBytes = overlay.Streaming.MaxMappedMemoryBytes
	}
	if overlay.Streaming.PredictHorizonSeconds != 0 {
		result.Streaming.PredictHorizonSeconds = overlay.Streaming.PredictHorizonSeconds
	}
	if overlay.Streaming.PredictSamples != 0 {
		result.Streaming.PredictSamples = overlay.Streaming.PredictSamples
	}
	if overlay.Streaming.MaxAttempts != 0 {
		result.Streaming.MaxAttempts = overlay.Streaming.MaxAttempts
	}
	if overlay.Streaming.InitialBackoff != 0 {
		result.Streaming.InitialBackoff = overlay.Streaming.InitialBackoff
	}

	if overlay.Lighting.MaxLight != 0 {
		result.Lighting.MaxLight = overlay.Lighting.MaxLight
	}
	if overlay.Lighting.Falloff != 0 {
		result.Lighting.Falloff = overlay.Lighting.Falloff
	}
	if overlay.Lighting.IterationCap != 0 {
		result.Lighting.IterationCap = overlay.Lighting.IterationCap
	}

	if overlay.Storage.Backend != "" {
		result.Storage.Backend = overlay.Storage.Backend
	}
	if overlay.Storage.LocalPath != "" {
		result.Storage.LocalPath = overlay.Storage.LocalPath
	}
	if overlay.Storage.Bucket != "" {
		result.Storage.Bucket = overlay.Storage.Bucket
	}
	if overlay.Storage.Region != "" {
		result.Storage.Region = overlay.Storage.Region
	}
	if overlay.Storage.Prefix != "" {
		result.Storage.Prefix = overlay.Storage.Prefix
	}

	return &result
}
