package config

import "fmt"

// ConfigValidator checks a resolved Config against the invariants the rest
// of the engine assumes hold (see DATA MODEL / CONFIG sections).
type ConfigValidator struct {
	errors []ValidationError
}

// ValidationError describes one failed validation rule.
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s=%s: %s", v.Field, v.Value, v.Message)
}

// NewConfigValidator creates a validator with no accumulated errors.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// Validate returns every violation found in cfg; an empty slice means cfg
// is safe to use for engine construction.
func (cv *ConfigValidator) Validate(cfg *Config) []ValidationError {
	cv.errors = nil

	cv.validateWorld(cfg.World)
	cv.validatePhysics(cfg.Physics)
	cv.validateStreaming(cfg.Streaming)
	cv.validateLighting(cfg.Lighting)
	cv.validateStorage(cfg.Storage)

	return cv.errors
}

func (cv *ConfigValidator) fail(field, value, message string) {
	cv.errors = append(cv.errors, ValidationError{Field: field, Value: value, Message: message})
}

func (cv *ConfigValidator) validateWorld(w WorldConfig) {
	if w.ChunkSize == 0 || (w.ChunkSize&(w.ChunkSize-1)) != 0 {
		cv.fail("world.chunk_size", fmt.Sprint(w.ChunkSize), "must be a positive power of two")
	}
	if w.PageSizeVoxels == 0 {
		cv.fail("world.page_size_voxels", fmt.Sprint(w.PageSizeVoxels), "must be positive")
	}
	if w.MaxResidentPages == 0 {
		cv.fail("world.max_resident_pages", fmt.Sprint(w.MaxResidentPages), "must be positive")
	}
	if w.MaxChunkCoord <= 0 {
		cv.fail("world.max_chunk_coord", fmt.Sprint(w.MaxChunkCoord), "must be positive")
	}
	if w.ViewDistanceChunks <= 0 {
		cv.fail("world.view_distance_chunks", fmt.Sprint(w.ViewDistanceChunks), "must be positive")
	}
	if w.ViewDistanceChunks > w.MaxChunkCoord {
		cv.fail("world.view_distance_chunks", fmt.Sprint(w.ViewDistanceChunks), "must not exceed max_chunk_coord")
	}
	if w.ChunkCacheSize < 0 {
		cv.fail("world.chunk_cache_size", fmt.Sprint(w.ChunkCacheSize), "must not be negative")
	}
	if w.WorldSizePages[0] == 0 || w.WorldSizePages[1] == 0 || w.WorldSizePages[2] == 0 {
		cv.fail("world.world_size_pages", fmt.Sprint(w.WorldSizePages), "every axis must be positive")
	}
}

func (cv *ConfigValidator) validatePhysics(p PhysicsConfig) {
	if p.Timestep <= 0 {
		cv.fail("physics.timestep_seconds", fmt.Sprint(p.Timestep), "must be positive")
	}
	if p.MaxSubsteps <= 0 {
		cv.fail("physics.max_substeps", fmt.Sprint(p.MaxSubsteps), "must be positive")
	}
	if p.Iterations <= 0 {
		cv.fail("physics.iterations", fmt.Sprint(p.Iterations), "must be positive")
	}
	if p.SpatialCell <= 0 {
		cv.fail("physics.spatial_cell", fmt.Sprint(p.SpatialCell), "must be positive")
	}
	if p.PositionCorrection < 0 || p.PositionCorrection > 1 {
		cv.fail("physics.position_correction", fmt.Sprint(p.PositionCorrection), "must be in [0,1]")
	}
}

func (cv *ConfigValidator) validateStreaming(s StreamingConfig) {
	if s.MaxConcurrentUploads <= 0 {
		cv.fail("streaming.max_concurrent_uploads", fmt.Sprint(s.MaxConcurrentUploads), "must be positive")
	}
	if s.PredictSamples <= 0 {
		cv.fail("streaming.predict_samples", fmt.Sprint(s.PredictSamples), "must be positive")
	}
	if s.PredictHorizonSeconds <= 0 {
		cv.fail("streaming.predict_horizon_seconds", fmt.Sprint(s.PredictHorizonSeconds), "must be positive")
	}
	if s.MaxAttempts <= 0 {
		cv.fail("streaming.max_attempts", fmt.Sprint(s.MaxAttempts), "must be positive")
	}
}

func (cv *ConfigValidator) validateLighting(l LightingConfig) {
	if l.MaxLight == 0 || l.MaxLight > 15 {
		cv.fail("lighting.max_light", fmt.Sprint(l.MaxLight), "must be in [1,15]")
	}
	if l.Falloff == 0 {
		cv.fail("lighting.falloff", fmt.Sprint(l.Falloff), "must be positive")
	}
	if l.IterationCap <= 0 {
		cv.fail("lighting.iteration_cap", fmt.Sprint(l.IterationCap), "must be positive")
	}
}

func (cv *ConfigValidator) validateStorage(s StorageConfig) {
	switch s.Backend {
	case "local":
		if s.LocalPath == "" {
			cv.fail("storage.local_path", s.LocalPath, "required for local backend")
		}
	case "s3", "gcs", "azure", "spaces":
		if s.Bucket == "" {
			cv.fail("storage.bucket", s.Bucket, "required for remote backends")
		}
	default:
		cv.fail("storage.backend", s.Backend, "unknown backend, want local|s3|gcs|azure|spaces")
	}
}
