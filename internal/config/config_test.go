package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ModeLocal, cfg.Mode)
	assert.Equal(t, uint32(32), cfg.World.ChunkSize)
	assert.Equal(t, uint32(64), cfg.World.PageSizeVoxels)
	assert.Equal(t, uint32(16384), cfg.World.MaxResidentPages)
	assert.Equal(t, uint8(15), cfg.Lighting.MaxLight)

	errs := NewConfigValidator().Validate(cfg)
	assert.Empty(t, errs)
}

func TestLoadMergesFileAndEnvOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("world:\n  chunk_size: 16\nstorage:\n  backend: local\n  local_path: /tmp/world\n"), 0o644))

	t.Setenv("VOXELCORE_MAX_RESIDENT_PAGES", "4096")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(16), cfg.World.ChunkSize)
	assert.Equal(t, uint32(4096), cfg.World.MaxResidentPages)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("world:\n  chunk_size: 17\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidatorFlagsBadStorage(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "ftp"

	errs := NewConfigValidator().Validate(cfg)
	require.Len(t, errs, 1)
	assert.Equal(t, "storage.backend", errs[0].Field)
}
