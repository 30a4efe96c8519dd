package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noahsabaj/voxelcore/internal/voxel"
)

func countGenerated(m *Manager) func() int {
	n := 0
	m.generate = func(pos voxel.ChunkPos, size uint32) *voxel.Chunk {
		n++
		return voxel.NewChunk(pos, size)
	}
	return func() int { return n }
}

func TestManagerSyncLoadsSphereAroundObserver(t *testing.T) {
	m := NewManager(16, 2, 64, 0, nil, nil)
	getCount := countGenerated(m)

	m.Sync([3]float64{0, 0, 0})

	assert.Greater(t, m.LoadedLen(), 0)
	assert.Greater(t, getCount(), 0)

	_, ok := m.GetChunk(voxel.ChunkPos{X: 0, Y: 0, Z: 0})
	assert.True(t, ok)
}

func TestManagerSyncUnloadsChunksOutOfView(t *testing.T) {
	m := NewManager(16, 1, 64, 16, nil, nil)
	countGenerated(m)

	m.Sync([3]float64{0, 0, 0})
	initialLen := m.LoadedLen()
	require.Greater(t, initialLen, 0)

	// Move far enough away that the original sphere no longer overlaps.
	m.Sync([3]float64{16 * 50, 0, 0})

	_, stillLoaded := m.GetChunk(voxel.ChunkPos{X: 0, Y: 0, Z: 0})
	assert.False(t, stillLoaded)
	assert.Greater(t, m.LoadedLen(), 0)
}

func TestManagerObtainChunkReusesUnloadCache(t *testing.T) {
	m := NewManager(16, 1, 64, 16, nil, nil)
	getCount := countGenerated(m)

	m.Sync([3]float64{0, 0, 0})
	afterFirstLoad := getCount()
	require.Greater(t, afterFirstLoad, 0)

	m.Sync([3]float64{16 * 50, 0, 0}) // unload everything near origin
	afterMoveAway := getCount()       // the far sphere was generated fresh
	m.Sync([3]float64{0, 0, 0})       // move back; should hit the cache, not regenerate

	assert.Equal(t, afterMoveAway, getCount(), "chunks near origin should have been served from the unload cache")
}

func TestManagerSetBlockMarksNeighborsDirtyOnEdge(t *testing.T) {
	m := NewManager(16, 1, 64, 16, func(pos voxel.ChunkPos, size uint32) *voxel.Chunk {
		return voxel.NewChunk(pos, size)
	}, nil)

	m.Sync([3]float64{0, 0, 0})
	m.TakeDirtyChunks() // drain the load-time dirty marks

	// x=0 is the local edge of chunk (0,0,0); writing there should dirty
	// chunk (-1,0,0) too.
	m.SetBlock(voxel.VoxelPos{X: 0, Y: 5, Z: 5}, voxel.BlockID(7))

	dirty := m.TakeDirtyChunks()
	require.Contains(t, dirty, voxel.ChunkPos{X: 0, Y: 0, Z: 0})
	assert.Contains(t, dirty, voxel.ChunkPos{X: -1, Y: 0, Z: 0})

	assert.Equal(t, voxel.BlockID(7), m.GetBlock(voxel.VoxelPos{X: 0, Y: 5, Z: 5}))
}

func TestManagerGetBlockOutOfLoadedChunkIsAir(t *testing.T) {
	m := NewManager(16, 0, 64, 16, nil, nil)
	assert.Equal(t, voxel.BlockAir, m.GetBlock(voxel.VoxelPos{X: 1000, Y: 1000, Z: 1000}))
}

func TestManagerTakeDirtyChunksDrains(t *testing.T) {
	m := NewManager(16, 1, 64, 16, func(pos voxel.ChunkPos, size uint32) *voxel.Chunk {
		return voxel.NewChunk(pos, size)
	}, nil)

	m.Sync([3]float64{0, 0, 0})
	first := m.TakeDirtyChunks()
	assert.NotEmpty(t, first)

	second := m.TakeDirtyChunks()
	assert.Empty(t, second)
}
