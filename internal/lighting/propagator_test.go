package lighting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noahsabaj/voxelcore/internal/config"
	"github.com/noahsabaj/voxelcore/internal/voxel"
)

const testChunkSize = 16

type fakeChunkSource struct {
	chunks map[voxel.ChunkPos]*voxel.Chunk
}

func newFakeChunkSource() *fakeChunkSource {
	return &fakeChunkSource{chunks: make(map[voxel.ChunkPos]*voxel.Chunk)}
}

func (s *fakeChunkSource) GetChunk(pos voxel.ChunkPos) (*voxel.Chunk, bool) {
	c, ok := s.chunks[pos]
	return c, ok
}

func (s *fakeChunkSource) add(pos voxel.ChunkPos) *voxel.Chunk {
	c := voxel.NewChunk(pos, testChunkSize)
	s.chunks[pos] = c
	return c
}

func testLightingConfig() config.LightingConfig {
	return config.LightingConfig{MaxLight: 15, Falloff: 1, IterationCap: 4096}
}

func TestPropagatorAddLightSpreadsWithFalloff(t *testing.T) {
	source := newFakeChunkSource()
	source.add(voxel.ChunkPos{})

	p := NewPropagator(testChunkSize, testLightingConfig(), source)
	p.AddLight(voxel.VoxelPos{X: 8, Y: 8, Z: 8}, ChannelBlock, 10)
	require.NoError(t, p.ProcessPending(context.Background(), 1000))

	chunk, _ := source.GetChunk(voxel.ChunkPos{})
	center := chunk.GetLight(8, 8, 8)
	assert.Equal(t, uint8(10), center.Block)

	neighbor := chunk.GetLight(9, 8, 8)
	assert.Equal(t, uint8(9), neighbor.Block)

	far := chunk.GetLight(0, 8, 8)
	assert.Equal(t, uint8(2), far.Block)
}

func TestPropagatorAddLightStopsAtOpaqueBlock(t *testing.T) {
	source := newFakeChunkSource()
	chunk := source.add(voxel.ChunkPos{})
	chunk.SetBlock(9, 8, 8, 1)
	chunk.SetMaterialFlags(9, 8, 8, voxel.FlagOpaque)

	p := NewPropagator(testChunkSize, testLightingConfig(), source)
	p.AddLight(voxel.VoxelPos{X: 8, Y: 8, Z: 8}, ChannelBlock, 10)
	require.NoError(t, p.ProcessPending(context.Background(), 1000))

	blocked := chunk.GetLight(9, 8, 8)
	assert.Equal(t, uint8(0), blocked.Block)
}

func TestPropagatorRemoveLightUnwindsNeighbors(t *testing.T) {
	source := newFakeChunkSource()
	source.add(voxel.ChunkPos{})

	p := NewPropagator(testChunkSize, testLightingConfig(), source)
	p.AddLight(voxel.VoxelPos{X: 8, Y: 8, Z: 8}, ChannelBlock, 10)
	require.NoError(t, p.ProcessPending(context.Background(), 1000))

	p.RemoveLight(voxel.VoxelPos{X: 8, Y: 8, Z: 8}, ChannelBlock)
	require.NoError(t, p.ProcessPending(context.Background(), 1000))

	chunk, _ := source.GetChunk(voxel.ChunkPos{})
	center := chunk.GetLight(8, 8, 8)
	assert.Equal(t, uint8(0), center.Block)
	neighbor := chunk.GetLight(9, 8, 8)
	assert.Equal(t, uint8(0), neighbor.Block)
}

func TestPropagatorRemoveLightPreservesIndependentSource(t *testing.T) {
	source := newFakeChunkSource()
	source.add(voxel.ChunkPos{})

	p := NewPropagator(testChunkSize, testLightingConfig(), source)
	p.AddLight(voxel.VoxelPos{X: 8, Y: 8, Z: 8}, ChannelBlock, 10)
	p.AddLight(voxel.VoxelPos{X: 9, Y: 8, Z: 8}, ChannelBlock, 10)
	require.NoError(t, p.ProcessPending(context.Background(), 1000))

	p.RemoveLight(voxel.VoxelPos{X: 8, Y: 8, Z: 8}, ChannelBlock)
	require.NoError(t, p.ProcessPending(context.Background(), 1000))

	chunk, _ := source.GetChunk(voxel.ChunkPos{})
	neighbor := chunk.GetLight(9, 8, 8)
	assert.Equal(t, uint8(10), neighbor.Block)
}

func TestPropagatorCrossChunkRequestsRequeueAsBoundary(t *testing.T) {
	source := newFakeChunkSource()
	source.add(voxel.ChunkPos{X: 0})
	source.add(voxel.ChunkPos{X: 1})

	p := NewPropagator(testChunkSize, testLightingConfig(), source)
	// Seed near the +X edge of chunk 0 so propagation crosses into chunk 1.
	p.AddLight(voxel.VoxelPos{X: 15, Y: 8, Z: 8}, ChannelBlock, 10)
	require.NoError(t, p.ProcessPending(context.Background(), 1000))
	require.NoError(t, p.ProcessPending(context.Background(), 1000))

	next, _ := source.GetChunk(voxel.ChunkPos{X: 1})
	spilled := next.GetLight(0, 8, 8)
	assert.Greater(t, spilled.Block, uint8(0))
	assert.Greater(t, p.SnapshotStats().CrossChunkRequeues, uint64(0))
}

func TestPropagatorDropsRequestForUnloadedChunk(t *testing.T) {
	source := newFakeChunkSource()
	p := NewPropagator(testChunkSize, testLightingConfig(), source)
	p.AddLight(voxel.VoxelPos{X: 8, Y: 8, Z: 8}, ChannelBlock, 10)
	require.NoError(t, p.ProcessPending(context.Background(), 1000))
	assert.Equal(t, uint64(0), p.SnapshotStats().ChunksAffected)
}
