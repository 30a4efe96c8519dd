package voxel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkSetGetBlockRoundTrip(t *testing.T) {
	c := NewChunk(ChunkPos{0, 0, 0}, 32)

	c.SetBlock(10, 20, 15, BlockID(42))
	assert.Equal(t, BlockID(42), c.GetBlock(10, 20, 15))
	assert.True(t, c.IsDirty())
}

func TestChunkOutOfBoundsReadsReturnAirAndWritesNoop(t *testing.T) {
	c := NewChunk(ChunkPos{0, 0, 0}, 32)

	assert.Equal(t, BlockAir, c.GetBlock(32, 0, 0))

	c.MarkClean()
	c.SetBlock(100, 0, 0, BlockID(7))
	assert.False(t, c.IsDirty())
}

func TestChunkLightRoundTrip(t *testing.T) {
	c := NewChunk(ChunkPos{0, 0, 0}, 32)

	c.SetLight(10, 20, 15, LightLevel{Sky: 10, Block: 5})
	light := c.GetLight(10, 20, 15)
	assert.Equal(t, uint8(10), light.Sky)
	assert.Equal(t, uint8(5), light.Block)
	assert.True(t, c.IsLightDirty())
}

func TestChunkIterMortonVisitsEveryVoxelOnce(t *testing.T) {
	c := NewChunk(ChunkPos{0, 0, 0}, 4)
	c.SetBlock(1, 2, 3, BlockID(9))

	seen := make(map[[3]uint32]BlockID)
	c.IterMorton(func(x, y, z uint32, id BlockID) {
		seen[[3]uint32{x, y, z}] = id
	})

	assert.Len(t, seen, 4*4*4)
	assert.Equal(t, BlockID(9), seen[[3]uint32{1, 2, 3}])
}

func TestMortonEncodeDecodeRoundTrip(t *testing.T) {
	for x := uint32(0); x < 8; x++ {
		for y := uint32(0); y < 8; y++ {
			for z := uint32(0); z < 8; z++ {
				code := MortonEncode3(x, y, z)
				gx, gy, gz := MortonDecode3(code)
				assert.Equal(t, x, gx)
				assert.Equal(t, y, gy)
				assert.Equal(t, z, gz)
			}
		}
	}
}

func TestVoxelPosToChunkPosHandlesNegativeCoordinates(t *testing.T) {
	p := VoxelPos{X: -1, Y: -33, Z: 31}
	cp := p.ToChunkPos(32)
	assert.Equal(t, ChunkPos{X: -1, Y: -2, Z: 0}, cp)

	lx, ly, lz := p.ToLocal(32)
	assert.Equal(t, uint32(31), lx)
	assert.Equal(t, uint32(31), ly)
	assert.Equal(t, uint32(31), lz)
}
