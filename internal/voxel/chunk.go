package voxel

import "sync"

// Chunk is a cube of side Size voxels stored as four parallel arrays
// (Structure of Arrays) indexed in Morton order. Go's allocator gives no
// control over array alignment the way the original's custom aligned
// allocator did; cache-line locality is instead obtained structurally,
// by keeping each attribute in its own slice so that a reader of one
// channel never pulls unrelated channels' bytes into the same line.
type Chunk struct {
	mu sync.RWMutex

	position ChunkPos
	size     uint32

	blockIDs      []BlockID
	skyLight      []uint8
	blockLight    []uint8
	materialFlags []MaterialFlags

	dirty      bool
	lightDirty bool
}

// NewChunk allocates a chunk of the given position and edge length. All
// four SoA arrays have length size^3; this allocation is the only one
// the chunk performs over its lifetime.
func NewChunk(position ChunkPos, size uint32) *Chunk {
	count := int(size) * int(size) * int(size)
	return &Chunk{
		position:      position,
		size:          size,
		blockIDs:      make([]BlockID, count),
		skyLight:      make([]uint8, count),
		blockLight:    make([]uint8, count),
		materialFlags: make([]MaterialFlags, count),
		dirty:         true,
		lightDirty:    true,
	}
}

func (c *Chunk) inBounds(x, y, z uint32) bool {
	return x < c.size && y < c.size && z < c.size
}

func (c *Chunk) index(x, y, z uint32) int {
	return int(MortonEncode3(x, y, z))
}

// GetBlock returns the block at local coordinates, or BlockAir if the
// coordinates are out of bounds.
func (c *Chunk) GetBlock(x, y, z uint32) BlockID {
	if !c.inBounds(x, y, z) {
		return BlockAir
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blockIDs[c.index(x, y, z)]
}

// SetBlock sets the block at local coordinates and marks the chunk
// dirty. Out-of-bounds writes are no-ops.
func (c *Chunk) SetBlock(x, y, z uint32, id BlockID) {
	if !c.inBounds(x, y, z) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blockIDs[c.index(x, y, z)] = id
	c.dirty = true
}

// GetMaterialFlags returns the material flags at local coordinates.
func (c *Chunk) GetMaterialFlags(x, y, z uint32) MaterialFlags {
	if !c.inBounds(x, y, z) {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.materialFlags[c.index(x, y, z)]
}

// SetMaterialFlags sets the material flags at local coordinates.
func (c *Chunk) SetMaterialFlags(x, y, z uint32, flags MaterialFlags) {
	if !c.inBounds(x, y, z) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.materialFlags[c.index(x, y, z)] = flags
}

// GetLight returns the sky and block light levels at local coordinates.
// Out-of-bounds reads return dark (0, 0), matching the store's
// "OOB reads return AIR/dark" failure rule.
func (c *Chunk) GetLight(x, y, z uint32) LightLevel {
	if !c.inBounds(x, y, z) {
		return LightLevel{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := c.index(x, y, z)
	return LightLevel{Sky: c.skyLight[idx], Block: c.blockLight[idx]}
}

// SetLight sets both light channels at local coordinates and marks the
// chunk light-dirty (and dirty, since light is part of persisted state).
func (c *Chunk) SetLight(x, y, z uint32, light LightLevel) {
	if !c.inBounds(x, y, z) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.index(x, y, z)
	c.skyLight[idx] = light.Sky
	c.blockLight[idx] = light.Block
	c.lightDirty = true
	c.dirty = true
}

// IterMorton visits every voxel in Morton order, the cache-optimal
// traversal for bulk scans (compression, skylight seeding, meshing).
func (c *Chunk) IterMorton(f func(x, y, z uint32, id BlockID)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for morton := 0; morton < len(c.blockIDs); morton++ {
		x, y, z := MortonDecode3(uint32(morton))
		f(x, y, z, c.blockIDs[morton])
	}
}

// Position returns the chunk's position in chunk-space.
func (c *Chunk) Position() ChunkPos { return c.position }

// Size returns the chunk's edge length in voxels.
func (c *Chunk) Size() uint32 { return c.size }

// IsDirty reports whether the chunk has unsaved block/light changes.
func (c *Chunk) IsDirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// IsLightDirty reports whether the chunk's light channels changed since
// the last light-clean mark.
func (c *Chunk) IsLightDirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lightDirty
}

// MarkClean clears the dirty flag (after a successful write-back).
func (c *Chunk) MarkClean() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = false
}

// MarkLightClean clears the light-dirty flag (after propagation drains).
func (c *Chunk) MarkLightClean() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lightDirty = false
}

// MarkDirty forces the dirty flag, used when a neighbor edge write
// requires this chunk to be re-considered for write-back or remeshing.
func (c *Chunk) MarkDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = true
}
