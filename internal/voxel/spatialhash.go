package voxel

import "sync"

// SpatialHash is a dense array covering [-maxCoord, maxCoord)^3 chunk
// coordinates, giving O(1) insert/get/remove/contains and O(active)
// iteration without the allocation churn of a map. Chunks outside the
// window are rejected at insert time; for worlds exceeding the bound
// paging (internal/paging) takes over.
type SpatialHash struct {
	mu sync.RWMutex

	maxCoord int32
	side     int32 // 2 * maxCoord

	slots          []*Chunk
	activeIndices  []int
	indexToActive  []int // -1 when the slot is not active
}

const notActive = -1

// NewSpatialHash allocates a hash covering [-maxCoord, maxCoord)^3.
func NewSpatialHash(maxCoord int32) *SpatialHash {
	side := maxCoord * 2
	total := int(side) * int(side) * int(side)
	indexToActive := make([]int, total)
	for i := range indexToActive {
		indexToActive[i] = notActive
	}
	return &SpatialHash{
		maxCoord:      maxCoord,
		side:          side,
		slots:         make([]*Chunk, total),
		indexToActive: indexToActive,
	}
}

func (h *SpatialHash) toIndex(pos ChunkPos) (int, bool) {
	if pos.X < -h.maxCoord || pos.X >= h.maxCoord ||
		pos.Y < -h.maxCoord || pos.Y >= h.maxCoord ||
		pos.Z < -h.maxCoord || pos.Z >= h.maxCoord {
		return 0, false
	}
	x := int(pos.X + h.maxCoord)
	y := int(pos.Y + h.maxCoord)
	z := int(pos.Z + h.maxCoord)
	side := int(h.side)
	return x + y*side + z*side*side, true
}

// Insert adds or replaces the chunk at pos. Returns false if pos falls
// outside the hash's window (the chunk is not stored).
func (h *SpatialHash) Insert(pos ChunkPos, chunk *Chunk) bool {
	idx, ok := h.toIndex(pos)
	if !ok {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.slots[idx] == nil {
		h.indexToActive[idx] = len(h.activeIndices)
		h.activeIndices = append(h.activeIndices, idx)
	}
	h.slots[idx] = chunk
	return true
}

// Get returns the chunk at pos, if present.
func (h *SpatialHash) Get(pos ChunkPos) (*Chunk, bool) {
	idx, ok := h.toIndex(pos)
	if !ok {
		return nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	c := h.slots[idx]
	return c, c != nil
}

// Contains reports whether a chunk is stored at pos.
func (h *SpatialHash) Contains(pos ChunkPos) bool {
	_, ok := h.Get(pos)
	return ok
}

// Remove deletes the chunk at pos, if present, using swap-remove on the
// active-index list for O(1) removal.
func (h *SpatialHash) Remove(pos ChunkPos) (*Chunk, bool) {
	idx, ok := h.toIndex(pos)
	if !ok {
		return nil, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	chunk := h.slots[idx]
	if chunk == nil {
		return nil, false
	}
	h.slots[idx] = nil

	activePos := h.indexToActive[idx]
	lastPos := len(h.activeIndices) - 1
	if activePos != lastPos {
		movedIdx := h.activeIndices[lastPos]
		h.activeIndices[activePos] = movedIdx
		h.indexToActive[movedIdx] = activePos
	}
	h.activeIndices = h.activeIndices[:lastPos]
	h.indexToActive[idx] = notActive

	return chunk, true
}

// Len returns the number of resident chunks.
func (h *SpatialHash) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.activeIndices)
}

// ForEach visits every resident chunk. f must not call back into the
// hash (Insert/Remove) during iteration.
func (h *SpatialHash) ForEach(f func(pos ChunkPos, chunk *Chunk)) {
	h.mu.RLock()
	indices := make([]int, len(h.activeIndices))
	copy(indices, h.activeIndices)
	h.mu.RUnlock()

	for _, idx := range indices {
		h.mu.RLock()
		chunk := h.slots[idx]
		h.mu.RUnlock()
		if chunk != nil {
			f(h.indexToPos(idx), chunk)
		}
	}
}

func (h *SpatialHash) indexToPos(idx int) ChunkPos {
	side := int(h.side)
	z := idx / (side * side)
	rem := idx % (side * side)
	y := rem / side
	x := rem % side
	return ChunkPos{
		X: int32(x) - h.maxCoord,
		Y: int32(y) - h.maxCoord,
		Z: int32(z) - h.maxCoord,
	}
}

// DistanceHash wraps a SpatialHash with a moving center and culls
// entries outside a maximum view distance, damping churn at the view
// boundary independently of C7's own hysteresis cache.
type DistanceHash struct {
	storage      *SpatialHash
	center       ChunkPos
	maxDistSq    int64
}

// NewDistanceHash creates a distance-culling hash with the given
// coordinate window and view distance (in chunks).
func NewDistanceHash(maxCoord, viewDistance int32) *DistanceHash {
	return &DistanceHash{
		storage:   NewSpatialHash(maxCoord),
		maxDistSq: int64(viewDistance) * int64(viewDistance),
	}
}

// UpdateCenter moves the culling center and evicts chunks now outside
// the view distance.
func (d *DistanceHash) UpdateCenter(center ChunkPos) {
	d.center = center

	var stale []ChunkPos
	d.storage.ForEach(func(pos ChunkPos, _ *Chunk) {
		if pos.DistanceSquared(center) > d.maxDistSq {
			stale = append(stale, pos)
		}
	})
	for _, pos := range stale {
		d.storage.Remove(pos)
	}
}

// Insert stores chunk at pos only if pos is within the current view
// distance of the center.
func (d *DistanceHash) Insert(pos ChunkPos, chunk *Chunk) bool {
	if pos.DistanceSquared(d.center) > d.maxDistSq {
		return false
	}
	return d.storage.Insert(pos, chunk)
}

// Get, Remove, Len, and ForEach delegate to the underlying hash.
func (d *DistanceHash) Get(pos ChunkPos) (*Chunk, bool)  { return d.storage.Get(pos) }
func (d *DistanceHash) Remove(pos ChunkPos) (*Chunk, bool) { return d.storage.Remove(pos) }
func (d *DistanceHash) Len() int                         { return d.storage.Len() }
func (d *DistanceHash) ForEach(f func(pos ChunkPos, chunk *Chunk)) { d.storage.ForEach(f) }
