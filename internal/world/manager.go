// Package world implements the chunk manager tying the voxel store, the
// paged residency layer, and terrain generation together: it decides
// which chunks should be loaded around each observer, where a newly
// loaded chunk's data comes from, and which chunks a block write leaves
// dirty.
package world

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/noahsabaj/voxelcore/internal/cache"
	"github.com/noahsabaj/voxelcore/internal/paging"
	"github.com/noahsabaj/voxelcore/internal/voxel"
)

// neverExpire stands in for "no TTL": internal/cache.LRUCache always
// applies an expiry, so the unload cache is given a horizon far beyond
// any real session instead of being allowed to decay on its own.
const neverExpire = 100 * 365 * 24 * time.Hour

const defaultCacheSize = 64

// GenerateChunkFunc produces a freshly generated chunk when neither the
// hysteresis cache nor the paged store already has one for pos.
type GenerateChunkFunc func(pos voxel.ChunkPos, size uint32) *voxel.Chunk

// Manager owns the set of currently loaded chunks, streams them in and
// out as observers move, and tracks which chunks need re-meshing or
// re-propagation after a write.
type Manager struct {
	mu sync.Mutex

	chunks       *voxel.SpatialHash
	chunkSize    uint32
	viewDistance int32

	unloadCache *cache.LRUCache

	dirty map[voxel.ChunkPos]struct{}

	generate GenerateChunkFunc
	store    *paging.Store

	// SurfaceHeight, if set, answers terrain-height queries without
	// requiring the querying chunk to be loaded.
	SurfaceHeight func(worldX, worldZ float64) int32
}

// NewManager builds a chunk manager. maxChunkCoord bounds the dense
// spatial hash window (see voxel.NewSpatialHash); viewDistance is the
// radius, in chunks, kept loaded around an observer. store may be nil,
// in which case every chunk entering view is either pulled from the
// unload cache or generated. cacheSize <= 0 defaults to 64, matching
// the original chunk manager's fixed cache budget.
func NewManager(chunkSize uint32, viewDistance, maxChunkCoord int32, cacheSize int, generate GenerateChunkFunc, store *paging.Store) *Manager {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	return &Manager{
		chunks:       voxel.NewSpatialHash(maxChunkCoord),
		chunkSize:    chunkSize,
		viewDistance: viewDistance,
		unloadCache:  cache.NewLRUCache(cacheSize),
		dirty:        make(map[voxel.ChunkPos]struct{}),
		generate:     generate,
		store:        store,
	}
}

func chunkKey(pos voxel.ChunkPos) string {
	return fmt.Sprintf("%d:%d:%d", pos.X, pos.Y, pos.Z)
}

func worldToChunkPos(pos [3]float64, chunkSize uint32) voxel.ChunkPos {
	size := float64(chunkSize)
	return voxel.ChunkPos{
		X: int32(math.Floor(pos[0] / size)),
		Y: int32(math.Floor(pos[1] / size)),
		Z: int32(math.Floor(pos[2] / size)),
	}
}

// Sync recomputes the sphere of chunks that should be loaded around
// observerPos, unloading anything that fell out of view (into the
// hysteresis cache) and loading anything newly in view (from the
// cache, the paged store, or the generator, in that order).
func (m *Manager) Sync(observerPos [3]float64) {
	center := worldToChunkPos(observerPos, m.chunkSize)
	vd := m.viewDistance
	vdSq := int64(vd) * int64(vd)

	toLoad := make(map[voxel.ChunkPos]struct{})
	for dx := -vd; dx <= vd; dx++ {
		for dy := -vd; dy <= vd; dy++ {
			for dz := -vd; dz <= vd; dz++ {
				if int64(dx)*int64(dx)+int64(dy)*int64(dy)+int64(dz)*int64(dz) > vdSq {
					continue
				}
				toLoad[center.Offset(dx, dy, dz)] = struct{}{}
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var toUnload []voxel.ChunkPos
	m.chunks.ForEach(func(pos voxel.ChunkPos, _ *voxel.Chunk) {
		if _, keep := toLoad[pos]; !keep {
			toUnload = append(toUnload, pos)
		}
	})
	for _, pos := range toUnload {
		if chunk, ok := m.chunks.Remove(pos); ok {
			m.unloadCache.Set(chunkKey(pos), chunk, neverExpire)
		}
	}

	for pos := range toLoad {
		if m.chunks.Contains(pos) {
			continue
		}
		chunk := m.obtainChunkLocked(pos)
		m.chunks.Insert(pos, chunk)
		m.dirty[pos] = struct{}{}
	}
}

func (m *Manager) obtainChunkLocked(pos voxel.ChunkPos) *voxel.Chunk {
	if cached, ok := m.unloadCache.Get(chunkKey(pos)); ok {
		m.unloadCache.Delete(chunkKey(pos))
		return cached.(*voxel.Chunk)
	}
	if chunk, ok := m.hydrateFromStore(pos); ok {
		return chunk
	}
	if m.generate != nil {
		return m.generate(pos, m.chunkSize)
	}
	return voxel.NewChunk(pos, m.chunkSize)
}

// hydrateFromStore builds a chunk from an already-resident page,
// avoiding regeneration when the underlying voxel data has already
// been streamed in by C3/C5. This only applies when the paged store's
// page geometry matches chunk geometry 1:1 (one page per chunk); a
// coarser page tiling is left to the predictive loader's own streaming
// path rather than partially decoded here.
func (m *Manager) hydrateFromStore(pos voxel.ChunkPos) (*voxel.Chunk, bool) {
	if m.store == nil || m.store.PageSizeVoxels() != m.chunkSize {
		return nil, false
	}
	if pos.X < 0 || pos.Y < 0 || pos.Z < 0 {
		return nil, false
	}

	voxels, ok := m.store.ReadResidentPage(uint32(pos.X), uint32(pos.Y), uint32(pos.Z))
	if !ok {
		return nil, false
	}

	chunk := voxel.NewChunk(pos, m.chunkSize)
	for morton := 0; morton < len(voxels); morton++ {
		x, y, z := voxel.MortonDecode3(uint32(morton))
		if x >= m.chunkSize || y >= m.chunkSize || z >= m.chunkSize {
			continue
		}
		chunk.SetBlock(x, y, z, voxel.BlockID(voxels[morton]))
	}
	chunk.MarkClean()
	return chunk, true
}

// GetChunk returns the loaded chunk at pos, if any.
func (m *Manager) GetChunk(pos voxel.ChunkPos) (*voxel.Chunk, bool) {
	return m.chunks.Get(pos)
}

// GetChunkMut returns the loaded chunk at pos, marking it dirty since
// the caller intends to mutate it directly.
func (m *Manager) GetChunkMut(pos voxel.ChunkPos) (*voxel.Chunk, bool) {
	chunk, ok := m.chunks.Get(pos)
	if !ok {
		return nil, false
	}
	m.mu.Lock()
	m.dirty[pos] = struct{}{}
	m.mu.Unlock()
	return chunk, true
}

// GetBlock returns the block at a world voxel position, or BlockAir if
// its chunk isn't loaded.
func (m *Manager) GetBlock(pos voxel.VoxelPos) voxel.BlockID {
	chunkPos := pos.ToChunkPos(int32(m.chunkSize))
	chunk, ok := m.chunks.Get(chunkPos)
	if !ok {
		return voxel.BlockAir
	}
	x, y, z := pos.ToLocal(int32(m.chunkSize))
	return chunk.GetBlock(x, y, z)
}

// SetBlock sets the block at a world voxel position and marks both its
// own chunk and any neighbor whose boundary the voxel sits on as dirty.
// A write to a chunk whose edge voxel changed can affect a neighbor's
// light or mesh, so the neighbor needs reconsidering even though none
// of its own voxels changed.
func (m *Manager) SetBlock(pos voxel.VoxelPos, id voxel.BlockID) {
	chunkPos := pos.ToChunkPos(int32(m.chunkSize))
	chunk, ok := m.chunks.Get(chunkPos)
	if !ok {
		return
	}
	x, y, z := pos.ToLocal(int32(m.chunkSize))
	chunk.SetBlock(x, y, z, id)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty[chunkPos] = struct{}{}

	size := m.chunkSize
	if x == 0 {
		m.dirty[chunkPos.Offset(-1, 0, 0)] = struct{}{}
	}
	if x == size-1 {
		m.dirty[chunkPos.Offset(1, 0, 0)] = struct{}{}
	}
	if y == 0 {
		m.dirty[chunkPos.Offset(0, -1, 0)] = struct{}{}
	}
	if y == size-1 {
		m.dirty[chunkPos.Offset(0, 1, 0)] = struct{}{}
	}
	if z == 0 {
		m.dirty[chunkPos.Offset(0, 0, -1)] = struct{}{}
	}
	if z == size-1 {
		m.dirty[chunkPos.Offset(0, 0, 1)] = struct{}{}
	}
}

// LoadedLen returns the number of currently loaded chunks.
func (m *Manager) LoadedLen() int { return m.chunks.Len() }

// ChunkSize returns the edge length, in voxels, of every chunk this
// manager loads.
func (m *Manager) ChunkSize() uint32 { return m.chunkSize }

// ForEachLoaded visits every currently loaded chunk. f must not call
// back into the manager.
func (m *Manager) ForEachLoaded(f func(pos voxel.ChunkPos, chunk *voxel.Chunk)) {
	m.chunks.ForEach(f)
}

// TakeDirtyChunks drains and returns the set of chunks that changed
// (loaded, edge-written, or explicitly marked) since the last call.
func (m *Manager) TakeDirtyChunks() []voxel.ChunkPos {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]voxel.ChunkPos, 0, len(m.dirty))
	for pos := range m.dirty {
		out = append(out, pos)
	}
	m.dirty = make(map[voxel.ChunkPos]struct{})
	return out
}

// GetSurfaceHeight delegates to the configured SurfaceHeight callback,
// returning 0 if none is set.
func (m *Manager) GetSurfaceHeight(worldX, worldZ float64) int32 {
	if m.SurfaceHeight == nil {
		return 0
	}
	return m.SurfaceHeight(worldX, worldZ)
}
