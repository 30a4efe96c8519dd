package paging

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/noahsabaj/voxelcore/internal/voxel"
	pkgerrors "github.com/noahsabaj/voxelcore/pkg/errors"
)

// Table is the Morton-ordered page table: the authoritative residency
// record for every page in the world. It supersedes a plain dense-array
// table because Morton order keeps spatially adjacent pages close in
// the entries slice, which is what makes NeighborPages and sweep/compact
// passes cache-friendly. A coordinate whose Morton code falls past the
// end of the entries slice (possible when the world is not a
// power-of-two cube) is rejected as out of bounds; there is no
// row-major fallback.
type Table struct {
	mu sync.RWMutex

	entries        []*Entry
	pageSizeVoxels uint32
	worldSizePages [3]uint32
	totalPages     uint64
	residentPages  atomic.Int64

	sparse *SparseIndex
}

// NewTable builds a page table covering worldSizePages pages of
// pageSizeVoxels voxels per edge. A sparse index is always built; for
// small worlds its overhead is negligible, and for large ones it is
// what keeps empty-space sweeps affordable.
func NewTable(worldSizePages [3]uint32, pageSizeVoxels uint32) *Table {
	total := uint64(worldSizePages[0]) * uint64(worldSizePages[1]) * uint64(worldSizePages[2])
	entries := make([]*Entry, total)
	for i := range entries {
		entries[i] = NewEmptyEntry()
	}
	return &Table{
		entries:        entries,
		pageSizeVoxels: pageSizeVoxels,
		worldSizePages: worldSizePages,
		totalPages:     total,
		sparse:         NewSparseIndex(worldSizePages),
	}
}

// PageSizeVoxels returns the edge length of a page, in voxels.
func (t *Table) PageSizeVoxels() uint32 { return t.pageSizeVoxels }

// TotalPages returns the number of page slots in the table.
func (t *Table) TotalPages() uint64 { return t.totalPages }

// ResidentPages returns the current count of resident pages.
func (t *Table) ResidentPages() int64 { return t.residentPages.Load() }

func (t *Table) inBounds(px, py, pz uint32) bool {
	return px < t.worldSizePages[0] && py < t.worldSizePages[1] && pz < t.worldSizePages[2]
}

// PageIndex returns the Morton-encoded slot index for page coordinates,
// or a KindOutOfBounds error if the coordinates fall outside the world.
func (t *Table) PageIndex(px, py, pz uint32) (int, error) {
	if !t.inBounds(px, py, pz) {
		return 0, pkgerrors.New(pkgerrors.KindOutOfBounds, "page coordinate out of bounds", nil).
			WithDetail("page", [3]uint32{px, py, pz})
	}
	morton := voxel.MortonEncode3(px, py, pz)
	if uint64(morton) >= t.totalPages {
		return 0, pkgerrors.New(pkgerrors.KindOutOfBounds, "morton code exceeds table size", nil)
	}
	return int(morton), nil
}

// IndexToPage is the inverse of PageIndex.
func (t *Table) IndexToPage(index int) (px, py, pz uint32) {
	return voxel.MortonDecode3(uint32(index))
}

// VoxelToPage converts a world voxel coordinate to page coordinates.
func (t *Table) VoxelToPage(vx, vy, vz uint32) (px, py, pz uint32) {
	return vx / t.pageSizeVoxels, vy / t.pageSizeVoxels, vz / t.pageSizeVoxels
}

// VoxelOffsetInPage returns the local offset of a voxel within its page.
func (t *Table) VoxelOffsetInPage(vx, vy, vz uint32) (ox, oy, oz uint32) {
	return vx % t.pageSizeVoxels, vy % t.pageSizeVoxels, vz % t.pageSizeVoxels
}

// Entry returns the page table entry at the given page coordinates.
func (t *Table) Entry(px, py, pz uint32) (*Entry, error) {
	idx, err := t.PageIndex(px, py, pz)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[idx], nil
}

// MarkAccessed increments the access counter used for LRU-style
// eviction scoring.
func (t *Table) MarkAccessed(px, py, pz uint32) {
	e, err := t.Entry(px, py, pz)
	if err != nil {
		return
	}
	e.Touch()
}

// TransitionResident moves a page from Empty/Streaming to Resident,
// updates the resident-page counter, and marks its sparse-index region
// occupied.
func (t *Table) TransitionResident(px, py, pz uint32, physicalOffset uint64) error {
	e, err := t.Entry(px, py, pz)
	if err != nil {
		return err
	}
	wasResident := e.IsResident()
	e.MarkResident(physicalOffset)
	if !wasResident {
		t.mu.Lock()
		t.sparse.MarkOccupied(px, py, pz)
		t.mu.Unlock()
		t.residentPages.Add(1)
	}
	return nil
}

// Evict returns a page to Empty. Callers must have already written back
// a dirty page; Evict itself only updates bookkeeping.
func (t *Table) Evict(px, py, pz uint32) error {
	e, err := t.Entry(px, py, pz)
	if err != nil {
		return err
	}
	if e.IsLocked() {
		return pkgerrors.New(pkgerrors.KindInvalidState, "attempted to evict a locked page", nil)
	}
	wasResident := e.IsResident()
	e.Evict()
	if wasResident {
		t.mu.Lock()
		t.sparse.MarkEmpty(px, py, pz)
		t.mu.Unlock()
		t.residentPages.Add(-1)
	}
	return nil
}

// NeighborPages returns the Morton indices of the up-to-26 page
// neighbors of (px,py,pz), sorted by Morton code so batch prefetch
// reads land in ascending, cache-friendly order.
func (t *Table) NeighborPages(px, py, pz uint32) []int {
	neighbors := make([]int, 0, 26)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				nx, ny, nz := int(px)+dx, int(py)+dy, int(pz)+dz
				if nx < 0 || ny < 0 || nz < 0 {
					continue
				}
				if idx, err := t.PageIndex(uint32(nx), uint32(ny), uint32(nz)); err == nil {
					neighbors = append(neighbors, idx)
				}
			}
		}
	}
	sort.Ints(neighbors)
	return neighbors
}

// EvictionCandidate names a page and its eviction desirability (higher
// score means more desirable to evict).
type EvictionCandidate struct {
	Index    int
	PageX    uint32
	PageY    uint32
	PageZ    uint32
	Score    float64
}

// EvictionCandidates scores every resident, unlocked page by distance
// from observerPos plus an access-recency term, halves the score for
// dirty pages (write-back is expensive, so prefer evicting clean pages
// first), and returns the top maxCandidates sorted highest score first.
func (t *Table) EvictionCandidates(observerPos [3]float64, maxCandidates int) []EvictionCandidate {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var candidates []EvictionCandidate
	for idx, e := range t.entries {
		if !e.IsResident() || e.IsLocked() {
			continue
		}
		px, py, pz := t.IndexToPage(idx)
		center := [3]float64{
			(float64(px) + 0.5) * float64(t.pageSizeVoxels),
			(float64(py) + 0.5) * float64(t.pageSizeVoxels),
			(float64(pz) + 0.5) * float64(t.pageSizeVoxels),
		}
		dx := center[0] - observerPos[0]
		dy := center[1] - observerPos[1]
		dz := center[2] - observerPos[2]
		distance := math.Sqrt(dx*dx + dy*dy + dz*dz)

		score := distance + 1000.0/(float64(e.AccessCount())+1.0)
		if e.IsDirty() {
			score *= 0.5
		}

		candidates = append(candidates, EvictionCandidate{Index: idx, PageX: px, PageY: py, PageZ: pz, Score: score})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates
}
