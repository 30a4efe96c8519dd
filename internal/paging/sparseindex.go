package paging

// SparseIndex maintains non-empty page counts at three granularities
// (8^3, 64^3, 512^3 page groups) so callers can skip whole regions of
// empty space during sweeps (compaction, write-back, eviction scans)
// without visiting every page entry. Counts, rather than bitsets, let
// MarkOccupied/MarkEmpty stay plain increments and decrements and let a
// region be known-empty the instant its count returns to zero.
type SparseIndex struct {
	dims [3]uint32 // page-space dimensions this index covers

	level0Dims [3]uint32
	level1Dims [3]uint32
	level2Dims [3]uint32

	level0 []uint32 // 8x8x8 page groups
	level1 []uint32 // 64x64x64 page groups
	level2 []uint32 // 512x512x512 page groups
}

func ceilDiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}

// NewSparseIndex builds an index covering a page-space of the given
// dimensions.
func NewSparseIndex(dims [3]uint32) *SparseIndex {
	l0 := [3]uint32{ceilDiv(dims[0], 8), ceilDiv(dims[1], 8), ceilDiv(dims[2], 8)}
	l1 := [3]uint32{ceilDiv(dims[0], 64), ceilDiv(dims[1], 64), ceilDiv(dims[2], 64)}
	l2 := [3]uint32{ceilDiv(dims[0], 512), ceilDiv(dims[1], 512), ceilDiv(dims[2], 512)}

	return &SparseIndex{
		dims:       dims,
		level0Dims: l0,
		level1Dims: l1,
		level2Dims: l2,
		level0:     make([]uint32, int(l0[0])*int(l0[1])*int(l0[2])),
		level1:     make([]uint32, int(l1[0])*int(l1[1])*int(l1[2])),
		level2:     make([]uint32, int(l2[0])*int(l2[1])*int(l2[2])),
	}
}

func groupIndex(px, py, pz uint32, groupSize uint32, dims [3]uint32) int {
	gx, gy, gz := px/groupSize, py/groupSize, pz/groupSize
	return int(gx) + int(gy)*int(dims[0]) + int(gz)*int(dims[0])*int(dims[1])
}

// MarkOccupied increments the occupancy counters for the region a page
// belongs to. Call when a page transitions from Empty into any
// non-empty state.
func (s *SparseIndex) MarkOccupied(px, py, pz uint32) {
	s.level0[groupIndex(px, py, pz, 8, s.level0Dims)]++
	s.level1[groupIndex(px, py, pz, 64, s.level1Dims)]++
	s.level2[groupIndex(px, py, pz, 512, s.level2Dims)]++
}

// MarkEmpty decrements the occupancy counters for the region a page
// belongs to. Call when a page transitions back to Empty (evicted with
// no disk backing, or never allocated).
func (s *SparseIndex) MarkEmpty(px, py, pz uint32) {
	if idx := groupIndex(px, py, pz, 8, s.level0Dims); s.level0[idx] > 0 {
		s.level0[idx]--
	}
	if idx := groupIndex(px, py, pz, 64, s.level1Dims); s.level1[idx] > 0 {
		s.level1[idx]--
	}
	if idx := groupIndex(px, py, pz, 512, s.level2Dims); s.level2[idx] > 0 {
		s.level2[idx]--
	}
}

// RegionEmpty reports whether the 8x8x8 page group containing (px,py,pz)
// has no occupied pages, letting a sweep skip the whole group.
func (s *SparseIndex) RegionEmpty(px, py, pz uint32) bool {
	return s.level0[groupIndex(px, py, pz, 8, s.level0Dims)] == 0
}
