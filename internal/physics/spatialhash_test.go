package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHashConfig() SpatialHashConfig {
	return SpatialHashConfig{
		CellSize: 4.0,
		WorldMin: Vec3{-64, -64, -64},
		WorldMax: Vec3{64, 64, 64},
	}
}

func TestSpatialHashInsertAndQueryFindsOverlap(t *testing.T) {
	h := NewSpatialHash(testHashConfig())
	a := NewEntityID()
	b := NewEntityID()

	h.Insert(a, FromCenterHalfExtents(Vec3{0, 0, 0}, Vec3{0.5, 0.5, 0.5}))
	h.Insert(b, FromCenterHalfExtents(Vec3{0.5, 0, 0}, Vec3{0.5, 0.5, 0.5}))

	pairs := h.AllPotentialPairs()
	require.Len(t, pairs, 1)
	assert.Contains(t, []EntityID{pairs[0].A, pairs[0].B}, a)
	assert.Contains(t, []EntityID{pairs[0].A, pairs[0].B}, b)
}

func TestSpatialHashFarApartEntitiesShareNoCell(t *testing.T) {
	h := NewSpatialHash(testHashConfig())
	a := NewEntityID()
	b := NewEntityID()

	h.Insert(a, FromCenterHalfExtents(Vec3{-50, 0, 0}, Vec3{0.5, 0.5, 0.5}))
	h.Insert(b, FromCenterHalfExtents(Vec3{50, 0, 0}, Vec3{0.5, 0.5, 0.5}))

	assert.Empty(t, h.AllPotentialPairs())
}

func TestSpatialHashRemoveDropsFromCells(t *testing.T) {
	h := NewSpatialHash(testHashConfig())
	a := NewEntityID()
	b := NewEntityID()

	h.Insert(a, FromCenterHalfExtents(Vec3{0, 0, 0}, Vec3{0.5, 0.5, 0.5}))
	h.Insert(b, FromCenterHalfExtents(Vec3{0.5, 0, 0}, Vec3{0.5, 0.5, 0.5}))
	h.Remove(a)

	assert.Empty(t, h.AllPotentialPairs())
}

func TestSpatialHashUpdateMovesEntityOutOfRange(t *testing.T) {
	h := NewSpatialHash(testHashConfig())
	a := NewEntityID()
	b := NewEntityID()

	h.Insert(a, FromCenterHalfExtents(Vec3{0, 0, 0}, Vec3{0.5, 0.5, 0.5}))
	h.Insert(b, FromCenterHalfExtents(Vec3{0.5, 0, 0}, Vec3{0.5, 0.5, 0.5}))
	require.Len(t, h.AllPotentialPairs(), 1)

	h.Update(a, FromCenterHalfExtents(Vec3{50, 50, 50}, Vec3{0.5, 0.5, 0.5}))
	assert.Empty(t, h.AllPotentialPairs())
}

func TestSpatialHashDedupsPairsAcrossSharedCells(t *testing.T) {
	h := NewSpatialHash(testHashConfig())
	a := NewEntityID()
	b := NewEntityID()

	// Large-ish boxes that both land in several shared cells.
	h.Insert(a, FromCenterHalfExtents(Vec3{0, 0, 0}, Vec3{3, 3, 3}))
	h.Insert(b, FromCenterHalfExtents(Vec3{1, 1, 1}, Vec3{3, 3, 3}))

	pairs := h.AllPotentialPairs()
	assert.Len(t, pairs, 1)
}

func TestSpatialHashClampsOutOfBoundsEntityIntoEdgeCell(t *testing.T) {
	h := NewSpatialHash(testHashConfig())
	a := NewEntityID()
	b := NewEntityID()

	// Both entities sit far outside WorldMax on every axis; both must
	// clamp into the same boundary cell rather than being dropped.
	h.Insert(a, FromCenterHalfExtents(Vec3{500, 500, 500}, Vec3{0.5, 0.5, 0.5}))
	h.Insert(b, FromCenterHalfExtents(Vec3{500.5, 500, 500}, Vec3{0.5, 0.5, 0.5}))

	pairs := h.AllPotentialPairs()
	require.Len(t, pairs, 1)
	assert.Contains(t, []EntityID{pairs[0].A, pairs[0].B}, a)
	assert.Contains(t, []EntityID{pairs[0].A, pairs[0].B}, b)
}
