package streaming

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noahsabaj/voxelcore/internal/paging"
	"github.com/noahsabaj/voxelcore/internal/storage"
)

func newTestLoaderStore(t *testing.T) *paging.Store {
	t.Helper()
	table := paging.NewTable([3]uint32{64, 64, 64}, 16)
	store, err := paging.NewStore(table, paging.StoreConfig{
		Backend:          storage.Local(t.TempDir()),
		PagesPerSegment:  4,
		MaxSegments:      8,
		MaxResidentPages: 64,
		FaultRingSize:    128,
	})
	require.NoError(t, err)
	return store
}

func TestLoaderUpdatePositionProducesNearbyRequests(t *testing.T) {
	store := newTestLoaderStore(t)
	loader := NewLoader(store, 32.0, 128.0, 1.0, 2)

	id := uuid.New()
	loader.TrackObserver(id)
	requests := loader.UpdatePosition(id, [3]float64{160, 160, 160}, 0.0)

	assert.NotEmpty(t, requests)
	for _, r := range requests {
		assert.Equal(t, SourcePrediction, r.Source)
		assert.Greater(t, r.Priority, 0.0)
	}
}

func TestLoaderForgetObserverDropsTracker(t *testing.T) {
	store := newTestLoaderStore(t)
	loader := NewLoader(store, 32.0, 128.0, 1.0, 2)

	id := uuid.New()
	loader.TrackObserver(id)
	loader.ForgetObserver(id)

	assert.NotContains(t, loader.trackers, id)
}

func TestLoaderAdaptParametersShrinksUnderMemoryPressure(t *testing.T) {
	store := newTestLoaderStore(t)
	loader := NewLoader(store, 100.0, 200.0, 2.0, 10)

	loader.AdaptParameters(5.0, 0.9)
	assert.Less(t, loader.baseRadius, 100.0)
	assert.Less(t, loader.maxRadius, 200.0)
}

func TestPageRequestsAroundSkipsNegativeCoordinates(t *testing.T) {
	requests := pageRequestsAround([3]float64{0, 0, 0}, 48.0, 1.0, 16.0)
	for _, r := range requests {
		assert.GreaterOrEqual(t, r.PageX, uint32(0))
		assert.GreaterOrEqual(t, r.PageY, uint32(0))
		assert.GreaterOrEqual(t, r.PageZ, uint32(0))
	}
	// the center page itself (0,0,0) should always be included
	found := false
	for _, r := range requests {
		if r.PageX == 0 && r.PageY == 0 && r.PageZ == 0 {
			found = true
		}
	}
	assert.True(t, found)
}
