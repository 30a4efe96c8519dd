package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewRegistersEveryMetricOnItsOwnRegistry(t *testing.T) {
	m := New()
	assert.NotNil(t, m.Registry)

	families, err := m.Registry.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestTwoInstancesDoNotCollide(t *testing.T) {
	// promauto.NewCounter against the default registerer panics on a
	// second registration of the same metric name; New must not do that.
	assert.NotPanics(t, func() {
		New()
		New()
	})
}

func TestSetResidentPagesUpdatesGauge(t *testing.T) {
	m := New()
	m.SetResidentPages(42)
	assert.Equal(t, float64(42), testutil.ToFloat64(m.residentPages))
}

func TestRecordPageEvictionsAccumulates(t *testing.T) {
	m := New()
	m.RecordPageEvictions(3)
	m.RecordPageEvictions(2)
	assert.Equal(t, float64(5), testutil.ToFloat64(m.pageEvictions))
}

func TestSetChunksLoadedAndDirty(t *testing.T) {
	m := New()
	m.SetChunksLoaded(10)
	m.SetChunksDirty(4)
	assert.Equal(t, float64(10), testutil.ToFloat64(m.chunksLoaded))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.chunksDirty))
}

func TestSetPhysicsBodiesAwake(t *testing.T) {
	m := New()
	m.SetPhysicsBodiesAwake(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(m.physicsBodiesAwake))
}
