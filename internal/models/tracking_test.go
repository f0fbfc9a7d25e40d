package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogwalking/mobility-core/internal/agg/rng"
	"github.com/dogwalking/mobility-core/internal/agg/wagg"
	"github.com/dogwalking/mobility-core/internal/index/rtree"
)

func newLocAt(t *testing.T, walkID string, lat, lon float64, accuracy float64, offset time.Duration) *Location {
	t.Helper()
	loc, err := NewLocation(walkID, lat, lon, accuracy, 0)
	require.NoError(t, err)
	loc.Timestamp = time.Now().UTC().Add(offset)
	return &loc
}

func TestNewTrackingSessionValidatesInput(t *testing.T) {
	t.Parallel()

	_, err := NewTrackingSession("", "walker", "dog", 10)
	assert.Error(t, err)

	s, err := NewTrackingSession("walk-1", "walker", "dog", 10)
	require.NoError(t, err)
	assert.Equal(t, SessionStatusActive, s.Status())
}

func TestAddLocationBuildsTrackAfterTwoSamples(t *testing.T) {
	t.Parallel()

	s, err := NewTrackingSession("walk-1", "walker", "dog", 10)
	require.NoError(t, err)

	require.Nil(t, s.Track())
	require.NoError(t, s.AddLocation(newLocAt(t, "walk-1", 37.7, -122.4, 5, 0)))
	assert.Nil(t, s.Track(), "a single sample is not yet a sequence")

	require.NoError(t, s.AddLocation(newLocAt(t, "walk-1", 37.71, -122.41, 5, time.Second)))
	require.NotNil(t, s.Track())
	assert.Equal(t, 2, s.Track().NumInstants())
}

func TestAddLocationRejectsLowAccuracy(t *testing.T) {
	t.Parallel()

	s, err := NewTrackingSession("walk-1", "walker", "dog", 10)
	require.NoError(t, err)

	err = s.AddLocation(newLocAt(t, "walk-1", 0, 0, MinLocationAccuracy+1, 0))
	assert.Error(t, err)
}

func TestAddLocationRejectsNonAdvancingTimestamp(t *testing.T) {
	t.Parallel()

	s, err := NewTrackingSession("walk-1", "walker", "dog", 10)
	require.NoError(t, err)

	first := newLocAt(t, "walk-1", 0, 0, 5, 0)
	require.NoError(t, s.AddLocation(first))

	stale := newLocAt(t, "walk-1", 1, 1, 5, -time.Second)
	err = s.AddLocation(stale)
	assert.Error(t, err)
}

func TestAddLocationRejectsWhenNotActive(t *testing.T) {
	t.Parallel()

	s, err := NewTrackingSession("walk-1", "walker", "dog", 10)
	require.NoError(t, err)
	require.NoError(t, s.Pause())

	err = s.AddLocation(newLocAt(t, "walk-1", 0, 0, 5, 0))
	assert.Error(t, err)
}

func TestAddLocationRejectsWhenBufferFull(t *testing.T) {
	t.Parallel()

	s, err := NewTrackingSession("walk-1", "walker", "dog", 1)
	require.NoError(t, err)

	require.NoError(t, s.AddLocation(newLocAt(t, "walk-1", 0, 0, 5, 0)))
	err = s.AddLocation(newLocAt(t, "walk-1", 1, 1, 5, time.Second))
	assert.Error(t, err)
}

func TestLastLocationReflectsMostRecentFix(t *testing.T) {
	t.Parallel()

	s, err := NewTrackingSession("walk-1", "walker", "dog", 10)
	require.NoError(t, err)

	_, ok := s.LastLocation()
	assert.False(t, ok)

	require.NoError(t, s.AddLocation(newLocAt(t, "walk-1", 37.7, -122.4, 5, 0)))
	loc, ok := s.LastLocation()
	require.True(t, ok)
	assert.InDelta(t, 37.7, loc.Latitude, 1e-9)
	assert.InDelta(t, -122.4, loc.Longitude, 1e-9)
}

func TestBoundingBoxAndIndexInsert(t *testing.T) {
	t.Parallel()

	s, err := NewTrackingSession("walk-1", "walker", "dog", 10)
	require.NoError(t, err)

	_, ok := s.BoundingBox()
	assert.False(t, ok)

	require.NoError(t, s.AddLocation(newLocAt(t, "walk-1", 0, 0, 5, 0)))
	require.NoError(t, s.AddLocation(newLocAt(t, "walk-1", 1, 1, 5, time.Second)))

	bb, ok := s.BoundingBox()
	require.True(t, ok)
	assert.Equal(t, 0.0, bb.Xmin)
	assert.Equal(t, 1.0, bb.Xmax)

	tree := rtree.New()
	require.NoError(t, s.IndexInsert(tree, 1))
	ids, err := tree.Search(bb)
	require.NoError(t, err)
	assert.Contains(t, ids, int64(1))
}

func TestSpeedAggregateRequiresTrack(t *testing.T) {
	t.Parallel()

	s, err := NewTrackingSession("walk-1", "walker", "dog", 10)
	require.NoError(t, err)

	_, err = s.SpeedAggregate(wagg.Avg, time.Second, rng.New(1))
	assert.Error(t, err)
}

func TestSpeedAggregateComputesAverage(t *testing.T) {
	t.Parallel()

	s, err := NewTrackingSession("walk-1", "walker", "dog", 10)
	require.NoError(t, err)

	require.NoError(t, s.AddLocation(newLocAt(t, "walk-1", 0, 0, 5, 0)))
	require.NoError(t, s.AddLocation(newLocAt(t, "walk-1", 0, 0.001, 5, 10*time.Second)))

	res, err := s.SpeedAggregate(wagg.Avg, 5*time.Second, rng.New(2))
	require.NoError(t, err)
	assert.NotNil(t, res)
}

func TestCalculateStatisticsWithoutTrack(t *testing.T) {
	t.Parallel()

	s, err := NewTrackingSession("walk-1", "walker", "dog", 10)
	require.NoError(t, err)

	stats, err := s.CalculateStatistics()
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.TotalDistance)
}

func TestCalculateStatisticsWithTrack(t *testing.T) {
	t.Parallel()

	s, err := NewTrackingSession("walk-1", "walker", "dog", 10)
	require.NoError(t, err)

	require.NoError(t, s.AddLocation(newLocAt(t, "walk-1", 0, 0, 5, 0)))
	require.NoError(t, s.AddLocation(newLocAt(t, "walk-1", 0, 0.01, 5, 10*time.Second)))

	stats, err := s.CalculateStatistics()
	require.NoError(t, err)
	assert.Greater(t, stats.TotalDistance, 0.0)
}

func TestPauseResumeComplete(t *testing.T) {
	t.Parallel()

	s, err := NewTrackingSession("walk-1", "walker", "dog", 10)
	require.NoError(t, err)

	require.NoError(t, s.Pause())
	assert.Equal(t, SessionStatusPaused, s.Status())

	require.Error(t, s.Pause(), "cannot pause an already-paused session")

	require.NoError(t, s.Resume())
	assert.Equal(t, SessionStatusActive, s.Status())

	require.NoError(t, s.Complete())
	assert.Equal(t, SessionStatusCompleted, s.Status())

	require.Error(t, s.Complete(), "cannot complete an already-completed session")
}

func TestMarshalJSONOmitsTrack(t *testing.T) {
	t.Parallel()

	s, err := NewTrackingSession("walk-1", "walker", "dog", 10)
	require.NoError(t, err)

	data, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"id\"")
	assert.NotContains(t, string(data), "\"track\"")
}
