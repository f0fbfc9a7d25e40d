package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocationDefaultsAccuracy(t *testing.T) {
	t.Parallel()

	loc, err := NewLocation("walk-1", 37.7, -122.4, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, DefaultAccuracy, loc.Accuracy)
	assert.True(t, loc.IsValid)
	assert.NotEmpty(t, loc.ID)
}

func TestNewLocationRejectsEmptyWalkID(t *testing.T) {
	t.Parallel()

	_, err := NewLocation("", 0, 0, 5, 0)
	assert.Error(t, err)
}

func TestValidateRejectsOutOfRangeCoordinates(t *testing.T) {
	t.Parallel()

	loc, err := NewLocation("walk-1", 37.7, -122.4, 5, 0)
	require.NoError(t, err)

	loc.Latitude = 91
	err = loc.Validate()
	assert.Error(t, err)
	assert.False(t, loc.IsValid)
}

func TestValidateRejectsFutureTimestamp(t *testing.T) {
	t.Parallel()

	loc, err := NewLocation("walk-1", 0, 0, 5, 0)
	require.NoError(t, err)

	loc.Timestamp = time.Now().UTC().Add(time.Hour)
	err = loc.Validate()
	assert.Error(t, err)
}

func TestToJSONAndFromJSONRoundTrip(t *testing.T) {
	t.Parallel()

	loc, err := NewLocation("walk-1", 37.7, -122.4, 5, 12)
	require.NoError(t, err)

	data, err := loc.ToJSON()
	require.NoError(t, err)

	back, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, loc.ID, back.ID)
	assert.Equal(t, loc.WalkID, back.WalkID)
	assert.Equal(t, loc.Latitude, back.Latitude)
}

func TestPointPromotesToXYZWithAltitude(t *testing.T) {
	t.Parallel()

	loc, err := NewLocation("walk-1", 1, 2, 5, 50)
	require.NoError(t, err)

	pt, err := loc.Point()
	require.NoError(t, err)
	assert.Equal(t, 3, len(pt.Coords()))
}

func TestPointStaysXYWithZeroAltitude(t *testing.T) {
	t.Parallel()

	loc, err := NewLocation("walk-1", 1, 2, 5, 0)
	require.NoError(t, err)

	pt, err := loc.Point()
	require.NoError(t, err)
	assert.Equal(t, 2, len(pt.Coords()))
}

func TestInstantCarriesTimestampAndValue(t *testing.T) {
	t.Parallel()

	loc, err := NewLocation("walk-1", 1, 2, 5, 0)
	require.NoError(t, err)

	inst, err := loc.Instant()
	require.NoError(t, err)
	assert.True(t, inst.T.Equal(loc.Timestamp))
}
