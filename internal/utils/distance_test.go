package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogwalking/mobility-core/internal/models"
)

func loc(t *testing.T, lat, lon float64) *models.Location {
	t.Helper()
	l, err := models.NewLocation("walk-1", lat, lon, 5, 0)
	require.NoError(t, err)
	return &l
}

func TestCalculateDistanceKnownPoints(t *testing.T) {
	t.Parallel()

	sf := loc(t, 37.7749, -122.4194)
	la := loc(t, 34.0522, -118.2437)

	dist, err := CalculateDistance(sf, la)
	require.NoError(t, err)
	assert.InDelta(t, 559.0, dist, 5.0, "San Francisco to Los Angeles is roughly 559km by great circle")
}

func TestCalculateDistanceBelowThresholdRoundsToZero(t *testing.T) {
	t.Parallel()

	a := loc(t, 37.7749, -122.4194)
	b := loc(t, 37.77490001, -122.41940001)

	dist, err := CalculateDistance(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, dist)
}

func TestCalculateDistanceRejectsInvalidPoint(t *testing.T) {
	t.Parallel()

	bad := &models.Location{Latitude: 999}
	good := loc(t, 0, 0)

	_, err := CalculateDistance(bad, good)
	assert.Error(t, err)

	_, err = CalculateDistance(good, bad)
	assert.Error(t, err)
}

func TestCalculateRouteDistanceRequiresTwoPoints(t *testing.T) {
	t.Parallel()

	_, err := CalculateRouteDistance([]*models.Location{loc(t, 0, 0)})
	assert.Error(t, err)
}

func TestCalculateRouteDistanceSumsSegments(t *testing.T) {
	t.Parallel()

	points := []*models.Location{
		loc(t, 0, 0),
		loc(t, 0, 1),
		loc(t, 0, 2),
	}

	total, err := CalculateRouteDistance(points)
	require.NoError(t, err)

	leg, err := CalculateDistance(points[0], points[1])
	require.NoError(t, err)

	assert.InDelta(t, leg*2, total, 1e-6)
}

func TestIsValidMovementAcceptsReasonableSpeed(t *testing.T) {
	t.Parallel()

	a := loc(t, 37.7749, -122.4194)
	b := loc(t, 37.7759, -122.4194)

	ok, err := IsValidMovement(a, b, 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsValidMovementRejectsImplausibleSpeed(t *testing.T) {
	t.Parallel()

	a := loc(t, 37.7749, -122.4194)
	b := loc(t, 38.7749, -122.4194)

	ok, err := IsValidMovement(a, b, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsValidMovementRejectsNonPositiveTimeDiff(t *testing.T) {
	t.Parallel()

	a := loc(t, 37.7749, -122.4194)
	b := loc(t, 37.7759, -122.4194)

	_, err := IsValidMovement(a, b, 0)
	assert.Error(t, err)
}

func TestIsValidMovementBelowThresholdIsFalseWithoutError(t *testing.T) {
	t.Parallel()

	a := loc(t, 37.7749, -122.4194)
	b := loc(t, 37.77490001, -122.41940001)

	ok, err := IsValidMovement(a, b, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}
