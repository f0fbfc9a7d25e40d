package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogwalking/mobility-core/internal/models"
)

func TestValidateGeofenceParameters(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateGeofenceParameters(37.7, -122.4, 1.0))
	assert.Error(t, ValidateGeofenceParameters(91, 0, 1.0))
	assert.Error(t, ValidateGeofenceParameters(0, 181, 1.0))
	assert.Error(t, ValidateGeofenceParameters(0, 0, 10.0))
}

func TestNewGeofenceRejectsOutOfRangeRadius(t *testing.T) {
	t.Parallel()

	_, err := NewGeofence("walk-1", 37.7, -122.4, MaxRadius+1)
	assert.Error(t, err, "ValidateGeofenceParameters rejects an out-of-range radius before clamping applies")
}

func TestNewGeofenceDefaults(t *testing.T) {
	t.Parallel()

	gf, err := NewGeofence("walk-1", 37.7, -122.4, DefaultRadius)
	require.NoError(t, err)
	assert.True(t, gf.Active)
	assert.Equal(t, 0, gf.BoundaryViolations)
	assert.NotEmpty(t, gf.ID)
}

func TestContainsPointInsideRadius(t *testing.T) {
	t.Parallel()

	gf, err := NewGeofence("walk-1", 37.7, -122.4, 1.0)
	require.NoError(t, err)

	point, err := models.NewLocation("walk-1", 37.7001, -122.4001, 5, 0)
	require.NoError(t, err)

	ok, err := gf.ContainsPoint(&point)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestContainsPointOutsideRadius(t *testing.T) {
	t.Parallel()

	gf, err := NewGeofence("walk-1", 37.7, -122.4, 0.5)
	require.NoError(t, err)

	farPoint, err := models.NewLocation("walk-1", 38.5, -123.5, 5, 0)
	require.NoError(t, err)

	ok, err := gf.ContainsPoint(&farPoint)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, gf.BoundaryViolations)
}

func TestContainsPointRejectsInactiveGeofence(t *testing.T) {
	t.Parallel()

	gf, err := NewGeofence("walk-1", 0, 0, 1.0)
	require.NoError(t, err)
	require.NoError(t, gf.Deactivate())

	point, err := models.NewLocation("walk-1", 0, 0, 5, 0)
	require.NoError(t, err)

	_, err = gf.ContainsPoint(&point)
	assert.Error(t, err)
}

func TestContainsPointRejectsNilLocation(t *testing.T) {
	t.Parallel()

	gf, err := NewGeofence("walk-1", 0, 0, 1.0)
	require.NoError(t, err)

	_, err = gf.ContainsPoint(nil)
	assert.Error(t, err)
}

func TestUpdateRadius(t *testing.T) {
	t.Parallel()

	gf, err := NewGeofence("walk-1", 0, 0, 1.0)
	require.NoError(t, err)

	require.NoError(t, gf.UpdateRadius(2.0))
	assert.Equal(t, 2.0, gf.RadiusKm)

	require.NoError(t, gf.Deactivate())
	assert.Error(t, gf.UpdateRadius(3.0))
}

func TestDeactivateIsNotReentrant(t *testing.T) {
	t.Parallel()

	gf, err := NewGeofence("walk-1", 0, 0, 1.0)
	require.NoError(t, err)

	require.NoError(t, gf.Deactivate())
	assert.Error(t, gf.Deactivate())
}

func TestBoundingBoxWidensNearPoles(t *testing.T) {
	t.Parallel()

	equator, err := NewGeofence("walk-1", 0, 0, 1.0)
	require.NoError(t, err)
	polar, err := NewGeofence("walk-1", 89, 0, 1.0)
	require.NoError(t, err)

	eqBox := equator.BoundingBox()
	polarBox := polar.BoundingBox()

	eqLonSpan := eqBox.Xmax - eqBox.Xmin
	polarLonSpan := polarBox.Xmax - polarBox.Xmin
	assert.Greater(t, polarLonSpan, eqLonSpan, "the same radius covers more longitude degrees near the poles")
}
