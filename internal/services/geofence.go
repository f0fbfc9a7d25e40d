package services

import (
	// time for handling timestamps in geofence operations and tracking creation/modification times (go1.21)
	"time"

	// errors for comprehensive error handling throughout geofence validations and updates (go1.21)
	"errors"

	// math for rounding operations in parameter validation and potential coordinate clamping
	"math"

	// fmt for formatting error messages, when needed
	"fmt"

	// uuid for generating unique V4 UUIDs for geofence IDs (v1.3.0)
	"github.com/google/uuid"

	// models provides the Location struct used for real-time GPS coordinate representations
	"github.com/dogwalking/mobility-core/internal/models"

	// utils provides the CalculateDistance function for haversine-based distance calculations
	"github.com/dogwalking/mobility-core/internal/utils"

	"github.com/dogwalking/mobility-core/internal/temporal/box"
)

// DefaultRadius is the default geofence radius in kilometers for standard walking zones.
const DefaultRadius = 0.5 // Default geofence radius in kilometers for standard walking zones

// MaxRadius is the maximum allowed geofence radius in kilometers to ensure safety and performance.
const MaxRadius = 5.0 // Maximum allowed geofence radius in kilometers for safety and performance

// MinRadius is the minimum allowed geofence radius in kilometers to ensure meaningful boundaries.
const MinRadius = 0.1 // Minimum allowed geofence radius in kilometers to ensure meaningful boundaries

// kmPerDegreeLat is the approximate number of kilometers per degree of
// latitude, used only to size the geofence's STBox pre-filter.
const kmPerDegreeLat = 111.0

// Geofence represents a circular geofence boundary for a dog walk with real-time containment checks
// and dynamic radius management. It includes tracking of boundary violations, activation state, and
// creation/update timestamps. The struct is designed to be used in conjunction with location data
// to ensure safe and contained dog walking sessions.
type Geofence struct {
	// ID is a unique identifier for the geofence, generated as a UUIDv4 at creation.
	ID string

	// WalkID links this geofence to a particular walk session, providing context for containment checks.
	WalkID string

	// CenterLatitude is the geofence center's latitude in degrees.
	CenterLatitude float64

	// CenterLongitude is the geofence center's longitude in degrees.
	CenterLongitude float64

	// RadiusKm represents the current radius of the geofence in kilometers. It must be between
	// MinRadius and MaxRadius values and can be updated dynamically if the geofence remains active.
	RadiusKm float64

	// CreatedAt captures the timestamp of when this geofence was initially created.
	CreatedAt time.Time

	// UpdatedAt captures the timestamp of the most recent update to this geofence.
	UpdatedAt time.Time

	// Active indicates whether the geofence is currently active. Once deactivated, it should not be updated further.
	Active bool

	// BoundaryViolations counts how many times a provided point was found to be outside this geofence boundary.
	BoundaryViolations int
}

// ValidateGeofenceParameters performs comprehensive validation for latitude, longitude, and radius
// parameters supplied during geofence creation or updates. It ensures:
//  1. Latitude is within [-90.0, 90.0].
//  2. Longitude is within [-180.0, 180.0].
//  3. Radius is within [MinRadius, MaxRadius].
//  4. Coordinate precision is validated by checking for NaN/Infinity.
//
// Returns an error if any parameter is invalid, or nil on success.
func ValidateGeofenceParameters(latitude, longitude, radius float64) error {
	if math.IsNaN(latitude) || math.IsNaN(longitude) || math.IsNaN(radius) {
		return errors.New("geofence parameter validation failed: parameter is NaN")
	}
	if math.IsInf(latitude, 0) || math.IsInf(longitude, 0) || math.IsInf(radius, 0) {
		return errors.New("geofence parameter validation failed: parameter is infinite")
	}

	if latitude < models.MinLatitude || latitude > models.MaxLatitude {
		return fmt.Errorf("geofence parameter validation failed: latitude %.6f out of range", latitude)
	}

	if longitude < models.MinLongitude || longitude > models.MaxLongitude {
		return fmt.Errorf("geofence parameter validation failed: longitude %.6f out of range", longitude)
	}

	if radius < MinRadius || radius > MaxRadius {
		return fmt.Errorf("geofence parameter validation failed: radius %.3f out of range [%.3f, %.3f]", radius, MinRadius, MaxRadius)
	}

	return nil
}

// NewGeofence creates a new Geofence instance using the provided walkID, latitude, longitude, and radiusKm.
// It performs complete input parameter validation, so a radius outside [MinRadius, MaxRadius] is rejected
// with an error rather than clamped, and initializes the geofence in an active state with zero boundary
// violations. If validation fails, an error is returned.
func NewGeofence(walkID string, latitude, longitude, radiusKm float64) (*Geofence, error) {
	newID := uuid.NewString()

	if err := ValidateGeofenceParameters(latitude, longitude, radiusKm); err != nil {
		return nil, err
	}

	finalRadius := radiusKm
	if radiusKm < MinRadius {
		finalRadius = MinRadius
	} else if radiusKm > MaxRadius {
		finalRadius = MaxRadius
	}

	nowUTC := time.Now().UTC()
	gf := &Geofence{
		ID:                 newID,
		WalkID:             walkID,
		CenterLatitude:     latitude,
		CenterLongitude:    longitude,
		RadiusKm:           finalRadius,
		CreatedAt:          nowUTC,
		UpdatedAt:          nowUTC,
		Active:             true,
		BoundaryViolations: 0,
	}

	return gf, nil
}

// BoundingBox returns the axis-aligned STBox circumscribing the geofence's
// circle, in degrees of latitude/longitude. It is a conservative
// over-approximation: any point the exact haversine check would admit
// also falls inside this box, which is what lets ContainsPoint use it as
// a cheap index-level pre-filter the same way an inner GiST node prunes
// subtrees before a leaf recheck.
func (g *Geofence) BoundingBox() box.STBox {
	latDelta := g.RadiusKm / kmPerDegreeLat
	lonDelta := latDelta
	if cos := math.Cos(g.CenterLatitude * math.Pi / 180.0); cos > 0.01 {
		lonDelta = g.RadiusKm / (kmPerDegreeLat * cos)
	}
	return box.STBox{
		XFlag:    true,
		Geodetic: true,
		SRID:     4326,
		Xmin:     g.CenterLongitude - lonDelta,
		Xmax:     g.CenterLongitude + lonDelta,
		Ymin:     g.CenterLatitude - latDelta,
		Ymax:     g.CenterLatitude + latDelta,
	}
}

// ContainsPoint checks if the given Location point lies within the geofence boundary.
// The bounding-box test rejects points cheaply; only a box hit is rechecked against
// the exact haversine distance, which is the authoritative containment test.
//
// Returns (true, nil) if the point is within the geofence,
// Returns (false, nil) if the point is outside the geofence,
// or returns an error if the geofence is inactive or if any validation fails.
func (g *Geofence) ContainsPoint(point *models.Location) (bool, error) {
	if !g.Active {
		return false, errors.New("containsPoint error: geofence is inactive")
	}

	if point == nil {
		return false, errors.New("containsPoint error: nil location provided")
	}
	if err := point.Validate(); err != nil {
		return false, fmt.Errorf("containsPoint error: invalid location data: %w", err)
	}

	pointBox := box.STBox{
		XFlag: true, Geodetic: true, SRID: 4326,
		Xmin: point.Longitude, Xmax: point.Longitude,
		Ymin: point.Latitude, Ymax: point.Latitude,
	}
	boxHit, err := box.Overlaps(g.BoundingBox(), pointBox)
	if err != nil {
		return false, fmt.Errorf("containsPoint error: bounding box check failed: %w", err)
	}
	if !boxHit {
		g.BoundaryViolations++
		return false, nil
	}

	center, err := models.NewLocation(g.WalkID, g.CenterLatitude, g.CenterLongitude, models.DefaultAccuracy, 0)
	if err != nil {
		return false, fmt.Errorf("containsPoint error: could not construct geofence center: %w", err)
	}

	distance, err := utils.CalculateDistance(&center, point)
	if err != nil {
		return false, fmt.Errorf("containsPoint error: distance calculation failed: %w", err)
	}

	if distance <= g.RadiusKm {
		return true, nil
	}

	g.BoundaryViolations++
	return false, nil
}

// UpdateRadius attempts to update the geofence's RadiusKm to the newRadius specified,
// applying the same parameter validation rules used at creation, so an out-of-range radius is
// rejected rather than clamped. If the geofence is inactive, or validation fails, an error is returned.
func (g *Geofence) UpdateRadius(newRadius float64) error {
	if !g.Active {
		return errors.New("updateRadius error: cannot update an inactive geofence")
	}

	if err := ValidateGeofenceParameters(g.CenterLatitude, g.CenterLongitude, newRadius); err != nil {
		return err
	}

	adjusted := newRadius
	if adjusted < MinRadius {
		adjusted = MinRadius
	} else if adjusted > MaxRadius {
		adjusted = MaxRadius
	}

	g.RadiusKm = adjusted
	g.UpdatedAt = time.Now().UTC()
	return nil
}

// Deactivate safely deactivates the geofence, preventing further updates or point checks.
func (g *Geofence) Deactivate() error {
	if !g.Active {
		return errors.New("deactivate error: geofence is already inactive")
	}
	g.Active = false
	g.UpdatedAt = time.Now().UTC()
	return nil
}
