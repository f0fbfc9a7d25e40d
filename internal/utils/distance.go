package utils

import (
	// math provides mathematical functions (go1.21) used in the haversine formula and trigonometric operations
	"math"
	// time provides functionality for durations and time-based calculations (go1.21)
	"time"
	"fmt"

	// models provides the Location struct used for GPS coordinate representations
	"github.com/dogwalking/mobility-core/internal/models"
)

// EarthRadius is Earth's mean radius in kilometers used by the haversine formula.
const EarthRadius float64 = 6371.0

// MinDistanceThreshold is the minimum distance (in km) to consider valid movement, filtering out GPS noise.
const MinDistanceThreshold float64 = 0.001

// MaxSpeedThreshold is the maximum realistic speed (in km/h) for dog walking. Any higher indicates invalid movement.
const MaxSpeedThreshold float64 = 35.0

// CalculateDistance computes the precise distance between two GPS coordinates using the haversine formula.
// It returns the distance in kilometers rounded to six decimal places, or an error if the coordinates
// are invalid or the calculation process fails. A minimum distance threshold is applied to mitigate noise.
func CalculateDistance(point1 *models.Location, point2 *models.Location) (float64, error) {
	if err := point1.Validate(); err != nil {
		return 0.0, fmt.Errorf("calculateDistance error: invalid point1: %w", err)
	}
	if err := point2.Validate(); err != nil {
		return 0.0, fmt.Errorf("calculateDistance error: invalid point2: %w", err)
	}

	lat1Rad := point1.Latitude * (math.Pi / 180.0)
	lon1Rad := point1.Longitude * (math.Pi / 180.0)
	lat2Rad := point2.Latitude * (math.Pi / 180.0)
	lon2Rad := point2.Longitude * (math.Pi / 180.0)

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Asin(math.Sqrt(a))
	distance := EarthRadius * c

	if distance < MinDistanceThreshold {
		return 0.0, nil
	}

	distance = math.Round(distance*1e6) / 1e6

	return distance, nil
}

// CalculateRouteDistance totals the distance covered by a series of GPS coordinates,
// ensuring valid movements and filtering out invalid or noise-based segments.
func CalculateRouteDistance(points []*models.Location) (float64, error) {
	if len(points) < 2 {
		return 0.0, fmt.Errorf("calculateRouteDistance error: at least two points are required")
	}

	var totalDistance float64
	for i := 1; i < len(points); i++ {
		dist, err := CalculateDistance(points[i-1], points[i])
		if err != nil {
			return 0.0, fmt.Errorf("calculateRouteDistance error: %w", err)
		}
		if dist >= MinDistanceThreshold {
			totalDistance += dist
		}
	}

	totalDistance = math.Round(totalDistance*1e6) / 1e6
	return totalDistance, nil
}

// IsValidMovement checks whether movement between two GPS points is realistic
// based on speed thresholds, time difference, and minimum distance considerations.
func IsValidMovement(point1 *models.Location, point2 *models.Location, timeDiff time.Duration) (bool, error) {
	distance, err := CalculateDistance(point1, point2)
	if err != nil {
		return false, fmt.Errorf("isValidMovement error: distance calculation failed: %w", err)
	}

	if distance < MinDistanceThreshold {
		return false, nil
	}

	if timeDiff <= 0 {
		return false, fmt.Errorf("isValidMovement error: invalid time difference (<= 0)")
	}

	speed := distance / timeDiff.Hours()

	if speed > MaxSpeedThreshold {
		return false, nil
	}

	return true, nil
}
