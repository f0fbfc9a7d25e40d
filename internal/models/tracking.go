package models

import (
	// time for handling timestamps and durations (go1.21)
	"time"
	// json for JSON serialization (go1.21)
	"encoding/json"
	// sync for concurrency control in tracking sessions (standard library)
	"sync"
	// math for distance calculations (standard library)
	"math"
	// errors for error creation (standard library)
	"errors"
	// uuid for generating unique identifiers (github.com/google/uuid v1.3.0)
	"github.com/google/uuid"

	"github.com/dogwalking/mobility-core/internal/agg/rng"
	"github.com/dogwalking/mobility-core/internal/agg/wagg"
	"github.com/dogwalking/mobility-core/internal/index/rtree"
	"github.com/dogwalking/mobility-core/internal/temporal"
	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
	"github.com/dogwalking/mobility-core/internal/temporal/box"
)

// SessionStatusActive indicates an ongoing tracking session.
const SessionStatusActive = "active" // Status for ongoing tracking sessions

// SessionStatusPaused indicates a temporarily paused tracking session.
const SessionStatusPaused = "paused" // Status for temporarily paused sessions

// SessionStatusCompleted indicates that the tracking session is finished.
const SessionStatusCompleted = "completed" // Status for finished sessions

// MaxLocationHistorySize defines the maximum number of location points kept in memory.
const MaxLocationHistorySize = 1000 // Maximum number of location points to store in memory

// MinLocationAccuracy defines the minimum required GPS accuracy (in meters) for accepted locations.
const MinLocationAccuracy = 10.0 // Minimum required GPS accuracy in meters

// TrackingSession represents an active dog walking tracking session. Its
// location history is now backed by a temporal.TSequence: every accepted
// fix becomes an instant of a Linear-interpolated moving point, so the
// session's path supports restriction, lifting, and windowed aggregation
// the same way any other temporal value does instead of a bespoke replay
// of the point list.
type TrackingSession struct {
	// ID is a unique identifier for the tracking session.
	ID string

	// status indicates the current state of the session, e.g. "active", "paused", or "completed".
	status string

	// walkID references the dog walk that this tracking session is associated with.
	walkID string

	// walkerID references the user ID of the walker managing this session.
	walkerID string

	// dogID references the dog involved in this walking session.
	dogID string

	// startTime captures the timestamp when the session was initiated.
	startTime time.Time

	// endTime captures the timestamp when the session was completed.
	endTime time.Time

	// instants accumulates the accepted locations as temporal samples, in
	// the order the session's track is built from.
	instants []temporal.Instant

	// track is the continuous moving point built from instants; it is
	// rebuilt whenever a new location is accepted. nil until two
	// distinct-time samples have arrived.
	track *temporal.TSequence

	// lastUpdateTime captures the most recent time at which the session was updated.
	lastUpdateTime time.Time

	// bufferSize defines an upper bound on how many location points may be stored.
	bufferSize int

	// isArchived indicates whether the session is prepared or marked for archival.
	isArchived bool

	// mutex provides concurrency control for critical operations.
	mutex *sync.Mutex
}

// TrackingStatistics contains comprehensive calculated statistics for a
// tracking session, derived from the session's moving-point track.
type TrackingStatistics struct {
	// TotalDistance is the cumulative distance of the tracking session in meters.
	TotalDistance float64

	// AverageSpeed is the overall average speed (meters/second).
	AverageSpeed float64

	// Duration is the total session duration.
	Duration time.Duration

	// MaxSpeed is the maximum instantaneous speed (meters/second) observed.
	MaxSpeed float64

	// MinSpeed is the minimum instantaneous speed (meters/second) observed.
	MinSpeed float64

	locationPoints int
	startTime      time.Time
	endTime        time.Time
	hasGaps        bool
}

// NewTrackingSession creates a new, thread-safe tracking session with initialized
// buffers and validated inputs. An error is returned if any validation fails.
func NewTrackingSession(walkID, walkerID, dogID string, bufferSize int) (*TrackingSession, error) {
	if err := validateNewSessionInput(walkID, walkerID, dogID, bufferSize); err != nil {
		return nil, err
	}

	session := &TrackingSession{
		ID:             uuid.NewString(),
		status:         SessionStatusActive,
		walkID:         walkID,
		walkerID:       walkerID,
		dogID:          dogID,
		startTime:      time.Now().UTC(),
		endTime:        time.Time{}, // zero value until completed
		instants:       make([]temporal.Instant, 0),
		lastUpdateTime: time.Now().UTC(),
		bufferSize:     bufferSize,
		isArchived:     false,
		mutex:          &sync.Mutex{},
	}
	return session, nil
}

// AddLocation adds a new location point to the session's moving-point
// track with validation and thread safety. The track is rebuilt from the
// accumulated instants so restriction/lifting always see a normalized
// sequence.
func (s *TrackingSession) AddLocation(loc *Location) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if loc.Accuracy > MinLocationAccuracy {
		return errors.New("location accuracy is too low to be added")
	}
	if s.status != SessionStatusActive {
		return errors.New("cannot add location because session is not active")
	}
	if s.bufferSize > 0 && len(s.instants) >= s.bufferSize {
		return errors.New("location buffer is full, cannot add more points")
	}

	inst, err := loc.Instant()
	if err != nil {
		return err
	}
	if n := len(s.instants); n > 0 && !inst.T.After(s.instants[n-1].T) {
		return errors.New("location timestamp does not advance the session's track")
	}
	s.instants = append(s.instants, inst)

	if len(s.instants) >= 2 {
		seq, err := temporal.NewSequence(s.instants, true, true, temporal.Linear)
		if err != nil {
			return err
		}
		s.track = seq
	}

	s.lastUpdateTime = time.Now().UTC()
	return nil
}

// Track returns the session's moving-point sequence, or nil if fewer than
// two samples have been accepted so far.
func (s *TrackingSession) Track() *temporal.TSequence {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.track
}

// LastUpdateTime returns the time of the most recent accepted location.
func (s *TrackingSession) LastUpdateTime() time.Time {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.lastUpdateTime
}

// LastLocation reconstructs a Location from the most recent accepted
// instant, for callers (e.g. geofence compliance checks) that need the
// plain GPS representation rather than the temporal one. ok is false if
// no location has been accepted yet.
func (s *TrackingSession) LastLocation() (loc Location, ok bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if len(s.instants) == 0 {
		return Location{}, false
	}
	last := s.instants[len(s.instants)-1]
	coords := last.V.Pt.Coords()
	loc = Location{
		WalkID:    s.walkID,
		Longitude: coords[0],
		Latitude:  coords[1],
		Timestamp: last.T,
		IsValid:   true,
	}
	if len(coords) == 3 {
		loc.Altitude = coords[2]
	}
	return loc, true
}

// BoundingBox computes the session's spatiotemporal bounding box directly
// from its track, for geofence containment checks and R-tree indexing.
func (s *TrackingSession) BoundingBox() (box.STBox, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.track == nil {
		return box.STBox{}, false
	}
	return boundingBoxOf(s.track), true
}

func boundingBoxOf(seq *temporal.TSequence) box.STBox {
	insts := temporal.Instants(seq)
	b := box.STBox{XFlag: true, TFlag: true, SRID: 4326, Geodetic: true}
	for i, inst := range insts {
		coords := inst.V.Pt.Coords()
		x, y := coords[0], coords[1]
		if i == 0 {
			b.Xmin, b.Xmax = x, x
			b.Ymin, b.Ymax = y, y
			b.Tmin, b.Tmax = inst.T, inst.T
			continue
		}
		if x < b.Xmin {
			b.Xmin = x
		}
		if x > b.Xmax {
			b.Xmax = x
		}
		if y < b.Ymin {
			b.Ymin = y
		}
		if y > b.Ymax {
			b.Ymax = y
		}
		if inst.T.Before(b.Tmin) {
			b.Tmin = inst.T
		}
		if inst.T.After(b.Tmax) {
			b.Tmax = inst.T
		}
	}
	return b
}

// IndexInsert adds this session's bounding box into tree under the given
// id; the caller owns the mapping from session.ID to the int64 key the
// R-tree indexes on.
func (s *TrackingSession) IndexInsert(tree *rtree.Tree, id int64) error {
	bb, ok := s.BoundingBox()
	if !ok {
		return errors.New("session has no track to index yet")
	}
	return tree.Insert(id, bb)
}

// speedSequence derives a Step-interpolated temporal sequence of
// instantaneous speeds (meters/second) from consecutive track fixes, the
// input windowed aggregation operates on.
func (s *TrackingSession) speedSequence() (*temporal.TSequence, error) {
	if s.track == nil {
		return nil, errors.New("session has no track to derive speeds from")
	}
	insts := temporal.Instants(s.track)
	samples := make([]temporal.Instant, 0, len(insts)-1)
	for i := 1; i < len(insts); i++ {
		prev, curr := insts[i-1], insts[i]
		dt := curr.T.Sub(prev.T)
		if dt <= 0 {
			continue
		}
		dist := haversineMeters(prev.V.Pt.Coords(), curr.V.Pt.Coords())
		samples = append(samples, temporal.Instant{
			V: basetype.NewFloat64(dist / dt.Seconds()),
			T: curr.T,
		})
	}
	if len(samples) == 0 {
		return nil, errors.New("session track has no advancing segments to derive speeds from")
	}
	return temporal.NewSequence(samples, true, true, temporal.Step)
}

// SpeedAggregate folds the session's derived speed sequence through a
// windowed aggregation of the given kind, extending each
// instant by delta before the sweep-line reduction. source seeds the
// skiplist's level generator; callers share one rng.Source across an
// aggregation session the way skiplist.List itself expects.
func (s *TrackingSession) SpeedAggregate(kind wagg.Kind, delta time.Duration, source rng.Source) (temporal.Temporal, error) {
	s.mutex.Lock()
	seq, err := s.speedSequence()
	s.mutex.Unlock()
	if err != nil {
		return nil, err
	}
	st := wagg.New(kind, source)
	if err := st.Transition(seq, delta); err != nil {
		return nil, err
	}
	return st.Finalize()
}

// CalculateStatistics derives comprehensive session metrics from the
// track: total distance is the sum of consecutive great-circle segments,
// min/max speed are taken over the per-segment speeds, and average speed
// is total distance over the session duration (start time to end time, or
// to now while the session is active).
func (s *TrackingSession) CalculateStatistics() (*TrackingStatistics, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.track == nil {
		return &TrackingStatistics{}, nil
	}

	stats := &TrackingStatistics{
		locationPoints: len(s.instants),
		startTime:      s.startTime,
		endTime:        s.endTime,
	}

	var effectiveEnd time.Time
	switch {
	case !s.endTime.IsZero():
		effectiveEnd = s.endTime
	case s.status == SessionStatusActive:
		effectiveEnd = time.Now().UTC()
	default:
		effectiveEnd = s.lastUpdateTime
	}
	if effectiveEnd.After(s.startTime) {
		stats.Duration = effectiveEnd.Sub(s.startTime)
	}

	const gapThreshold = 5 * time.Minute
	minSp := -1.0
	var maxSp, totalDistance float64

	for i := 1; i < len(s.instants); i++ {
		prev, curr := s.instants[i-1], s.instants[i]
		dist := haversineMeters(prev.V.Pt.Coords(), curr.V.Pt.Coords())
		totalDistance += dist

		dt := curr.T.Sub(prev.T)
		if dt > gapThreshold {
			stats.hasGaps = true
		}
		if dt > 0 {
			speed := dist / dt.Seconds()
			if minSp < 0 || speed < minSp {
				minSp = speed
			}
			if speed > maxSp {
				maxSp = speed
			}
		}
	}

	stats.TotalDistance = totalDistance
	if minSp < 0 {
		minSp = 0
	}
	stats.MinSpeed = minSp
	stats.MaxSpeed = maxSp
	if stats.Duration.Seconds() > 0 {
		stats.AverageSpeed = stats.TotalDistance / stats.Duration.Seconds()
	}

	return stats, nil
}

// Pause transitions an active session into the paused state. Location
// updates are rejected while paused.
func (s *TrackingSession) Pause() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.status != SessionStatusActive {
		return errors.New("only an active session can be paused")
	}
	s.status = SessionStatusPaused
	return nil
}

// Resume transitions a paused session back to active.
func (s *TrackingSession) Resume() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.status != SessionStatusPaused {
		return errors.New("only a paused session can be resumed")
	}
	s.status = SessionStatusActive
	return nil
}

// Complete marks the tracking session as completed and prepares it for archival.
func (s *TrackingSession) Complete() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.status != SessionStatusActive && s.status != SessionStatusPaused {
		return errors.New("session cannot be completed in its current state")
	}

	s.endTime = time.Now().UTC()
	s.status = SessionStatusCompleted
	s.isArchived = false

	return nil
}

// IDValue returns the unique identifier for this session.
func (s *TrackingSession) IDValue() string {
	return s.ID
}

// Status returns the current status of the session.
func (s *TrackingSession) Status() string {
	return s.status
}

// MarshalJSON provides a custom JSON representation of TrackingSession
// with necessary fields. The track itself is omitted; callers needing the
// path serialize it separately via extio.EmitMFJSON.
func (s *TrackingSession) MarshalJSON() ([]byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	temp := struct {
		ID             string    `json:"id"`
		Status         string    `json:"status"`
		WalkID         string    `json:"walkId"`
		WalkerID       string    `json:"walkerId"`
		DogID          string    `json:"dogId"`
		StartTime      time.Time `json:"startTime"`
		EndTime        time.Time `json:"endTime"`
		LocationPoints int       `json:"locationPoints"`
		LastUpdate     time.Time `json:"lastUpdateTime"`
		IsArchived     bool      `json:"isArchived"`
	}{
		ID:             s.ID,
		Status:         s.status,
		WalkID:         s.walkID,
		WalkerID:       s.walkerID,
		DogID:          s.dogID,
		StartTime:      s.startTime,
		EndTime:        s.endTime,
		LocationPoints: len(s.instants),
		LastUpdate:     s.lastUpdateTime,
		IsArchived:     s.isArchived,
	}

	return json.Marshal(temp)
}

// validateNewSessionInput checks basic requirements for creating a session.
func validateNewSessionInput(walkID, walkerID, dogID string, bufferSize int) error {
	if walkID == "" {
		return errors.New("walkID must not be empty")
	}
	if walkerID == "" {
		return errors.New("walkerID must not be empty")
	}
	if dogID == "" {
		return errors.New("dogID must not be empty")
	}
	if bufferSize < 0 || bufferSize > MaxLocationHistorySize {
		return errors.New("bufferSize must be between 0 and MaxLocationHistorySize")
	}
	return nil
}

// haversineMeters calculates the approximate distance (in meters) between
// two geometric points' [lon, lat, ...] coordinate slices.
func haversineMeters(a, b []float64) float64 {
	return distanceBetweenPoints(a[1], a[0], b[1], b[0])
}

// distanceBetweenPoints calculates the approximate distance (in meters) between
// two latitude-longitude points using the Haversine formula.
func distanceBetweenPoints(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000.0 // Earth radius in meters

	rlat1 := lat1 * math.Pi / 180.0
	rlat2 := lat2 * math.Pi / 180.0
	dlat := (lat2 - lat1) * math.Pi / 180.0
	dlon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
