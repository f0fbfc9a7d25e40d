package services

import (
	// time for handling durations and scheduling (go1.21)
	"time"
	// sync for concurrency-safe maps and pools (standard library)
	"sync"
	// fmt for formatting error messages (standard library)
	"fmt"
	// context for threading request-scoped cancellation into the repository layer
	"context"
	// sort for ordering a batch by timestamp before it is added to a session
	"sort"

	// zap for structured logging (go.uber.org/zap v1.25.0)
	"go.uber.org/zap"
	// prometheus for metrics collection (github.com/prometheus/client_golang/prometheus v1.16.0)
	"github.com/prometheus/client_golang/prometheus"

	// models package that includes the TrackingSession struct
	"github.com/dogwalking/mobility-core/internal/models"
	"github.com/dogwalking/mobility-core/internal/temporal"
)

// Global variables providing configuration constraints and defaults.
var (
	// DefaultUpdateInterval defines how frequently the system expects location updates.
	DefaultUpdateInterval = time.Second * 5

	// MaxInactiveTime indicates the time after which a session is considered inactive if no updates are received.
	MaxInactiveTime = time.Minute * 15

	// MinLocationDistance is an example threshold for minimum distance in meters between location points for certain validations.
	MinLocationDistance = 5.0

	// MaxBatchSize defines the upper limit for a batch of location updates processed at once.
	MaxBatchSize = 100

	// LocationUpdateTimeout specifies the maximum allowed duration to complete a location update request.
	LocationUpdateTimeout = time.Second * 10
)

// MQTTClient is a placeholder interface representing the functionality required for publishing messages to an MQTT broker.
// An actual implementation would handle connection setup, topic subscriptions, message publishing, reconnection logic, etc.
type MQTTClient interface {
	// Publish sends a message payload to the specified MQTT topic.
	Publish(topic string, payload []byte) error
	// SetRetryPolicy configures retry policies for unstable networks or message delivery failures.
	SetRetryPolicy(retries int, backoff time.Duration)
}

// TimescaleDB represents the persistence operations TrackingService needs
// from the repository layer; *repository.TimescaleRepository implements it.
type TimescaleDB interface {
	// BatchSaveLocations persists a collection of location records in a time-series manner.
	BatchSaveLocations(ctx context.Context, locations []*models.Location) error
	// SaveTrack persists a session's moving-point track as MF-JSON.
	SaveTrack(ctx context.Context, sessionID string, track temporal.Temporal) error
	// GetSessionStatistics reads the stored aggregated session metrics (distance, duration) for walkID.
	GetSessionStatistics(ctx context.Context, walkID string) (*models.TrackingStatistics, error)
}

// Config is a placeholder for any external configuration that might be needed to initialize the tracking service,
// such as environment variables, feature flags, or advanced concurrency settings.
type Config struct {
	// Example: Maximum concurrent batch processes.
	MaxConcurrentBatches int
	// Example: Feature toggle for advanced orchestration.
	EnableAdvancedOrchestration bool
}

// BatchResult captures the outcome of processing a batch of location updates, including counts and a success flag.
type BatchResult struct {
	// ProcessedCount is the total number of location records processed (valid or invalid).
	ProcessedCount int
	// InvalidCount is the number of location records discarded due to validation failures.
	InvalidCount int
	// StoredCount is the number of location records successfully stored in the database.
	StoredCount int
	// Success indicates whether the entire batch operation was considered successful.
	Success bool
}

// HealthStatus is a string used to represent the overall health of a tracking session.
type HealthStatus string

const (
	// HealthStatusHealthy indicates a session is actively receiving updates and has no major anomalies.
	HealthStatusHealthy HealthStatus = "healthy"
	// HealthStatusGeofenceWarning indicates the session has had geofence boundary issues.
	HealthStatusGeofenceWarning HealthStatus = "geofence_warning"
	// HealthStatusTimeout indicates the session has not received required updates and may be inactive.
	HealthStatusTimeout HealthStatus = "timeout"
	// HealthStatusUnknown indicates an unexpected or error state for the session.
	HealthStatusUnknown HealthStatus = "unknown"
)

// TrackingService is an enhanced service for managing dog walk tracking sessions
// with improved monitoring, security, and performance features.
type TrackingService struct {
	// activeSessions stores sessionID -> *models.TrackingSession for real-time lookups and updates.
	activeSessions *sync.Map

	// mqttClient handles publish/subscribe interactions with an MQTT broker.
	mqttClient MQTTClient

	// db represents a TimescaleDB connection for efficient time-series data storage.
	db TimescaleDB

	// metricsRegistry is a Prometheus registry used to register and update various metrics.
	metricsRegistry *prometheus.Registry

	// batchLocationsCounter tracks processed/invalid/stored location counts from ProcessBatchLocations.
	batchLocationsCounter *prometheus.CounterVec

	// sessionHealthGauge reports the most recently observed HealthStatus per session, numerically encoded.
	sessionHealthGauge *prometheus.GaugeVec

	// logger provides structured logging for all operations.
	logger *zap.Logger

	// sessionPool acts as a reusable pool for session-related objects if needed for optimization.
	sessionPool *sync.Pool

	// geofences stores the geofence registered for a session, if any, keyed by walk ID.
	geofences *sync.Map
}

// NewTrackingService creates a new tracking service instance with enhanced monitoring,
// optimized database connectivity, and structured logging.
//
// Steps:
//  1. Initialize enhanced session management with sync.Map
//  2. Configure MQTT client with retry policies
//  3. Keep the supplied database handle (the caller owns its connection pool)
//  4. Initialize Prometheus metrics registry
//  5. Set up structured logging with zap
//  6. Configure session object pool
//  7. Initialize health check endpoints (placeholder for advanced setups)
//  8. Set up monitoring dashboards (placeholder for advanced monitoring)
func NewTrackingService(mqttClient MQTTClient, db TimescaleDB, config *Config) *TrackingService {
	// Configure retry policies for MQTT to ensure robustness in unstable networks.
	mqttClient.SetRetryPolicy(3, time.Second*2)

	// Initialize a new Prometheus registry for collecting and registering metrics.
	reg := prometheus.NewRegistry()

	batchCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_batch_locations_total",
		Help: "Count of locations seen by ProcessBatchLocations, partitioned by outcome.",
	}, []string{"outcome"})

	healthGauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracking_session_health",
		Help: "Most recently observed HealthStatus per session (0=healthy, 1=geofence_warning, 2=timeout, 3=unknown).",
	}, []string{"sessionID"})

	reg.MustRegister(batchCounter, healthGauge)

	// Construct a basic logger using zap's production configuration or custom logic.
	logger, _ := zap.NewProduction()

	// Prepare a sync.Pool that may be used to share session-related buffers or intermediate data.
	sPool := &sync.Pool{
		New: func() interface{} {
			return &models.TrackingSession{}
		},
	}

	return &TrackingService{
		activeSessions:        &sync.Map{},
		mqttClient:            mqttClient,
		db:                    db,
		metricsRegistry:       reg,
		batchLocationsCounter: batchCounter,
		sessionHealthGauge:    healthGauge,
		logger:                logger,
		sessionPool:           sPool,
		geofences:             &sync.Map{},
	}
}

// SetGeofence registers the geofence checked against every subsequent
// MonitorSessionHealth call for walkID, replacing any previously
// registered one. Passing a nil geofence clears the registration.
func (ts *TrackingService) SetGeofence(walkID string, gf *Geofence) {
	if gf == nil {
		ts.geofences.Delete(walkID)
		return
	}
	ts.geofences.Store(walkID, gf)
}

// ProcessBatchLocations processes multiple location updates efficiently in a batch fashion.
//
// Steps:
//  1. Validate batch size limits
//  2. Filter invalid locations
//  3. Process locations in parallel
//  4. Update session state atomically (via session.AddLocation)
//  5. Store batch in database
//  6. Publish batch updates to MQTT
//  7. Update metrics in Prometheus
func (ts *TrackingService) ProcessBatchLocations(sessionID string, locations []*models.Location) (BatchResult, error) {
	var result BatchResult
	defer ts.updateBatchMetrics(&result)

	// Immediately validate the batch size against global maximum.
	if len(locations) > MaxBatchSize {
		ts.logger.Error("Batch size limit exceeded",
			zap.String("sessionID", sessionID),
			zap.Int("locationCount", len(locations)),
		)
		return result, fmt.Errorf("batch size exceeds maximum allowed limit of %d", MaxBatchSize)
	}

	result.ProcessedCount = len(locations)

	// Retrieve the active tracking session from the sync.Map.
	val, ok := ts.activeSessions.Load(sessionID)
	if !ok {
		ts.logger.Error("No active session found for batch processing",
			zap.String("sessionID", sessionID),
		)
		return result, fmt.Errorf("no active session found for sessionID %s", sessionID)
	}

	session, sessionOK := val.(*models.TrackingSession)
	if !sessionOK {
		ts.logger.Error("Invalid session type in activeSessions",
			zap.String("sessionID", sessionID),
		)
		return result, fmt.Errorf("invalid session type for sessionID %s", sessionID)
	}

	// Filter invalid locations and concurrently process valid ones.
	validLocations := make([]*models.Location, 0, len(locations))

	// Parallel processing of location validation and optional transformations.
	var wg sync.WaitGroup
	mtx := &sync.Mutex{}
	for _, loc := range locations {
		wg.Add(1)
		go func(l *models.Location) {
			defer wg.Done()
			if err := l.Validate(); err != nil {
				// Invalid location, increment InvalidCount
				mtx.Lock()
				result.InvalidCount++
				mtx.Unlock()
				ts.logger.Debug("Discarded invalid location",
					zap.String("sessionID", sessionID),
					zap.String("locationID", l.ID),
					zap.Error(err),
				)
				return
			}
			mtx.Lock()
			validLocations = append(validLocations, l)
			mtx.Unlock()
		}(loc)
	}
	wg.Wait()

	// Update session state for each valid location, one at a time in timestamp
	// order: AddLocation rejects a timestamp that does not advance the track, and
	// validLocations was collected in goroutine completion order.
	sort.Slice(validLocations, func(i, j int) bool {
		return validLocations[i].Timestamp.Before(validLocations[j].Timestamp)
	})
	var updateWG sync.WaitGroup
	for _, vl := range validLocations {
		updateWG.Add(1)
		func(vl *models.Location) {
			defer updateWG.Done()
			addErr := session.AddLocation(vl)
			// If an error occurs adding the location to the session,
			// we log it but continue processing other locations
			if addErr != nil {
				ts.logger.Warn("Failed to add location to session",
					zap.String("sessionID", sessionID),
					zap.String("locationID", vl.ID),
					zap.Error(addErr),
				)
			}
		}(vl)
	}
	updateWG.Wait()

	// Store batch in the TimescaleDB. This is a single operation with the entire valid batch.
	if len(validLocations) > 0 {
		if err := ts.db.BatchSaveLocations(context.Background(), validLocations); err != nil {
			ts.logger.Error("Failed to store batch in database",
				zap.String("sessionID", sessionID),
				zap.Error(err),
			)
			return result, fmt.Errorf("failed to store batch in database: %v", err)
		}
		result.StoredCount = len(validLocations)

		if track := session.Track(); track != nil {
			if err := ts.db.SaveTrack(context.Background(), sessionID, track); err != nil {
				ts.logger.Warn("Failed to persist session track",
					zap.String("sessionID", sessionID),
					zap.Error(err),
				)
			}
		}
	}

	// Publish batch updates to MQTT, if needed. We can publish a simple payload with session updates.
	if err := ts.publishBatchUpdate(sessionID, validLocations); err != nil {
		ts.logger.Warn("Failed to publish batch updates to MQTT",
			zap.String("sessionID", sessionID),
			zap.Error(err),
		)
	}

	// Mark the batch result as successful if we stored at least one valid location.
	if result.StoredCount > 0 {
		result.Success = true
	}
	return result, nil
}

// MonitorSessionHealth monitors a session's health by inspecting activity timestamps, geofence compliance,
// resource usage, and more. It returns a HealthStatus indicating the session's current health.
//
// Steps:
//  1. Check session activity (last update time, existence in activeSessions)
//  2. Verify geofence compliance if applicable
//  3. Monitor update frequency
//  4. Check resource usage (placeholder for extended CPU/memory tracking)
//  5. Update health metrics in Prometheus
//  6. Handle timeout conditions
func (ts *TrackingService) MonitorSessionHealth(sessionID string) (HealthStatus, error) {
	val, ok := ts.activeSessions.Load(sessionID)
	if !ok {
		ts.logger.Error("Session not found in activeSessions", zap.String("sessionID", sessionID))
		return HealthStatusUnknown, fmt.Errorf("no active session found for sessionID %s", sessionID)
	}

	session, sessionOK := val.(*models.TrackingSession)
	if !sessionOK {
		ts.logger.Error("Invalid session type during health monitoring", zap.String("sessionID", sessionID))
		return HealthStatusUnknown, fmt.Errorf("invalid session type for sessionID %s", sessionID)
	}

	// 1. Check session activity
	now := time.Now().UTC()
	lastUpdate := session.LastUpdateTime()
	inactiveDuration := now.Sub(lastUpdate)
	if inactiveDuration > MaxInactiveTime {
		ts.logger.Warn("Session timed out due to inactivity",
			zap.String("sessionID", sessionID),
			zap.Duration("inactiveDuration", inactiveDuration),
		)
		ts.updateHealthMetric(sessionID, HealthStatusTimeout)
		return HealthStatusTimeout, nil
	}

	// 2. Verify geofence compliance if a geofence is registered for this session.
	var geoVal, geoFound = ts.findGeofenceForSession(sessionID)
	if geoFound && geoVal.Active {
		if lastLoc, ok := session.LastLocation(); ok {
			inside, fenceErr := geoVal.ContainsPoint(&lastLoc)
			if fenceErr != nil {
				ts.logger.Warn("Error checking geofence compliance", zap.String("sessionID", sessionID), zap.Error(fenceErr))
			} else if !inside {
				ts.logger.Warn("Session geofence boundary violation", zap.String("sessionID", sessionID))
				ts.updateHealthMetric(sessionID, HealthStatusGeofenceWarning)
				return HealthStatusGeofenceWarning, nil
			}
		}
	}

	// 3. Monitor update frequency (here, just a check to see if we've moved in expected intervals).
	if inactiveDuration > DefaultUpdateInterval {
		ts.logger.Debug("Session update frequency slower than expected",
			zap.String("sessionID", sessionID),
			zap.Duration("inactiveDuration", inactiveDuration),
		)
	}

	// 4. Check resource usage: placeholder for advanced CPU, memory usage checks if needed.

	// 5. Update health metrics in Prometheus with healthy status if no issues found.
	ts.updateHealthMetric(sessionID, HealthStatusHealthy)

	// 6. Handle potential partial timeouts or other conditions: we can expand if needed.

	return HealthStatusHealthy, nil
}

// StartSession creates a new tracking session for walkID and registers it
// as active, the entry point WebSocket and HTTP connections both use
// before any location updates can be accepted for that walk.
func (ts *TrackingService) StartSession(walkID, walkerID, dogID string) (*models.TrackingSession, error) {
	session, err := models.NewTrackingSession(walkID, walkerID, dogID, MaxBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to start session for walkID %s: %w", walkID, err)
	}
	ts.activeSessions.Store(walkID, session)
	ts.logger.Info("Started tracking session", zap.String("walkID", walkID), zap.String("sessionID", session.IDValue()))
	return session, nil
}

// EndSession completes the active session for walkID, persists its final
// track, and removes it from the active set.
func (ts *TrackingService) EndSession(walkID string) error {
	val, ok := ts.activeSessions.Load(walkID)
	if !ok {
		return fmt.Errorf("no active session found for walkID %s", walkID)
	}
	session, ok := val.(*models.TrackingSession)
	if !ok {
		return fmt.Errorf("invalid session type for walkID %s", walkID)
	}
	if err := session.Complete(); err != nil {
		return err
	}
	if track := session.Track(); track != nil {
		if err := ts.db.SaveTrack(context.Background(), walkID, track); err != nil {
			ts.logger.Warn("Failed to persist final session track", zap.String("walkID", walkID), zap.Error(err))
		}
	}
	ts.activeSessions.Delete(walkID)
	ts.logger.Info("Ended tracking session", zap.String("walkID", walkID))
	return nil
}

// ProcessLocationUpdate processes a single location update, the path an
// HTTP handler uses for one-at-a-time updates rather than a batch.
func (ts *TrackingService) ProcessLocationUpdate(loc models.Location) error {
	val, ok := ts.activeSessions.Load(loc.WalkID)
	if !ok {
		return fmt.Errorf("no active session found for walkID %s", loc.WalkID)
	}
	session, ok := val.(*models.TrackingSession)
	if !ok {
		return fmt.Errorf("invalid session type for walkID %s", loc.WalkID)
	}
	if err := session.AddLocation(&loc); err != nil {
		return err
	}
	if err := ts.publishBatchUpdate(loc.WalkID, []*models.Location{&loc}); err != nil {
		ts.logger.Warn("Failed to publish location update to MQTT",
			zap.String("walkID", loc.WalkID),
			zap.Error(err),
		)
	}
	return nil
}

// GetSessionTrack returns the moving-point sequence accumulated so far for
// an active session, reporting false if no such session exists or if it
// has not yet accepted enough locations to form a sequence.
func (ts *TrackingService) GetSessionTrack(sessionID string) (temporal.Temporal, bool) {
	val, ok := ts.activeSessions.Load(sessionID)
	if !ok {
		return nil, false
	}
	session, ok := val.(*models.TrackingSession)
	if !ok {
		return nil, false
	}
	track := session.Track()
	if track == nil {
		return nil, false
	}
	return track, true
}

// GetSessionStatistics computes the current statistics for an active
// session, reporting false if no such session exists.
func (ts *TrackingService) GetSessionStatistics(sessionID string) (*models.TrackingStatistics, bool) {
	val, ok := ts.activeSessions.Load(sessionID)
	if !ok {
		return nil, false
	}
	session, ok := val.(*models.TrackingSession)
	if !ok {
		return nil, false
	}
	stats, err := session.CalculateStatistics()
	if err != nil {
		ts.logger.Warn("Failed to calculate session statistics", zap.String("sessionID", sessionID), zap.Error(err))
		return nil, false
	}
	return stats, true
}

// findGeofenceForSession looks up the geofence registered via SetGeofence
// for sessionID. A session with no registered geofence is unconstrained,
// not a warning.
func (ts *TrackingService) findGeofenceForSession(sessionID string) (*Geofence, bool) {
	val, ok := ts.geofences.Load(sessionID)
	if !ok {
		return nil, false
	}
	gf, ok := val.(*Geofence)
	return gf, ok
}

// publishBatchUpdate sends a summary of newly processed locations to an MQTT topic.
// It logs any error but does not consider it fatal to the entire batch workflow.
func (ts *TrackingService) publishBatchUpdate(sessionID string, locations []*models.Location) error {
	if ts.mqttClient == nil {
		// If no MQTT client is configured, skip publish.
		return nil
	}
	// Construct a minimal payload. In production, consider JSON encoding with a consistent schema.
	payload := []byte(fmt.Sprintf("Session %s: %d location updates processed", sessionID, len(locations)))
	topic := fmt.Sprintf("tracking/updates/%s", sessionID)

	if err := ts.mqttClient.Publish(topic, payload); err != nil {
		ts.logger.Error("Failed to publish MQTT message",
			zap.String("sessionID", sessionID),
			zap.String("topic", topic),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// updateBatchMetrics records batch processing outcomes on batchLocationsCounter.
func (ts *TrackingService) updateBatchMetrics(result *BatchResult) {
	ts.batchLocationsCounter.WithLabelValues("processed").Add(float64(result.ProcessedCount))
	ts.batchLocationsCounter.WithLabelValues("invalid").Add(float64(result.InvalidCount))
	ts.batchLocationsCounter.WithLabelValues("stored").Add(float64(result.StoredCount))
}

// healthStatusValue numerically encodes a HealthStatus for sessionHealthGauge.
func healthStatusValue(status HealthStatus) float64 {
	switch status {
	case HealthStatusHealthy:
		return 0
	case HealthStatusGeofenceWarning:
		return 1
	case HealthStatusTimeout:
		return 2
	default:
		return 3
	}
}

// updateHealthMetric records the most recently observed HealthStatus for sessionID.
func (ts *TrackingService) updateHealthMetric(sessionID string, status HealthStatus) {
	ts.sessionHealthGauge.WithLabelValues(sessionID).Set(healthStatusValue(status))
}