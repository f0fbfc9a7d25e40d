package repository

import (
	// context: carries deadlines/cancellation through every pool call (go1.21)
	"context"
	// time: time operations for tracking data and retention policies (go1.21)
	"time"
	// fmt: schema-qualified SQL string assembly (go1.21)
	"fmt"
	// strconv: interval-string formatting (go1.21)
	"strconv"

	// pgx/pgxpool: PostgreSQL/TimescaleDB driver and connection pool (github.com/jackc/pgx/v5 v5.4.3)
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	// gobreaker: trips batch writes away from a misbehaving TimescaleDB instance
	// rather than piling up retries against it (github.com/sony/gobreaker v0.5.0)
	"github.com/sony/gobreaker"

	// Internal models containing Location and TrackingSession definitions
	"github.com/dogwalking/mobility-core/internal/extio"
	"github.com/dogwalking/mobility-core/internal/models"
	"github.com/dogwalking/mobility-core/internal/temporal"
)

// defaultBatchSize defines the maximum number of location records to insert in a single batch transaction.
const defaultBatchSize = 1000 // Default batch size for bulk operations

// locationTableName is the name of the TimescaleDB hypertable that stores all location data.
const locationTableName = "location_points" // TimescaleDB hypertable name for location data

// sessionTableName is the database table that stores tracking session metadata and the
// session's moving-point track, persisted as a MF-JSON document.
const sessionTableName = "tracking_sessions" // Table name for tracking sessions

// defaultRetentionPeriod indicates how long stored data should remain before being subject to removal.
var defaultRetentionPeriod = 90 * 24 * time.Hour // 90 days default retention

// compressionInterval defines the interval after which compression policies apply to older chunks.
var compressionInterval = 7 * 24 * time.Hour // Compression after 7 days

// RepositoryConfig holds advanced configuration details for the TimescaleDB repository,
// including chunk intervals, compression settings, and retention policies.
type RepositoryConfig struct {
	// ChunkInterval defines how large each time partition should be, e.g., '1 day'.
	ChunkInterval time.Duration

	// CompressionEnabled indicates whether TimescaleDB compression is enabled.
	CompressionEnabled bool

	// RetentionEnabled indicates whether old data is pruned automatically.
	RetentionEnabled bool

	// RetentionPeriod overrides defaultRetentionPeriod if non-zero.
	RetentionPeriod time.Duration

	// AdditionalContinuousAggregateViews can store names of any pre-configured continuous aggregates
	// to be refreshed after inserts.
	AdditionalContinuousAggregateViews []string
}

// compressionPolicy represents a placeholder for advanced compression configuration details.
type compressionPolicy struct {
	// IntervalAfterChunkCreation defines how long after chunk creation compression should occur.
	IntervalAfterChunkCreation time.Duration
}

// retentionPolicy represents a placeholder for advanced data retention configuration details.
type retentionPolicy struct {
	// MaxAge defines how long data is kept before removal.
	MaxAge time.Duration
}

// TimescaleRepository provides a high-performance, time-series oriented repository for
// storing and retrieving GPS locations, managing tracking sessions, and performing advanced
// data operations with time-based partitioning, spatial indexing, continuous aggregates,
// and data compression, over a pgx connection pool.
type TimescaleRepository struct {
	pool              *pgxpool.Pool
	schema            string
	config            RepositoryConfig
	CompressionPolicy compressionPolicy
	RetentionPolicy   retentionPolicy
	batchBreaker      *gobreaker.CircuitBreaker
}

// NewTimescaleRepository creates a new instance of TimescaleDB repository with enhanced configuration.
//
// Steps:
//  1. Validate database connection and configuration.
//  2. Initialize schema with compression policies.
//  3. Create hypertable with time-based partitioning.
//  4. Set up spatial indexes for location queries.
//  5. Configure continuous aggregates for session or location statistics.
//  6. Initialize retention policies if enabled.
//  7. Return configured repository instance or error.
func NewTimescaleRepository(ctx context.Context, pool *pgxpool.Pool, schema string, cfg RepositoryConfig) (*TimescaleRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("timescale repository requires a non-nil connection pool")
	}

	repo := &TimescaleRepository{
		pool:   pool,
		schema: schema,
		config: cfg,
		CompressionPolicy: compressionPolicy{
			IntervalAfterChunkCreation: compressionInterval,
		},
		RetentionPolicy: retentionPolicy{
			MaxAge: defaultRetentionPeriod,
		},
	}
	repo.batchBreaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "timescale-batch-writes",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
	})

	if cfg.RetentionPeriod > 0 {
		repo.RetentionPolicy.MaxAge = cfg.RetentionPeriod
	}

	if err := repo.initSchema(ctx); err != nil {
		return nil, err
	}

	if cfg.RetentionEnabled {
		if err := repo.manageRetention(ctx, RetentionConfig{
			RetentionPeriod: repo.RetentionPolicy.MaxAge,
			PolicyEnabled:   true,
		}); err != nil {
			return nil, err
		}
	}

	return repo, nil
}

// initSchema initializes the repository schema with advanced features such as
// hypertable creation, chunk intervals, compression policies, and spatial indexing.
//
// Steps:
//  1. Create schema if not exists.
//  2. Enable required TimescaleDB and PostGIS extensions.
//  3. Create and configure hypertable with chunk interval.
//  4. Configure compression if enabled.
//  5. Create spatial index on location geometry to optimize geospatial queries.
//  6. Create continuous aggregate or materialized view if needed.
//  7. Initialize or refresh aggregator functions.
func (r *TimescaleRepository) initSchema(ctx context.Context) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS "`+r.schema+`";`); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		CREATE EXTENSION IF NOT EXISTS timescaledb;
		CREATE EXTENSION IF NOT EXISTS postgis;
	`); err != nil {
		return err
	}

	createLocationTableSQL := `
		CREATE TABLE IF NOT EXISTS "` + r.schema + `"."` + locationTableName + `" (
			id TEXT NOT NULL,
			walk_id TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			accuracy DOUBLE PRECISION NOT NULL,
			speed DOUBLE PRECISION DEFAULT 0,
			recorded_at TIMESTAMPTZ NOT NULL,
			geo GEOGRAPHY(Point, 4326) NOT NULL
		);
	`
	if _, err := tx.Exec(ctx, createLocationTableSQL); err != nil {
		return err
	}

	chunkIntervalSec := int64(r.config.ChunkInterval.Seconds())
	if chunkIntervalSec <= 0 {
		chunkIntervalSec = 86400
	}
	createHypertableSQL := `
		SELECT create_hypertable(
			'"` + r.schema + `"."` + locationTableName + `"',
			'recorded_at',
			chunk_time_interval => INTERVAL '` + intervalToString(chunkIntervalSec) + `',
			if_not_exists => TRUE
		);
	`
	// Might fail if it's already a hypertable or the caller lacks permissions; best-effort.
	_, _ = tx.Exec(ctx, createHypertableSQL)

	if r.config.CompressionEnabled {
		setCompressionSQL := `
			SELECT add_compression_policy(
				'"` + r.schema + `"."` + locationTableName + `"',
				INTERVAL '` + intervalToString(int64(r.CompressionPolicy.IntervalAfterChunkCreation.Seconds())) + `'
			);
		`
		_, _ = tx.Exec(ctx, setCompressionSQL)
	}

	createSpatialIndexSQL := `
		CREATE INDEX IF NOT EXISTS idx_` + locationTableName + `_geo
		ON "` + r.schema + `"."` + locationTableName + `" USING GIST (geo);
	`
	if _, err := tx.Exec(ctx, createSpatialIndexSQL); err != nil {
		return err
	}

	for _, viewName := range r.config.AdditionalContinuousAggregateViews {
		_, _ = tx.Exec(ctx, `CALL refresh_continuous_aggregate('`+viewName+`', NULL, NULL);`)
	}

	createSessionTableSQL := `
		CREATE TABLE IF NOT EXISTS "` + r.schema + `"."` + sessionTableName + `" (
			id TEXT PRIMARY KEY,
			walk_id TEXT NOT NULL,
			status TEXT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ,
			total_distance DOUBLE PRECISION DEFAULT 0,
			duration_seconds DOUBLE PRECISION DEFAULT 0,
			last_update_time TIMESTAMPTZ,
			is_archived BOOLEAN DEFAULT FALSE,
			track_mfjson JSONB
		);
	`
	if _, err := tx.Exec(ctx, createSessionTableSQL); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// SaveLocation stores a new location point with advanced validation, begins a transaction,
// inserts the record with geospatial data, updates relevant session statistics in real-time,
// refreshes continuous aggregates if configured, and commits or rolls back on error.
func (r *TimescaleRepository) SaveLocation(ctx context.Context, location *models.Location) error {
	if location == nil {
		return pgx.ErrNoRows
	}
	if !location.IsValid {
		if err := location.Validate(); err != nil {
			return err
		}
	}
	if location.Accuracy < 0 || location.Accuracy > 100.0 {
		return fmt.Errorf("saveLocation error: accuracy %.2f out of range", location.Accuracy)
	}

	const maxRetries = 3
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		lastErr = r.saveLocationOnce(ctx, location)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (r *TimescaleRepository) saveLocationOnce(ctx context.Context, location *models.Location) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insertSQL := `
		INSERT INTO "` + r.schema + `"."` + locationTableName + `"
		(id, walk_id, latitude, longitude, accuracy, speed, recorded_at, geo)
		VALUES
		($1, $2, $3, $4, $5, $6, $7, ST_SetSRID(ST_Point($8, $9), 4326)::geography);
	`
	if _, err := tx.Exec(ctx, insertSQL,
		location.ID,
		location.WalkID,
		location.Latitude,
		location.Longitude,
		location.Accuracy,
		0.0,
		location.Timestamp,
		location.Longitude,
		location.Latitude,
	); err != nil {
		return err
	}

	updateSessionSQL := `
		UPDATE "` + r.schema + `"."` + sessionTableName + `"
		SET last_update_time = $1
		WHERE walk_id = $2;
	`
	if _, err := tx.Exec(ctx, updateSessionSQL, time.Now().UTC(), location.WalkID); err != nil {
		return err
	}

	for _, viewName := range r.config.AdditionalContinuousAggregateViews {
		_, _ = tx.Exec(ctx, `CALL refresh_continuous_aggregate('`+viewName+`', NULL, NULL);`)
	}

	return tx.Commit(ctx)
}

// BatchSaveLocations persists multiple location points using pgx's batch protocol, chunked
// at defaultBatchSize per round trip. This is exposed for high-throughput data ingestion.
func (r *TimescaleRepository) BatchSaveLocations(ctx context.Context, locations []*models.Location) error {
	if len(locations) == 0 {
		return nil
	}

	for _, loc := range locations {
		if loc == nil {
			return pgx.ErrNoRows
		}
		if !loc.IsValid {
			if err := loc.Validate(); err != nil {
				return err
			}
		}
	}

	insertSQL := `
		INSERT INTO "` + r.schema + `"."` + locationTableName + `"
		(id, walk_id, latitude, longitude, accuracy, speed, recorded_at, geo)
		VALUES ($1, $2, $3, $4, $5, $6, $7, ST_SetSRID(ST_Point($8, $9), 4326)::geography);
	`

	for start := 0; start < len(locations); start += defaultBatchSize {
		end := start + defaultBatchSize
		if end > len(locations) {
			end = len(locations)
		}
		chunk := locations[start:end]

		_, err := r.batchBreaker.Execute(func() (interface{}, error) {
			batch := &pgx.Batch{}
			for _, loc := range chunk {
				batch.Queue(insertSQL,
					loc.ID, loc.WalkID, loc.Latitude, loc.Longitude, loc.Accuracy, 0.0,
					loc.Timestamp, loc.Longitude, loc.Latitude,
				)
			}

			br := r.pool.SendBatch(ctx, batch)
			var batchErr error
			for range chunk {
				if _, err := br.Exec(); err != nil {
					batchErr = err
					break
				}
			}
			if closeErr := br.Close(); batchErr == nil {
				batchErr = closeErr
			}
			return nil, batchErr
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// GetLocationHistory retrieves the list of location points associated with a particular
// walk, ordered by their recorded timestamp.
func (r *TimescaleRepository) GetLocationHistory(ctx context.Context, walkID string) ([]models.Location, error) {
	if walkID == "" {
		return nil, pgx.ErrNoRows
	}

	selectSQL := `
		SELECT id, walk_id, latitude, longitude, accuracy, recorded_at
		FROM "` + r.schema + `"."` + locationTableName + `"
		WHERE walk_id = $1
		ORDER BY recorded_at ASC;
	`

	rows, err := r.pool.Query(ctx, selectSQL, walkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.Location
	for rows.Next() {
		var loc models.Location
		if err := rows.Scan(&loc.ID, &loc.WalkID, &loc.Latitude, &loc.Longitude, &loc.Accuracy, &loc.Timestamp); err != nil {
			return nil, err
		}
		loc.IsValid = true
		results = append(results, loc)
	}

	return results, rows.Err()
}

// SaveTrack persists a session's moving-point track as a MF-JSON document
//, the wire format the rest of the stack uses to move a
// temporal.Temporal value across process boundaries.
func (r *TimescaleRepository) SaveTrack(ctx context.Context, sessionID string, track temporal.Temporal) error {
	doc, err := extio.EmitMFJSON(track, 0)
	if err != nil {
		return fmt.Errorf("saveTrack error: %w", err)
	}
	updateSQL := `
		UPDATE "` + r.schema + `"."` + sessionTableName + `"
		SET track_mfjson = $1
		WHERE id = $2;
	`
	_, err = r.pool.Exec(ctx, updateSQL, doc, sessionID)
	return err
}

// LoadTrack retrieves and decodes a session's persisted moving-point track.
func (r *TimescaleRepository) LoadTrack(ctx context.Context, sessionID string) (temporal.Temporal, error) {
	selectSQL := `
		SELECT track_mfjson
		FROM "` + r.schema + `"."` + sessionTableName + `"
		WHERE id = $1;
	`
	var doc []byte
	if err := r.pool.QueryRow(ctx, selectSQL, sessionID).Scan(&doc); err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		return nil, nil
	}
	return extio.ParseMFJSON(doc)
}

// GetSessionStatistics retrieves aggregated session information from the tracking_sessions table.
func (r *TimescaleRepository) GetSessionStatistics(ctx context.Context, walkID string) (*models.TrackingStatistics, error) {
	if walkID == "" {
		return nil, pgx.ErrNoRows
	}

	query := `
		SELECT total_distance, duration_seconds
		FROM "` + r.schema + `"."` + sessionTableName + `"
		WHERE walk_id = $1
		LIMIT 1;
	`

	var distance float64
	var durationSec float64
	if err := r.pool.QueryRow(ctx, query, walkID).Scan(&distance, &durationSec); err != nil {
		return nil, err
	}

	stats := &models.TrackingStatistics{
		TotalDistance: distance,
		Duration:      time.Duration(durationSec * float64(time.Second)),
	}
	if stats.Duration.Seconds() > 0 {
		stats.AverageSpeed = distance / stats.Duration.Seconds()
	}

	return stats, nil
}

// ManageRetention is an exported method that triggers data retention management according
// to the configured retention policy. This includes data compression and removal of expired
// data from older chunks.
func (r *TimescaleRepository) ManageRetention(ctx context.Context) error {
	return r.manageRetention(ctx, RetentionConfig{
		RetentionPeriod: r.RetentionPolicy.MaxAge,
		PolicyEnabled:   r.config.RetentionEnabled,
	})
}

// RetentionConfig represents parameters to guide a data retention operation.
type RetentionConfig struct {
	RetentionPeriod time.Duration
	PolicyEnabled   bool
}

// manageRetention applies compression and data pruning policies if retention is enabled.
func (r *TimescaleRepository) manageRetention(ctx context.Context, cfg RetentionConfig) error {
	if !cfg.PolicyEnabled {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	compressSQL := `
		SELECT compress_chunk(i.chunk_name)
		FROM show_chunks('` + r.schema + "." + locationTableName + `') i
		WHERE i.chunk_name NOT IN (
			SELECT chunk
			FROM timescaledb_information.compressed_chunks
		);
	`
	_, _ = tx.Exec(ctx, compressSQL)

	removeSQL := `
		DELETE FROM "` + r.schema + `"."` + locationTableName + `"
		WHERE recorded_at < NOW() - INTERVAL '` + intervalToString(int64(cfg.RetentionPeriod.Seconds())) + `';
	`
	_, _ = tx.Exec(ctx, removeSQL)

	for _, viewName := range r.config.AdditionalContinuousAggregateViews {
		_, _ = tx.Exec(ctx, `CALL refresh_continuous_aggregate('`+viewName+`', NULL, NULL);`)
	}

	return tx.Commit(ctx)
}

// intervalToString converts an integer representing seconds into a string representation
// suitable for Postgres INTERVAL usage, e.g., "86400" -> "1 days " (each component but
// seconds is followed by a space).
func intervalToString(seconds int64) string {
	if seconds <= 0 {
		return "1 day"
	}
	days := seconds / 86400
	remainder := seconds % 86400
	hours := remainder / 3600
	minutes := (remainder % 3600) / 60
	secs := remainder % 60

	result := ""
	if days > 0 {
		result += strconv.FormatInt(days, 10) + " days "
	}
	if hours > 0 {
		result += strconv.FormatInt(hours, 10) + " hours "
	}
	if minutes > 0 {
		result += strconv.FormatInt(minutes, 10) + " minutes "
	}
	if secs > 0 {
		result += strconv.FormatInt(secs, 10) + " seconds"
	}
	if result == "" {
		result = "1 day"
	}
	return result
}
