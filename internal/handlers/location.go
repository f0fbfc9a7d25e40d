package handlers

import (
	// gin for HTTP routing and handling (github.com/gin-gonic/gin v1.9.1)
	"github.com/gin-gonic/gin"

	// websocket for WebSocket connections (github.com/gorilla/websocket v1.5.0)
	"github.com/gorilla/websocket"

	// json for encoding/decoding (go1.21)
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	// zap for structured logging (go.uber.org/zap v1.25.0)
	"go.uber.org/zap"

	// prometheus for metrics collection and monitoring (github.com/prometheus/client_golang/prometheus v1.16.0)
	"github.com/prometheus/client_golang/prometheus"

	// models package for the Location struct
	"github.com/dogwalking/mobility-core/internal/models"

	// services package for the TrackingService struct
	"github.com/dogwalking/mobility-core/internal/services"

	// extio formats accumulated tracks as MF-JSON for the history endpoint
	"github.com/dogwalking/mobility-core/internal/extio"
)

// Global configuration variables for the location handler.
var (
	// maxMessageSize defines the maximum allowed size, in bytes, for an incoming WebSocket message.
	maxMessageSize int64 = 4096

	// heartbeatInterval specifies how frequently heartbeat pings or checks should be sent/verified.
	heartbeatInterval = 30 * time.Second

	// maxReconnectAttempts is the number of consecutive failed heartbeat pings tolerated before the
	// WebSocket connection is closed; no reconnection is attempted.
	maxReconnectAttempts = 5

	// mfjsonPrecision is the coordinate rounding precision used when a caller
	// requests ?format=mfjson from HandleGetLocationHistory.
	mfjsonPrecision = 6
)

// checkOrigin is the WebSocket upgrader's origin check. It accepts every
// request; the Origin header is not inspected.
func checkOrigin(r *http.Request) bool {
	return true
}

// LocationHandler is an enhanced handler for managing location-related endpoints,
// featuring real-time tracking, robust monitoring, and enhanced security checks.
// It exposes HTTP and WebSocket methods to integrate with the rest of the system.
type LocationHandler struct {
	// trackingService references the core tracking service for location processing, session management, etc.
	trackingService *services.TrackingService

	// wsUpgrader configures WebSocket upgrade parameters like read/write buffer sizes and origin checks.
	wsUpgrader websocket.Upgrader

	// logger provides structured logging for all handler operations.
	logger *zap.Logger

	// requestCounter counts handler requests by outcome, partitioned by endpoint.
	requestCounter *prometheus.CounterVec
}

// NewLocationHandler creates a new location handler instance with enhanced monitoring and security features.
//
// Steps:
//  1. Create new handler instance
//  2. Initialize WebSocket upgrader with compression and checkOrigin (which accepts every origin)
//  3. Set up tracking service reference
//  4. Configure structured logging
//  5. Wire the request counter
//  6. Return initialized handler
func NewLocationHandler(
	ts *services.TrackingService,
	logger *zap.Logger,
	requestCounter *prometheus.CounterVec,
) *LocationHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       checkOrigin,
		EnableCompression: true,
	}

	return &LocationHandler{
		trackingService: ts,
		wsUpgrader:      upgrader,
		logger:          logger,
		requestCounter:  requestCounter,
	}
}

// observe increments requestCounter for outcome, tolerating a nil counter so
// handlers built without metrics wiring (e.g. in unit tests) still work.
func (lh *LocationHandler) observe(outcome string) {
	if lh.requestCounter == nil {
		return
	}
	lh.requestCounter.WithLabelValues(outcome).Inc()
}

// validateSession checks the session ID and token of a request.
//
// Steps:
//  1. Reject an empty sessionID, counting it as "validation_failed"
//  2. Look up the session; an unknown sessionID is only logged
//  3. Log a warning if the token is empty; the token is not otherwise verified
//  4. Return nil for any non-empty sessionID
//
// No rate limiting or permission checks are performed.
func (lh *LocationHandler) validateSession(sessionID, token string) error {
	// 1. Reject an empty session ID
	if sessionID == "" {
		lh.logger.Error("Session validation failed: empty session ID")
		lh.observe("validation_failed")
		return errors.New("session validation failed: sessionID cannot be empty")
	}

	// 2. Validate session existence
	if _, ok := lh.trackingService.GetSessionStatistics(sessionID); !ok {
		lh.logger.Warn("Session not found during validation", zap.String("sessionID", sessionID))
	}

	// 3. Verify token authenticity - Placeholder logic
	if token == "" {
		lh.logger.Warn("No token provided; additional checks recommended for security")
	}

	// 4. Log success; roles and scopes are not checked
	lh.logger.Debug("Session validated successfully",
		zap.String("sessionID", sessionID),
		zap.String("tokenSnippet", token),
	)
	return nil
}

// handleWSConnection manages a WebSocket connection lifecycle with monitoring and recovery.
//
// Steps:
//  1. Log connection establishment
//  2. Set up heartbeat interval checks
//  3. Configure compression and read limits
//  4. Start a message read loop
//  5. Handle reconnection attempts if needed (simplified here)
//  6. Manage connection lifecycle and cleanup
func (lh *LocationHandler) handleWSConnection(conn *websocket.Conn, sessionID string) error {
	if conn == nil {
		lh.logger.Error("handleWSConnection invoked with nil *websocket.Conn")
		return errors.New("nil websocket connection")
	}
	defer conn.Close()

	lh.logger.Info("WebSocket connection established",
		zap.String("sessionID", sessionID),
	)
	lh.observe("stream_connected")

	heartbeatTicker := time.NewTicker(heartbeatInterval)
	defer heartbeatTicker.Stop()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetCompressionLevel(websocket.CompressionBestSpeed); err != nil {
		lh.logger.Warn("Failed to set WebSocket compression level", zap.Error(err))
	}

	reconnectAttempts := 0
	for {
		select {
		case <-heartbeatTicker.C:
			err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
			if err != nil {
				lh.logger.Warn("Heartbeat ping failed", zap.Error(err))
				reconnectAttempts++
				if reconnectAttempts > maxReconnectAttempts {
					lh.logger.Error("Max reconnect attempts reached, closing connection",
						zap.String("sessionID", sessionID),
					)
					return err
				}
			} else {
				reconnectAttempts = 0
			}

		default:
			conn.SetReadDeadline(time.Now().Add(heartbeatInterval * 2))
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				lh.logger.Info("WebSocket read error / closure",
					zap.String("sessionID", sessionID),
					zap.Error(err),
				)
				return err
			}

			lh.logger.Debug("Received WebSocket message",
				zap.String("sessionID", sessionID),
				zap.Int("messageType", mt),
				zap.ByteString("payload", msg),
			)
		}
	}
}

// HandleLocationUpdate is an HTTP handler for receiving location updates
// with recommended decorators (RateLimit, ValidateSession, etc.).
//
// Steps:
//  1. Start request metrics tracking
//  2. Parse and validate location update from request body
//  3. Extract and validate session info (sessionID, token) from headers or query
//  4. Process location update via TrackingService.ProcessLocationUpdate
//  5. Record relevant metrics
//  6. Return a response with appropriate status code and message
func (lh *LocationHandler) HandleLocationUpdate(c *gin.Context) {
	lh.logger.Debug("HandleLocationUpdate started")

	// 2. Parse input location
	var loc models.Location
	if err := c.ShouldBindJSON(&loc); err != nil {
		lh.logger.Error("Failed to bind JSON for location update", zap.Error(err))
		lh.observe("invalid_body")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid location format",
		})
		return
	}
	if err := loc.Validate(); err != nil {
		lh.logger.Warn("Location validation failed", zap.String("locationID", loc.ID), zap.Error(err))
		lh.observe("invalid_location")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("validation error: %v", err),
		})
		return
	}

	// 3. Extract sessionID and token from headers
	sessionID := c.GetHeader("X-Session-ID")
	token := c.GetHeader("Authorization")

	if err := lh.validateSession(sessionID, token); err != nil {
		lh.logger.Error("Session validation failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "session validation failed",
		})
		return
	}

	// 4. Process the location update
	if err := lh.trackingService.ProcessLocationUpdate(loc); err != nil {
		lh.logger.Error("Failed to process location update", zap.Error(err))
		lh.observe("process_failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to process location update",
		})
		return
	}

	// 5. Record relevant metrics
	lh.logger.Debug("Location update processed successfully",
		zap.String("locationID", loc.ID),
		zap.String("walkID", loc.WalkID),
		zap.String("sessionID", sessionID),
	)
	lh.observe("processed")

	// 6. Return status
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "location update successful",
	})
}

// HandleLocationStream upgrades an HTTP connection to a WebSocket connection,
// enabling real-time streaming of location data. This method uses handleWSConnection
// to manage the lifecycle of the WebSocket.
//
// Steps:
//  1. Extract session details (sessionID, token) for validation
//  2. Validate session
//  3. Upgrade HTTP to WebSocket
//  4. Delegate to handleWSConnection
//  5. Handle errors and close connection gracefully
func (lh *LocationHandler) HandleLocationStream(c *gin.Context) {
	sessionID := c.Query("sessionID")
	token := c.GetHeader("Authorization")

	err := lh.validateSession(sessionID, token)
	if err != nil {
		lh.logger.Error("Session validation failed for WebSocket connection", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing session credentials"})
		return
	}

	conn, err := lh.wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		lh.logger.Error("WebSocket upgrade failed", zap.Error(err))
		lh.observe("upgrade_failed")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "failed to upgrade connection to WebSocket",
		})
		return
	}

	go func() {
		if wsErr := lh.handleWSConnection(conn, sessionID); wsErr != nil {
			lh.logger.Warn("handleWSConnection returned error", zap.Error(wsErr))
		}
	}()
}

// HandleGetLocationHistory retrieves a historical record of a walk session's
// location data from the tracking service: aggregated statistics by default,
// or the raw moving-point track as MF-JSON when called with ?format=mfjson.
//
// Steps:
//  1. Extract sessionID from query
//  2. If format=mfjson, emit the accumulated track as MF-JSON
//  3. Otherwise retrieve session statistics from the tracking service
//  4. Return data in a JSON response
func (lh *LocationHandler) HandleGetLocationHistory(c *gin.Context) {
	sessionID := c.Query("sessionID")
	if sessionID == "" {
		lh.logger.Error("No sessionID provided to HandleGetLocationHistory")
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionID query parameter is required"})
		return
	}

	if c.Query("format") == "mfjson" {
		lh.handleGetLocationHistoryMFJSON(c, sessionID)
		return
	}

	stats, ok := lh.trackingService.GetSessionStatistics(sessionID)
	if !ok {
		lh.logger.Warn("Session statistics not found",
			zap.String("sessionID", sessionID),
		)
		lh.observe("history_not_found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("no statistics found for sessionID: %s", sessionID),
		})
		return
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		lh.logger.Error("Failed to marshal session statistics", zap.Error(err))
		lh.observe("history_marshal_failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve session history"})
		return
	}

	lh.observe("history_served")
	c.Data(http.StatusOK, "application/json", payload)
}

// handleGetLocationHistoryMFJSON emits the moving-point track accumulated for
// sessionID as an MF-JSON document.
func (lh *LocationHandler) handleGetLocationHistoryMFJSON(c *gin.Context, sessionID string) {
	track, ok := lh.trackingService.GetSessionTrack(sessionID)
	if !ok {
		lh.logger.Warn("Session track not found for MF-JSON export",
			zap.String("sessionID", sessionID),
		)
		lh.observe("history_not_found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("no track found for sessionID: %s", sessionID),
		})
		return
	}

	payload, err := extio.EmitMFJSON(track, mfjsonPrecision)
	if err != nil {
		lh.logger.Error("Failed to emit MF-JSON for session track", zap.Error(err))
		lh.observe("history_mfjson_failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render session track"})
		return
	}

	lh.observe("history_mfjson_served")
	c.Data(http.StatusOK, "application/vnd.geo+json", payload)
}
