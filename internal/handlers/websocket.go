package handlers

import (
	"context"
	"encoding/json" // go1.21
	"errors"
	"fmt"
	"net/http"
	"sync"            // go1.21 for thread-safe maps, pools, and concurrency
	"time"

	// WebSocket protocol implementation (github.com/gorilla/websocket v1.5.0)
	"github.com/gorilla/websocket"

	// Prometheus for metrics (github.com/prometheus/client_golang/prometheus v1.16.0)
	"github.com/prometheus/client_golang/prometheus"

	// Internal dependencies.
	st "github.com/dogwalking/mobility-core/internal/services" // For *TrackingService
	um "github.com/dogwalking/mobility-core/internal/utils"     // For *MQTTClient
	"github.com/dogwalking/mobility-core/internal/models"
)

// ---------------------------------------------------------------------------
// Global Configuration Variables
// ---------------------------------------------------------------------------
var (
	// writeWait defines the allowed write deadline to the client.
	writeWait = 10 * time.Second

	// pongWait is the duration we wait to receive a Pong message from the client
	// before terminating the connection.
	pongWait = 60 * time.Second

	// pingPeriod defines how frequently we send Ping messages to the client to
	// keep the connection alive. Typically slightly less than pongWait.
	pingPeriod = 54 * time.Second

	// maxMessageSize sets the maximum size in bytes for incoming messages.
	maxMessageSize int64 = 4096

	// maxConnections is the upper limit of total active WebSocket connections
	// for this handler instance. Exceeding it should be carefully handled.
	maxConnections = 10000

	// messageBufferSize specifies the buffer length when reading messages.
	// This can be used for channels or pooled buffers.
	messageBufferSize = 256
)

// ---------------------------------------------------------------------------
// WebSocketHandler Struct Definition
// ---------------------------------------------------------------------------
//
// WebSocketHandler handles WebSocket connections and message routing for real-time
// dog walk tracking, featuring connection pooling, enhanced security, and
// comprehensive monitoring.
type WebSocketHandler struct {
	// connections maintains all active connection references in a thread-safe
	// manner. The map keys might be connection IDs or session IDs, depending
	// on how we choose to store them. Each map value can hold a struct containing
	// metadata about the connection, the actual *websocket.Conn, or both.
	connections *sync.Map

	// trackingService provides access to session management and location
	// processing (StartSession, EndSession, ProcessLocationUpdate).
	trackingService *st.TrackingService

	// mqttClient allows this handler to publish or subscribe to MQTT-based updates
	// for reliability and real-time messaging (PublishLocation, SubscribeToSession).
	mqttClient *um.MQTTClient

	// upgrader configures parameters for upgrading an HTTP connection to
	// a WebSocket, applying security checks such as allowed origins.
	upgrader websocket.Upgrader

	// messagePool is a pool of reusable buffers or message slices to reduce
	// allocations for high-throughput scenarios.
	messagePool *sync.Pool

	// connectionGauge tracks the number of currently open WebSocket connections.
	connectionGauge prometheus.Gauge

	// ctx is a context that can be canceled to initiate shutdown processes.
	ctx context.Context

	// cancel is the cancellation function associated with ctx, used to trigger
	// a graceful shutdown or termination across connections.
	cancel context.CancelFunc
}

// ---------------------------------------------------------------------------
// NewWebSocketHandler (Constructor)
// ---------------------------------------------------------------------------
//
// NewWebSocketHandler creates a new WebSocket handler instance with enhanced
// configuration, including connection pooling, timeouts, security checks,
// and references to the tracking service and MQTT client.
//
// Steps:
//   1. Initialize connection map with sync.Map
//   2. Configure WebSocket upgrader with security options
//   3. Set up tracking service with monitoring (optional placeholders)
//   4. Configure MQTT client with any necessary pre-logic or retry settings
//   5. Initialize message pool for efficiency
//   6. Configure connection limits (global variable usage or logs)
//   7. Initialize shutdown context
func NewWebSocketHandler(
	trackingService *st.TrackingService,
	mqttClient *um.MQTTClient,
	ctx context.Context,
) *WebSocketHandler {

	// 1. Initialize connection map
	connMap := &sync.Map{}

	// 2. Configure WebSocket upgrader with security options
	//    For production, you might restrict origins or implement custom checks.
	upg := websocket.Upgrader{
		ReadBufferSize:  int(messageBufferSize),
		WriteBufferSize: int(messageBufferSize),
		// Example origin check. Adjust or remove according to security requirements.
		CheckOrigin: func(r *http.Request) bool {
			// Here we accept all origins for demonstration; refine in production.
			return true
		},
	}

	// 3. (Optional) If the tracking service requires additional setup or monitoring,
	//    we could insert that logic here. For demonstration, we keep it simple.

	// 4. Configure any MQTT client logic if needed, e.g., custom retries or setup.
	//    This might already be done inside the MQTTClient itself. For completeness:
	//    (left blank if handled elsewhere)

	// 5. Initialize message pool for efficiency: reusing []byte or other structures.
	pool := &sync.Pool{
		New: func() interface{} {
			return make([]byte, 0, messageBufferSize)
		},
	}

	// 6. Log or store the maximum connection limit. No direct usage below, but
	//    can be used in HandleConnection to enforce limits.
	//    (We rely on a global 'maxConnections' variable.)

	// 7. Setup or wrap a context for shutdown
	handlerCtx, cancelFn := context.WithCancel(ctx)

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_active_connections",
		Help: "Number of currently open WebSocket tracking connections.",
	})

	// Construct the WebSocketHandler
	return &WebSocketHandler{
		connections:     connMap,
		trackingService: trackingService,
		mqttClient:      mqttClient,
		upgrader:        upg,
		messagePool:     pool,
		connectionGauge: gauge,
		ctx:             handlerCtx,
		cancel:          cancelFn,
	}
}

// ---------------------------------------------------------------------------
// HandleConnection
// ---------------------------------------------------------------------------
//
// HandleConnection upgrades the HTTP connection to a WebSocket and manages
// the connection lifecycle with enhancements for security, concurrency, and
// monitoring.
//
// Steps:
//   1. Validate request authentication and authorization (placeholder)
//   2. Check connection limits
//   3. Upgrade HTTP connection to WebSocket with security checks
//   4. Initialize connection metrics (placeholder or actual instrumentation)
//   5. Register connection in pool
//   6. Start read/write pumps with monitoring
//   7. Set up connection cleanup handlers
//   8. Configure automatic recovery
//   9. Start metrics collection (placeholder or instrumentation)
func (wh *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	// 1. Validate request authentication (placeholder).
	//    In real usage, parse tokens from headers or cookies, etc.
	//    Return an error or http.Error if invalid.
	//    For demonstration, we simply pass.

	// 2. Check connection limits
	currConnCount := wh.countConnections()
	if currConnCount >= maxConnections {
		http.Error(w, "Maximum connection limit reached", http.StatusServiceUnavailable)
		return errors.New("max connection limit reached")
	}

	// 3. Upgrade HTTP to WebSocket
	conn, err := wh.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade to websocket: %w", err)
	}

	// 4. Initialize connection metrics (placeholder or actual instrumentation).
	//    For demonstration, we might log or increment a counter.
	//    You could use a Prometheus counter here.

	// 5. Register connection in pool. We'll store based on a unique ID (e.g., short GUID).
	//    If the client provides a sessionID in a query param, we might use that.
	sessionID := r.URL.Query().Get("sessionID")
	if sessionID == "" {
		// For demonstration, if no sessionID is provided, we generate one.
		sessionID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}
	wh.connections.Store(sessionID, conn)
	wh.connectionGauge.Inc()

	// Start a tracking session for this connection and subscribe the MQTT
	// client to its location/control topics.
	if wh.trackingService != nil {
		walkerID := r.URL.Query().Get("walkerID")
		dogID := r.URL.Query().Get("dogID")
		session, err := wh.trackingService.StartSession(sessionID, walkerID, dogID)
		if err != nil {
			conn.Close()
			wh.connections.Delete(sessionID)
			wh.connectionGauge.Dec()
			return fmt.Errorf("failed to start tracking session: %w", err)
		}
		if wh.mqttClient != nil {
			if err := wh.mqttClient.SubscribeToSession(session); err != nil {
				conn.Close()
				wh.connections.Delete(sessionID)
				wh.connectionGauge.Dec()
				return fmt.Errorf("failed to subscribe session to MQTT: %w", err)
			}
		}
	}

	// 6. Start read/write pumps
	//    We'll run them as goroutines to handle asynchronous I/O.
	go wh.writePump(conn, sessionID)
	go wh.readPump(conn, sessionID)

	// 7. Setup connection cleanup handlers
	//    e.g., close the connection if the context is canceled or if an internal error occurs.
	//    This is typically done in readPump/writePump or a separate routine.

	// 8. Configure automatic recovery
	//    We'll do 'defer recover' in the pump routines or processMessage calls.
	//    For demonstration, see readPump/writePump for panic recovery.

	// 9. Start metrics collection if needed.
	//    Could be a separate goroutine that tracks stats about this connection.

	return nil
}

// ---------------------------------------------------------------------------
// readPump
// ---------------------------------------------------------------------------
//
// readPump reads messages from the WebSocket connection with robust error
// handling, input validation, and concurrency controls.
//
// Steps:
//   1. Set read deadline with monitoring
//   2. Configure message size limits
//   3. Initialize message validation
//   4. Set up error recovery
//   5. Read messages in loop with metrics
//   6. Validate message format
//   7. Process each message once; a failed message is skipped, not retried
//   8. Handle connection closure gracefully
//   9. Clean up resources
func (wh *WebSocketHandler) readPump(conn *websocket.Conn, sessionID string) {
	defer func() {
		// 9. Clean up resources on routine exit
		conn.Close()
		wh.connections.Delete(sessionID)
		wh.connectionGauge.Dec()

		// Attempt to end the session if needed
		if wh.trackingService != nil {
			_ = wh.trackingService.EndSession(sessionID)
		}
	}()

	defer func() {
		// 4. Error recovery
		if r := recover(); r != nil {
			// Log and handle
		}
	}()

	// 1. Set read deadline
	conn.SetReadDeadline(time.Now().Add(pongWait))

	// Use SetPongHandler to update read deadline on Pong messages
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// 2. Configure message size limits to prevent DOS.
	conn.SetReadLimit(maxMessageSize)

	for {
		// 5. Read messages in a loop
		messageType, msg, err := conn.ReadMessage()
		if err != nil {
			// 8. Connection closure or error
			break
		}

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			// If we want to ignore non-text/binary, we can continue
			continue
		}

		// 3. & 6. Validate message format in a minimal sense
		if len(msg) == 0 {
			// Skip or handle empty message
			continue
		}

		// 7. Process messages (with potential retry)
		procErr := wh.processMessage(sessionID, msg)
		if procErr != nil {
			// We can log errors or decide to break if they are critical
			// For demonstration, we simply continue
			continue
		}
	}
}

// ---------------------------------------------------------------------------
// writePump
// ---------------------------------------------------------------------------
//
// writePump writes messages to the WebSocket connection with reliability
// mechanisms like heartbeats, delivery guarantees, and graceful shutdown.
//
// Steps:
//   1. Set up ticker for ping messages
//   2. Initialize write buffer
//   3. Configure message batching (placeholder if needed)
//   4. Handle outgoing message queue
//   5. Implement retry logic (placeholder)
//   6. Monitor write performance
//   7. Handle write timeouts
//   8. Manage connection health
//   9. Clean up on shutdown
func (wh *WebSocketHandler) writePump(conn *websocket.Conn, sessionID string) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-wh.ctx.Done():
			// 9. Graceful shutdown triggered from external cancel function
			return
		case <-ticker.C:
			// 1. Ping messages
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				// 8. Connection health check fails if we cannot write
				return
			}
		}
	}
}

// ---------------------------------------------------------------------------
// processMessage
// ---------------------------------------------------------------------------
//
// processMessage applies comprehensive validation and routes incoming messages
// for further handling by the tracking service or other logic.
//
// Steps:
//   1. Validate message schema
//   2. Parse message type
//   3. Authenticate request (placeholder)
//   4. Rate limit check (placeholder)
//   5. Route to appropriate handler
//   6. Process with retries (placeholder if needed)
//   7. Send acknowledgment
//   8. Update metrics
//   9. Log processing result
func (wh *WebSocketHandler) processMessage(sessionID string, message []byte) error {
	// 1. Validate message schema
	//    For demonstration, assume a JSON with a field "action"
	var payload struct {
		Action string `json:"action"`
		Data   string `json:"data"`
	}
	if err := json.Unmarshal(message, &payload); err != nil {
		return fmt.Errorf("invalid message format: %w", err)
	}

	// 2. Parse message type (e.g., action)
	action := payload.Action

	// 3. Authenticate request (placeholder). Could parse tokens, etc.

	// 4. Rate limit (placeholder). Could integrate with a token bucket or call out to an external service.

	// 5. Route to appropriate handler based on action
	switch action {
	case "locationUpdate":
		// payload.Data carries the location as a JSON-encoded models.Location.
		if wh.trackingService != nil {
			var loc models.Location
			if err := json.Unmarshal([]byte(payload.Data), &loc); err != nil {
				return fmt.Errorf("invalid location payload: %w", err)
			}
			if loc.WalkID == "" {
				loc.WalkID = sessionID
			}
			if err := wh.trackingService.ProcessLocationUpdate(loc); err != nil {
				return fmt.Errorf("failed to process location update: %w", err)
			}
		}

	case "someOtherAction":
		// Placeholder for other types of messages
	default:
		// Unknown or unsupported action
	}

	// 6. Process with retries if needed. For demonstration, omitted.

	// 7. Send acknowledgment. This could be a text message back to the client.
	ackMsg := map[string]string{
		"status":  "ok",
		"action":  action,
		"session": sessionID,
	}
	ackJSON, _ := json.Marshal(ackMsg)
	// Best-effort attempt to write acknowledgment:
	wh.writeAck(sessionID, ackJSON)

	// 8. Update metrics (placeholder). Could increment a Prometheus counter for processed messages.

	// 9. Log processing result
	return nil
}

// writeAck attempts to find the existing WebSocket connection from wh.connections
// by sessionID and writes a text message with the provided payload. This is a
// convenience function used by processMessage for sending acknowledgments.
func (wh *WebSocketHandler) writeAck(sessionID string, payload []byte) {
	val, ok := wh.connections.Load(sessionID)
	if !ok {
		return
	}
	conn, castOK := val.(*websocket.Conn)
	if !castOK {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.TextMessage, payload)
}

// ---------------------------------------------------------------------------
// Shutdown Method
// ---------------------------------------------------------------------------
//
// Shutdown initiates a graceful shutdown of all WebSocket connections,
// releasing resources and canceling the internal context.
func (wh *WebSocketHandler) Shutdown() error {
	// Cancel the context to signal all background operations to stop.
	wh.cancel()

	// Iterate over all active connections, close them, and remove from map.
	wh.connections.Range(func(key, value interface{}) bool {
		if c, ok := value.(*websocket.Conn); ok {
			_ = c.Close()
		}
		wh.connections.Delete(key)
		return true
	})

	return nil
}

// countConnections is a helper function to retrieve the current connection count
// from the sync.Map.
func (wh *WebSocketHandler) countConnections() int {
	count := 0
	wh.connections.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}