package utils

import (
	// github.com/eclipse/paho.mqtt.golang v1.4.3 for MQTT client library
	mqtt "github.com/eclipse/paho.mqtt.golang"

	// encoding/json go1.21 for JSON encoding/decoding
	"encoding/json"

	// time go1.21 for handling timeouts and intervals
	"time"

	// sync go1.21 for concurrency-safe maps and wait groups
	"sync"

	// prometheus v1.16.0 for metrics collection
	"github.com/prometheus/client_golang/prometheus"

	// Internal imports for configuration and models
	"github.com/dogwalking/mobility-core/internal/config"
	"github.com/dogwalking/mobility-core/internal/models"
	"strings"
	"fmt"
	"log"
)

// ---------------------------------------------------------------------
// Global Constants
// ---------------------------------------------------------------------

// TopicLocationUpdate is the format string for location update topics.
const TopicLocationUpdate = "walks/location/%s"

// TopicSessionControl is the format string for session control topics.
const TopicSessionControl = "walks/control/%s"

// QosLevel defines the MQTT QoS level for guaranteed message delivery.
const QosLevel = 1

// MaxRetryAttempts is the maximum number of connection retry attempts.
const MaxRetryAttempts = 3

// RetryBackoffInterval is the interval between retry attempts.
const RetryBackoffInterval = 5 * time.Second

// ---------------------------------------------------------------------
// MQTTClient Struct
// ---------------------------------------------------------------------
// MQTTClient is a thread-safe MQTT client wrapper that provides
// enhanced session management, monitoring, and error recovery
// capabilities for real-time location tracking communication.
type MQTTClient struct {
	// client holds the underlying MQTT client instance.
	client mqtt.Client

	// activeSessions maintains references to active tracking sessions,
	// keyed by session ID for quick lookup and thread-safe access.
	activeSessions *sync.Map

	// config points to the global configuration, including MQTT settings.
	config *config.Config

	// messageMetrics tracks message-related statistics,
	// such as publishes and received messages, for Prometheus.
	messageMetrics *prometheus.CounterVec

	// connectionWg is used to coordinate shutdown sequences and wait
	// for any ongoing routines to complete before disconnecting.
	connectionWg *sync.WaitGroup

	// maxRetries and retryBackoff govern publish/connect retry behavior;
	// defaulted from MaxRetryAttempts/RetryBackoffInterval but adjustable
	// at runtime via SetRetryPolicy.
	maxRetries   int
	retryBackoff time.Duration
}

// ---------------------------------------------------------------------
// Factory Function: NewMQTTClient
// ---------------------------------------------------------------------
// NewMQTTClient creates and configures a new MQTTClient instance with
// metrics and monitoring.
//
// Steps:
//   1. Initialize Prometheus metrics collectors.
//   2. Create MQTT client options with TLS and authentication settings.
//   3. Disable the library's automatic reconnection (Connect retries instead).
//   4. Set up connection and default message handlers.
//   5. Initialize thread-safe session management.
//   6. Create and return an MQTTClient instance with monitoring.
func NewMQTTClient(cfg *config.Config) *MQTTClient {
	// -----------------------------------------------------------------
	// 1. Initialize Prometheus metrics collectors
	// -----------------------------------------------------------------
	metrics := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtt_message_counts",
			Help: "Track the number of MQTT messages published and received.",
		},
		[]string{"direction", "topic"},
	)
	// Register the CounterVec with the default Prometheus registry
	prometheus.MustRegister(metrics)

	// -----------------------------------------------------------------
	// 2. Create MQTT client options
	// -----------------------------------------------------------------
	opts := mqtt.NewClientOptions()
	mqttCfg := cfg.MQTT
	brokerURI := fmt.Sprintf("tcp://%s:%d", mqttCfg.Host, mqttCfg.Port)
	if mqttCfg.TLSEnabled {
		brokerURI = fmt.Sprintf("ssl://%s:%d", mqttCfg.Host, mqttCfg.Port)
	}
	opts.AddBroker(brokerURI)
	opts.SetClientID("tracking-service-client-" + fmt.Sprint(time.Now().UnixNano()))
	if mqttCfg.Username != "" {
		opts.SetUsername(mqttCfg.Username)
	}
	if mqttCfg.Password != "" {
		opts.SetPassword(mqttCfg.Password)
	}
	opts.SetKeepAlive(mqttCfg.KeepAlive)
	opts.SetConnectTimeout(mqttCfg.ConnectionTimeout)
	opts.SetAutoReconnect(false) // We'll implement retries ourselves.

	// -----------------------------------------------------------------
	// 3. Configure optional reconnect logic
	//    (We'll handle a manual approach in Connect() to control backoff.)
	// -----------------------------------------------------------------

	// -----------------------------------------------------------------
	// 4. Setup default message handler callbacks
	//    For unrecognized topics, we can have a fallback handler,
	//    though session-based subscriptions override these for specific topics.
	// -----------------------------------------------------------------
	opts.SetDefaultPublishHandler(func(client mqtt.Client, msg mqtt.Message) {
		log.Printf("[MQTTClient] Received message on unhandled topic %s\n", msg.Topic())
		metrics.WithLabelValues("received", msg.Topic()).Inc()
	})

	// -----------------------------------------------------------------
	// 5. Initialize thread-safe session management
	// -----------------------------------------------------------------
	sessionMap := &sync.Map{}

	// Using a WaitGroup for any background routines or graceful shutdown
	wg := &sync.WaitGroup{}

	// -----------------------------------------------------------------
	// Create the underlying client from the options
	// -----------------------------------------------------------------
	mqttClient := mqtt.NewClient(opts)

	// -----------------------------------------------------------------
	// Build the wrapper struct
	// -----------------------------------------------------------------
	wrapper := &MQTTClient{
		client:         mqttClient,
		activeSessions: sessionMap,
		config:         cfg,
		messageMetrics: metrics,
		connectionWg:   wg,
		maxRetries:     MaxRetryAttempts,
		retryBackoff:   RetryBackoffInterval,
	}

	return wrapper
}

// ---------------------------------------------------------------------
// Method: Connect
// ---------------------------------------------------------------------
// Connect establishes connection to the MQTT broker with a retry
// mechanism.
//
// Steps:
//   1. Attempt initial connection to MQTT broker.
//   2. Retry on failure, sleeping retryBackoff × attempt between attempts.
//   3. Wait for connection confirmation.
//   4. Subscribe to any required system topics (if needed) with QoS.
//   5. Initialize a health check routine.
//   6. Return connection status (error if connection fails).
func (mc *MQTTClient) Connect() error {
	var attempt int
	var err error

	for attempt = 1; attempt <= mc.maxRetries; attempt++ {
		token := mc.client.Connect()
		// Wait until the connection attempt finishes
		token.Wait()
		if token.Error() == nil {
			// Successfully connected
			log.Printf("[MQTTClient] Successfully connected on attempt #%d\n", attempt)
			err = nil
			break
		}
		// Connection attempt failed
		err = token.Error()
		log.Printf("[MQTTClient] Connection attempt #%d failed: %v\n", attempt, err)

		// Linearly increasing backoff
		sleepDuration := mc.retryBackoff * time.Duration(attempt)
		time.Sleep(sleepDuration)
	}

	if err != nil {
		return fmt.Errorf("failed to connect to MQTT broker after %d attempts: %w", mc.maxRetries, err)
	}

	log.Println("[MQTTClient] Connected to MQTT broker.")

	// -----------------------------------------------------------------
	// 4. Subscribe to any required system/monitoring topics
	//    In a production scenario, we might subscribe to internal
	//    topics for health monitoring or distributed configuration.
	//    For demonstration, we can skip or show an example subscription.
	// -----------------------------------------------------------------
	// Example: subscribe to a hypothetical 'service/heartbeat' topic
	// to log heartbeat messages. We do not raise an error if it fails,
	// but we log it for debugging.
	sysTopic := "service/heartbeat"
	subToken := mc.client.Subscribe(sysTopic, byte(QosLevel), func(client mqtt.Client, msg mqtt.Message) {
		mc.messageMetrics.WithLabelValues("received", msg.Topic()).Inc()
		log.Printf("[MQTTClient] Heartbeat message: %s\n", string(msg.Payload()))
	})
	subToken.Wait()
	if subToken.Error() != nil {
		log.Printf("[MQTTClient] Failed to subscribe to system topic %s: %v\n", sysTopic, subToken.Error())
	}

	// -----------------------------------------------------------------
	// 5. Initialize a health check routine
	//    (e.g., regularly checking if the connection is alive)
	// -----------------------------------------------------------------
	mc.connectionWg.Add(1)
	go mc.startHealthCheck()

	return nil
}

// startHealthCheck periodically checks that the MQTT client remains
// connected. If disconnected, it attempts to reconnect. This routine
// is not strictly required here but demonstrates
// robust, production-grade handling.
func (mc *MQTTClient) startHealthCheck() {
	defer mc.connectionWg.Done()
	ticker := time.NewTicker(mc.config.MQTT.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !mc.client.IsConnected() {
				log.Println("[MQTTClient] Detected disconnection; attempting manual reconnection.")
				_ = mc.Connect()
			}
		}
	}
}

// ---------------------------------------------------------------------
// Method: Disconnect
// ---------------------------------------------------------------------
// Disconnect cleanly disconnects from the MQTT broker, shutting down
// health checks, unsubscribing from topics, and cleaning up sessions.
//
// Steps:
//   1. Cancel health check routine (using a graceful approach).
//   2. Unsubscribe from all topics if needed.
//   3. Clean up active sessions as necessary.
//   4. Close metric collectors (if any).
//   5. Disconnect MQTT client with a timeout.
//   6. Wait for all background routines to finish cleanup.
func (mc *MQTTClient) Disconnect() {
	log.Println("[MQTTClient] Initiating clean disconnect from MQTT broker.")

	// 1. A standard approach to cancel health check might use a context or
	//    additional logic. For demonstration, we rely on re-check intervals
	//    finishing. Alternatively, we can forcibly stop the ticker in startHealthCheck.
	//    We'll let the goroutine exit once the client is fully disconnected.

	// 2. Unsubscribe from possible system topics or from session topics if we wish.
	//    For demonstration, unsubscribing from "service/heartbeat" or all session topics.
	mc.client.Unsubscribe("service/heartbeat")

	// 3. Session cleanup. We can iterate over activeSessions and mark them or
	//    simply log. We'll not forcibly remove them in this example. A real
	//    implementation might archive or store partial data if necessary.
	mc.activeSessions.Range(func(key, value interface{}) bool {
		sessID, _ := key.(string)
		log.Printf("[MQTTClient] Cleaning up session reference for sessionID=%s\n", sessID)
		mc.activeSessions.Delete(key)
		return true
	})

	// 4. If we had allocated any special metric collectors beyond messageMetrics,
	//    we'd close them here. For demonstration, we only have the CounterVec
	//    registered globally.

	// 5. Disconnect the MQTT client with a defined timeout (e.g., 1000 ms).
	mc.client.Disconnect(1000)

	// 6. Wait for the health check or other background routines to complete.
	mc.connectionWg.Wait()

	log.Println("[MQTTClient] Disconnected successfully.")
}

// ---------------------------------------------------------------------
// Method: SubscribeToSession
// ---------------------------------------------------------------------
// SubscribeToSession subscribes to the location updates topic and the
// control messages topic for the given TrackingSession with validation.
//
// Steps:
//   1. Validate session state: ensure it is not completed.
//   2. Subscribe to location updates topic with QoS level.
//   3. Subscribe to control messages topic.
//   4. Store session reference in activeSessions thread-safely.
//   5. Initialize session metrics if desired.
//   6. Return subscription status.
func (mc *MQTTClient) SubscribeToSession(session *models.TrackingSession) error {
	// 1. Validate session state
	status := session.Status()
	if strings.EqualFold(status, models.SessionStatusCompleted) {
		return fmt.Errorf("cannot subscribe to a completed session (sessionID=%s)", session.IDValue())
	}

	sessionID := session.IDValue()

	// 2. Subscribe to location updates topic
	locTopic := fmt.Sprintf(TopicLocationUpdate, sessionID)
	locToken := mc.client.Subscribe(locTopic, QosLevel, func(client mqtt.Client, msg mqtt.Message) {
		mc.messageMetrics.WithLabelValues("received", msg.Topic()).Inc()
		handleLocationUpdate(client, msg, mc)
	})
	locToken.Wait()
	if locToken.Error() != nil {
		return fmt.Errorf("failed to subscribe to location topic for sessionID=%s: %w", sessionID, locToken.Error())
	}

	// 3. Subscribe to control messages topic
	ctrlTopic := fmt.Sprintf(TopicSessionControl, sessionID)
	ctrlToken := mc.client.Subscribe(ctrlTopic, QosLevel, func(client mqtt.Client, msg mqtt.Message) {
		mc.messageMetrics.WithLabelValues("received", msg.Topic()).Inc()
		handleSessionControl(client, msg, mc)
	})
	ctrlToken.Wait()
	if ctrlToken.Error() != nil {
		return fmt.Errorf("failed to subscribe to control topic for sessionID=%s: %w", sessionID, ctrlToken.Error())
	}

	// 4. Store session in activeSessions
	mc.activeSessions.Store(sessionID, session)

	// 5. (Optional) Initialize session-specific metrics here if desired.
	//    e.g., track messages per session, GPS updates, etc.

	// 6. Return success
	log.Printf("[MQTTClient] Subscribed to location/control topics for sessionID=%s\n", sessionID)
	return nil
}

// ---------------------------------------------------------------------
// Method: PublishLocation
// ---------------------------------------------------------------------
// PublishLocation publishes a location update for a given session,
// retrying failed publishes. Updates are not batched or compressed.
//
// Steps:
//   1. Validate location data.
//   2. (No batching: each call publishes one location.)
//   3. Encode location data as JSON.
//   4. Publish with retry mechanism if the initial publish fails.
//   5. Update metrics.
//   6. Return publish status.
func (mc *MQTTClient) PublishLocation(sessionID string, loc *models.Location) error {
	// 1. Validate location data
	if err := loc.Validate(); err != nil {
		return fmt.Errorf("invalid location data for sessionID=%s: %w", sessionID, err)
	}

	// 2. Batching not explicitly implemented, so we skip it. This is a placeholder.
	//    (In real usage, we might track a queue and flush periodically.)

	// 3. Encode location data. Optionally compress with standard library if desired.
	payload, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("failed to encode location data for sessionID=%s: %w", sessionID, err)
	}

	// 4. Publish with retry mechanism
	topic := fmt.Sprintf(TopicLocationUpdate, sessionID)
	var pubErr error
	for attempt := 1; attempt <= mc.maxRetries; attempt++ {
		pubToken := mc.client.Publish(topic, QosLevel, false, payload)
		pubToken.Wait()
		if pubToken.Error() == nil {
			pubErr = nil
			break
		}
		pubErr = pubToken.Error()
		log.Printf("[MQTTClient] Publish attempt #%d for sessionID=%s failed: %v\n", attempt, sessionID, pubErr)
		time.Sleep(mc.retryBackoff * time.Duration(attempt))
	}
	if pubErr != nil {
		return fmt.Errorf("failed to publish location after %d attempts for sessionID=%s: %w", mc.maxRetries, sessionID, pubErr)
	}

	// 5. Update metrics
	mc.messageMetrics.WithLabelValues("published", topic).Inc()
	log.Printf("[MQTTClient] Successfully published location for sessionID=%s on topic=%s\n", sessionID, topic)

	// 6. Return publish status
	return nil
}

// ---------------------------------------------------------------------
// Method: Publish
// ---------------------------------------------------------------------
// Publish sends an arbitrary payload to topic with the client's configured
// retry policy. It satisfies the narrower services.MQTTClient interface
// used by TrackingService for batch/control notifications that aren't
// tied to a specific session's location topic.
func (mc *MQTTClient) Publish(topic string, payload []byte) error {
	var pubErr error
	for attempt := 1; attempt <= mc.maxRetries; attempt++ {
		token := mc.client.Publish(topic, QosLevel, false, payload)
		token.Wait()
		if token.Error() == nil {
			pubErr = nil
			break
		}
		pubErr = token.Error()
		log.Printf("[MQTTClient] Publish attempt #%d for topic=%s failed: %v\n", attempt, topic, pubErr)
		time.Sleep(mc.retryBackoff * time.Duration(attempt))
	}
	if pubErr != nil {
		return fmt.Errorf("failed to publish to topic=%s after %d attempts: %w", topic, mc.maxRetries, pubErr)
	}
	mc.messageMetrics.WithLabelValues("published", topic).Inc()
	return nil
}

// SetRetryPolicy adjusts the number of retry attempts and the base backoff
// interval used by Publish, PublishLocation, and Connect.
func (mc *MQTTClient) SetRetryPolicy(retries int, backoff time.Duration) {
	if retries > 0 {
		mc.maxRetries = retries
	}
	if backoff > 0 {
		mc.retryBackoff = backoff
	}
}

// ---------------------------------------------------------------------
// Function: handleLocationUpdate
// ---------------------------------------------------------------------
// handleLocationUpdate handles incoming location update MQTT messages
// with validation, session state updates, and metrics.
//
// Steps:
//   1. Decode and validate message format.
//   2. Rate limit check (skipped, but could be implemented).
//   3. Parse and validate location data.
//   4. Update tracking session thread-safely.
//   5. Update metrics.
//   6. Broadcast location update (placeholder).
//   7. Handle errors with recovery.
func handleLocationUpdate(client mqtt.Client, message mqtt.Message, mc *MQTTClient) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[MQTTClient] Panic recovered in handleLocationUpdate: %v\n", r)
		}
	}()

	topic := message.Topic()
	topicParts := strings.Split(topic, "/")
	if len(topicParts) < 3 {
		log.Printf("[MQTTClient] Invalid topic format in handleLocationUpdate: %s\n", topic)
		return
	}
	sessionID := topicParts[len(topicParts)-1]

	// 1 & 3. Decode the payload into a location struct
	var loc models.Location
	if err := json.Unmarshal(message.Payload(), &loc); err != nil {
		log.Printf("[MQTTClient] Failed to unmarshal location data: %v\n", err)
		return
	}

	// 2. Rate limiting is omitted for brevity.

	// 4. Retrieve the session from activeSessions
	sessionVal, ok := mc.activeSessions.Load(sessionID)
	if !ok {
		log.Printf("[MQTTClient] No active session found for sessionID=%s\n", sessionID)
		return
	}
	session, isCorrectType := sessionVal.(*models.TrackingSession)
	if !isCorrectType {
		log.Printf("[MQTTClient] Invalid session type stored for sessionID=%s\n", sessionID)
		return
	}

	// Attempt to add the location
	if err := session.AddLocation(&loc); err != nil {
		log.Printf("[MQTTClient] Failed to add location to sessionID=%s: %v\n", sessionID, err)
		return
	}
	log.Printf("[MQTTClient] Added location to sessionID=%s\n", sessionID)

	// 5. Update metrics (already incremented in the callback).
	//    Optionally we could increment other counters for location updates.

	// 6. Broadcast location update to other systems or notify subscribers
	//    This could be an event-based architecture or an internal channel.
	//    For demonstration, we'll just log it.
	log.Printf("[MQTTClient] Broadcasting updated location for sessionID=%s\n", sessionID)
}

// ---------------------------------------------------------------------
// Function: handleSessionControl
// ---------------------------------------------------------------------
// handleSessionControl handles session control messages containing
// commands to update session state (pause, resume, complete, etc.).
//
// Steps:
//   1. Validate message format.
//   2. Parse control command.
//   3. Verify session state.
//   4. Execute control action.
//   5. Update session state if needed.
//   6. Send acknowledgment.
//   7. Update metrics.
func handleSessionControl(client mqtt.Client, message mqtt.Message, mc *MQTTClient) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[MQTTClient] Panic recovered in handleSessionControl: %v\n", r)
		}
	}()

	topic := message.Topic()
	topicParts := strings.Split(topic, "/")
	if len(topicParts) < 3 {
		log.Printf("[MQTTClient] Invalid topic format in handleSessionControl: %s\n", topic)
		return
	}
	sessionID := topicParts[len(topicParts)-1]

	// 1. Validate message format (we assume JSON with a field "command")
	var payload struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(message.Payload(), &payload); err != nil {
		log.Printf("[MQTTClient] Failed to unmarshal session control command: %v\n", err)
		return
	}

	// 2. Parse control command
	cmd := strings.ToLower(strings.TrimSpace(payload.Command))
	if cmd == "" {
		log.Printf("[MQTTClient] Empty control command for sessionID=%s\n", sessionID)
		return
	}

	// 3. Verify session state
	sessVal, ok := mc.activeSessions.Load(sessionID)
	if !ok {
		log.Printf("[MQTTClient] No active session found for sessionID=%s (control cmd=%s)\n", sessionID, cmd)
		return
	}
	session, isSession := sessVal.(*models.TrackingSession)
	if !isSession {
		log.Printf("[MQTTClient] Invalid session type for sessionID=%s (control cmd=%s)\n", sessionID, cmd)
		return
	}

	// 4. Execute control action
	switch cmd {
	case "pause":
		if err := session.Pause(); err != nil {
			log.Printf("[MQTTClient] Failed to pause sessionID=%s: %v\n", sessionID, err)
		} else {
			log.Printf("[MQTTClient] Paused sessionID=%s\n", sessionID)
		}
	case "resume":
		if err := session.Resume(); err != nil {
			log.Printf("[MQTTClient] Failed to resume sessionID=%s: %v\n", sessionID, err)
		} else {
			log.Printf("[MQTTClient] Resumed sessionID=%s\n", sessionID)
		}
	case "complete":
		err := session.Complete()
		if err != nil {
			log.Printf("[MQTTClient] Failed to complete sessionID=%s: %v\n", sessionID, err)
			return
		}
		log.Printf("[MQTTClient] Completed sessionID=%s\n", sessionID)
	default:
		log.Printf("[MQTTClient] Unrecognized command '%s' for sessionID=%s\n", cmd, sessionID)
	}

	// 5. Session state was updated within the switch. Additional logic
	//    could be performed here (archival, metrics, etc.).

	// 6. Send acknowledgment
	ackTopic := fmt.Sprintf("%s/ack", topic)
	ackPayload := fmt.Sprintf(`{"sessionID":"%s","command":"%s","status":"ack"}`, sessionID, cmd)
	pubToken := client.Publish(ackTopic, QosLevel, false, ackPayload)
	pubToken.Wait()
	if pubToken.Error() != nil {
		log.Printf("[MQTTClient] Failed to publish control ack: %v\n", pubToken.Error())
	}

	// 7. Update metrics if desired (already incremented in the callback for inbound messages).
	log.Printf("[MQTTClient] Session control command='%s' acked for sessionID=%s\n", cmd, sessionID)
}

