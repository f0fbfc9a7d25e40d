package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogwalking/mobility-core/internal/services"
)

func newTestWebSocketHandler(t *testing.T) (*WebSocketHandler, *services.TrackingService) {
	t.Helper()
	svc := services.NewTrackingService(&fakeMQTTClient{}, &fakeTimescaleDB{}, &services.Config{})
	wh := NewWebSocketHandler(svc, nil, context.Background())
	return wh, svc
}

func TestCountConnectionsReflectsStoredEntries(t *testing.T) {
	t.Parallel()

	wh, _ := newTestWebSocketHandler(t)
	assert.Equal(t, 0, wh.countConnections())

	wh.connections.Store("a", &websocket.Conn{})
	wh.connections.Store("b", &websocket.Conn{})
	assert.Equal(t, 2, wh.countConnections())
}

func TestShutdownClearsConnectionsAndCancelsContext(t *testing.T) {
	t.Parallel()

	wh, _ := newTestWebSocketHandler(t)
	wh.connections.Store("a", &websocket.Conn{})

	require.NoError(t, wh.Shutdown())
	assert.Equal(t, 0, wh.countConnections())

	select {
	case <-wh.ctx.Done():
	default:
		t.Fatal("expected context to be cancelled after Shutdown")
	}
}

func TestProcessMessageRoutesLocationUpdate(t *testing.T) {
	t.Parallel()

	wh, svc := newTestWebSocketHandler(t)
	_, err := svc.StartSession("walk-1", "walker-1", "dog-1")
	require.NoError(t, err)

	msg := `{"action":"locationUpdate","data":"{\"walkId\":\"walk-1\",\"latitude\":37.7,\"longitude\":-122.4,\"accuracy\":5,\"timestamp\":\"` +
		time.Now().UTC().Format(time.RFC3339) + `\"}"}`

	err = wh.processMessage("walk-1", []byte(msg))
	assert.NoError(t, err)
}

func TestProcessMessageRejectsMalformedEnvelope(t *testing.T) {
	t.Parallel()

	wh, _ := newTestWebSocketHandler(t)
	err := wh.processMessage("walk-1", []byte("not json"))
	assert.Error(t, err)
}

func TestProcessMessageIgnoresUnknownAction(t *testing.T) {
	t.Parallel()

	wh, _ := newTestWebSocketHandler(t)
	err := wh.processMessage("walk-1", []byte(`{"action":"noop"}`))
	assert.NoError(t, err)
}

func TestHandleConnectionUpgradesAndRegistersConnection(t *testing.T) {
	t.Parallel()

	// trackingService and mqttClient are both nil here to isolate the
	// upgrade-and-register path from session bootstrap and MQTT subscribe.
	bareHandler := NewWebSocketHandler(nil, nil, context.Background())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = bareHandler.HandleConnection(w, r)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?sessionID=conn-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if bareHandler.countConnections() > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 1, bareHandler.countConnections())
}
