package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninedotdev/jean/internal/common/logger"
	"github.com/ninedotdev/jean/internal/events"
	"github.com/ninedotdev/jean/internal/events/bus"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "console", OutputPath: "stdout"})
	require.NoError(t, err)
	return log
}

func setupGateway(t *testing.T) (bus.EventBus, *httptest.Server) {
	t.Helper()
	log := newTestLogger(t)
	eventBus := bus.NewMemoryEventBus(log)

	gw := New(eventBus, log)
	require.NoError(t, gw.Start())
	t.Cleanup(gw.Stop)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", gw.Handle)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return eventBus, srv
}

func dial(t *testing.T, srv *httptest.Server) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestGatewayForwardsChatEvents(t *testing.T) {
	eventBus, srv := setupGateway(t)
	conn := dial(t, srv)

	event := bus.NewEvent(events.ChatChunk, "test", map[string]interface{}{
		"session_id": "s1",
		"content":    "hello",
	})
	require.NoError(t, eventBus.Publish(context.Background(), events.BuildChatSubject(events.ChatChunk, "s1"), event))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var received bus.Event
	require.NoError(t, json.Unmarshal(payload, &received))
	assert.Equal(t, events.ChatChunk, received.Type)
	assert.Equal(t, "hello", received.Data["content"])
	assert.Equal(t, "s1", received.Data["session_id"])
}

func TestGatewayIgnoresUnrelatedSubjects(t *testing.T) {
	eventBus, srv := setupGateway(t)
	conn := dial(t, srv)

	ctx := context.Background()
	require.NoError(t, eventBus.Publish(ctx, events.RunStarted, bus.NewEvent(events.RunStarted, "test", map[string]interface{}{"session_id": "s1"})))
	require.NoError(t, eventBus.Publish(ctx, events.BuildChatSubject(events.ChatDone, "s1"), bus.NewEvent(events.ChatDone, "test", map[string]interface{}{"success": true})))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var received bus.Event
	require.NoError(t, json.Unmarshal(payload, &received))
	assert.Equal(t, events.ChatDone, received.Type)
}

func TestGatewayMultipleClients(t *testing.T) {
	eventBus, srv := setupGateway(t)
	first := dial(t, srv)
	second := dial(t, srv)

	event := bus.NewEvent(events.ChatThinking, "test", map[string]interface{}{"content": "hmm"})
	require.NoError(t, eventBus.Publish(context.Background(), events.BuildChatSubject(events.ChatThinking, "s2"), event))

	for _, conn := range []*gws.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(payload), events.ChatThinking)
		assert.Contains(t, string(payload), "hmm")
	}
}
