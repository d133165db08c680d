package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/pokedexai/pokedex-agents/internal/bus"
)

func TestMonitorGateway_Broadcast(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	eventBus := bus.NewEventBus(logger)
	defer eventBus.Stop()

	gateway := NewMonitorGateway(9001, eventBus, logger)

	go gateway.hub.run()

	server := httptest.NewServer(http.HandlerFunc(gateway.handleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/monitor"

	t.Run("Bus events reach connected clients", func(t *testing.T) {
		ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		assert.NoError(t, err)
		defer ws.Close()

		// Let the hub register the client before publishing
		time.Sleep(100 * time.Millisecond)

		eventBus.PublishTaskStatusUpdate("task-abc", "ctx-1", "working")

		var response map[string]interface{}
		err = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
		assert.NoError(t, err)
		err = ws.ReadJSON(&response)
		assert.NoError(t, err)

		assert.Equal(t, string(bus.EventTaskStatusUpdate), response["type"])
		payload := response["payload"].(map[string]interface{})
		assert.Equal(t, "task-abc", payload["taskId"])
		assert.Equal(t, "working", payload["state"])
	})

	t.Run("Multiple clients receive the same frame", func(t *testing.T) {
		ws1, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		assert.NoError(t, err)
		defer ws1.Close()

		ws2, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		assert.NoError(t, err)
		defer ws2.Close()

		time.Sleep(100 * time.Millisecond)

		eventBus.PublishToolInvocation("task-def", "get_pokemon_info", `{"name":"pikachu"}`)

		for _, ws := range []*websocket.Conn{ws1, ws2} {
			var response map[string]interface{}
			err = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
			assert.NoError(t, err)
			err = ws.ReadJSON(&response)
			assert.NoError(t, err)
			assert.Equal(t, string(bus.EventToolInvocation), response["type"])
		}
	})

	t.Run("Client text frames are discarded", func(t *testing.T) {
		ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		assert.NoError(t, err)
		defer ws.Close()

		time.Sleep(100 * time.Millisecond)

		err = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"ignored"}`))
		assert.NoError(t, err)

		// The connection stays up and still receives broadcasts
		eventBus.PublishTaskLog("task-ghi", "info", "still alive", "test-agent")

		var response map[string]interface{}
		err = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
		assert.NoError(t, err)
		err = ws.ReadJSON(&response)
		assert.NoError(t, err)
		assert.Equal(t, string(bus.EventTaskLog), response["type"])
	})
}

func TestEventBus_EndToEnd(t *testing.T) {
	logger := logrus.New()
	eventBus := bus.NewEventBus(logger)
	defer eventBus.Stop()

	receivedEvents := make(chan bus.Event, 10)

	eventBus.Subscribe(bus.EventTaskCreated, func(event bus.Event) {
		receivedEvents <- event
	})
	eventBus.Subscribe(bus.EventDelegationComplete, func(event bus.Event) {
		receivedEvents <- event
	})

	t.Run("Event publication and subscription", func(t *testing.T) {
		eventBus.Publish(bus.Event{
			Type: bus.EventTaskCreated,
			Payload: map[string]interface{}{
				"taskId": "test-123",
			},
		})
		select {
		case event := <-receivedEvents:
			assert.Equal(t, bus.EventTaskCreated, event.Type)
			payload := event.Payload
			assert.Equal(t, "test-123", payload["taskId"])
		case <-time.After(2 * time.Second):
			t.Fatal("Did not receive task created event")
		}
	})

	t.Run("Async event publication", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			eventBus.PublishAsync(bus.EventTaskLog, map[string]interface{}{
				"message": fmt.Sprintf("Log message %d", i),
				"level":   "info",
			})
		}
		time.Sleep(100 * time.Millisecond)
	})

	t.Run("Multiple subscribers", func(t *testing.T) {
		counter := 0
		mutex := &sync.Mutex{}
		for i := 0; i < 3; i++ {
			eventBus.Subscribe(bus.EventToolResult, func(event bus.Event) {
				mutex.Lock()
				counter++
				mutex.Unlock()
			})
		}
		eventBus.PublishToolResult("test-task", "compare_pokemon_stats", "ok", false)
		time.Sleep(100 * time.Millisecond)
		mutex.Lock()
		assert.Equal(t, 3, counter)
		mutex.Unlock()
	})
}
