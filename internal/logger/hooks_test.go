package logger

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/pokedexai/pokedex-agents/internal/bus"
)

func TestMonitorLogHook_EventBusIntegration(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	eventBus := bus.NewEventBus(logger)

	receivedEvents := make([]bus.Event, 0)
	var mutex sync.Mutex

	eventBus.Subscribe(bus.EventTaskLog, func(event bus.Event) {
		mutex.Lock()
		receivedEvents = append(receivedEvents, event)
		mutex.Unlock()
	})

	hook := NewMonitorLogHook(eventBus, "test-agent")
	logger.AddHook(hook)

	t.Run("Task-scoped log triggers EventBus event", func(t *testing.T) {
		mutex.Lock()
		receivedEvents = receivedEvents[:0]
		mutex.Unlock()

		logger.WithField("taskId", "task-123").Info("Processing request")

		time.Sleep(100 * time.Millisecond)

		mutex.Lock()
		defer mutex.Unlock()

		assert.Len(t, receivedEvents, 1)
		if len(receivedEvents) > 0 {
			event := receivedEvents[0]
			assert.Equal(t, bus.EventTaskLog, event.Type)

			payload := event.Payload
			assert.Equal(t, "task-123", payload["taskId"])
			assert.Equal(t, "info", payload["level"])
			assert.Equal(t, "Processing request", payload["message"])
			assert.Equal(t, "test-agent", payload["source"])
			assert.NotEmpty(t, payload["timestamp"])
		}
	})

	t.Run("TaskID prefix in message is recognized", func(t *testing.T) {
		mutex.Lock()
		receivedEvents = receivedEvents[:0]
		mutex.Unlock()

		logger.Infof("[TaskID: %s] Invoking tool get_pokemon_info", "task-456")

		time.Sleep(100 * time.Millisecond)

		mutex.Lock()
		defer mutex.Unlock()

		assert.Len(t, receivedEvents, 1)
		if len(receivedEvents) > 0 {
			payload := receivedEvents[0].Payload
			assert.Equal(t, "task-456", payload["taskId"])
		}
	})

	t.Run("Logs without task context are not forwarded", func(t *testing.T) {
		mutex.Lock()
		receivedEvents = receivedEvents[:0]
		mutex.Unlock()

		logger.Info("Agent starting up")

		time.Sleep(100 * time.Millisecond)

		mutex.Lock()
		defer mutex.Unlock()

		assert.Len(t, receivedEvents, 0)
	})

	t.Run("Extra fields are appended to the message", func(t *testing.T) {
		mutex.Lock()
		receivedEvents = receivedEvents[:0]
		mutex.Unlock()

		logger.WithFields(logrus.Fields{
			"taskId": "task-789",
			"tool":   "compare_pokemon_stats",
		}).Warn("Slow tool invocation")

		time.Sleep(100 * time.Millisecond)

		mutex.Lock()
		defer mutex.Unlock()

		assert.Len(t, receivedEvents, 1)
		if len(receivedEvents) > 0 {
			payload := receivedEvents[0].Payload
			assert.Equal(t, "warning", payload["level"])
			assert.Contains(t, payload["message"], "Slow tool invocation")
			assert.Contains(t, payload["message"], "tool=compare_pokemon_stats")
		}
	})
}
