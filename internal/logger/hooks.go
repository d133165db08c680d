package logger

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pokedexai/pokedex-agents/internal/bus"
)

// taskIDPattern matches the "[TaskID: ...]" prefix agents put on
// task-scoped log lines.
var taskIDPattern = regexp.MustCompile(`\[TaskID: ([^\]]+)\]`)

// MonitorLogHook sends log entries to the EventBus so WebSocket monitor
// clients see agent logs interleaved with task lifecycle events.
type MonitorLogHook struct {
	eventBus  *bus.EventBus
	agentName string
}

// NewMonitorLogHook creates a new monitor log hook
func NewMonitorLogHook(eventBus *bus.EventBus, agentName string) *MonitorLogHook {
	return &MonitorLogHook{
		eventBus:  eventBus,
		agentName: agentName,
	}
}

// Levels returns the log levels this hook is interested in
func (h *MonitorLogHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
		logrus.DebugLevel,
	}
}

// Fire is called when a log event occurs
func (h *MonitorLogHook) Fire(entry *logrus.Entry) error {
	if h.eventBus == nil {
		return nil
	}

	// Task attribution: explicit field first, then the message prefix.
	taskID := ""
	if id, ok := entry.Data["taskId"].(string); ok {
		taskID = id
	} else if match := taskIDPattern.FindStringSubmatch(entry.Message); match != nil {
		taskID = match[1]
	}

	message := entry.Message
	var fieldParts []string
	for key, value := range entry.Data {
		if key != "taskId" {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%v", key, value))
		}
	}
	if len(fieldParts) > 0 {
		message = fmt.Sprintf("%s [%s]", message, strings.Join(fieldParts, ", "))
	}

	// Only task-scoped lines reach the monitor stream.
	if taskID == "" {
		return nil
	}

	h.eventBus.PublishAsync(bus.EventTaskLog, map[string]interface{}{
		"taskId":    taskID,
		"level":     entry.Level.String(),
		"message":   message,
		"source":    h.agentName,
		"timestamp": entry.Time.Format(time.RFC3339),
	})

	return nil
}
