package bus

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventTaskCreated      EventType = "taskCreated"
	EventTaskStatusUpdate EventType = "taskStatusUpdate"
	EventTaskLog          EventType = "taskLog"

	EventToolInvocation EventType = "toolInvocation"
	EventToolResult     EventType = "toolResult"

	EventDelegationStart    EventType = "delegationStart"
	EventDelegationComplete EventType = "delegationComplete"

	EventChatMessage EventType = "chatMessage"
)

type Event struct {
	Type    EventType              `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

type EventHandler func(event Event)

type EventBus struct {
	mu        sync.RWMutex
	handlers  map[EventType][]EventHandler
	logger    *logrus.Logger
	eventChan chan Event
	stopChan  chan struct{}
}

func NewEventBus(logger *logrus.Logger) *EventBus {
	eb := &EventBus{
		handlers:  make(map[EventType][]EventHandler),
		logger:    logger,
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
	}

	go eb.processEvents()

	return eb
}

func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	eb.logger.Debugf("Handler subscribed to event type: %s", eventType)
}

func (eb *EventBus) SubscribeAll(handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eventTypes := []EventType{
		EventTaskCreated,
		EventTaskStatusUpdate,
		EventTaskLog,
		EventToolInvocation,
		EventToolResult,
		EventDelegationStart,
		EventDelegationComplete,
		EventChatMessage,
	}

	for _, eventType := range eventTypes {
		eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	}

	eb.logger.Debug("Handler subscribed to all event types")
}

func (eb *EventBus) Publish(event Event) {
	select {
	case eb.eventChan <- event:
		eb.logger.Debugf("Event published: %s", event.Type)
	default:
		eb.logger.Warnf("Event channel full, dropping event: %s", event.Type)
	}
}

func (eb *EventBus) PublishAsync(eventType EventType, payload map[string]interface{}) {
	go func() {
		eb.Publish(Event{
			Type:    eventType,
			Payload: payload,
		})
	}()
}

func (eb *EventBus) processEvents() {
	for {
		select {
		case event := <-eb.eventChan:
			eb.handleEvent(event)
		case <-eb.stopChan:
			eb.logger.Info("EventBus stopped")
			return
		}
	}
}

func (eb *EventBus) handleEvent(event Event) {
	eb.mu.RLock()
	handlers := eb.handlers[event.Type]
	eb.mu.RUnlock()

	for _, handler := range handlers {
		// Run each handler in a goroutine to prevent blocking
		go func(h EventHandler) {
			defer func() {
				if r := recover(); r != nil {
					eb.logger.Errorf("Panic in event handler for %s: %v", event.Type, r)
				}
			}()
			h(event)
		}(handler)
	}
}

// Stop halts event processing. The event channel stays open so late
// publishers cannot panic; their events are simply never delivered.
func (eb *EventBus) Stop() {
	close(eb.stopChan)
}

// PublishTaskStatusUpdate publishes a task lifecycle transition.
func (eb *EventBus) PublishTaskStatusUpdate(taskID, contextID, state string) {
	eb.PublishAsync(EventTaskStatusUpdate, map[string]interface{}{
		"taskId":    taskID,
		"contextId": contextID,
		"state":     state,
	})
}

// PublishTaskLog publishes a log line attributed to a task.
func (eb *EventBus) PublishTaskLog(taskID, level, message, source string) {
	eb.PublishAsync(EventTaskLog, map[string]interface{}{
		"taskId":  taskID,
		"level":   level,
		"message": message,
		"source":  source,
	})
}

// PublishToolInvocation publishes a tool call with a truncated argument preview.
func (eb *EventBus) PublishToolInvocation(taskID, toolName, argsPreview string) {
	eb.PublishAsync(EventToolInvocation, map[string]interface{}{
		"taskId":   taskID,
		"toolName": toolName,
		"args":     argsPreview,
	})
}

// PublishToolResult publishes a tool outcome with a truncated result preview.
func (eb *EventBus) PublishToolResult(taskID, toolName, resultPreview string, isError bool) {
	eb.PublishAsync(EventToolResult, map[string]interface{}{
		"taskId":   taskID,
		"toolName": toolName,
		"result":   resultPreview,
		"isError":  isError,
	})
}

// PublishDelegationStart publishes the start of a delegation to a specialist.
func (eb *EventBus) PublishDelegationStart(taskID, agentName string) {
	eb.PublishAsync(EventDelegationStart, map[string]interface{}{
		"taskId":    taskID,
		"agentName": agentName,
	})
}

// PublishDelegationComplete publishes the outcome of a delegation.
func (eb *EventBus) PublishDelegationComplete(taskID, agentName, state string) {
	eb.PublishAsync(EventDelegationComplete, map[string]interface{}{
		"taskId":    taskID,
		"agentName": agentName,
		"state":     state,
	})
}
