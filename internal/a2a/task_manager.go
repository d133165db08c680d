package a2a

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pokedexai/pokedex-agents/internal/bus"
)

// TaskManager manages the lifecycle of A2A tasks. Each task is owned by
// exactly one agent process; callers observe state only through polling.
type TaskManager struct {
	tasks    map[string]*Task
	mu       sync.RWMutex
	eventBus *bus.EventBus
	logger   *logrus.Logger
}

// NewTaskManager creates a new task manager
func NewTaskManager(eb *bus.EventBus, logger *logrus.Logger) *TaskManager {
	if logger == nil {
		logger = logrus.New()
	}

	tm := &TaskManager{
		tasks:    make(map[string]*Task),
		eventBus: eb,
		logger:   logger,
	}

	logger.Info("A2A TaskManager initialized successfully")

	return tm
}

// CreateTask creates a new task from a message. The context id is assigned
// here, exactly once, when the message does not carry one: the responder
// owns context assignment for the first turn of a conversation.
func (tm *TaskManager) CreateTask(msg Message) *Task {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	taskID := uuid.New().String()
	contextID := msg.ContextID
	if contextID == "" {
		contextID = uuid.New().String()
	}

	msg.TaskID = taskID
	msg.ContextID = contextID

	task := &Task{
		ID:        taskID,
		ContextID: contextID,
		Status: TaskStatus{
			State:     TaskStateSubmitted,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		History:   []Message{msg},
		Artifacts: []Artifact{},
		Kind:      "task",
	}

	tm.tasks[taskID] = task
	tm.logger.Infof("[TaskID: %s] Task created in 'submitted' state", taskID)

	if tm.eventBus != nil {
		tm.eventBus.Publish(bus.Event{
			Type: bus.EventTaskCreated,
			Payload: map[string]interface{}{
				"taskId": taskID,
				"task":   task,
			},
		})
	}

	return task
}

// GetTask retrieves a task by ID
func (tm *TaskManager) GetTask(id string) (*Task, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	task, exists := tm.tasks[id]
	return task, exists
}

// UpdateTaskStatus updates the status of a task. Terminal states are
// frozen: an update against a completed, failed or canceled task is
// rejected with ErrTaskTerminal.
func (tm *TaskManager) UpdateTaskStatus(id, state string, agentMessage *Message) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	task, exists := tm.tasks[id]
	if !exists {
		tm.logger.Warnf("[TaskID: %s] Attempted to update non-existent task", id)
		return ErrTaskNotFound
	}

	if IsTerminalState(task.Status.State) {
		tm.logger.Warnf("[TaskID: %s] Rejected transition from terminal state '%s' to '%s'", id, task.Status.State, state)
		return ErrTaskTerminal
	}

	oldState := task.Status.State
	task.Status.State = state
	task.Status.Timestamp = time.Now().UTC().Format(time.RFC3339)

	if agentMessage != nil {
		agentMessage.TaskID = id
		agentMessage.ContextID = task.ContextID
		task.Status.Message = agentMessage
		task.History = append(task.History, *agentMessage)
	}

	tm.logger.Infof("[TaskID: %s] Status updated from '%s' to '%s'", id, oldState, state)

	if tm.eventBus != nil {
		tm.eventBus.Publish(bus.Event{
			Type: bus.EventTaskStatusUpdate,
			Payload: map[string]interface{}{
				"taskId":   id,
				"oldState": oldState,
				"newState": state,
				"status":   task.Status,
			},
		})
	}
	return nil
}

// AddArtifactToTask adds an artifact to a task. Artifacts of terminal tasks
// are frozen along with the state.
func (tm *TaskManager) AddArtifactToTask(id string, artifact Artifact) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	task, exists := tm.tasks[id]
	if !exists {
		tm.logger.Warnf("[TaskID: %s] Attempted to add artifact to non-existent task", id)
		return ErrTaskNotFound
	}

	if IsTerminalState(task.Status.State) {
		return ErrTaskTerminal
	}

	task.Artifacts = append(task.Artifacts, artifact)
	tm.logger.Infof("[TaskID: %s] Artifact '%s' added", id, artifact.Name)
	return nil
}

// AddMessageToHistory adds a message to task history
func (tm *TaskManager) AddMessageToHistory(id string, message Message) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	task, exists := tm.tasks[id]
	if !exists {
		tm.logger.Warnf("[TaskID: %s] Attempted to add message to non-existent task", id)
		return ErrTaskNotFound
	}

	message.TaskID = id
	message.ContextID = task.ContextID

	task.History = append(task.History, message)
	tm.logger.Debugf("[TaskID: %s] Message '%s' added to history", id, message.MessageID)
	return nil
}

// HistorySnapshot returns a copy of a task's history. Readers that process
// asynchronously use this instead of the live slice, which other sends may
// append to under the manager's lock.
func (tm *TaskManager) HistorySnapshot(id string) ([]Message, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	task, exists := tm.tasks[id]
	if !exists {
		return nil, false
	}

	history := make([]Message, len(task.History))
	copy(history, task.History)
	return history, true
}

// ListTasks returns all tasks
func (tm *TaskManager) ListTasks() []*Task {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	tasks := make([]*Task, 0, len(tm.tasks))
	for _, task := range tm.tasks {
		tasks = append(tasks, task)
	}
	return tasks
}

// GetTasksByState returns tasks in a specific state
func (tm *TaskManager) GetTasksByState(state string) []*Task {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	var tasks []*Task
	for _, task := range tm.tasks {
		if task.Status.State == state {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// FindResumableTask returns the input-required task bound to the given
// context, if any. Used when a follow-up send carries a contextId but no
// taskId.
func (tm *TaskManager) FindResumableTask(contextID string) (*Task, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	for _, task := range tm.tasks {
		if task.ContextID == contextID && task.Status.State == TaskStateInputRequired {
			return task, true
		}
	}
	return nil, false
}

// CleanupCompletedTasks removes terminal tasks older than the specified duration
func (tm *TaskManager) CleanupCompletedTasks(olderThan time.Duration) int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	cleaned := 0

	for id, task := range tm.tasks {
		if IsTerminalState(task.Status.State) {
			if timestamp, err := time.Parse(time.RFC3339, task.Status.Timestamp); err == nil {
				if timestamp.Before(cutoff) {
					delete(tm.tasks, id)
					cleaned++
				}
			}
		}
	}

	if cleaned > 0 {
		tm.logger.Infof("Cleaned up %d completed tasks older than %v", cleaned, olderThan)
	}

	return cleaned
}

// CancelTask cancels a task if it's in a cancelable state
func (tm *TaskManager) CancelTask(id string) (*Task, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	task, exists := tm.tasks[id]
	if !exists {
		return nil, ErrTaskNotFound
	}

	if IsTerminalState(task.Status.State) {
		tm.logger.Warnf("[TaskID: %s] Attempted to cancel task in non-cancelable state: %s", id, task.Status.State)
		return nil, ErrTaskNotCancelable
	}

	oldState := task.Status.State
	task.Status.State = TaskStateCanceled
	task.Status.Timestamp = time.Now().UTC().Format(time.RFC3339)

	tm.logger.Infof("[TaskID: %s] Status updated from '%s' to 'canceled'", id, oldState)

	if tm.eventBus != nil {
		tm.eventBus.Publish(bus.Event{
			Type: bus.EventTaskStatusUpdate,
			Payload: map[string]interface{}{
				"taskId":   id,
				"oldState": oldState,
				"newState": TaskStateCanceled,
				"status":   task.Status,
			},
		})
	}

	return task, nil
}

// GetTaskCount returns the number of tasks by state
func (tm *TaskManager) GetTaskCount() map[string]int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	counts := map[string]int{
		TaskStateSubmitted:     0,
		TaskStateWorking:       0,
		TaskStateInputRequired: 0,
		TaskStateCompleted:     0,
		TaskStateFailed:        0,
		TaskStateCanceled:      0,
	}

	for _, task := range tm.tasks {
		counts[task.Status.State]++
	}

	return counts
}
