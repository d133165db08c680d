package a2a

import (
	"errors"

	"github.com/google/uuid"
)

// Task lifecycle states. Completed, failed and canceled are terminal;
// input-required awaits a follow-up turn on the same context.
const (
	TaskStateSubmitted     = "submitted"
	TaskStateWorking       = "working"
	TaskStateInputRequired = "input-required"
	TaskStateCompleted     = "completed"
	TaskStateFailed        = "failed"
	TaskStateCanceled      = "canceled"
)

// IsTerminalState reports whether a task in the given state can still change.
func IsTerminalState(state string) bool {
	switch state {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	}
	return false
}

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskNotCancelable = errors.New("task is not in a cancelable state")
	ErrTaskTerminal      = errors.New("task is in a terminal state")
)

// Part is one typed fragment of a message or artifact.
type Part struct {
	Kind string                 `json:"kind"`
	Text string                 `json:"text,omitempty"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// Message is a single turn in a task's history.
type Message struct {
	Role      string `json:"role"`
	Parts     []Part `json:"parts"`
	MessageID string `json:"messageId"`
	TaskID    string `json:"taskId,omitempty"`
	ContextID string `json:"contextId,omitempty"`
	Kind      string `json:"kind"`
}

// Artifact is one structured output of a task.
type Artifact struct {
	ArtifactID string `json:"artifactId"`
	Name       string `json:"name,omitempty"`
	Parts      []Part `json:"parts"`
}

// TaskStatus is a task's current state plus the agent message that produced
// it, if any.
type TaskStatus struct {
	State     string   `json:"state"`
	Timestamp string   `json:"timestamp"`
	Message   *Message `json:"message,omitempty"`
}

// Task is one unit of delegated work.
type Task struct {
	ID        string     `json:"id"`
	ContextID string     `json:"contextId"`
	Status    TaskStatus `json:"status"`
	History   []Message  `json:"history"`
	Artifacts []Artifact `json:"artifacts"`
	Kind      string     `json:"kind"`
}

// NewTextPart builds a text part.
func NewTextPart(text string) Part {
	return Part{Kind: "text", Text: text}
}

// NewDataPart builds a structured data part.
func NewDataPart(data map[string]interface{}) Part {
	return Part{Kind: "data", Data: data}
}

// NewUserMessage builds a user-role message with a fresh message id.
func NewUserMessage(text, taskID, contextID string) Message {
	return Message{
		Role:      "user",
		Parts:     []Part{NewTextPart(text)},
		MessageID: uuid.New().String(),
		TaskID:    taskID,
		ContextID: contextID,
		Kind:      "message",
	}
}

// NewAgentMessage builds an agent-role message with a fresh message id.
func NewAgentMessage(parts ...Part) Message {
	return Message{
		Role:      "agent",
		Parts:     parts,
		MessageID: uuid.New().String(),
		Kind:      "message",
	}
}

// NewArtifact builds a named artifact with a fresh artifact id.
func NewArtifact(name string, parts ...Part) Artifact {
	return Artifact{
		ArtifactID: uuid.New().String(),
		Name:       name,
		Parts:      parts,
	}
}

// JSON-RPC 2.0 envelope used by the inter-agent task protocol.

type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON-RPC error codes, standard plus A2A-specific.
const (
	ErrorCodeParseError     = -32700
	ErrorCodeInvalidRequest = -32600
	ErrorCodeMethodNotFound = -32601
	ErrorCodeInvalidParams  = -32602
	ErrorCodeInternalError  = -32603
	ErrorCodeTaskNotFound   = -32001
)

func NewJSONRPCResponse(id, result interface{}) JSONRPCResponse {
	return JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func NewJSONRPCErrorResponse(id interface{}, code int, message string) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	}
}
