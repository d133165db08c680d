package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// WellKnownCardPath is where every agent serves its discovery document.
	WellKnownCardPath = "/.well-known/agent-card.json"

	defaultPollInterval  = 500 * time.Millisecond
	defaultClientTimeout = 15 * time.Second
)

// DiscoveryError means the remote agent's capability card could not be
// fetched or parsed.
type DiscoveryError struct {
	BaseURL string
	Err     error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("failed to discover agent at %s: %v", e.BaseURL, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// TransportError means a send or poll against the remote agent failed at
// the protocol or network level.
type TransportError struct {
	BaseURL string
	Method  string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s against %s failed: %v", e.Method, e.BaseURL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client is the inter-agent client: it discovers remote agents, sends them
// task requests and polls for completion. Safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	logger       *logrus.Logger
	pollInterval time.Duration
}

func NewClient(logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		httpClient:   &http.Client{Timeout: defaultClientTimeout},
		logger:       logger,
		pollInterval: defaultPollInterval,
	}
}

// Discover fetches the remote agent's capability card from the well-known
// path.
func (c *Client) Discover(ctx context.Context, baseURL string) (*AgentCard, error) {
	cardURL := strings.TrimRight(baseURL, "/") + WellKnownCardPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cardURL, nil)
	if err != nil {
		return nil, &DiscoveryError{BaseURL: baseURL, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &DiscoveryError{BaseURL: baseURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &DiscoveryError{BaseURL: baseURL, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, &DiscoveryError{BaseURL: baseURL, Err: err}
	}

	c.logger.Infof("Discovered agent '%s' at %s", card.Name, baseURL)
	return &card, nil
}

// SendText submits a user message. An empty contextID starts a new
// conversation; a non-empty contextID with an empty taskID starts a new
// task within that conversation; both set continues the existing task.
func (c *Client) SendText(ctx context.Context, baseURL, text, taskID, contextID string) (*Task, error) {
	msg := NewUserMessage(text, taskID, contextID)
	params := map[string]interface{}{"message": msg}
	return c.call(ctx, baseURL, "message/send", params)
}

// GetTask polls the current state of a task.
func (c *Client) GetTask(ctx context.Context, baseURL, taskID string) (*Task, error) {
	return c.call(ctx, baseURL, "tasks/get", map[string]interface{}{"id": taskID})
}

// CancelTask asks the remote agent to cancel a task.
func (c *Client) CancelTask(ctx context.Context, baseURL, taskID string) (*Task, error) {
	return c.call(ctx, baseURL, "tasks/cancel", map[string]interface{}{"id": taskID})
}

// WaitForCompletion polls until the task leaves working/submitted or the
// timeout elapses. Abandoning the wait does not cancel the remote task; a
// later GetTask with the same id can still retrieve the result. The
// returned task may be in input-required: that is a valid resting state for
// the caller to act on, not an error.
func (c *Client) WaitForCompletion(ctx context.Context, baseURL, taskID string, timeout time.Duration) (*Task, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		task, err := c.GetTask(waitCtx, baseURL, taskID)
		if err != nil {
			return nil, err
		}
		if IsTerminalState(task.Status.State) || task.Status.State == TaskStateInputRequired {
			return task, nil
		}

		select {
		case <-waitCtx.Done():
			return task, &TransportError{BaseURL: baseURL, Method: "tasks/get", Err: fmt.Errorf("timed out waiting for task %s in state %s", taskID, task.Status.State)}
		case <-ticker.C:
		}
	}
}

// ExtractText pulls the human-readable answer out of a task: first the
// first text part of the first artifact, then the last agent message with a
// text part. ok=false means completed-but-empty, a distinct outcome rather
// than an error.
func ExtractText(task *Task) (string, bool) {
	if task == nil {
		return "", false
	}

	for _, artifact := range task.Artifacts {
		for _, part := range artifact.Parts {
			if part.Kind == "text" && part.Text != "" {
				return part.Text, true
			}
		}
		break // only the first artifact is consulted
	}

	for i := len(task.History) - 1; i >= 0; i-- {
		msg := task.History[i]
		if msg.Role != "agent" {
			continue
		}
		for _, part := range msg.Parts {
			if part.Kind == "text" && part.Text != "" {
				return part.Text, true
			}
		}
	}

	return "", false
}

func (c *Client) call(ctx context.Context, baseURL, method string, params interface{}) (*Task, error) {
	reqBody := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      uuid.New().String(),
		Method:  method,
		Params:  params,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &TransportError{BaseURL: baseURL, Method: method, Err: err}
	}

	endpoint := strings.TrimRight(baseURL, "/") + "/a2a/v1"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{BaseURL: baseURL, Method: method, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{BaseURL: baseURL, Method: method, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{BaseURL: baseURL, Method: method, Err: err}
	}

	var envelope struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      interface{}     `json:"id"`
		Result  json.RawMessage `json:"result"`
		Error   *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &TransportError{BaseURL: baseURL, Method: method, Err: fmt.Errorf("invalid response: %w", err)}
	}
	if envelope.Error != nil {
		return nil, &TransportError{BaseURL: baseURL, Method: method, Err: fmt.Errorf("remote error %d: %s", envelope.Error.Code, envelope.Error.Message)}
	}

	var task Task
	if err := json.Unmarshal(envelope.Result, &task); err != nil {
		return nil, &TransportError{BaseURL: baseURL, Method: method, Err: fmt.Errorf("invalid task payload: %w", err)}
	}
	return &task, nil
}
