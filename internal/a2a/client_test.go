package a2a

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietClient() *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	c := NewClient(logger)
	c.pollInterval = 10 * time.Millisecond
	return c
}

func TestDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, WellKnownCardPath, r.URL.Path)
		json.NewEncoder(w).Encode(AgentCard{
			ProtocolVersion: "0.2.9",
			Name:            "pokemon-agent",
			Description:     "basic info specialist",
		})
	}))
	defer srv.Close()

	card, err := quietClient().Discover(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "pokemon-agent", card.Name)
}

func TestDiscoverFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := quietClient().Discover(context.Background(), srv.URL)
	require.Error(t, err)

	var de *DiscoveryError
	require.ErrorAs(t, err, &de)
}

// fakeAgent answers message/send and tasks/get like a specialist would.
func fakeAgent(t *testing.T, task *Task) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/a2a/v1", r.URL.Path)

		var req JSONRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch req.Method {
		case "message/send", "tasks/get":
			json.NewEncoder(w).Encode(NewJSONRPCResponse(req.ID, task))
		default:
			json.NewEncoder(w).Encode(NewJSONRPCErrorResponse(req.ID, ErrorCodeMethodNotFound, "method not found"))
		}
	}))
}

func TestSendText(t *testing.T) {
	task := &Task{
		ID:        "task-1",
		ContextID: "ctx-1",
		Status:    TaskStatus{State: TaskStateSubmitted},
		Kind:      "task",
	}
	srv := fakeAgent(t, task)
	defer srv.Close()

	got, err := quietClient().SendText(context.Background(), srv.URL, "tell me about pikachu", "", "")
	require.NoError(t, err)
	assert.Equal(t, "task-1", got.ID)
	assert.Equal(t, "ctx-1", got.ContextID)
}

func TestSendRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req JSONRPCRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(NewJSONRPCErrorResponse(req.ID, ErrorCodeInvalidParams, "message is required"))
	}))
	defer srv.Close()

	_, err := quietClient().SendText(context.Background(), srv.URL, "", "", "")
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, err.Error(), "message is required")
}

func TestWaitForCompletion(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req JSONRPCRequest
		json.NewDecoder(r.Body).Decode(&req)

		state := TaskStateWorking
		if atomic.AddInt32(&polls, 1) >= 3 {
			state = TaskStateCompleted
		}
		task := &Task{
			ID:        "task-1",
			ContextID: "ctx-1",
			Status:    TaskStatus{State: state},
			Artifacts: []Artifact{NewArtifact("answer", NewTextPart("Pikachu is electric"))},
		}
		json.NewEncoder(w).Encode(NewJSONRPCResponse(req.ID, task))
	}))
	defer srv.Close()

	task, err := quietClient().WaitForCompletion(context.Background(), srv.URL, "task-1", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, TaskStateCompleted, task.Status.State)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&polls), int32(3))
}

func TestWaitForCompletionTimeout(t *testing.T) {
	task := &Task{ID: "task-1", Status: TaskStatus{State: TaskStateWorking}}
	srv := fakeAgent(t, task)
	defer srv.Close()

	got, err := quietClient().WaitForCompletion(context.Background(), srv.URL, "task-1", 50*time.Millisecond)
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	// The last observed state is still surfaced so the caller can poll again.
	require.NotNil(t, got)
	assert.Equal(t, TaskStateWorking, got.Status.State)
}

func TestWaitForCompletionStopsOnInputRequired(t *testing.T) {
	task := &Task{ID: "task-1", Status: TaskStatus{State: TaskStateInputRequired}}
	srv := fakeAgent(t, task)
	defer srv.Close()

	got, err := quietClient().WaitForCompletion(context.Background(), srv.URL, "task-1", time.Second)
	require.NoError(t, err)
	assert.Equal(t, TaskStateInputRequired, got.Status.State)
}

func TestExtractTextFromArtifact(t *testing.T) {
	task := &Task{
		Artifacts: []Artifact{
			NewArtifact("answer", NewDataPart(map[string]interface{}{"x": 1}), NewTextPart("from artifact")),
			NewArtifact("second", NewTextPart("never consulted")),
		},
		History: []Message{NewAgentMessage(NewTextPart("from history"))},
	}

	text, ok := ExtractText(task)
	require.True(t, ok)
	assert.Equal(t, "from artifact", text)
}

func TestExtractTextFallsBackToHistory(t *testing.T) {
	task := &Task{
		History: []Message{
			NewUserMessage("question", "", ""),
			NewAgentMessage(NewTextPart("older answer")),
			NewAgentMessage(NewTextPart("latest answer")),
		},
	}

	text, ok := ExtractText(task)
	require.True(t, ok)
	assert.Equal(t, "latest answer", text)
}

func TestExtractTextCompletedButEmpty(t *testing.T) {
	task := &Task{Status: TaskStatus{State: TaskStateCompleted}}

	text, ok := ExtractText(task)
	assert.False(t, ok)
	assert.Empty(t, text)
}
