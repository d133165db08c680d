package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pokedexai/pokedex-agents/internal/a2a"
	"github.com/pokedexai/pokedex-agents/internal/api"
	"github.com/pokedexai/pokedex-agents/internal/bus"
	appconfig "github.com/pokedexai/pokedex-agents/internal/config"
	applogger "github.com/pokedexai/pokedex-agents/internal/logger"
	"github.com/pokedexai/pokedex-agents/internal/llm"
	"github.com/pokedexai/pokedex-agents/internal/mcp"
	"github.com/pokedexai/pokedex-agents/internal/tools"
)

// Config assembles one specialist agent process.
type Config struct {
	AppConfig    *appconfig.AppConfig
	Instructions string
	Definitions  []tools.Definition
	// Engine overrides the OpenAI engine built from AppConfig.LLM. Leaving
	// it nil with LLM disabled (or no API key) yields an agent that fails
	// tasks with a configuration message instead of refusing to start.
	Engine llm.Engine
	Logger *logrus.Logger
}

// Agent is one A2A specialist: a tool registry, a reasoning engine and the
// HTTP surface remote agents talk to.
type Agent struct {
	name         string
	version      string
	description  string
	url          string
	instructions string

	eventBus    *bus.EventBus
	registry    *tools.Registry
	engine      llm.Engine
	taskManager *a2a.TaskManager
	card        *a2a.AgentCard

	httpServer *gin.Engine
	server     *http.Server
	mcpServer  *mcp.ServerWrapper
	gateway    *api.MonitorGateway
	appConfig  *appconfig.AppConfig

	logger *logrus.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAgent wires an agent from its config and tool definitions.
func NewAgent(cfg Config) (*Agent, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}

	ctx, cancel := context.WithCancel(context.Background())

	eventBus := bus.NewEventBus(logger)
	logger.AddHook(applogger.NewMonitorLogHook(eventBus, cfg.AppConfig.Agent.Name))

	registry := tools.NewRegistry(logger, eventBus)
	for _, def := range cfg.Definitions {
		if err := registry.Register(def); err != nil {
			cancel()
			eventBus.Stop()
			return nil, fmt.Errorf("failed to register tool: %w", err)
		}
	}

	engine := cfg.Engine
	if engine == nil && cfg.AppConfig.LLM.Enabled {
		if openaiEngine := llm.NewOpenAIEngine(cfg.AppConfig.LLM.Model, cfg.AppConfig.LLM.APIKey, logger); openaiEngine != nil {
			engine = openaiEngine
		}
	}

	agent := &Agent{
		name:         cfg.AppConfig.Agent.Name,
		version:      cfg.AppConfig.Agent.Version,
		description:  cfg.AppConfig.Agent.Description,
		url:          cfg.AppConfig.Agent.URL,
		instructions: cfg.Instructions,
		eventBus:     eventBus,
		registry:     registry,
		engine:       engine,
		taskManager:  a2a.NewTaskManager(eventBus, logger),
		appConfig:    cfg.AppConfig,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}

	agent.initializeAgentCard()
	agent.initializeHTTP()

	if cfg.AppConfig.MCP.Enabled {
		agent.mcpServer = mcp.NewServerWrapper(agent.name, agent.version, logger)
		agent.mcpServer.RegisterAll(registry)
	}

	if cfg.AppConfig.WebSocket.Enabled {
		agent.gateway = api.NewMonitorGateway(cfg.AppConfig.WebSocket.Port, eventBus, logger)
	}

	return agent, nil
}

// Registry exposes the agent's tool registry.
func (a *Agent) Registry() *tools.Registry {
	return a.registry
}

// EventBus exposes the agent's event bus so callers can publish their own
// lifecycle events onto the monitor stream.
func (a *Agent) EventBus() *bus.EventBus {
	return a.eventBus
}

// Card returns the discovery card served at the well-known path.
func (a *Agent) Card() *a2a.AgentCard {
	return a.card
}

// initializeAgentCard derives the discovery card from the tool registry.
func (a *Agent) initializeAgentCard() {
	skills := make([]a2a.AgentSkill, 0, a.registry.Count())
	for _, def := range a.registry.List() {
		tags := make([]string, 0, len(def.Params))
		for _, p := range def.Params {
			tags = append(tags, p.Name)
		}
		skills = append(skills, a2a.AgentSkill{
			ID:          def.Name,
			Name:        def.Name,
			Description: def.Description,
			Tags:        tags,
			InputModes:  []string{"text/plain"},
			OutputModes: []string{"application/json", "text/plain"},
		})
	}

	a.card = &a2a.AgentCard{
		ProtocolVersion:    "0.2.9",
		Name:               a.name,
		Description:        a.description,
		URL:                a.url,
		PreferredTransport: a2a.TransportJSONRPC,
		Provider: &a2a.AgentProvider{
			Organization: "Pokedex Agents",
		},
		Version: a.version,
		Capabilities: a2a.AgentCapabilities{
			Streaming:              false,
			PushNotifications:      false,
			StateTransitionHistory: true,
		},
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"application/json", "text/plain"},
		Skills:             skills,
	}
}

func (a *Agent) initializeHTTP() {
	gin.SetMode(gin.ReleaseMode)
	a.httpServer = gin.New()
	a.httpServer.Use(gin.Recovery())
	a.httpServer.Use(cors.Default())

	a.httpServer.GET("/health", a.handleHealth)
	a.httpServer.GET("/agent/card", a.handleGetCard)
	a.httpServer.GET("/.well-known/agent-card.json", a.handleGetCard)

	// A2A JSON-RPC endpoints for v0.2.9
	a.httpServer.POST("/a2a/v1", a.handleA2AJSONRPC)
	a.httpServer.POST("/", a.handleA2AJSONRPC) // compatibility endpoint

	// REST aliases
	a.httpServer.POST("/a2a/message/send", a.handleA2AMessageSend)
	a.httpServer.POST("/a2a/tasks/get", a.handleA2ATasksGet)
	a.httpServer.GET("/a2a/tasks", a.handleA2ATasksList)

	a.logger.Info("HTTP server initialized")
}

// Start brings up the HTTP surface plus the optional MCP and monitor
// listeners. It does not block.
func (a *Agent) Start() error {
	addr := fmt.Sprintf("%s:%d", a.appConfig.HTTP.Host, a.appConfig.HTTP.Port)
	a.server = &http.Server{Addr: addr, Handler: a.httpServer}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Errorf("HTTP server error: %v", err)
		}
	}()

	if a.mcpServer != nil {
		mcpAddr := fmt.Sprintf(":%d", a.appConfig.MCP.Port)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.mcpServer.Start(mcpAddr); err != nil && err != http.ErrServerClosed {
				a.logger.Errorf("MCP server error: %v", err)
			}
		}()
		a.logger.Infof("MCP server started on port %d", a.appConfig.MCP.Port)
	}

	if a.gateway != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.gateway.Run(); err != nil && err != http.ErrServerClosed {
				a.logger.Errorf("Monitor gateway error: %v", err)
			}
		}()
		a.logger.Infof("Monitor gateway started on port %d", a.appConfig.WebSocket.Port)
	}

	a.logger.Infof("Agent %s started on %s", a.name, addr)
	return nil
}

// Stop shuts everything down and waits for in-flight handlers.
func (a *Agent) Stop() error {
	a.logger.Infof("Stopping agent %s", a.name)

	a.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Errorf("Failed to shutdown HTTP server: %v", err)
		}
	}

	if a.mcpServer != nil {
		if err := a.mcpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Errorf("Failed to shutdown MCP server: %v", err)
		}
	}

	if a.gateway != nil {
		if err := a.gateway.Close(); err != nil {
			a.logger.Errorf("Failed to close monitor gateway: %v", err)
		}
	}

	a.wg.Wait()
	a.eventBus.Stop()

	a.logger.Info("Agent stopped")
	return nil
}

func (a *Agent) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "healthy",
		"agent":   a.name,
		"version": a.version,
		"tools":   a.registry.Count(),
	})
}

func (a *Agent) handleGetCard(c *gin.Context) {
	c.Header("Content-Type", "application/json")
	c.JSON(200, a.card)
}

// handleA2AJSONRPC handles A2A JSON-RPC 2.0 requests
func (a *Agent) handleA2AJSONRPC(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(400, a2a.NewJSONRPCErrorResponse(nil, a2a.ErrorCodeParseError, "Failed to read body"))
		return
	}
	var rpc a2a.JSONRPCRequest
	if err := json.Unmarshal(body, &rpc); err != nil || rpc.JSONRPC != "2.0" {
		c.JSON(400, a2a.NewJSONRPCErrorResponse(nil, a2a.ErrorCodeParseError, "Invalid JSON-RPC 2.0 payload"))
		return
	}
	resp := a.DispatchA2ARequest(rpc)
	c.Header("Content-Type", "application/json")
	c.JSON(200, resp)
}

// handleA2AMessageSend handles direct A2A message/send requests
func (a *Agent) handleA2AMessageSend(c *gin.Context) {
	var params struct {
		Message map[string]interface{} `json:"message"`
	}
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(400, a2a.NewJSONRPCErrorResponse(nil, a2a.ErrorCodeInvalidParams, err.Error()))
		return
	}

	rpcRequest := a2a.JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "message/send",
		Params: map[string]interface{}{
			"message": params.Message,
		},
	}

	c.JSON(200, a.DispatchA2ARequest(rpcRequest))
}

// handleA2ATasksGet handles direct A2A tasks/get requests
func (a *Agent) handleA2ATasksGet(c *gin.Context) {
	var params struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(400, a2a.NewJSONRPCErrorResponse(nil, a2a.ErrorCodeInvalidParams, err.Error()))
		return
	}

	rpcRequest := a2a.JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tasks/get",
		Params: map[string]interface{}{
			"id": params.ID,
		},
	}

	c.JSON(200, a.DispatchA2ARequest(rpcRequest))
}

// handleA2ATasksList lists all tasks for debugging
func (a *Agent) handleA2ATasksList(c *gin.Context) {
	c.JSON(200, gin.H{
		"tasks":  a.taskManager.ListTasks(),
		"counts": a.taskManager.GetTaskCount(),
		"agent":  a.name,
	})
}

// DispatchA2ARequest routes a JSON-RPC request to its method handler.
func (a *Agent) DispatchA2ARequest(req a2a.JSONRPCRequest) a2a.JSONRPCResponse {
	a.logger.Infof("A2A request received. Method: %s, RequestID: %v", req.Method, req.ID)

	params, ok := req.Params.(map[string]interface{})
	if !ok && req.Params != nil {
		return a2a.NewJSONRPCErrorResponse(req.ID, a2a.ErrorCodeInvalidParams, "Invalid params format")
	}

	var result interface{}
	var rpcErr *a2a.RPCError

	switch req.Method {
	case "message/send":
		result, rpcErr = a.handleMessageSend(params)
	case "tasks/get":
		result, rpcErr = a.handleTasksGet(params)
	case "tasks/cancel":
		result, rpcErr = a.handleTasksCancel(params)
	default:
		rpcErr = &a2a.RPCError{Code: a2a.ErrorCodeMethodNotFound, Message: "Method not found"}
	}

	if rpcErr != nil {
		return a2a.NewJSONRPCErrorResponse(req.ID, rpcErr.Code, rpcErr.Message)
	}
	return a2a.NewJSONRPCResponse(req.ID, result)
}

// handleMessageSend handles the message/send JSON-RPC method. A message
// carrying a task id resumes that task if it is waiting for input; a
// message carrying only a context id resumes the waiting task of that
// conversation or starts a new task in it.
func (a *Agent) handleMessageSend(params map[string]interface{}) (interface{}, *a2a.RPCError) {
	msgData, ok := params["message"].(map[string]interface{})
	if !ok {
		return nil, &a2a.RPCError{Code: a2a.ErrorCodeInvalidParams, Message: "Missing message parameter"}
	}

	msg, err := a.parseMessageFromParams(msgData)
	if err != nil {
		return nil, &a2a.RPCError{Code: a2a.ErrorCodeInvalidParams, Message: fmt.Sprintf("Invalid message format: %v", err)}
	}

	if msg.TaskID != "" {
		return a.resumeTask(msg.TaskID, msg)
	}

	if msg.ContextID != "" {
		if task, found := a.taskManager.FindResumableTask(msg.ContextID); found {
			return a.resumeTask(task.ID, msg)
		}
	}

	task := a.taskManager.CreateTask(*msg)
	a.logger.Infof("[TaskID: %s] Task created for message %s", task.ID, msg.MessageID)

	go a.processTask(a.ctx, task.ID)

	return task, nil
}

// resumeTask continues an input-required task with a follow-up user message.
func (a *Agent) resumeTask(taskID string, msg *a2a.Message) (interface{}, *a2a.RPCError) {
	task, exists := a.taskManager.GetTask(taskID)
	if !exists {
		return nil, &a2a.RPCError{Code: a2a.ErrorCodeTaskNotFound, Message: "Task not found"}
	}

	if task.Status.State != a2a.TaskStateInputRequired {
		return nil, &a2a.RPCError{
			Code:    a2a.ErrorCodeInvalidRequest,
			Message: fmt.Sprintf("Task %s is not waiting for input (state: %s)", taskID, task.Status.State),
		}
	}

	if err := a.taskManager.AddMessageToHistory(taskID, *msg); err != nil {
		return nil, &a2a.RPCError{Code: a2a.ErrorCodeInternalError, Message: err.Error()}
	}

	a.logger.Infof("[TaskID: %s] Resuming with follow-up message %s", taskID, msg.MessageID)

	go a.processTask(a.ctx, taskID)

	return task, nil
}

// handleTasksGet handles the tasks/get JSON-RPC method
func (a *Agent) handleTasksGet(params map[string]interface{}) (interface{}, *a2a.RPCError) {
	taskID, ok := params["id"].(string)
	if !ok {
		return nil, &a2a.RPCError{Code: a2a.ErrorCodeInvalidParams, Message: "Missing or invalid task id"}
	}

	task, exists := a.taskManager.GetTask(taskID)
	if !exists {
		return nil, &a2a.RPCError{Code: a2a.ErrorCodeTaskNotFound, Message: "Task not found"}
	}

	return task, nil
}

// handleTasksCancel handles the tasks/cancel JSON-RPC method
func (a *Agent) handleTasksCancel(params map[string]interface{}) (interface{}, *a2a.RPCError) {
	taskID, ok := params["id"].(string)
	if !ok {
		return nil, &a2a.RPCError{Code: a2a.ErrorCodeInvalidParams, Message: "Missing or invalid task id"}
	}

	task, err := a.taskManager.CancelTask(taskID)
	if err != nil {
		switch err {
		case a2a.ErrTaskNotFound:
			return nil, &a2a.RPCError{Code: a2a.ErrorCodeTaskNotFound, Message: "Task not found"}
		case a2a.ErrTaskNotCancelable:
			return nil, &a2a.RPCError{Code: a2a.ErrorCodeInvalidRequest, Message: "Task is not in a cancelable state"}
		default:
			return nil, &a2a.RPCError{Code: a2a.ErrorCodeInternalError, Message: fmt.Sprintf("Failed to cancel task: %v", err)}
		}
	}

	return task, nil
}

// processTask runs one reasoning turn asynchronously. Tool and upstream
// lookup failures surface inside a completed answer; only faults of the
// reasoning loop itself fail the task.
func (a *Agent) processTask(ctx context.Context, taskID string) {
	if err := a.taskManager.UpdateTaskStatus(taskID, a2a.TaskStateWorking, nil); err != nil {
		a.logger.Warnf("[TaskID: %s] Could not move task to working: %v", taskID, err)
		return
	}

	// Read through a snapshot: concurrent sends append to the live history
	// under the manager's lock.
	history, exists := a.taskManager.HistorySnapshot(taskID)
	if !exists {
		a.logger.Errorf("[TaskID: %s] Task disappeared before processing", taskID)
		return
	}

	userText := latestUserText(history)
	a.logger.Infof("[TaskID: %s] Processing user request: %q", taskID, userText)

	// The newest user turn goes to the engine as UserText; history carries
	// only the turns before it.
	if n := len(history); n > 0 && history[n-1].Role == "user" {
		history = history[:n-1]
	}

	if a.engine == nil {
		a.failTask(taskID, "No reasoning engine is configured for this agent")
		return
	}

	outcome, err := a.engine.Process(ctx, a.registry, llm.Request{
		Instructions: a.instructions,
		TaskID:       taskID,
		History:      history,
		UserText:     userText,
	})
	if err != nil {
		a.logger.Errorf("[TaskID: %s] Reasoning failed: %v", taskID, err)
		a.failTask(taskID, fmt.Sprintf("Failed to process request: %v", err))
		return
	}

	if outcome.NeedsInput {
		prompt := outcome.Prompt
		if prompt == "" {
			prompt = "Could you clarify your request?"
		}
		agentMsg := a2a.NewAgentMessage(a2a.NewTextPart(prompt))
		if err := a.taskManager.UpdateTaskStatus(taskID, a2a.TaskStateInputRequired, &agentMsg); err != nil {
			a.logger.Errorf("[TaskID: %s] Failed to request input: %v", taskID, err)
		}
		a.logger.Infof("[TaskID: %s] Waiting for user input", taskID)
		return
	}

	artifact := a2a.NewArtifact("answer", a2a.NewTextPart(outcome.Answer))
	if err := a.taskManager.AddArtifactToTask(taskID, artifact); err != nil {
		a.logger.Errorf("[TaskID: %s] Failed to attach answer artifact: %v", taskID, err)
	}

	agentMsg := a2a.NewAgentMessage(a2a.NewTextPart(outcome.Answer))
	if err := a.taskManager.UpdateTaskStatus(taskID, a2a.TaskStateCompleted, &agentMsg); err != nil {
		a.logger.Errorf("[TaskID: %s] Failed to complete task: %v", taskID, err)
		return
	}

	a.logger.Infof("[TaskID: %s] Status updated to 'completed'", taskID)
}

// failTask moves a task to failed with an explanatory agent message.
func (a *Agent) failTask(taskID, reason string) {
	agentMsg := a2a.NewAgentMessage(a2a.NewTextPart(reason))
	if err := a.taskManager.UpdateTaskStatus(taskID, a2a.TaskStateFailed, &agentMsg); err != nil {
		a.logger.Errorf("[TaskID: %s] Failed to mark task failed: %v", taskID, err)
	}
}

// parseMessageFromParams converts a params map to an A2A message.
func (a *Agent) parseMessageFromParams(msgData map[string]interface{}) (*a2a.Message, error) {
	role, _ := msgData["role"].(string)
	messageID, _ := msgData["messageId"].(string)
	taskID, _ := msgData["taskId"].(string)
	contextID, _ := msgData["contextId"].(string)

	if role == "" {
		role = "user"
	}
	if messageID == "" {
		messageID = uuid.New().String()
	}

	var parts []a2a.Part
	if partsData, ok := msgData["parts"].([]interface{}); ok {
		for _, partInterface := range partsData {
			if partMap, ok := partInterface.(map[string]interface{}); ok {
				part := a2a.Part{}
				part.Kind, _ = partMap["kind"].(string)
				part.Text, _ = partMap["text"].(string)
				if data, ok := partMap["data"].(map[string]interface{}); ok {
					part.Data = data
				}
				parts = append(parts, part)
			}
		}
	}

	hasValidText := false
	for _, part := range parts {
		if part.Kind == "text" && strings.TrimSpace(part.Text) != "" {
			hasValidText = true
			break
		}
	}
	if !hasValidText {
		return nil, fmt.Errorf("message must contain at least one non-empty text part")
	}

	return &a2a.Message{
		Role:      role,
		Parts:     parts,
		MessageID: messageID,
		TaskID:    taskID,
		ContextID: contextID,
		Kind:      "message",
	}, nil
}

// latestUserText returns the text of the most recent user message.
func latestUserText(history []a2a.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != "user" {
			continue
		}
		for _, part := range history[i].Parts {
			if part.Kind == "text" && part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}
