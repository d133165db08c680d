package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pokedexai/pokedex-agents/internal/a2a"
	"github.com/pokedexai/pokedex-agents/internal/agent"
	"github.com/pokedexai/pokedex-agents/internal/bus"
	appconfig "github.com/pokedexai/pokedex-agents/internal/config"
	"github.com/pokedexai/pokedex-agents/internal/llm"
	"github.com/pokedexai/pokedex-agents/internal/tools"
)

// Specialist names the coordinator routes between. Delegation order is
// fixed: basic facts are fetched before analysis so the analytics answer
// can assume the facts are already in the response.
const (
	PokemonAgent     = "pokemon-agent"
	PokedexAssistant = "pokedex-assistant"
)

var delegationOrder = []string{PokemonAgent, PokedexAssistant}

// DelegationRecord captures one specialist delegation within a turn. It is
// ephemeral: merged into the response and discarded.
type DelegationRecord struct {
	Specialist string
	TaskID     string
	Answer     string
	Err        error
}

// Coordinator is the master agent: the same A2A surface as a specialist,
// with a routing-and-delegation engine instead of a tool registry.
type Coordinator struct {
	*agent.Agent
	engine *delegationEngine
}

// New wires a coordinator from its config. A nil router falls back to
// delegating every turn to the basic-info specialist.
func New(cfg *appconfig.AppConfig, router llm.Router, logger *logrus.Logger) (*Coordinator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	timeout := time.Duration(cfg.Coordinator.DelegateTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	engine := &delegationEngine{
		router: router,
		client: a2a.NewClient(logger),
		specialists: map[string]string{
			PokemonAgent:     cfg.Coordinator.PokemonAgentURL,
			PokedexAssistant: cfg.Coordinator.PokedexAssistantURL,
		},
		timeout: timeout,
		logger:  logger,
	}

	base, err := agent.NewAgent(agent.Config{
		AppConfig: cfg,
		Engine:    engine,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	engine.eventBus = base.EventBus()

	return &Coordinator{Agent: base, engine: engine}, nil
}

// delegationEngine implements llm.Engine by routing the user text and
// fanning the turn out to the specialist agents.
type delegationEngine struct {
	router      llm.Router
	client      *a2a.Client
	specialists map[string]string
	timeout     time.Duration
	eventBus    *bus.EventBus
	logger      *logrus.Logger
}

func (e *delegationEngine) Process(ctx context.Context, registry *tools.Registry, req llm.Request) (*llm.Outcome, error) {
	targets, direct := e.route(ctx, req.UserText)

	if direct != "" && len(targets) == 0 {
		e.logger.Infof("[TaskID: %s] Answering directly without delegation", req.TaskID)
		return &llm.Outcome{Answer: direct}, nil
	}

	records := make([]DelegationRecord, 0, len(targets))
	for _, name := range targets {
		records = append(records, e.delegate(ctx, name, req))
	}

	return &llm.Outcome{Answer: mergeRecords(records)}, nil
}

// route classifies the user text. Routing faults never fail the turn: they
// degrade to the basic-info specialist.
func (e *delegationEngine) route(ctx context.Context, userText string) ([]string, string) {
	if e.router == nil {
		return []string{PokemonAgent}, ""
	}

	decision, err := e.router.Route(ctx, userText)
	if err != nil {
		e.logger.Warnf("Routing failed, falling back to %s: %v", PokemonAgent, err)
		return []string{PokemonAgent}, ""
	}

	wanted := make(map[string]bool, len(decision.Targets))
	for _, target := range decision.Targets {
		if _, known := e.specialists[target]; known {
			wanted[target] = true
		}
	}

	// Fixed delegation order regardless of how the router listed targets.
	var targets []string
	for _, name := range delegationOrder {
		if wanted[name] {
			targets = append(targets, name)
		}
	}

	if len(targets) == 0 && decision.Direct == "" {
		e.logger.Warn("Router produced no usable plan, falling back to basic info")
		return []string{PokemonAgent}, ""
	}

	return targets, decision.Direct
}

// delegate runs one specialist turn end to end: send, poll, extract.
func (e *delegationEngine) delegate(ctx context.Context, name string, req llm.Request) DelegationRecord {
	record := DelegationRecord{Specialist: name}
	baseURL := e.specialists[name]

	if e.eventBus != nil {
		e.eventBus.PublishDelegationStart(req.TaskID, name)
	}
	e.logger.Infof("[TaskID: %s] Delegating to %s", req.TaskID, name)

	task, err := e.client.SendText(ctx, baseURL, req.UserText, "", "")
	if err != nil {
		record.Err = err
		e.finishDelegation(req.TaskID, name, "unreachable")
		return record
	}
	record.TaskID = task.ID

	final, err := e.client.WaitForCompletion(ctx, baseURL, task.ID, e.timeout)
	if err != nil {
		record.Err = err
		e.finishDelegation(req.TaskID, name, "timeout")
		return record
	}

	switch final.Status.State {
	case a2a.TaskStateCompleted:
		answer, _ := a2a.ExtractText(final)
		record.Answer = answer
	case a2a.TaskStateInputRequired:
		// The coordinator has no user to relay the question to mid-turn;
		// surface the specialist's prompt as its answer.
		if prompt, ok := a2a.ExtractText(final); ok {
			record.Answer = prompt
		} else {
			record.Err = fmt.Errorf("specialist requested input without a prompt")
		}
	default:
		record.Err = fmt.Errorf("specialist task ended in state %s", final.Status.State)
	}

	e.finishDelegation(req.TaskID, name, final.Status.State)
	return record
}

func (e *delegationEngine) finishDelegation(taskID, name, state string) {
	if e.eventBus != nil {
		e.eventBus.PublishDelegationComplete(taskID, name, state)
	}
}

// mergeRecords folds delegation results into one attributed response. A
// failed delegate contributes a short unavailability note; it never fails
// the turn.
func mergeRecords(records []DelegationRecord) string {
	sections := make([]string, 0, len(records))
	for _, record := range records {
		if record.Err != nil {
			sections = append(sections,
				fmt.Sprintf("[%s] The %s specialist is currently unavailable.", record.Specialist, record.Specialist))
			continue
		}
		answer := record.Answer
		if answer == "" {
			answer = "The specialist returned no answer."
		}
		sections = append(sections, fmt.Sprintf("[%s] %s", record.Specialist, answer))
	}
	return strings.Join(sections, "\n\n")
}
