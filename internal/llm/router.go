package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Decision is the coordinator's routing verdict for one user turn: answer
// directly, or delegate to the named specialists.
type Decision struct {
	Direct  string   `json:"direct,omitempty"`
	Targets []string `json:"targets,omitempty"`
}

// Router classifies an incoming request into a Decision.
type Router interface {
	Route(ctx context.Context, userText string) (*Decision, error)
}

// OpenAIRouter asks a chat model for a strict-JSON routing plan. The
// classification rule lives in the prompt, not in hard-coded branching.
type OpenAIRouter struct {
	client       *openai.Client
	model        string
	instructions string
	known        map[string]bool
	logger       *logrus.Logger
}

// NewOpenAIRouter creates a router over the given specialist names. Returns
// nil when no API key is configured.
func NewOpenAIRouter(model, apiKey, instructions string, specialists []string, logger *logrus.Logger) *OpenAIRouter {
	engine := NewOpenAIEngine(model, apiKey, logger)
	if engine == nil {
		return nil
	}
	known := make(map[string]bool, len(specialists))
	for _, name := range specialists {
		known[name] = true
	}
	return &OpenAIRouter{
		client:       engine.client,
		model:        engine.model,
		instructions: instructions,
		known:        known,
		logger:       logger,
	}
}

func (r *OpenAIRouter) Route(ctx context.Context, userText string) (*Decision, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: r.instructions},
			{Role: openai.ChatMessageRoleUser, Content: userText},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("routing completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("routing completion returned no choices")
	}

	content := cleanMarkdownJSON(resp.Choices[0].Message.Content)

	var decision Decision
	if err := json.Unmarshal([]byte(content), &decision); err != nil {
		return nil, fmt.Errorf("invalid routing plan: %w", err)
	}

	// Unknown target names are dropped rather than trusted downstream.
	valid := decision.Targets[:0]
	for _, target := range decision.Targets {
		if r.known[target] {
			valid = append(valid, target)
		} else {
			r.logger.Warnf("Router produced unknown target '%s', dropping", target)
		}
	}
	decision.Targets = valid

	if decision.Direct == "" && len(decision.Targets) == 0 {
		return nil, fmt.Errorf("routing plan named no valid target and no direct answer")
	}
	return &decision, nil
}

// cleanMarkdownJSON removes markdown code block formatting from JSON response
func cleanMarkdownJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimSpace(strings.TrimPrefix(content, "```json"))
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimSpace(strings.TrimPrefix(content, "```"))
	}

	if strings.HasSuffix(content, "```") {
		content = strings.TrimSpace(strings.TrimSuffix(content, "```"))
	}

	return content
}

// RoutingInstructions renders the coordinator's classification rule for a
// set of specialists.
func RoutingInstructions(basicInfoAgent, analyticsAgent string) string {
	return fmt.Sprintf(`You are the routing component of a Pokemon assistant built from several specialist agents.
Classify the user's request and reply with strict JSON, no markdown fences, shaped as:
{"direct": "<answer>", "targets": ["<agent-name>"]}

Rules:
- Requests for raw Pokemon facts, lookups or listings go to "%s".
- Requests for comparisons, type effectiveness, trivia, stat rankings or team composition go to "%s".
- If the request needs both kinds of work, include both targets.
- Only greetings or questions about your own capabilities may be answered via "direct"; leave "direct" empty otherwise.
- Never invent agent names.`, basicInfoAgent, analyticsAgent)
}
