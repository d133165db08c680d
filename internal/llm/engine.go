package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/pokedexai/pokedex-agents/internal/a2a"
	"github.com/pokedexai/pokedex-agents/internal/tools"
)

// maxToolRounds bounds the tool-calling loop so a confused model cannot
// spin forever.
const maxToolRounds = 8

// clarificationTool is a built-in function the model calls when the request
// is too ambiguous to answer; it maps to the input-required task state.
const clarificationTool = "request_clarification"

// Request is one reasoning step: instructions plus the conversation so far
// and the new user text.
type Request struct {
	Instructions string
	TaskID       string
	History      []a2a.Message
	UserText     string
}

// Outcome is what a reasoning step produced: either a final answer or a
// clarification prompt for the user.
type Outcome struct {
	Answer     string
	NeedsInput bool
	Prompt     string
}

// Engine is the opaque reasoning component: given instructions, tools and a
// query, produce an answer or a clarification request. Implementations
// return an error only for faults in the reasoning loop itself; tool
// failures are absorbed into the conversation.
type Engine interface {
	Process(ctx context.Context, registry *tools.Registry, req Request) (*Outcome, error)
}

// OpenAIEngine drives an OpenAI chat model through a function-calling loop
// over the agent's tool registry.
type OpenAIEngine struct {
	client *openai.Client
	model  string
	logger *logrus.Logger
}

// NewOpenAIEngine creates an engine from the configured API key, falling
// back to OPENAI_API_KEY. Returns nil when no key is available so callers
// can degrade to a stub.
func NewOpenAIEngine(model, apiKey string, logger *logrus.Logger) *OpenAIEngine {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		logger.Warn("No OpenAI API key configured, LLM features will be disabled")
		return nil
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIEngine{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

func (e *OpenAIEngine) Process(ctx context.Context, registry *tools.Registry, req Request) (*Outcome, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: req.Instructions},
	}
	for _, msg := range req.History {
		role := openai.ChatMessageRoleUser
		if msg.Role == "agent" {
			role = openai.ChatMessageRoleAssistant
		}
		for _, part := range msg.Parts {
			if part.Kind == "text" && part.Text != "" {
				messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: part.Text})
			}
		}
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserText,
	})

	toolSpecs := append(registry.OpenAITools(), clarificationSpec())

	for round := 0; round < maxToolRounds; round++ {
		resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:      e.model,
			Messages:   messages,
			Tools:      toolSpecs,
			ToolChoice: "auto",
		})
		if err != nil {
			return nil, fmt.Errorf("chat completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("chat completion returned no choices")
		}

		choice := resp.Choices[0].Message
		if len(choice.ToolCalls) == 0 {
			return &Outcome{Answer: choice.Content}, nil
		}

		messages = append(messages, choice)

		for _, call := range choice.ToolCalls {
			if call.Function.Name == clarificationTool {
				prompt := parseClarification(call.Function.Arguments)
				e.logger.Infof("[TaskID: %s] Model requested clarification: %s", req.TaskID, prompt)
				return &Outcome{NeedsInput: true, Prompt: prompt}, nil
			}

			args, err := tools.ParseArguments(call.Function.Arguments)
			if err != nil {
				args = map[string]interface{}{}
			}

			result, err := registry.Invoke(ctx, req.TaskID, call.Function.Name, args)
			if err != nil {
				// Tool failures go back into the conversation so the model
				// can explain them; only loop faults escape as errors.
				result = fmt.Sprintf(`{"error": %q}`, err.Error())
			}

			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	return nil, fmt.Errorf("tool-calling loop exceeded %d rounds", maxToolRounds)
}

func clarificationSpec() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        clarificationTool,
			Description: "Ask the user a clarifying question when the request is too ambiguous to answer.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"question": map[string]interface{}{
						"type":        "string",
						"description": "The clarifying question to ask the user",
					},
				},
				"required": []string{"question"},
			},
		},
	}
}

func parseClarification(rawArgs string) string {
	args, err := tools.ParseArguments(rawArgs)
	if err != nil {
		return "Could you clarify your request?"
	}
	if q, ok := args["question"].(string); ok && q != "" {
		return q
	}
	return "Could you clarify your request?"
}
