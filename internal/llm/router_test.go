package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanMarkdownJSON(t *testing.T) {
	plain := `{"targets": ["pokemon-agent"]}`

	assert.Equal(t, plain, cleanMarkdownJSON(plain))
	assert.Equal(t, plain, cleanMarkdownJSON("```json\n"+plain+"\n```"))
	assert.Equal(t, plain, cleanMarkdownJSON("```\n"+plain+"\n```"))
	assert.Equal(t, plain, cleanMarkdownJSON("  "+plain+"  "))
}

func TestParseClarification(t *testing.T) {
	assert.Equal(t, "Which Pokemon?", parseClarification(`{"question": "Which Pokemon?"}`))
	assert.Equal(t, "Could you clarify your request?", parseClarification(`{}`))
	assert.Equal(t, "Could you clarify your request?", parseClarification(`not json`))
}

func TestRoutingInstructionsNameTargets(t *testing.T) {
	instructions := RoutingInstructions("pokemon-agent", "pokedex-assistant")
	assert.Contains(t, instructions, "pokemon-agent")
	assert.Contains(t, instructions, "pokedex-assistant")
	assert.Contains(t, instructions, "strict JSON")
}
