package llm

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestNewOpenAIEngineUsesConfiguredKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	engine := NewOpenAIEngine("gpt-4o-mini", "sk-from-config-file", quietLogger())
	require.NotNil(t, engine, "a key from the config file must be enough, without the environment variable")
	assert.Equal(t, "gpt-4o-mini", engine.model)
}

func TestNewOpenAIEngineFallsBackToEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	engine := NewOpenAIEngine("", "", quietLogger())
	require.NotNil(t, engine)
}

func TestNewOpenAIEngineWithoutAnyKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	assert.Nil(t, NewOpenAIEngine("gpt-4o-mini", "", quietLogger()))
	assert.Nil(t, NewOpenAIRouter("gpt-4o-mini", "", "instructions", []string{"pokemon-agent"}, quietLogger()))
}
