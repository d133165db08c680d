package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/pokedexai/pokedex-agents/pkg/utils"
)

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(path string, logger *logrus.Logger) (*AppConfig, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warnf("Configuration file %s not found, using defaults", path)
		// Still apply environment overrides even with defaults
		applyEnvironmentOverrides(config)
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration
	configString := utils.ExpandEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(configString), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvironmentOverrides(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validateConfig checks if the configuration is valid
func validateConfig(config *AppConfig) error {
	if config.Agent.Name == "" {
		return fmt.Errorf("agent name cannot be empty")
	}

	if config.HTTP.Enabled && config.HTTP.Port <= 0 {
		return fmt.Errorf("http.port must be a positive value")
	}

	if config.MCP.Enabled && config.MCP.Port <= 0 {
		return fmt.Errorf("mcp.port must be a positive value when MCP is enabled")
	}

	if config.WebSocket.Enabled && config.WebSocket.Port <= 0 {
		return fmt.Errorf("websocket.port must be a positive value when the monitor is enabled")
	}

	if config.PokeAPI.BaseURL == "" {
		return fmt.Errorf("pokeapi.base_url cannot be empty")
	}

	if config.LLM.Enabled && config.LLM.Provider == "" {
		return fmt.Errorf("LLM provider cannot be empty when LLM is enabled")
	}

	return nil
}

// applyEnvironmentOverrides applies environment variable overrides to the configuration
func applyEnvironmentOverrides(config *AppConfig) {
	if name := os.Getenv("AGENT_NAME"); name != "" {
		config.Agent.Name = name
	}
	if version := os.Getenv("AGENT_VERSION"); version != "" {
		config.Agent.Version = version
	}
	if desc := os.Getenv("AGENT_DESCRIPTION"); desc != "" {
		config.Agent.Description = desc
	}
	if url := os.Getenv("AGENT_URL"); url != "" {
		config.Agent.URL = url
	}

	config.HTTP.Enabled = utils.BoolFromEnv("HTTP_ENABLED", config.HTTP.Enabled)
	if portStr := os.Getenv("HTTP_PORT"); portStr != "" {
		if _, err := fmt.Sscanf(portStr, "%d", &config.HTTP.Port); err != nil {
			logrus.Warnf("Invalid HTTP_PORT: %s", portStr)
		}
	}

	config.MCP.Enabled = utils.BoolFromEnv("MCP_ENABLED", config.MCP.Enabled)
	if portStr := os.Getenv("MCP_PORT"); portStr != "" {
		if _, err := fmt.Sscanf(portStr, "%d", &config.MCP.Port); err != nil {
			logrus.Warnf("Invalid MCP_PORT: %s", portStr)
		}
	}

	config.WebSocket.Enabled = utils.BoolFromEnv("WEBSOCKET_ENABLED", config.WebSocket.Enabled)
	if portStr := os.Getenv("WEBSOCKET_PORT"); portStr != "" {
		if _, err := fmt.Sscanf(portStr, "%d", &config.WebSocket.Port); err != nil {
			logrus.Warnf("Invalid WEBSOCKET_PORT: %s", portStr)
		}
	}

	if baseURL := os.Getenv("POKEAPI_BASE_URL"); baseURL != "" {
		config.PokeAPI.BaseURL = baseURL
	}

	config.LLM.Enabled = utils.BoolFromEnv("LLM_ENABLED", config.LLM.Enabled)
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}

	if url := os.Getenv("POKEMON_AGENT_URL"); url != "" {
		config.Coordinator.PokemonAgentURL = url
	}
	if url := os.Getenv("POKEDEX_ASSISTANT_URL"); url != "" {
		config.Coordinator.PokedexAssistantURL = url
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}
