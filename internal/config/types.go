package config

import "github.com/pokedexai/pokedex-agents/pkg/utils"

// AgentConfig identifies one agent process.
type AgentConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
}

// HTTPConfig covers the agent's A2A/REST surface.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// MCPConfig covers the optional MCP exposure of the tool registry.
type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// WebSocketConfig covers the monitor event stream.
type WebSocketConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// PokeAPIConfig points at the upstream catalog.
type PokeAPIConfig struct {
	BaseURL string `yaml:"base_url"`
}

// LLMConfig covers the reasoning component.
type LLMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

// CoordinatorConfig names the specialists the master agent delegates to.
type CoordinatorConfig struct {
	PokemonAgentURL     string `yaml:"pokemon_agent_url"`
	PokedexAssistantURL string `yaml:"pokedex_assistant_url"`
	DelegateTimeoutSec  int    `yaml:"delegate_timeout_sec"`
}

// AppConfig is the full configuration of one agent process.
type AppConfig struct {
	Agent       AgentConfig       `yaml:"agent"`
	HTTP        HTTPConfig        `yaml:"http"`
	MCP         MCPConfig         `yaml:"mcp"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	PokeAPI     PokeAPIConfig     `yaml:"pokeapi"`
	LLM         LLMConfig         `yaml:"llm"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Logging     utils.LogConfig   `yaml:"logging"`
}

// DefaultConfig returns the configuration an agent runs with when no file
// and no environment overrides are present.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Agent: AgentConfig{
			Name:        "pokemon-agent",
			Version:     "1.0.0",
			Description: "Pokemon information agent",
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    10001,
		},
		MCP: MCPConfig{
			Enabled: false,
			Port:    3001,
		},
		WebSocket: WebSocketConfig{
			Enabled: false,
			Port:    9000,
		},
		PokeAPI: PokeAPIConfig{
			BaseURL: "https://pokeapi.co/api/v2",
		},
		LLM: LLMConfig{
			Enabled:  true,
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Coordinator: CoordinatorConfig{
			PokemonAgentURL:     "http://localhost:10001",
			PokedexAssistantURL: "http://localhost:10002",
			DelegateTimeoutSec:  30,
		},
		Logging: utils.DefaultLogConfig(),
	}
}
