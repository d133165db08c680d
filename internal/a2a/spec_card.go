// Package a2a contains structures for A2A protocol v0.2.9 specification
package a2a

type TransportProtocol string

const (
	TransportJSONRPC  TransportProtocol = "JSONRPC"
	TransportGRPC     TransportProtocol = "GRPC"
	TransportHTTPJSON TransportProtocol = "HTTP+JSON"
)

type AgentInterface struct {
	Transport TransportProtocol `json:"transport"`
	URL       string            `json:"url"`
}

type AgentProvider struct {
	Organization string `json:"organization,omitempty"`
	URL          string `json:"url,omitempty"`
}

type AgentCapabilities struct {
	Streaming              bool `json:"streaming,omitempty"`
	PushNotifications      bool `json:"pushNotifications,omitempty"`
	StateTransitionHistory bool `json:"stateTransitionHistory,omitempty"`
}

type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

// AgentCard is the discovery document served at the well-known path.
// Constructed once at startup, immutable thereafter.
type AgentCard struct {
	ProtocolVersion      string            `json:"protocolVersion"`
	Name                 string            `json:"name"`
	Description          string            `json:"description"`
	URL                  string            `json:"url,omitempty"`
	PreferredTransport   TransportProtocol `json:"preferredTransport,omitempty"`
	AdditionalInterfaces []AgentInterface  `json:"additionalInterfaces,omitempty"`
	Provider             *AgentProvider    `json:"provider,omitempty"`
	Version              string            `json:"version,omitempty"`
	Capabilities         AgentCapabilities `json:"capabilities"`
	DefaultInputModes    []string          `json:"defaultInputModes"`
	DefaultOutputModes   []string          `json:"defaultOutputModes"`
	Skills               []AgentSkill      `json:"skills"`
}
