package provider

import "sort"

// Provider describes a speech-to-text service the transcriber can drive.
type Provider interface {
	Name() string
	DisplayName() string
	RequiresAPIKey() bool
	ValidateAPIKey(key string) bool
	Models() []Model
	DefaultModel() string
}

// Model is one transcription model offered by a provider.
type Model struct {
	ID                 string
	Name               string
	Description        string
	Streaming          bool            // emits interim results while audio flows
	SupportedLanguages []string        // provider language codes; empty means any
	Endpoint           *EndpointConfig // HTTP or WebSocket endpoint
}

// EndpointConfig holds HTTP/WebSocket endpoint configuration
type EndpointConfig struct {
	BaseURL string // e.g. "wss://api.deepgram.com"
	Path    string // e.g. "/v1/listen"
}

// SupportsLanguage reports whether code is accepted. Empty code means auto-detect.
func (m *Model) SupportsLanguage(code string) bool {
	if code == "" || len(m.SupportedLanguages) == 0 {
		return true
	}
	for _, l := range m.SupportedLanguages {
		if l == code {
			return true
		}
	}
	return false
}

var registry = make(map[string]Provider)

func init() {
	Register(&DeepgramProvider{})
	Register(&OpenAIProvider{})
}

// Register adds a provider to the registry
func Register(p Provider) {
	registry[p.Name()] = p
}

// GetProvider returns a provider by name, or nil if not found
func GetProvider(name string) Provider {
	return registry[name]
}

// ListProviders returns all registered provider names, sorted
func ListProviders() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindModel returns the provider's model with the given ID, or nil.
func FindModel(p Provider, id string) *Model {
	if p == nil {
		return nil
	}
	for _, m := range p.Models() {
		if m.ID == id {
			model := m
			return &model
		}
	}
	return nil
}
