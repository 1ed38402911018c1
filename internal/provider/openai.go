package provider

import (
	"strings"

	"github.com/leonardotrapani/hyprinterview/internal/language"
)

// OpenAIProvider transcribes the whole answer once recording ends; no interim results.
type OpenAIProvider struct{}

func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

func (p *OpenAIProvider) DisplayName() string {
	return "OpenAI Whisper"
}

func (p *OpenAIProvider) RequiresAPIKey() bool {
	return true
}

func (p *OpenAIProvider) ValidateAPIKey(key string) bool {
	return strings.HasPrefix(key, "sk-")
}

func (p *OpenAIProvider) Models() []Model {
	endpoint := &EndpointConfig{BaseURL: "https://api.openai.com/v1", Path: "/audio/transcriptions"}
	return []Model{
		{
			ID:                 "whisper-1",
			Name:               "Whisper 1",
			Description:        "OpenAI's production speech-to-text model",
			SupportedLanguages: language.Codes(),
			Endpoint:           endpoint,
		},
		{
			ID:                 "gpt-4o-transcribe",
			Name:               "GPT-4o Transcribe",
			Description:        "Higher accuracy, higher latency",
			SupportedLanguages: language.Codes(),
			Endpoint:           endpoint,
		},
	}
}

func (p *OpenAIProvider) DefaultModel() string {
	return "whisper-1"
}
