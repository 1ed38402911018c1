package provider

// DeepgramProvider streams audio over a websocket and returns interim and final results.
type DeepgramProvider struct{}

func (p *DeepgramProvider) Name() string {
	return ProviderDeepgram
}

func (p *DeepgramProvider) DisplayName() string {
	return "Deepgram"
}

func (p *DeepgramProvider) RequiresAPIKey() bool {
	return true
}

func (p *DeepgramProvider) ValidateAPIKey(key string) bool {
	// Deepgram API keys are alphanumeric, just check non-empty
	return len(key) > 0
}

func (p *DeepgramProvider) Models() []Model {
	// from https://developers.deepgram.com/docs/models-languages-overview
	nova3Langs := []string{
		"ar", "be", "bs", "bg", "ca", "hr", "cs", "da", "nl", "en", "et", "fi",
		"fr", "de", "el", "hi", "hu", "id", "it", "ja", "kn", "ko", "lv", "lt",
		"mk", "ms", "mr", "no", "pl", "pt", "ro", "ru", "sr", "sk", "sl", "es",
		"sv", "tl", "ta", "tr", "uk", "vi",
	}
	nova2Langs := []string{
		"bg", "ca", "zh", "cs", "da", "nl", "en", "et", "fi", "fr", "de", "el",
		"hi", "hu", "id", "it", "ja", "ko", "lv", "lt", "ms", "no", "pl", "pt",
		"ro", "ru", "sk", "es", "sv", "th", "tr", "uk", "vi",
	}
	endpoint := &EndpointConfig{BaseURL: "wss://api.deepgram.com", Path: "/v1/listen"}

	return []Model{
		{
			ID:                 "nova-3",
			Name:               "Nova-3",
			Description:        "Best accuracy, 40+ languages, real-time",
			Streaming:          true,
			SupportedLanguages: nova3Langs,
			Endpoint:           endpoint,
		},
		{
			ID:                 "nova-2",
			Name:               "Nova-2",
			Description:        "Fast, 30+ languages",
			Streaming:          true,
			SupportedLanguages: nova2Langs,
			Endpoint:           endpoint,
		},
	}
}

func (p *DeepgramProvider) DefaultModel() string {
	return "nova-3"
}
