package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/leonardotrapani/hyprinterview/internal/language"
	"github.com/leonardotrapani/hyprinterview/internal/provider"
)

func (c *Config) Validate() error {
	if c.Interview.SettleDelay < 0 {
		return fmt.Errorf("invalid interview.settle_delay: %v", c.Interview.SettleDelay)
	}
	if c.Interview.MaxAnswerDuration <= 0 {
		return fmt.Errorf("invalid interview.max_answer_duration: %v", c.Interview.MaxAnswerDuration)
	}

	if c.Media.Camera == "" {
		return fmt.Errorf("invalid media.camera: empty")
	}

	if err := c.ToRecordingConfig().Validate(); err != nil {
		return fmt.Errorf("invalid recording.%w", err)
	}

	if err := c.validateTranscription(); err != nil {
		return err
	}

	if c.API.BaseURL == "" {
		return fmt.Errorf("invalid api.base_url: empty")
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.base_url: %s (must be an absolute http(s) URL)", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("invalid api.timeout: %v", c.API.Timeout)
	}
	if c.API.RetryCount < 0 {
		return fmt.Errorf("invalid api.retry_count: %d", c.API.RetryCount)
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	if c.Logging.File != "" && c.Logging.MaxSizeMB <= 0 {
		return fmt.Errorf("invalid logging.max_size_mb: %d", c.Logging.MaxSizeMB)
	}

	return nil
}

func (c *Config) validateTranscription() error {
	t := c.Transcription
	if t.Provider == "" {
		return fmt.Errorf("invalid transcription.provider: empty")
	}

	p := provider.GetProvider(t.Provider)
	if p == nil {
		return fmt.Errorf("unsupported transcription.provider: %s (must be one of %s)", t.Provider, strings.Join(provider.ListProviders(), ", "))
	}

	if p.RequiresAPIKey() {
		apiKey := c.ResolveAPIKey(t.Provider)
		if apiKey == "" {
			return fmt.Errorf("%s API key required: not found in config (providers.%s.api_key) or environment variable (%s)",
				p.DisplayName(), t.Provider, provider.EnvVarForProvider(t.Provider))
		}
		if !p.ValidateAPIKey(apiKey) {
			return fmt.Errorf("invalid API key for %s", p.DisplayName())
		}
	}

	if t.Model == "" {
		return fmt.Errorf("invalid transcription.model: empty")
	}
	model := provider.FindModel(p, t.Model)
	if model == nil {
		return fmt.Errorf("invalid model for %s: %s", t.Provider, t.Model)
	}

	if !model.SupportsLanguage(language.Base(t.Language)) {
		return fmt.Errorf("invalid transcription.language: %s (not supported by %s)", t.Language, t.Model)
	}

	if t.FinalizeTimeout <= 0 {
		return fmt.Errorf("invalid transcription.finalize_timeout: %v", t.FinalizeTimeout)
	}

	return nil
}
