package tui

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprinterview/internal/config"
	"github.com/leonardotrapani/hyprinterview/internal/language"
	"github.com/leonardotrapani/hyprinterview/internal/provider"
)

type summaryLine struct {
	label string
	value string
}

func formatTranscriptionLabel(cfg *config.Config) string {
	t := cfg.Transcription
	return fmt.Sprintf("Transcription (%s %s, %s)", providerDisplayName(t.Provider), t.Model, language.Label(t.Language))
}

func formatProvidersLabel(cfg *config.Config) string {
	configured := configuredProviders(cfg)
	if len(configured) == 0 {
		return "Provider API keys (none set)"
	}
	return fmt.Sprintf("Provider API keys (%s)", strings.Join(configured, ", "))
}

func formatInterviewLabel(cfg *config.Config) string {
	return fmt.Sprintf("Interview (settle %s, max answer %s)", cfg.Interview.SettleDelay, cfg.Interview.MaxAnswerDuration)
}

func formatMediaLabel(cfg *config.Config) string {
	return fmt.Sprintf("Camera & microphone (%s)", cfg.Media.Camera)
}

func formatBackendLabel(cfg *config.Config) string {
	return fmt.Sprintf("Interview backend (%s)", cfg.API.BaseURL)
}

func formatNotificationsLabel(cfg *config.Config) string {
	if !cfg.Notifications.Enabled {
		return "Notifications (disabled)"
	}
	return fmt.Sprintf("Notifications (%s)", cfg.Notifications.Type)
}

func providerDisplayName(name string) string {
	if p := provider.GetProvider(name); p != nil {
		return p.DisplayName()
	}
	return name
}

// maskAPIKey returns a masked version of an API key for display
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// configuredProviders lists providers with a key in config or the environment, sorted.
func configuredProviders(cfg *config.Config) []string {
	var names []string
	for _, name := range provider.ListProviders() {
		if cfg.ResolveAPIKey(name) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func providerOptions(current string) []huh.Option[string] {
	var options []huh.Option[string]
	for _, name := range provider.ListProviders() {
		label := providerDisplayName(name)
		if name == current {
			label += " (current)"
		}
		options = append(options, huh.NewOption(label, name))
	}
	return options
}

func modelOptions(p provider.Provider, current string) []huh.Option[string] {
	var options []huh.Option[string]
	if p == nil {
		return options
	}
	for _, m := range p.Models() {
		label := fmt.Sprintf("%s - %s", m.Name, m.Description)
		if m.Streaming {
			label += " [live]"
		}
		if m.ID == current {
			label += " (current)"
		}
		options = append(options, huh.NewOption(label, m.ID))
	}
	return options
}

// languageOptions lists auto-detect first, then the languages the model accepts.
func languageOptions(model *provider.Model, current string) []huh.Option[string] {
	currentBase := language.Base(current)

	autoLabel := "Auto-detect"
	if current == "" {
		autoLabel += " (current)"
	}
	options := []huh.Option[string]{huh.NewOption(autoLabel, "")}

	codes := language.Codes()
	if model != nil && len(model.SupportedLanguages) > 0 {
		codes = model.SupportedLanguages
	}
	for _, code := range codes {
		value := code
		label := language.Label(code)
		if code == currentBase && current != "" {
			// keep a regional variant such as id-ID
			value = current
			label = language.Label(current) + " (current)"
		}
		options = append(options, huh.NewOption(label, value))
	}
	return options
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("not a duration (examples: 1s, 500ms, 2m)")
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func validatePositiveDuration(s string) error {
	if err := validateDuration(s); err != nil {
		return err
	}
	if d, _ := time.ParseDuration(strings.TrimSpace(s)); d == 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func validateBaseURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("must be an absolute http(s) URL")
	}
	return nil
}

func validateRetryCount(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("must be a whole number, 0 or more")
	}
	return nil
}

func summaryLines(cfg *config.Config) []summaryLine {
	t := cfg.Transcription
	lines := []summaryLine{
		{"Transcription", fmt.Sprintf("%s (%s)", providerDisplayName(t.Provider), t.Model)},
		{"Language", language.Label(t.Language)},
	}

	var keys []string
	for _, name := range configuredProviders(cfg) {
		keys = append(keys, fmt.Sprintf("%s %s", name, maskAPIKey(cfg.ResolveAPIKey(name))))
	}
	if len(keys) == 0 {
		keys = append(keys, "none")
	}
	lines = append(lines,
		summaryLine{"API keys", strings.Join(keys, ", ")},
		summaryLine{"Settle delay", cfg.Interview.SettleDelay.String()},
		summaryLine{"Max answer", cfg.Interview.MaxAnswerDuration.String()},
		summaryLine{"Camera", cfg.Media.Camera},
		summaryLine{"Backend", cfg.API.BaseURL},
	)

	if cfg.Notifications.Enabled {
		lines = append(lines, summaryLine{"Notifications", cfg.Notifications.Type})
	} else {
		lines = append(lines, summaryLine{"Notifications", "disabled"})
	}
	return lines
}
