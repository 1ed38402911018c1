package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprinterview/internal/config"
	"github.com/leonardotrapani/hyprinterview/internal/language"
	"github.com/leonardotrapani/hyprinterview/internal/notify"
	"github.com/leonardotrapani/hyprinterview/internal/provider"
)

// editTranscription picks provider, model and language, then asks for a key
// when the chosen provider has none yet.
func editTranscription(cfg *config.Config) {
	providerName := cfg.Transcription.Provider
	if err := runForm(
		huh.NewSelect[string]().
			Title("Transcription Provider").
			Description("Deepgram streams a live transcript; OpenAI transcribes after you stop").
			Options(providerOptions(cfg.Transcription.Provider)...).
			Value(&providerName),
	); err != nil {
		return
	}

	p := provider.GetProvider(providerName)
	model := cfg.Transcription.Model
	if providerName != cfg.Transcription.Provider || provider.FindModel(p, model) == nil {
		model = p.DefaultModel()
	}

	if err := runForm(
		huh.NewSelect[string]().
			Title("Model").
			Options(modelOptions(p, model)...).
			Value(&model),
	); err != nil {
		return
	}

	m := provider.FindModel(p, model)
	lang := cfg.Transcription.Language
	if !m.SupportsLanguage(language.Base(lang)) {
		lang = ""
	}
	if err := runForm(
		huh.NewSelect[string]().
			Title("Answer Language").
			Description("Language the candidate answers in").
			Options(languageOptions(m, lang)...).
			Height(12).
			Value(&lang),
	); err != nil {
		return
	}

	if p.RequiresAPIKey() && cfg.ResolveAPIKey(providerName) == "" {
		key, err := inputAPIKey(p)
		if err != nil {
			return
		}
		cfg.Providers[providerName] = config.ProviderConfig{APIKey: key}
	}

	cfg.Transcription.Provider = providerName
	cfg.Transcription.Model = model
	cfg.Transcription.Language = lang
}

func editProviders(cfg *config.Config) {
	for {
		var options []huh.Option[string]
		for _, name := range provider.ListProviders() {
			label := providerDisplayName(name)
			if key := cfg.ResolveAPIKey(name); key != "" {
				label += " " + StyleMuted.Render(maskAPIKey(key))
			} else {
				label += " " + StyleMuted.Render("(not set)")
			}
			options = append(options, huh.NewOption(label, name))
		}
		options = append(options, huh.NewOption("Done", ""))

		var selected string
		if err := runForm(
			huh.NewSelect[string]().
				Title("Provider API Keys").
				Description(fmt.Sprintf("Keys can also come from %s or %s", provider.EnvDeepgramKey, provider.EnvOpenAIKey)).
				Options(options...).
				Value(&selected),
		); err != nil || selected == "" {
			return
		}

		key, err := inputAPIKey(provider.GetProvider(selected))
		if err != nil {
			continue
		}
		cfg.Providers[selected] = config.ProviderConfig{APIKey: key}
	}
}

func inputAPIKey(p provider.Provider) (string, error) {
	var apiKey string
	if err := runForm(
		huh.NewInput().
			Title(fmt.Sprintf("%s API Key", p.DisplayName())).
			Description(fmt.Sprintf("Enter your %s API key", p.DisplayName())).
			EchoMode(huh.EchoModePassword).
			Value(&apiKey).
			Validate(func(s string) error {
				if s == "" {
					return fmt.Errorf("API key is required")
				}
				if !p.ValidateAPIKey(s) {
					return fmt.Errorf("invalid API key format for %s", p.DisplayName())
				}
				return nil
			}),
	); err != nil {
		return "", err
	}
	return strings.TrimSpace(apiKey), nil
}

func editInterview(cfg *config.Config) {
	settle := cfg.Interview.SettleDelay.String()
	maxAnswer := cfg.Interview.MaxAnswerDuration.String()

	if err := runForm(
		huh.NewInput().
			Title("Settle Delay").
			Description("How long to keep showing the transcribing indicator after an answer is saved").
			Value(&settle).
			Validate(validateDuration),
		huh.NewInput().
			Title("Maximum Answer Length").
			Description("Recording stops by itself after this long").
			Value(&maxAnswer).
			Validate(validatePositiveDuration),
	); err != nil {
		return
	}

	cfg.Interview.SettleDelay, _ = time.ParseDuration(strings.TrimSpace(settle))
	cfg.Interview.MaxAnswerDuration, _ = time.ParseDuration(strings.TrimSpace(maxAnswer))
}

func editMedia(cfg *config.Config) {
	camera := cfg.Media.Camera
	checkMute := cfg.Media.CheckMute

	if err := runForm(
		huh.NewInput().
			Title("Camera Device").
			Description("V4L2 node used for the preview, e.g. /dev/video0").
			Value(&camera).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("camera device is required")
				}
				return nil
			}),
		huh.NewConfirm().
			Title("Warn when the microphone is muted?").
			Description("Checks the default source with wpctl before each answer").
			Value(&checkMute),
	); err != nil {
		return
	}

	cfg.Media.Camera = strings.TrimSpace(camera)
	cfg.Media.CheckMute = checkMute
}

func editBackend(cfg *config.Config) {
	baseURL := cfg.API.BaseURL
	var token string
	timeout := cfg.API.Timeout.String()
	retries := strconv.Itoa(cfg.API.RetryCount)

	tokenDesc := "Bearer token sent with every request. Leave empty to keep the current one"
	if cfg.API.Token == "" {
		tokenDesc = "Bearer token sent with every request. Leave empty for none"
	}

	if err := runForm(
		huh.NewInput().
			Title("Backend URL").
			Description("Questions are fetched from and answers submitted to this server").
			Value(&baseURL).
			Validate(validateBaseURL),
		huh.NewInput().
			Title("Access Token").
			Description(tokenDesc).
			EchoMode(huh.EchoModePassword).
			Value(&token),
		huh.NewInput().
			Title("Request Timeout").
			Value(&timeout).
			Validate(validatePositiveDuration),
		huh.NewInput().
			Title("Retries").
			Description("Extra attempts on network errors and 5xx responses").
			Value(&retries).
			Validate(validateRetryCount),
	); err != nil {
		return
	}

	cfg.API.BaseURL = strings.TrimSpace(baseURL)
	if token = strings.TrimSpace(token); token != "" {
		cfg.API.Token = token
	}
	cfg.API.Timeout, _ = time.ParseDuration(strings.TrimSpace(timeout))
	cfg.API.RetryCount, _ = strconv.Atoi(strings.TrimSpace(retries))
}

// editNotifications handles the notifications section with type and custom messages
func editNotifications(cfg *config.Config) {
	enabled := cfg.Notifications.Enabled

	if err := runForm(
		huh.NewConfirm().
			Title("Enable notifications?").
			Description("Announce recording, saved answers and submission results").
			Value(&enabled),
	); err != nil {
		return
	}

	cfg.Notifications.Enabled = enabled
	if !enabled {
		return
	}

	notifType := cfg.Notifications.Type
	if notifType == "" || notifType == "none" {
		notifType = "desktop"
	}

	typeOptions := []huh.Option[string]{
		huh.NewOption("Desktop notifications (notify-send)", "desktop"),
		huh.NewOption("Log only", "log"),
	}

	var customize bool
	if err := runForm(
		huh.NewSelect[string]().
			Title("Notification Type").
			Options(typeOptions...).
			Value(&notifType),
		huh.NewConfirm().
			Title("Customize notification messages?").
			Affirmative("Yes").
			Negative("No, use defaults").
			Value(&customize),
	); err != nil {
		return
	}

	cfg.Notifications.Type = notifType
	if customize {
		editNotificationMessages(cfg)
	}
}

func editNotificationMessages(cfg *config.Config) {
	for {
		resolved := cfg.Notifications.Messages.Resolve()

		var options []huh.Option[string]
		for _, def := range notify.MessageDefs {
			body := resolved[def.Type].Body
			if len(body) > 30 {
				body = body[:30] + "..."
			}
			options = append(options, huh.NewOption(fmt.Sprintf("%s: %q", def.ConfigKey, body), def.ConfigKey))
		}
		options = append(options, huh.NewOption("Back", ""))

		var selected string
		if err := runForm(
			huh.NewSelect[string]().
				Title("Notification Messages").
				Description("Select a message to edit").
				Options(options...).
				Value(&selected),
		); err != nil || selected == "" {
			return
		}

		editSingleMessage(cfg, selected)
	}
}

func editSingleMessage(cfg *config.Config, key string) {
	var def notify.MessageDef
	for _, d := range notify.MessageDefs {
		if d.ConfigKey == key {
			def = d
			break
		}
	}

	current, _ := cfg.Notifications.Messages.Get(key)
	title := firstNonEmpty(current.Title, def.DefaultTitle)
	body := firstNonEmpty(current.Body, def.DefaultBody)

	var fields []huh.Field
	if !def.IsError {
		fields = append(fields, huh.NewInput().
			Title("Title").
			Description(fmt.Sprintf("Default: %s", def.DefaultTitle)).
			Value(&title))
	}
	fields = append(fields, huh.NewInput().
		Title("Body").
		Description(fmt.Sprintf("Default: %s", def.DefaultBody)).
		Value(&body))

	if err := runForm(fields...); err != nil {
		return
	}

	cfg.Notifications.Messages.Set(key, config.MessageConfig{Title: title, Body: body})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
