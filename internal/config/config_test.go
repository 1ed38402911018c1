package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/notify"
)

// createTestConfig returns a valid configuration for testing
func createTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Providers["deepgram"] = ProviderConfig{APIKey: "test-api-key"}
	cfg.Notifications.Type = "log"
	return cfg
}

func setConfigHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("DEEPGRAM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	return dir
}

func writeTestConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "hyprinterview", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create config directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "valid config", modify: func(*Config) {}},
		{name: "zero settle delay is allowed", modify: func(c *Config) { c.Interview.SettleDelay = 0 }},
		{
			name:    "negative settle delay",
			modify:  func(c *Config) { c.Interview.SettleDelay = -time.Second },
			wantErr: "interview.settle_delay",
		},
		{
			name:    "zero max answer duration",
			modify:  func(c *Config) { c.Interview.MaxAnswerDuration = 0 },
			wantErr: "interview.max_answer_duration",
		},
		{
			name:    "empty camera",
			modify:  func(c *Config) { c.Media.Camera = "" },
			wantErr: "media.camera",
		},
		{
			name:    "invalid sample rate",
			modify:  func(c *Config) { c.Recording.SampleRate = 0 },
			wantErr: "recording.sample_rate",
		},
		{
			name:    "invalid channels",
			modify:  func(c *Config) { c.Recording.Channels = -1 },
			wantErr: "recording.channels",
		},
		{
			name:    "invalid buffer size",
			modify:  func(c *Config) { c.Recording.BufferSize = 0 },
			wantErr: "recording.buffer_size",
		},
		{
			name:    "invalid channel buffer size",
			modify:  func(c *Config) { c.Recording.ChannelBufferSize = 0 },
			wantErr: "recording.channel_buffer_size",
		},
		{
			name:    "empty format",
			modify:  func(c *Config) { c.Recording.Format = "" },
			wantErr: "recording.format",
		},
		{
			name:    "empty provider",
			modify:  func(c *Config) { c.Transcription.Provider = "" },
			wantErr: "transcription.provider",
		},
		{
			name:    "unknown provider",
			modify:  func(c *Config) { c.Transcription.Provider = "webspeech" },
			wantErr: "unsupported transcription.provider",
		},
		{
			name:    "missing API key",
			modify:  func(c *Config) { delete(c.Providers, "deepgram") },
			wantErr: "DEEPGRAM_API_KEY",
		},
		{
			name: "openai key without sk prefix",
			modify: func(c *Config) {
				c.Transcription.Provider = "openai"
				c.Transcription.Model = "whisper-1"
				c.Providers["openai"] = ProviderConfig{APIKey: "bad"}
			},
			wantErr: "invalid API key",
		},
		{
			name: "openai valid",
			modify: func(c *Config) {
				c.Transcription.Provider = "openai"
				c.Transcription.Model = "whisper-1"
				c.Providers["openai"] = ProviderConfig{APIKey: "sk-test"}
			},
		},
		{
			name:    "unknown model",
			modify:  func(c *Config) { c.Transcription.Model = "whisper-1" },
			wantErr: "invalid model for deepgram",
		},
		{
			name:    "unsupported language",
			modify:  func(c *Config) { c.Transcription.Language = "sw" },
			wantErr: "transcription.language",
		},
		{
			name:   "regional language uses base code",
			modify: func(c *Config) { c.Transcription.Language = "en-US" },
		},
		{
			name:    "zero finalize timeout",
			modify:  func(c *Config) { c.Transcription.FinalizeTimeout = 0 },
			wantErr: "transcription.finalize_timeout",
		},
		{
			name:    "relative base url",
			modify:  func(c *Config) { c.API.BaseURL = "/api" },
			wantErr: "api.base_url",
		},
		{
			name:    "zero api timeout",
			modify:  func(c *Config) { c.API.Timeout = 0 },
			wantErr: "api.timeout",
		},
		{
			name:    "negative retry count",
			modify:  func(c *Config) { c.API.RetryCount = -1 },
			wantErr: "api.retry_count",
		},
		{
			name:    "invalid notification type",
			modify:  func(c *Config) { c.Notifications.Type = "invalid" },
			wantErr: "notifications.type",
		},
		{
			name: "log file needs a size",
			modify: func(c *Config) {
				c.Logging.File = "/tmp/hyprinterview.log"
				c.Logging.MaxSizeMB = 0
			},
			wantErr: "logging.max_size_mb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DEEPGRAM_API_KEY", "")
			t.Setenv("OPENAI_API_KEY", "")

			cfg := createTestConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_APIKeyFromEnv(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "env-key")

	cfg := createTestConfig()
	delete(cfg.Providers, "deepgram")
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_ResolveAPIKey(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "env-key")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := createTestConfig()
	if got := cfg.ResolveAPIKey("deepgram"); got != "test-api-key" {
		t.Errorf("config key should win, got %q", got)
	}

	delete(cfg.Providers, "deepgram")
	if got := cfg.ResolveAPIKey("deepgram"); got != "env-key" {
		t.Errorf("env fallback = %q, want env-key", got)
	}
	if got := cfg.ResolveAPIKey("openai"); got != "" {
		t.Errorf("openai key = %q, want empty", got)
	}
	if got := cfg.ResolveAPIKey("unknown"); got != "" {
		t.Errorf("unknown provider key = %q, want empty", got)
	}
}

func TestConfig_Load(t *testing.T) {
	t.Run("creates default config when none exists", func(t *testing.T) {
		dir := setConfigHome(t)
		t.Setenv("DEEPGRAM_API_KEY", "test-api-key")

		config, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("Loaded config is invalid: %v", err)
		}

		configPath := filepath.Join(dir, "hyprinterview", "config.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			t.Errorf("Load() did not create config file")
		}
		if config.Interview.SettleDelay != time.Second {
			t.Errorf("SettleDelay = %v, want 1s", config.Interview.SettleDelay)
		}
		if config.Interview.MaxAnswerDuration != 2*time.Minute {
			t.Errorf("MaxAnswerDuration = %v, want 2m", config.Interview.MaxAnswerDuration)
		}
	})

	t.Run("loads existing config over defaults", func(t *testing.T) {
		dir := setConfigHome(t)
		writeTestConfig(t, dir, `[interview]
settle_delay = "250ms"

[transcription]
provider = "openai"
model = "gpt-4o-transcribe"
language = "en"

[providers.openai]
api_key = "sk-from-file"

[api]
base_url = "https://interviews.example.com"
token = "secret"

[notifications.messages.answer_saved]
title = "Tersimpan"
`)

		config, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
		if config.Interview.SettleDelay != 250*time.Millisecond {
			t.Errorf("SettleDelay = %v", config.Interview.SettleDelay)
		}
		if config.Interview.MaxAnswerDuration != 2*time.Minute {
			t.Errorf("omitted MaxAnswerDuration should keep default, got %v", config.Interview.MaxAnswerDuration)
		}
		if config.Recording.SampleRate != 16000 {
			t.Errorf("omitted SampleRate should keep default, got %d", config.Recording.SampleRate)
		}
		if config.Transcription.Provider != "openai" || config.Transcription.Model != "gpt-4o-transcribe" {
			t.Errorf("Transcription = %+v", config.Transcription)
		}
		if config.API.BaseURL != "https://interviews.example.com" || config.API.Token != "secret" {
			t.Errorf("API = %+v", config.API)
		}
		if config.Notifications.Messages.AnswerSaved.Title != "Tersimpan" {
			t.Errorf("message override not loaded: %+v", config.Notifications.Messages.AnswerSaved)
		}
	})

	t.Run("invalid TOML", func(t *testing.T) {
		dir := setConfigHome(t)
		writeTestConfig(t, dir, "[interview\nsettle_delay = ")

		if _, err := Load(); err == nil {
			t.Error("Load() should fail on invalid TOML")
		}
	})
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil || !strings.Contains(err.Error(), "config not found") {
		t.Errorf("LoadFile() error = %v, want ErrConfigNotFound", err)
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	setConfigHome(t)

	cfg := createTestConfig()
	cfg.Interview.SettleDelay = 500 * time.Millisecond
	cfg.Transcription.Language = "en-US"
	cfg.API.Token = "tok"
	cfg.Notifications.Messages.RecordingStarted = MessageConfig{Title: "Rekam", Body: "Menjawab %d"}

	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Interview.SettleDelay != 500*time.Millisecond {
		t.Errorf("SettleDelay = %v", loaded.Interview.SettleDelay)
	}
	if loaded.Transcription.Language != "en-US" {
		t.Errorf("Language = %q", loaded.Transcription.Language)
	}
	if loaded.Providers["deepgram"].APIKey != "test-api-key" {
		t.Errorf("provider key lost: %+v", loaded.Providers)
	}
	if loaded.Notifications.Messages.RecordingStarted.Body != "Menjawab %d" {
		t.Errorf("message override lost: %+v", loaded.Notifications.Messages.RecordingStarted)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("saved config is invalid: %v", err)
	}

	path, _ := GetConfigPath()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config mode = %o, want 600", perm)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestGetConfigPath(t *testing.T) {
	dir := setConfigHome(t)

	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	expectedPath := filepath.Join(dir, "hyprinterview", "config.toml")
	if path != expectedPath {
		t.Errorf("GetConfigPath() = %s, want %s", path, expectedPath)
	}
	if _, err := os.Stat(filepath.Dir(path)); os.IsNotExist(err) {
		t.Errorf("GetConfigPath() did not create config directory")
	}
}

func TestConfig_ConversionMethods(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "")
	cfg := createTestConfig()
	cfg.Transcription.Endpoint = "ws://127.0.0.1:9999"

	rc := cfg.ToRecordingConfig()
	if rc.SampleRate != 16000 || rc.Channels != 1 || rc.Format != "s16" || rc.ChannelBufferSize != 30 {
		t.Errorf("ToRecordingConfig() = %+v", rc)
	}

	mc := cfg.ToMediaConfig()
	if mc.Camera != "/dev/video0" || !mc.CheckMute || mc.Microphone != rc {
		t.Errorf("ToMediaConfig() = %+v", mc)
	}

	tc := cfg.ToTranscriberConfig()
	if tc.Provider != "deepgram" || tc.Model != "nova-3" || tc.Language != "id" {
		t.Errorf("ToTranscriberConfig() = %+v", tc)
	}
	if tc.APIKey != "test-api-key" {
		t.Errorf("APIKey = %q", tc.APIKey)
	}
	if tc.SampleRate != 16000 || tc.MaxDuration != 2*time.Minute || tc.FinalizeTimeout != 10*time.Second {
		t.Errorf("timing fields = %+v", tc)
	}
	if tc.Endpoint != "ws://127.0.0.1:9999" {
		t.Errorf("Endpoint = %q", tc.Endpoint)
	}
}

func TestConfig_NotifierKind(t *testing.T) {
	cfg := createTestConfig()
	if got := cfg.NotifierKind(); got != "log" {
		t.Errorf("NotifierKind() = %q, want log", got)
	}
	cfg.Notifications.Enabled = false
	if got := cfg.NotifierKind(); got != "none" {
		t.Errorf("disabled NotifierKind() = %q, want none", got)
	}
	if _, ok := cfg.NewNotifier().(notify.Nop); !ok {
		t.Errorf("disabled notifications should yield Nop, got %T", cfg.NewNotifier())
	}
}

func TestMessagesConfig_Resolve_Defaults(t *testing.T) {
	var m MessagesConfig
	resolved := m.Resolve()

	if len(resolved) != len(notify.MessageDefs) {
		t.Errorf("Resolve() returned %d messages, want %d", len(resolved), len(notify.MessageDefs))
	}
	for _, def := range notify.MessageDefs {
		msg, ok := resolved[def.Type]
		if !ok {
			t.Errorf("missing message for %s", def.ConfigKey)
			continue
		}
		if msg.Title != def.DefaultTitle || msg.Body != def.DefaultBody || msg.IsError != def.IsError {
			t.Errorf("%s = %+v, want defaults", def.ConfigKey, msg)
		}
	}
}

func TestMessagesConfig_Resolve_CustomOverrides(t *testing.T) {
	m := MessagesConfig{
		AnswerSaved:      MessageConfig{Title: "Tersimpan"},
		SubmissionFailed: MessageConfig{Body: "Gagal: %s"},
	}
	resolved := m.Resolve()

	saved := resolved[notify.MsgAnswerSaved]
	if saved.Title != "Tersimpan" || saved.Body != "Answer %d saved" {
		t.Errorf("AnswerSaved = %+v", saved)
	}
	failed := resolved[notify.MsgSubmissionFailed]
	if failed.Body != "Gagal: %s" || !failed.IsError {
		t.Errorf("SubmissionFailed = %+v", failed)
	}
}

func TestMessagesConfig_CoversCatalogue(t *testing.T) {
	tags := map[string]bool{}
	rt := reflect.TypeOf(MessagesConfig{})
	for i := 0; i < rt.NumField(); i++ {
		tags[rt.Field(i).Tag.Get("toml")] = true
	}

	for _, def := range notify.MessageDefs {
		if !tags[def.ConfigKey] {
			t.Errorf("message %q has no config field", def.ConfigKey)
		}
	}
}

func TestMessagesConfig_GetSet(t *testing.T) {
	var m MessagesConfig
	if !m.Set("answer_saved", MessageConfig{Title: "Tersimpan", Body: "Jawaban %d"}) {
		t.Fatal("Set(answer_saved) = false")
	}
	if m.AnswerSaved.Title != "Tersimpan" {
		t.Errorf("AnswerSaved = %+v", m.AnswerSaved)
	}

	got, ok := m.Get("answer_saved")
	if !ok || got.Body != "Jawaban %d" {
		t.Errorf("Get(answer_saved) = %+v, %v", got, ok)
	}

	if m.Set("nope", MessageConfig{Title: "x"}) {
		t.Error("Set() accepted an unknown key")
	}
	if _, ok := m.Get("nope"); ok {
		t.Error("Get() found an unknown key")
	}
}

func TestManager_GetConfigReturnsCopy(t *testing.T) {
	m := NewStaticManager(createTestConfig())

	cfg := m.GetConfig()
	cfg.Transcription.Model = "changed"

	if m.GetConfig().Transcription.Model != "nova-3" {
		t.Error("GetConfig() should return a copy")
	}
}

func TestManager_ReloadsOnWrite(t *testing.T) {
	dir := setConfigHome(t)
	t.Setenv("DEEPGRAM_API_KEY", "test-api-key")
	path := writeTestConfig(t, dir, defaultConfigContent)

	m, err := NewManager()
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	reloaded := make(chan *Config, 16)
	m.OnReload(func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.StartWatching(ctx); err != nil {
		t.Fatalf("StartWatching() error = %v", err)
	}
	defer m.Stop()

	updated := strings.Replace(defaultConfigContent, `language = "id"`, `language = "en"`, 1)
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatalf("Failed to rewrite config: %v", err)
	}

	// a truncating write can surface an intermediate reload first
	timeout := time.After(3 * time.Second)
	for done := false; !done; {
		select {
		case c := <-reloaded:
			done = c.Transcription.Language == "en"
		case <-timeout:
			t.Fatal("config was not reloaded")
		}
	}
	if m.GetConfig().Transcription.Language != "en" {
		t.Error("GetConfig() should return the reloaded config")
	}
}

func TestManager_KeepsConfigOnInvalidReload(t *testing.T) {
	dir := setConfigHome(t)
	t.Setenv("DEEPGRAM_API_KEY", "test-api-key")
	writeTestConfig(t, dir, defaultConfigContent)

	m, err := NewManager()
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	writeTestConfig(t, dir, strings.Replace(defaultConfigContent, `type = "desktop"`, `type = "pager"`, 1))
	m.reload()

	if got := m.GetConfig().Notifications.Type; got != "desktop" {
		t.Errorf("invalid reload replaced config, type = %q", got)
	}
}

func TestManager_CoalescesBurstOfWrites(t *testing.T) {
	dir := setConfigHome(t)
	t.Setenv("DEEPGRAM_API_KEY", "test-api-key")
	path := writeTestConfig(t, dir, defaultConfigContent)

	m, err := NewManager()
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	var mu sync.Mutex
	reloads := 0
	m.OnReload(func(*Config) {
		mu.Lock()
		reloads++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.StartWatching(ctx); err != nil {
		t.Fatalf("StartWatching() error = %v", err)
	}
	defer m.Stop()

	for _, lang := range []string{"en", "de", "fr"} {
		content := strings.Replace(defaultConfigContent, `language = "id"`, `language = "`+lang+`"`, 1)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	time.Sleep(reloadDebounce * 4)
	mu.Lock()
	defer mu.Unlock()
	if reloads != 1 {
		t.Errorf("reloads = %d, want 1 for a burst of writes", reloads)
	}
	if got := m.GetConfig().Transcription.Language; got != "fr" {
		t.Errorf("language = %q, want the last write", got)
	}
}

func TestManager_ReloadNotifiesEveryListener(t *testing.T) {
	dir := setConfigHome(t)
	t.Setenv("DEEPGRAM_API_KEY", "test-api-key")
	writeTestConfig(t, dir, defaultConfigContent)

	m, err := NewManager()
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	var got []string
	m.OnReload(func(c *Config) { got = append(got, "first:"+c.Transcription.Language) })
	m.OnReload(func(c *Config) {
		got = append(got, "second:"+c.Transcription.Language)
		// listeners may register more listeners while being notified
		m.OnReload(func(*Config) { got = append(got, "late") })
	})

	writeTestConfig(t, dir, strings.Replace(defaultConfigContent, `language = "id"`, `language = "en"`, 1))
	m.reload()

	want := []string{"first:en", "second:en"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("listeners ran %v, want %v", got, want)
	}

	m.reload()
	if len(got) != 5 || got[4] != "late" {
		t.Errorf("second reload ran %v, want the late listener last", got)
	}
}
