package config

import (
	"reflect"
	"sync"
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/notify"
)

type Config struct {
	Interview     InterviewConfig           `toml:"interview"`
	Media         MediaConfig               `toml:"media"`
	Recording     RecordingConfig           `toml:"recording"`
	Transcription TranscriptionConfig       `toml:"transcription"`
	Providers     map[string]ProviderConfig `toml:"providers"`
	API           APIConfig                 `toml:"api"`
	Notifications NotificationsConfig       `toml:"notifications"`
	Logging       LoggingConfig             `toml:"logging"`
}

// InterviewConfig tunes the session coordinator
type InterviewConfig struct {
	SettleDelay       time.Duration `toml:"settle_delay"`        // time spent in "transcribing" after a stop
	MaxAnswerDuration time.Duration `toml:"max_answer_duration"` // hard ceiling for one answer
}

type MediaConfig struct {
	Camera    string `toml:"camera"`     // V4L2 node, e.g. /dev/video0
	CheckMute bool   `toml:"check_mute"` // ask wpctl whether the default source is muted
}

type RecordingConfig struct {
	SampleRate        int    `toml:"sample_rate"`
	Channels          int    `toml:"channels"`
	Format            string `toml:"format"`
	BufferSize        int    `toml:"buffer_size"`
	Device            string `toml:"device"`
	ChannelBufferSize int    `toml:"channel_buffer_size"`
}

type TranscriptionConfig struct {
	Provider        string        `toml:"provider"`
	Model           string        `toml:"model"`
	Language        string        `toml:"language"`
	Endpoint        string        `toml:"endpoint"` // overrides the provider base URL, mostly for testing
	FinalizeTimeout time.Duration `toml:"finalize_timeout"`
}

// ProviderConfig holds API key for a provider
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
}

// APIConfig points at the interview backend
type APIConfig struct {
	BaseURL    string        `toml:"base_url"`
	Token      string        `toml:"token"`
	Timeout    time.Duration `toml:"timeout"`
	RetryCount int           `toml:"retry_count"`
}

type NotificationsConfig struct {
	Enabled  bool           `toml:"enabled"`
	Type     string         `toml:"type"` // "desktop", "log", "none"
	Messages MessagesConfig `toml:"messages"`
}

type LoggingConfig struct {
	File       string `toml:"file"` // empty keeps stderr
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

type MessageConfig struct {
	Title string `toml:"title"`
	Body  string `toml:"body"`
}

type MessagesConfig struct {
	InterviewLoaded    MessageConfig `toml:"interview_loaded"`
	RecordingStarted   MessageConfig `toml:"recording_started"`
	RecordingStopped   MessageConfig `toml:"recording_stopped"`
	AnswerSaved        MessageConfig `toml:"answer_saved"`
	DeviceWarning      MessageConfig `toml:"device_warning"`
	RecordingFailed    MessageConfig `toml:"recording_failed"`
	SubmissionComplete MessageConfig `toml:"submission_complete"`
	SubmissionFailed   MessageConfig `toml:"submission_failed"`
	ConfigReloaded     MessageConfig `toml:"config_reloaded"`
}

// messageFields maps toml keys of MessagesConfig to field indexes.
var messageFields = sync.OnceValue(func() map[string]int {
	t := reflect.TypeOf(MessagesConfig{})
	fields := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		fields[t.Field(i).Tag.Get("toml")] = i
	}
	return fields
})

// Get returns the override stored under a notify config key.
func (m *MessagesConfig) Get(key string) (MessageConfig, bool) {
	idx, ok := messageFields()[key]
	if !ok {
		return MessageConfig{}, false
	}
	return reflect.ValueOf(m).Elem().Field(idx).Interface().(MessageConfig), true
}

// Set stores an override under a notify config key and reports whether the
// key exists.
func (m *MessagesConfig) Set(key string, msg MessageConfig) bool {
	idx, ok := messageFields()[key]
	if !ok {
		return false
	}
	reflect.ValueOf(m).Elem().Field(idx).Set(reflect.ValueOf(msg))
	return true
}

// Resolve fills every message type, using overrides field by field.
func (m *MessagesConfig) Resolve() map[notify.MessageType]notify.Message {
	out := make(map[notify.MessageType]notify.Message, len(notify.MessageDefs))
	for _, def := range notify.MessageDefs {
		override, _ := m.Get(def.ConfigKey)
		msg := notify.Message{Title: def.DefaultTitle, Body: def.DefaultBody, IsError: def.IsError}
		if override.Title != "" {
			msg.Title = override.Title
		}
		if override.Body != "" {
			msg.Body = override.Body
		}
		out[def.Type] = msg
	}
	return out
}
