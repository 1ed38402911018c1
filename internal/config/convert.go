package config

import (
	"os"

	"github.com/leonardotrapani/hyprinterview/internal/media"
	"github.com/leonardotrapani/hyprinterview/internal/notify"
	"github.com/leonardotrapani/hyprinterview/internal/provider"
	"github.com/leonardotrapani/hyprinterview/internal/recording"
	"github.com/leonardotrapani/hyprinterview/internal/transcriber"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate:        c.Recording.SampleRate,
		Channels:          c.Recording.Channels,
		Format:            c.Recording.Format,
		BufferSize:        c.Recording.BufferSize,
		Device:            c.Recording.Device,
		ChannelBufferSize: c.Recording.ChannelBufferSize,
	}
}

func (c *Config) ToMediaConfig() media.SystemConfig {
	return media.SystemConfig{
		Camera:     c.Media.Camera,
		Microphone: c.ToRecordingConfig(),
		CheckMute:  c.Media.CheckMute,
	}
}

func (c *Config) ToTranscriberConfig() transcriber.Config {
	return transcriber.Config{
		Provider:        c.Transcription.Provider,
		APIKey:          c.ResolveAPIKey(c.Transcription.Provider),
		Model:           c.Transcription.Model,
		Language:        c.Transcription.Language,
		Endpoint:        c.Transcription.Endpoint,
		SampleRate:      c.Recording.SampleRate,
		MaxDuration:     c.Interview.MaxAnswerDuration,
		FinalizeTimeout: c.Transcription.FinalizeTimeout,
	}
}

// ResolveAPIKey returns the key for a provider from the config, then the environment
func (c *Config) ResolveAPIKey(providerName string) string {
	if c.Providers != nil {
		if pc, ok := c.Providers[providerName]; ok && pc.APIKey != "" {
			return pc.APIKey
		}
	}

	if envVar := provider.EnvVarForProvider(providerName); envVar != "" {
		return os.Getenv(envVar)
	}

	return ""
}

// NotifierKind is the backend name handed to notify.New, "none" when disabled.
func (c *Config) NotifierKind() string {
	if !c.Notifications.Enabled {
		return "none"
	}
	return c.Notifications.Type
}

func (c *Config) NewNotifier() notify.Notifier {
	return notify.New(c.NotifierKind(), c.Notifications.Messages.Resolve())
}
