package config

import (
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/provider"
)

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Interview: InterviewConfig{
			SettleDelay:       time.Second,
			MaxAnswerDuration: 120 * time.Second,
		},
		Media: MediaConfig{
			Camera:    "/dev/video0",
			CheckMute: true,
		},
		Recording: RecordingConfig{
			SampleRate:        16000,
			Channels:          1,
			Format:            "s16",
			BufferSize:        8192,
			Device:            "",
			ChannelBufferSize: 30,
		},
		Transcription: TranscriptionConfig{
			Provider:        provider.ProviderDeepgram,
			Model:           "nova-3",
			Language:        "id",
			FinalizeTimeout: 10 * time.Second,
		},
		Providers: make(map[string]ProviderConfig),
		API: APIConfig{
			BaseURL:    "http://127.0.0.1:8080",
			Timeout:    15 * time.Second,
			RetryCount: 2,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
		Logging: LoggingConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}
