package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

var ErrConfigNotFound = errors.New("config not found")

const saveHeader = "# Hyprinterview Configuration\n# Changes are picked up by the daemon without a restart.\n\n"

// GetConfigPath returns $XDG_CONFIG_HOME/hyprinterview/config.toml, creating
// the directory on the way.
func GetConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	dir := filepath.Join(base, "hyprinterview")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the user config, writing the commented defaults first when
// there is no file yet.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	_, err = os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("Config: creating %s with defaults", path)
		if err := SaveDefaultConfig(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return LoadFile(path)
}

// LoadFile decodes path over DefaultConfig, so omitted keys keep defaults.
// Unknown keys are logged, not rejected.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for _, key := range meta.Undecoded() {
		log.Printf("Config: ignoring unknown key %q in %s", key.String(), path)
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	return cfg, nil
}

// Save encodes cfg to the user config path.
func Save(cfg *Config) error {
	var buf bytes.Buffer
	buf.WriteString(saveHeader)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return writeConfig(buf.Bytes())
}

func SaveDefaultConfig() error {
	return writeConfig([]byte(defaultConfigContent))
}

// writeConfig replaces the config file by rename so the watcher never sees
// a half-written file. Mode 0600 because it may hold API keys.
func writeConfig(data []byte) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace config: %w", err)
	}
	log.Printf("Config: wrote %s", path)
	return nil
}

const defaultConfigContent = `# Hyprinterview Configuration
# This file is automatically generated with defaults.
# Edit values as needed - changes are applied to the next interview session.

# Session behaviour
[interview]
  settle_delay = "1s"          # How long the UI shows "transcribing" after a stop
  max_answer_duration = "2m"   # Hard ceiling for a single answer

# Camera and microphone
[media]
  camera = "/dev/video0"       # V4L2 camera node
  check_mute = true            # Warn when the default PipeWire source is muted

# Audio Recording Configuration
[recording]
  sample_rate = 16000          # Audio sample rate in Hz (16000 recommended for speech)
  channels = 1                 # Number of audio channels (1 = mono)
  format = "s16"               # Audio format (s16 = 16-bit signed integers)
  buffer_size = 8192           # Internal buffer size in bytes
  device = ""                  # PipeWire audio device (empty = use default microphone)
  channel_buffer_size = 30     # Audio frame buffer size (frames to buffer)

# Speech Transcription Configuration
[transcription]
  provider = "deepgram"        # "deepgram" (streaming) or "openai" (batch)
  model = "nova-3"             # Provider model name
  language = "id"              # Language code, e.g. "id", "en-US"
  finalize_timeout = "10s"     # How long to wait for the last transcript on stop

# API keys (or set DEEPGRAM_API_KEY / OPENAI_API_KEY)
[providers.deepgram]
  api_key = ""

# Interview backend
[api]
  base_url = "http://127.0.0.1:8080"
  token = ""                   # Sent as a bearer token when set
  timeout = "15s"
  retry_count = 2

# Desktop Notification Configuration
[notifications]
  enabled = true               # Enable notifications
  type = "desktop"             # Notification type ("desktop", "log", "none")

# Daemon log file (empty = stderr)
[logging]
  file = ""
  max_size_mb = 10
  max_backups = 3
  max_age_days = 28
`
