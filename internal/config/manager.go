package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// editors emit several events per save; they collapse into one reload
const reloadDebounce = 150 * time.Millisecond

// Manager owns the live configuration and swaps it when the file changes.
// A reload that fails to load or validate leaves the current config alone.
type Manager struct {
	mu        sync.RWMutex
	current   *Config
	listeners []func(*Config)

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

func NewManager() (*Manager, error) {
	cfg, err := Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		// the daemon still starts so `configure` can fix it
		log.Printf("Config: %v", err)
	}
	return &Manager{current: cfg}, nil
}

// NewStaticManager serves cfg as is and never watches the file.
func NewStaticManager(cfg *Config) *Manager {
	return &Manager{current: cfg}
}

// GetConfig returns a shallow copy.
func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := *m.current
	return &cp
}

func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// StartWatching watches the config directory rather than the file, since
// Save replaces the file by rename.
func (m *Manager) StartWatching(ctx context.Context) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	m.watcher = w

	m.wg.Add(1)
	go m.watch(ctx, filepath.Base(path))

	log.Printf("Config: watching %s", path)
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watch(ctx context.Context, name string) {
	defer m.wg.Done()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) == name && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				pending = time.After(reloadDebounce)
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Config: watcher error: %v", err)

		case <-pending:
			pending = nil
			m.reload()
		}
	}
}

func (m *Manager) reload() {
	cfg, err := Load()
	if err != nil {
		log.Printf("Config: reload failed: %v", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("Config: keeping previous config: %v", err)
		return
	}

	m.mu.Lock()
	m.current = cfg
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	log.Printf("Config: reloaded")
	for _, fn := range listeners {
		fn(cfg)
	}
}
