package transcriber

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/language"
	"github.com/leonardotrapani/hyprinterview/internal/provider"
	"github.com/leonardotrapani/hyprinterview/internal/recording"
)

// Configuration for the transcriber
type Config struct {
	Provider        string
	APIKey          string
	Model           string
	Language        string
	Endpoint        string        // overrides the provider's base URL when set
	SampleRate      int           // must match the recorder
	MaxDuration     time.Duration // hard ceiling for one session
	FinalizeTimeout time.Duration // how long to wait for the engine to flush on stop
}

func DefaultConfig() Config {
	return Config{
		Provider:        provider.ProviderDeepgram,
		Model:           "nova-3",
		Language:        "id",
		SampleRate:      16000,
		MaxDuration:     120 * time.Second,
		FinalizeTimeout: 10 * time.Second,
	}
}

// NewEngine resolves cfg against the provider registry. Anything that makes
// recognition impossible up front comes back as *UnsupportedError.
func NewEngine(cfg Config) (Engine, error) {
	p := provider.GetProvider(cfg.Provider)
	if p == nil {
		return nil, &UnsupportedError{Provider: cfg.Provider, Reason: "unknown provider"}
	}
	if p.RequiresAPIKey() && cfg.APIKey == "" {
		return nil, &UnsupportedError{Provider: cfg.Provider, Reason: "API key not configured"}
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = p.DefaultModel()
	}
	model := provider.FindModel(p, modelID)
	if model == nil {
		return nil, &UnsupportedError{Provider: cfg.Provider, Reason: fmt.Sprintf("unknown model %q", modelID)}
	}
	if !model.SupportsLanguage(language.Base(cfg.Language)) {
		return nil, &UnsupportedError{Provider: cfg.Provider, Reason: fmt.Sprintf("model %s does not support language %q", modelID, cfg.Language)}
	}

	switch p.Name() {
	case provider.ProviderDeepgram:
		endpoint := *model.Endpoint
		if cfg.Endpoint != "" {
			endpoint.BaseURL = cfg.Endpoint
		}
		return NewDeepgramEngine(&endpoint, cfg.APIKey, modelID, cfg.Language, cfg.SampleRate), nil
	case provider.ProviderOpenAI:
		return NewOpenAIEngine(cfg.APIKey, cfg.Endpoint, modelID, cfg.Language, cfg.SampleRate), nil
	default:
		return nil, &UnsupportedError{Provider: cfg.Provider, Reason: "no engine for provider"}
	}
}

// Transcriber runs one recognition session at a time over a live audio channel.
// onFinal fires exactly once per successful Start.
type Transcriber struct {
	config    Config
	newEngine EngineFactory

	mu       sync.Mutex
	run      *session
	starting bool // engine dial in progress, mu is not held across it
}

func New(config Config) *Transcriber {
	return NewWithEngine(config, NewEngine)
}

// NewWithEngine uses factory instead of the provider registry.
func NewWithEngine(config Config, factory EngineFactory) *Transcriber {
	if config.MaxDuration <= 0 {
		config.MaxDuration = DefaultConfig().MaxDuration
	}
	if config.FinalizeTimeout <= 0 {
		config.FinalizeTimeout = DefaultConfig().FinalizeTimeout
	}
	return &Transcriber{config: config, newEngine: factory}
}

// Start begins a session. It fails synchronously when recognition is unavailable.
// Cancelling ctx aborts the engine dial; Stop has nothing to stop until Start returns.
func (t *Transcriber) Start(ctx context.Context, audio <-chan recording.AudioFrame, onInterim, onFinal func(string)) error {
	t.mu.Lock()
	if t.run != nil || t.starting {
		t.mu.Unlock()
		return ErrAlreadyRunning
	}
	engine, err := t.newEngine(t.config)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	t.starting = true
	t.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	err = engine.Start(runCtx, t.config.Language)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.starting = false
	if err != nil {
		cancel()
		return fmt.Errorf("start engine: %w", err)
	}

	s := &session{
		owner:        t,
		engine:       engine,
		cancel:       cancel,
		onInterim:    onInterim,
		onFinal:      onFinal,
		stopAudio:    make(chan struct{}),
		senderDone:   make(chan struct{}),
		receiverDone: make(chan struct{}),
		done:         make(chan struct{}),
	}
	s.ceiling = time.AfterFunc(t.config.MaxDuration, func() {
		s.end(true, "max duration reached")
	})
	t.run = s

	go s.sendAudio(audio)
	go s.receiveResults()
	go func() {
		select {
		case <-runCtx.Done():
			s.end(false, "context done")
		case <-s.done:
		}
	}()

	log.Printf("Transcriber: session started (provider=%s, language=%s)", t.config.Provider, t.config.Language)
	return nil
}

// Stop requests an orderly end. No-op when nothing is running.
func (t *Transcriber) Stop() {
	t.mu.Lock()
	s := t.run
	t.mu.Unlock()
	if s != nil {
		s.end(true, "stop requested")
	}
}

// Wait blocks until the running session, if any, has delivered its final text.
func (t *Transcriber) Wait() {
	t.mu.Lock()
	s := t.run
	t.mu.Unlock()
	if s != nil {
		<-s.done
	}
}

func (t *Transcriber) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.run != nil
}

func (t *Transcriber) clear(s *session) {
	t.mu.Lock()
	if t.run == s {
		t.run = nil
	}
	t.mu.Unlock()
}

type session struct {
	owner     *Transcriber
	engine    Engine
	cancel    context.CancelFunc
	onInterim func(string)
	onFinal   func(string)
	ceiling   *time.Timer

	stopAudio    chan struct{}
	senderDone   chan struct{}
	receiverDone chan struct{}
	done         chan struct{}
	endOnce      sync.Once

	mu       sync.Mutex
	segments []string
}

func (s *session) sendAudio(audio <-chan recording.AudioFrame) {
	defer close(s.senderDone)
	for {
		select {
		case <-s.stopAudio:
			return
		case frame, ok := <-audio:
			if !ok {
				s.end(true, "audio ended")
				return
			}
			if err := s.engine.SendChunk(frame.Data); err != nil {
				// the engine reports a lost session through Results
				log.Printf("Transcriber: send error: %v", err)
			}
		}
	}
}

func (s *session) receiveResults() {
	defer close(s.receiverDone)
	for res := range s.engine.Results() {
		if res.Error != nil {
			log.Printf("Transcriber: engine error, ending session: %v", res.Error)
			s.end(false, "engine error")
			continue
		}
		if res.IsFinal {
			s.appendSegment(res.Text)
			s.interim(s.text())
			continue
		}
		s.interim(joinText(s.text(), res.Text))
	}
	s.end(false, "engine closed")
}

func (s *session) interim(text string) {
	if s.onInterim != nil && text != "" {
		s.onInterim(text)
	}
}

func (s *session) appendSegment(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.mu.Lock()
	s.segments = append(s.segments, text)
	s.mu.Unlock()
}

func (s *session) text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.segments, " ")
}

// end runs the shutdown sequence once, whichever trigger comes first.
func (s *session) end(finalize bool, reason string) {
	s.endOnce.Do(func() {
		log.Printf("Transcriber: ending session: %s", reason)
		go s.finish(finalize)
	})
}

func (s *session) finish(finalize bool) {
	s.ceiling.Stop()

	close(s.stopAudio)
	<-s.senderDone

	if finalize {
		ctx, cancel := context.WithTimeout(context.Background(), s.owner.config.FinalizeTimeout)
		if err := s.engine.Finalize(ctx); err != nil {
			log.Printf("Transcriber: finalize: %v", err)
		}
		cancel()
	}

	if err := s.engine.Close(); err != nil {
		log.Printf("Transcriber: close engine: %v", err)
	}
	<-s.receiverDone
	s.cancel()

	s.owner.clear(s)
	text := strings.TrimSpace(s.text())
	log.Printf("Transcriber: session ended with %d characters", len(text))
	if s.onFinal != nil {
		s.onFinal(text)
	}
	close(s.done)
}

func joinText(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
