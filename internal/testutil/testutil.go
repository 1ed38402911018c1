package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/config"
	"github.com/leonardotrapani/hyprinterview/internal/interview"
	"github.com/leonardotrapani/hyprinterview/internal/media"
	"github.com/leonardotrapani/hyprinterview/internal/notify"
	"github.com/leonardotrapani/hyprinterview/internal/recording"
	"github.com/leonardotrapani/hyprinterview/internal/transcriber"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	return &config.Config{
		Interview: config.InterviewConfig{
			SettleDelay:       10 * time.Millisecond,
			MaxAnswerDuration: 120 * time.Second,
		},
		Media: config.MediaConfig{
			Camera: "/dev/video0",
		},
		Recording: config.RecordingConfig{
			SampleRate:        16000,
			Channels:          1,
			Format:            "s16",
			BufferSize:        8192,
			Device:            "",
			ChannelBufferSize: 30,
		},
		Transcription: config.TranscriptionConfig{
			Provider:        "deepgram",
			Model:           "nova-3",
			Language:        "id",
			FinalizeTimeout: 5 * time.Second,
		},
		Providers: map[string]config.ProviderConfig{
			"deepgram": {APIKey: "test-api-key"},
		},
		API: config.APIConfig{
			BaseURL:    "http://127.0.0.1:8080",
			Timeout:    5 * time.Second,
			RetryCount: 0,
		},
		Notifications: config.NotificationsConfig{
			Enabled: true,
			Type:    "log",
		},
	}
}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	return configPath
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("Condition not met within %v", timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// MockAudioFrame creates a test audio frame
func MockAudioFrame(data []byte) recording.AudioFrame {
	if data == nil {
		data = make([]byte, 1024)
		for i := range data {
			data[i] = byte(i % 256)
		}
	}
	return recording.AudioFrame{Data: data, Timestamp: time.Now()}
}

// FakeStream implements media.Stream. Stop closes the audio channel.
type FakeStream struct {
	TrackList []media.Track
	Name      string

	audio    chan recording.AudioFrame
	stopOnce sync.Once
	stopped  chan struct{}
}

func NewFakeStream(tracks []media.Track) *FakeStream {
	return &FakeStream{
		TrackList: tracks,
		Name:      "fake-camera",
		audio:     make(chan recording.AudioFrame, 8),
		stopped:   make(chan struct{}),
	}
}

func (s *FakeStream) Tracks() []media.Track              { return s.TrackList }
func (s *FakeStream) Audio() <-chan recording.AudioFrame { return s.audio }
func (s *FakeStream) Preview() string                    { return s.Name }

func (s *FakeStream) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stopped)
		close(s.audio)
	})
	return nil
}

func (s *FakeStream) Stopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

// DefaultTracks is a working camera and an unmuted microphone.
func DefaultTracks() []media.Track {
	return []media.Track{
		{Kind: media.KindVideo, Label: "fake-camera", Enabled: true},
		{Kind: media.KindAudio, Label: "fake-microphone", Enabled: true},
	}
}

// FakeDevice implements media.Device. When Block is set, Open waits for it to
// be closed or for the context to end.
type FakeDevice struct {
	mu      sync.Mutex
	Err     error
	Tracks  []media.Track
	Block   chan struct{}
	streams []*FakeStream
}

func NewFakeDevice() *FakeDevice {
	return &FakeDevice{Tracks: DefaultTracks()}
}

func (d *FakeDevice) Open(ctx context.Context) (media.Stream, error) {
	d.mu.Lock()
	block, err, tracks := d.Block, d.Err, d.Tracks
	d.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	s := NewFakeStream(tracks)
	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.mu.Unlock()
	return s, nil
}

func (d *FakeDevice) SetErr(err error) {
	d.mu.Lock()
	d.Err = err
	d.mu.Unlock()
}

func (d *FakeDevice) SetBlock(block chan struct{}) {
	d.mu.Lock()
	d.Block = block
	d.mu.Unlock()
}

func (d *FakeDevice) Streams() []*FakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*FakeStream(nil), d.streams...)
}

// FakeEngine implements transcriber.Engine with results pushed by the test.
type FakeEngine struct {
	StartErr error
	// FlushText is emitted as a final segment when Finalize is called
	FlushText string

	mu        sync.Mutex
	gate      chan struct{} // Start blocks until closed, like a slow dial
	aborted   bool
	chunks    int
	finalized int
	closed    bool
	results   chan transcriber.TranscriptionResult
}

func NewFakeEngine() *FakeEngine {
	return &FakeEngine{results: make(chan transcriber.TranscriptionResult, 32)}
}

func (e *FakeEngine) Start(ctx context.Context, language string) error {
	e.mu.Lock()
	gate := e.gate
	e.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			e.mu.Lock()
			e.aborted = true
			e.mu.Unlock()
			return ctx.Err()
		}
	}
	return e.StartErr
}

// Aborted reports whether Start gave up because its context ended.
func (e *FakeEngine) Aborted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aborted
}

func (e *FakeEngine) SendChunk(audio []byte) error {
	e.mu.Lock()
	e.chunks++
	e.mu.Unlock()
	return nil
}

func (e *FakeEngine) Results() <-chan transcriber.TranscriptionResult {
	return e.results
}

func (e *FakeEngine) Finalize(ctx context.Context) error {
	e.mu.Lock()
	e.finalized++
	flush := e.FlushText
	e.mu.Unlock()
	if flush != "" {
		e.emit(transcriber.TranscriptionResult{Text: flush, IsFinal: true})
	}
	return nil
}

func (e *FakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.results)
	}
	return nil
}

func (e *FakeEngine) emit(res transcriber.TranscriptionResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.results <- res
	}
}

// Interim pushes an interim hypothesis.
func (e *FakeEngine) Interim(text string) {
	e.emit(transcriber.TranscriptionResult{Text: text})
}

// Final pushes a finalized segment.
func (e *FakeEngine) Final(text string) {
	e.emit(transcriber.TranscriptionResult{Text: text, IsFinal: true})
}

// Fail pushes a mid-session engine error.
func (e *FakeEngine) Fail(err error) {
	e.emit(transcriber.TranscriptionResult{Error: err})
}

// End simulates the engine closing the session on its own.
func (e *FakeEngine) End() {
	e.Close()
}

func (e *FakeEngine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *FakeEngine) Finalized() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finalized
}

// EngineFactory hands out a fresh FakeEngine per session and remembers them.
type EngineFactory struct {
	mu      sync.Mutex
	Err     error
	gate    chan struct{}
	engines []*FakeEngine
}

func (f *EngineFactory) New(cfg transcriber.Config) (transcriber.Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	e := NewFakeEngine()
	e.gate = f.gate
	f.engines = append(f.engines, e)
	return e, nil
}

// SetStartGate makes engines created afterwards block in Start until gate is
// closed. nil restores immediate starts.
func (f *EngineFactory) SetStartGate(gate chan struct{}) {
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()
}

func (f *EngineFactory) SetErr(err error) {
	f.mu.Lock()
	f.Err = err
	f.mu.Unlock()
}

// Last returns the most recent engine, or nil.
func (f *EngineFactory) Last() *FakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.engines) == 0 {
		return nil
	}
	return f.engines[len(f.engines)-1]
}

func (f *EngineFactory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.engines)
}

// MockSubmitter records submissions and fails with Err when set.
type MockSubmitter struct {
	mu          sync.Mutex
	Err         error
	Submissions []interview.Submission
}

func (m *MockSubmitter) Submit(ctx context.Context, sub interview.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Submissions = append(m.Submissions, sub)
	return m.Err
}

func (m *MockSubmitter) SetErr(err error) {
	m.mu.Lock()
	m.Err = err
	m.mu.Unlock()
}

func (m *MockSubmitter) Calls() []interview.Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]interview.Submission(nil), m.Submissions...)
}

// RecordingNotifier collects sent message types.
type RecordingNotifier struct {
	mu   sync.Mutex
	Sent []notify.MessageType
	Errs []string
}

func (n *RecordingNotifier) Send(mt notify.MessageType, args ...any) {
	n.mu.Lock()
	n.Sent = append(n.Sent, mt)
	n.mu.Unlock()
}

func (n *RecordingNotifier) Notify(title, message string) {}

func (n *RecordingNotifier) Error(msg string) {
	n.mu.Lock()
	n.Errs = append(n.Errs, msg)
	n.mu.Unlock()
}

// Count returns how many times mt was sent.
func (n *RecordingNotifier) Count(mt notify.MessageType) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, sent := range n.Sent {
		if sent == mt {
			count++
		}
	}
	return count
}
