package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrAlreadyRecording   = errors.New("microphone already capturing")
	ErrCaptureUnavailable = errors.New("audio capture unavailable")
)

type AudioFrame struct {
	Data      []byte
	Timestamp time.Time
}

// Config describes the raw PCM stream requested from PipeWire.
type Config struct {
	SampleRate        int
	Channels          int
	Format            string // pw-record sample format, e.g. s16
	BufferSize        int    // bytes per read
	Device            string // PipeWire target node; empty means default source
	ChannelBufferSize int    // frames queued before new ones are dropped
}

func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		Channels:          1,
		Format:            "s16",
		BufferSize:        8192,
		ChannelBufferSize: 30,
	}
}

// Validate names the offending field the way the config file spells it.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("sample_rate: %d", c.SampleRate)
	case c.Channels <= 0:
		return fmt.Errorf("channels: %d", c.Channels)
	case c.BufferSize <= 0:
		return fmt.Errorf("buffer_size: %d", c.BufferSize)
	case c.ChannelBufferSize <= 0:
		return fmt.Errorf("channel_buffer_size: %d", c.ChannelBufferSize)
	case c.Format == "":
		return fmt.Errorf("format: empty")
	}
	return nil
}

// Args is the pw-record command line writing PCM to stdout.
func (c Config) Args() []string {
	args := []string{
		"--format", c.Format,
		"--rate", strconv.Itoa(c.SampleRate),
		"--channels", strconv.Itoa(c.Channels),
	}
	if c.Device != "" {
		args = append(args, "--target", c.Device)
	}
	return append(args, "-")
}

// Microphone runs one pw-record process per capture and hands out its output
// as frames. A Microphone captures once at a time.
type Microphone struct {
	cfg    Config
	binary string
	active atomic.Bool

	mu     sync.Mutex // guards proc and cancel
	proc   *exec.Cmd
	cancel context.CancelFunc

	wg sync.WaitGroup
}

func NewMicrophone(cfg Config) *Microphone {
	return &Microphone{cfg: cfg, binary: "pw-record"}
}

func (m *Microphone) Capturing() bool {
	return m.active.Load()
}

// Start launches the capture process. Both channels are closed when capture
// ends, whether through Stop, ctx cancellation or a read failure.
func (m *Microphone) Start(ctx context.Context) (<-chan AudioFrame, <-chan error, error) {
	if m.active.Load() {
		return nil, nil, ErrAlreadyRecording
	}
	if err := m.cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid microphone config: %w", err)
	}
	if err := CheckPipeWire(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	captureCtx, cancel := context.WithCancel(ctx)
	frames := make(chan AudioFrame, m.cfg.ChannelBufferSize)
	errs := make(chan error, 1)

	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	m.active.Store(true)
	m.wg.Add(1)
	go m.run(captureCtx, frames, errs)

	return frames, errs, nil
}

// Stop asks the capture to end without waiting; Wait blocks until it has.
func (m *Microphone) Stop() {
	if m.active.Load() {
		m.abort()
	}
}

func (m *Microphone) Wait() {
	m.wg.Wait()
}

func (m *Microphone) run(ctx context.Context, frames chan<- AudioFrame, errs chan<- error) {
	defer m.finish(frames, errs)

	proc := exec.CommandContext(ctx, m.binary, m.cfg.Args()...)
	stdout, err := proc.StdoutPipe()
	if err != nil {
		m.fail(errs, fmt.Errorf("stdout pipe: %w", err))
		return
	}
	stderr, err := proc.StderrPipe()
	if err != nil {
		m.fail(errs, fmt.Errorf("stderr pipe: %w", err))
		return
	}

	m.mu.Lock()
	m.proc = proc
	m.mu.Unlock()

	if err := proc.Start(); err != nil {
		m.fail(errs, fmt.Errorf("start %s: %w", m.binary, err))
		return
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Printf("Microphone: %s", scanner.Text())
		}
	}()

	if err := m.pump(ctx, stdout, frames); err != nil {
		m.fail(errs, fmt.Errorf("read audio: %w", err))
	}
}

// pump copies reads into frames until EOF or cancellation. A full frame
// queue drops the newest read instead of blocking the pipe.
func (m *Microphone) pump(ctx context.Context, r io.Reader, frames chan<- AudioFrame) error {
	buf := make([]byte, m.cfg.BufferSize)
	var drops dropCounter

	for {
		n, err := r.Read(buf)
		if n > 0 {
			frame := AudioFrame{Data: append([]byte(nil), buf[:n]...), Timestamp: time.Now()}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return nil
			default:
				drops.add()
			}
		}
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (m *Microphone) finish(frames chan<- AudioFrame, errs chan<- error) {
	close(frames)
	close(errs)
	m.active.Store(false)

	m.mu.Lock()
	if m.proc != nil {
		_ = m.proc.Wait()
		m.proc = nil
	}
	m.cancel = nil
	m.mu.Unlock()

	m.wg.Done()
}

func (m *Microphone) fail(errs chan<- error, err error) {
	log.Printf("Microphone error: %v", err)
	select {
	case errs <- err:
	default:
	}
	m.abort()
}

func (m *Microphone) abort() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// dropCounter rate-limits the log line about frames the consumer missed.
type dropCounter struct {
	n    int
	last time.Time
}

func (d *dropCounter) add() {
	d.n++
	if time.Since(d.last) > time.Second {
		log.Printf("Microphone: dropped %d frames, transcription is not keeping up", d.n)
		d.last = time.Now()
		d.n = 0
	}
}

// CheckPipeWire verifies pw-record exists and the PipeWire daemon answers.
func CheckPipeWire(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := exec.CommandContext(checkCtx, "pw-cli", "info").Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}
