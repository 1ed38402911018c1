package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/leonardotrapani/hyprinterview/internal/api"
	"github.com/leonardotrapani/hyprinterview/internal/bus"
	"github.com/leonardotrapani/hyprinterview/internal/config"
	"github.com/leonardotrapani/hyprinterview/internal/interview"
	"github.com/leonardotrapani/hyprinterview/internal/media"
	"github.com/leonardotrapani/hyprinterview/internal/notify"
	"github.com/leonardotrapani/hyprinterview/internal/timer"
	"github.com/leonardotrapani/hyprinterview/internal/transcriber"
)

// SessionFactory builds the coordinator for a freshly loaded interview.
type SessionFactory func(cfg *config.Config, iv *api.Interview, n notify.Notifier) (*interview.Coordinator, error)

// Status is the payload of a STATUS reply.
type Status struct {
	Loaded bool `json:"loaded"`
	*interview.Snapshot
}

type Daemon struct {
	mu       sync.RWMutex
	config   *config.Manager
	notifier notify.Notifier
	factory  SessionFactory
	session  *interview.Coordinator

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Daemon)

func WithSessionFactory(f SessionFactory) Option {
	return func(d *Daemon) { d.factory = f }
}

func WithNotifier(n notify.Notifier) Option {
	return func(d *Daemon) { d.notifier = n }
}

func New(cfg *config.Manager, opts ...Option) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		config:  cfg,
		factory: NewSession,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.notifier == nil {
		d.notifier = cfg.GetConfig().NewNotifier()
	}

	cfg.OnReload(d.configReloaded)
	return d
}

// NewSession wires a coordinator to the system camera and microphone, the
// configured transcription provider and the interview backend.
func NewSession(cfg *config.Config, iv *api.Interview, n notify.Notifier) (*interview.Coordinator, error) {
	deps := interview.Deps{
		Media:       media.NewAcquirer(media.NewSystemDevice(cfg.ToMediaConfig())),
		Transcriber: transcriber.New(cfg.ToTranscriberConfig()),
		Timer:       timer.New(),
		Submitter:   newAPIClient(cfg),
		Notifier:    n,
	}
	return interview.New(iv.ID, iv.Questions, deps, interview.WithSettleDelay(cfg.Interview.SettleDelay))
}

func newAPIClient(cfg *config.Config) *api.Client {
	return api.New(api.Config{
		BaseURL:    cfg.API.BaseURL,
		Token:      cfg.API.Token,
		Timeout:    cfg.API.Timeout,
		RetryCount: cfg.API.RetryCount,
	})
}

func (d *Daemon) configReloaded(cfg *config.Config) {
	n := cfg.NewNotifier()
	d.mu.Lock()
	d.notifier = n
	d.mu.Unlock()
	n.Send(notify.MsgConfigReloaded)
}

func (d *Daemon) currentNotifier() notify.Notifier {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.notifier
}

func (d *Daemon) currentSession() *interview.Coordinator {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.session
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	if err := d.config.StartWatching(d.ctx); err != nil {
		log.Printf("Config watcher unavailable: %v", err)
	}
	defer d.config.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, shutting down gracefully", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	defer d.closeSession()

	log.Printf("Daemon started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("Shutdown requested")
				return nil
			}
			log.Printf("Accept error: %v", err)
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}

	fmt.Fprintf(c, "%s\n", d.Execute(line))
}

// Execute runs one protocol line and returns the reply without its newline.
func (d *Daemon) Execute(line string) string {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	if cmd == "" {
		return "ERR empty"
	}

	switch cmd {
	case "load":
		if arg == "" {
			return "ERR usage: load <file>"
		}
		iv, err := api.LoadFile(arg)
		if err != nil {
			return errReply(err)
		}
		return d.open(iv)

	case "fetch":
		if arg == "" {
			return "ERR usage: fetch <interview-id>"
		}
		iv, err := newAPIClient(d.config.GetConfig()).FetchInterview(d.ctx, arg)
		if err != nil {
			return errReply(err)
		}
		return d.open(iv)

	case "start", "retry":
		return d.withSession(func(s *interview.Coordinator) string {
			start := s.StartRecording
			if cmd == "retry" {
				start = s.RetryRecording
			}
			if err := start(d.ctx); err != nil {
				return errReply(err)
			}
			return "OK recording"
		})

	case "stop":
		return d.withSession(func(s *interview.Coordinator) string {
			if err := s.StopRecording(); err != nil {
				return errReply(err)
			}
			return "OK stopped"
		})

	case "goto":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return "ERR usage: goto <question-number>"
		}
		return d.withSession(func(s *interview.Coordinator) string {
			if err := s.GoToQuestion(d.ctx, n-1); err != nil {
				return errReply(err)
			}
			return fmt.Sprintf("OK question=%d", n)
		})

	case "next":
		return d.withSession(func(s *interview.Coordinator) string {
			if err := s.HandleNext(d.ctx); err != nil {
				return errReply(err)
			}
			select {
			case <-s.Done():
				return "OK submitted"
			default:
				return fmt.Sprintf("OK question=%d", s.Snapshot().Index+1)
			}
		})

	case "status":
		return d.status()

	case "close":
		if !d.closeSession() {
			return "ERR no interview loaded"
		}
		return "OK closed"

	case "version":
		return "STATUS proto=" + bus.ProtoVer

	case "quit":
		d.cancel()
		return "OK quitting"

	default:
		log.Printf("Unknown command: %s", cmd)
		return fmt.Sprintf("ERR unknown=%q", cmd)
	}
}

// open replaces the current session with one for iv.
func (d *Daemon) open(iv *api.Interview) string {
	d.closeSession()

	n := d.currentNotifier()
	s, err := d.factory(d.config.GetConfig(), iv, n)
	if err != nil {
		return errReply(err)
	}

	d.mu.Lock()
	old := d.session
	d.session = s
	d.mu.Unlock()
	if old != nil {
		// a concurrent load won the race
		old.Close()
	}

	log.Printf("Daemon: loaded interview %s with %d questions", iv.ID, len(iv.Questions))
	n.Send(notify.MsgInterviewLoaded, len(iv.Questions))
	return fmt.Sprintf("OK loaded=%s questions=%d", iv.ID, len(iv.Questions))
}

func (d *Daemon) closeSession() bool {
	d.mu.Lock()
	s := d.session
	d.session = nil
	d.mu.Unlock()

	if s == nil {
		return false
	}
	s.Close()
	log.Printf("Daemon: closed interview %s", s.ID())
	return true
}

func (d *Daemon) withSession(fn func(*interview.Coordinator) string) string {
	s := d.currentSession()
	if s == nil {
		return "ERR no interview loaded"
	}
	return fn(s)
}

func (d *Daemon) status() string {
	st := Status{}
	if s := d.currentSession(); s != nil {
		snap := s.Snapshot()
		st.Loaded = true
		st.Snapshot = &snap
	}
	data, err := json.Marshal(st)
	if err != nil {
		return errReply(err)
	}
	return "STATUS " + string(data)
}

// errReply keeps replies on one line.
func errReply(err error) string {
	var sub *interview.SubmissionError
	if errors.As(err, &sub) && sub.Message != "" {
		return "ERR " + oneLine(sub.Message)
	}
	return "ERR " + oneLine(err.Error())
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseStatus decodes a STATUS reply. ERR replies come back as errors.
func ParseStatus(reply string) (Status, error) {
	var st Status
	kind, payload := bus.ParseReply(reply)
	switch kind {
	case "STATUS":
		if err := json.Unmarshal([]byte(payload), &st); err != nil {
			return st, fmt.Errorf("decode status: %w", err)
		}
		return st, nil
	case "ERR":
		return st, errors.New(payload)
	default:
		return st, fmt.Errorf("unexpected reply: %q", reply)
	}
}
