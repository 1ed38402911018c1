package interview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/media"
	"github.com/leonardotrapani/hyprinterview/internal/notify"
	"github.com/leonardotrapani/hyprinterview/internal/recording"
)

// MediaAcquirer hands out one capture handle per slot.
type MediaAcquirer interface {
	Acquire(ctx context.Context, slot int) (*media.Handle, error)
	Release(slot int)
	Discard(h *media.Handle)
	ReleaseAll()
}

// Transcriber turns the live audio of a handle into text. onFinal must fire
// exactly once per successful Start.
type Transcriber interface {
	Start(ctx context.Context, audio <-chan recording.AudioFrame, onInterim, onFinal func(string)) error
	Stop()
	Wait()
}

type Timer interface {
	Start()
	Stop()
	Elapsed() int
}

type Submitter interface {
	Submit(ctx context.Context, sub Submission) error
}

type Deps struct {
	Media       MediaAcquirer
	Transcriber Transcriber
	Timer       Timer
	Submitter   Submitter
	Notifier    notify.Notifier
}

const DefaultSettleDelay = time.Second

type Option func(*Coordinator)

// WithSettleDelay sets how long the coordinator stays in transcribing after a
// stop. Zero returns to idle as soon as the answer is written.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d < 0 {
			d = 0
		}
		c.settle = d
	}
}

// WithClock overrides the submission timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// Coordinator drives one interview recording session. Every field below the
// channels is owned by the loop goroutine; operations and device, transcript
// and timer results all arrive there as messages.
type Coordinator struct {
	id        string
	questions []Question
	deps      Deps
	settle    time.Duration
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	msgs     chan any
	loopDone chan struct{}
	done     chan struct{}
	opens    sync.WaitGroup // open goroutines, they may still post after loopDone

	index      int
	slots      []Slot
	state      State
	starting   bool // devices and engine requested, not yet answered
	acquiring  bool // an open goroutine is still outstanding
	submitting bool
	completed  bool
	closed     bool

	gen       uint64 // recording attempt
	finalized bool

	handle        *media.Handle
	cancelAcquire context.CancelFunc
	cancelRun     context.CancelFunc
	pendingStart  chan error
	pendingNav    *gotoReq
	settleTimer   *time.Timer
	warnings      []string
	lastErr       string
}

type startReq struct {
	ctx   context.Context
	reply chan error
}

type stopReq struct {
	reply chan error
}

type gotoReq struct {
	index int
	reply chan error
}

type nextReq struct {
	ctx   context.Context
	reply chan error
}

type snapshotReq struct {
	reply chan Snapshot
}

type closeReq struct {
	reply chan struct{}
}

// startedEv carries the outcome of opening the devices and dialing the engine.
// On success the transcription run is still tied to the attempt context until
// detach is called.
type startedEv struct {
	gen       uint64
	handle    *media.Handle
	detach    func() bool
	cancelRun context.CancelFunc
	err       error
}

// abandon tears down a run whose attempt no longer wants it.
func (ev startedEv) abandon(c *Coordinator) {
	if ev.handle == nil {
		return
	}
	ev.detach()
	c.deps.Transcriber.Stop()
	ev.cancelRun()
	c.deps.Media.Discard(ev.handle)
}

type interimEv struct {
	gen  uint64
	text string
}

type finalEv struct {
	gen  uint64
	text string
}

type settledEv struct {
	gen uint64
}

type submittedEv struct {
	err   error
	reply chan error
}

// New creates a coordinator for an ordered, non-empty question list and
// starts its loop.
func New(interviewID string, questions []Question, deps Deps, opts ...Option) (*Coordinator, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("interview %q has no questions", interviewID)
	}
	if deps.Media == nil || deps.Transcriber == nil || deps.Timer == nil || deps.Submitter == nil {
		return nil, fmt.Errorf("interview: media, transcriber, timer and submitter are required")
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}

	c := &Coordinator{
		id:        interviewID,
		questions: append([]Question(nil), questions...),
		deps:      deps,
		settle:    DefaultSettleDelay,
		now:       time.Now,
		msgs:      make(chan any),
		loopDone:  make(chan struct{}),
		done:      make(chan struct{}),
		slots:     make([]Slot, len(questions)),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	go c.loop()
	return c, nil
}

func (c *Coordinator) ID() string { return c.id }

func (c *Coordinator) Questions() []Question {
	return append([]Question(nil), c.questions...)
}

// Done is closed once the answers have been submitted successfully.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// StartRecording clears the current slot and records a new answer for it.
// It returns once the devices are open and transcription is running, or with
// the reason the attempt was aborted.
func (c *Coordinator) StartRecording(ctx context.Context) error {
	reply := make(chan error, 1)
	return c.call(startReq{ctx: ctx, reply: reply}, reply)
}

// RetryRecording discards the current slot's answer and records it again.
func (c *Coordinator) RetryRecording(ctx context.Context) error {
	return c.StartRecording(ctx)
}

// StopRecording ends the active recording. The answer lands in the slot when
// the transcript is finalized.
func (c *Coordinator) StopRecording() error {
	reply := make(chan error, 1)
	return c.call(stopReq{reply: reply}, reply)
}

// GoToQuestion switches the visible slot. While recording another slot, the
// recording is stopped first and the call returns after the switch.
func (c *Coordinator) GoToQuestion(ctx context.Context, index int) error {
	reply := make(chan error, 1)
	if !c.post(gotoReq{index: index, reply: reply}) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-c.loopDone:
		return c.drain(reply)
	case <-ctx.Done():
		// the switch still happens once the stop completes
		return ctx.Err()
	}
}

// HandleNext advances to the next slot, or submits the answers on the last one.
func (c *Coordinator) HandleNext(ctx context.Context) error {
	reply := make(chan error, 1)
	return c.call(nextReq{ctx: ctx, reply: reply}, reply)
}

func (c *Coordinator) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	if !c.post(snapshotReq{reply: reply}) {
		return Snapshot{InterviewID: c.id, Total: len(c.questions), State: StateIdle, Error: ErrClosed.Error()}
	}
	select {
	case s := <-reply:
		return s
	case <-c.loopDone:
		select {
		case s := <-reply:
			return s
		default:
			return Snapshot{InterviewID: c.id, Total: len(c.questions), State: StateIdle, Error: ErrClosed.Error()}
		}
	}
}

// Close tears the session down from any state: transcription is stopped,
// every media handle released and the timer stopped. It waits for the
// transcription run to drain.
func (c *Coordinator) Close() error {
	reply := make(chan struct{})
	if c.post(closeReq{reply: reply}) {
		<-reply
	}
	<-c.loopDone
	c.opens.Wait()
	c.deps.Transcriber.Wait()
	c.cancel()
	return nil
}

func (c *Coordinator) post(msg any) bool {
	select {
	case c.msgs <- msg:
		return true
	case <-c.loopDone:
		return false
	}
}

func (c *Coordinator) call(msg any, reply chan error) error {
	if !c.post(msg) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-c.loopDone:
		return c.drain(reply)
	}
}

func (c *Coordinator) drain(reply chan error) error {
	select {
	case err := <-reply:
		return err
	default:
		return ErrClosed
	}
}

func (c *Coordinator) loop() {
	defer close(c.loopDone)

	for msg := range c.msgs {
		switch m := msg.(type) {
		case startReq:
			c.handleStart(m)
		case stopReq:
			m.reply <- c.handleStop()
		case gotoReq:
			c.handleGoto(m)
		case nextReq:
			c.handleNext(m)
		case snapshotReq:
			m.reply <- c.snapshot()
		case startedEv:
			c.handleStarted(m)
		case interimEv:
			c.handleInterim(m)
		case finalEv:
			c.handleFinal(m)
		case settledEv:
			if m.gen == c.gen && c.state == StateTranscribing {
				c.state = StateIdle
			}
		case submittedEv:
			c.handleSubmitted(m)
		case closeReq:
			c.teardown()
			close(m.reply)
			return
		}
	}
}

func (c *Coordinator) handleStart(req startReq) {
	switch {
	case c.completed:
		req.reply <- ErrCompleted
		return
	case c.submitting, c.acquiring, c.state != StateIdle:
		req.reply <- ErrBusy
		return
	}

	c.stopSettle()
	slot := c.index
	c.slots[slot] = Slot{}
	c.gen++
	c.finalized = false
	c.state = StateRecording
	c.starting = true
	c.acquiring = true
	c.warnings = nil
	c.lastErr = ""
	c.pendingStart = req.reply

	c.deps.Timer.Start()

	ctx, cancel := context.WithCancel(req.ctx)
	c.cancelAcquire = cancel
	gen := c.gen
	log.Printf("Interview: starting recording for question %d/%d", slot+1, len(c.questions))

	c.opens.Add(1)
	go func() {
		defer c.opens.Done()
		ev := c.open(ctx, slot, gen)
		if !c.post(ev) {
			ev.abandon(c)
		}
	}()
}

// open acquires media for slot and dials the transcription engine on it. It
// runs off the loop so snapshots and stop stay responsive; cancelling ctx
// aborts whichever step is in flight.
func (c *Coordinator) open(ctx context.Context, slot int, gen uint64) startedEv {
	h, err := c.deps.Media.Acquire(ctx, slot)
	if err != nil {
		return startedEv{gen: gen, err: err}
	}

	// the run must outlive ctx once the loop accepts it
	runCtx, cancelRun := context.WithCancel(c.ctx)
	detach := context.AfterFunc(ctx, cancelRun)
	err = c.deps.Transcriber.Start(runCtx, h.Audio(),
		func(text string) { c.post(interimEv{gen: gen, text: text}) },
		func(text string) { c.post(finalEv{gen: gen, text: text}) },
	)
	if err != nil {
		detach()
		cancelRun()
		c.deps.Media.Discard(h)
		return startedEv{gen: gen, err: err}
	}
	return startedEv{gen: gen, handle: h, detach: detach, cancelRun: cancelRun}
}

func (c *Coordinator) handleStarted(ev startedEv) {
	c.acquiring = false
	if ev.gen != c.gen || !c.starting {
		// attempt was cancelled while the devices or the engine were opening
		ev.abandon(c)
		return
	}

	c.starting = false
	reply := c.pendingStart
	c.pendingStart = nil

	err := ev.err
	if err == nil && !ev.detach() {
		// caller's context ended just as the engine came up
		c.finalized = true
		ev.abandon(c)
		err = ErrCancelled
	}
	c.cancelAcquire()
	c.cancelAcquire = nil
	if err != nil {
		c.abortStart(err, reply)
		return
	}

	c.handle = ev.handle
	c.cancelRun = ev.cancelRun
	c.warnings = ev.handle.Status().Warnings()
	for _, w := range c.warnings {
		c.deps.Notifier.Send(notify.MsgDeviceWarning, w)
	}
	c.deps.Notifier.Send(notify.MsgRecordingStarted, c.index+1)
	reply <- nil
}

// abortStart returns to idle after a failed start. Media was never kept.
func (c *Coordinator) abortStart(err error, reply chan error) {
	c.deps.Timer.Stop()
	c.state = StateIdle
	c.lastErr = userMessage(err)
	log.Printf("Interview: recording for question %d aborted: %v", c.index+1, err)
	c.deps.Notifier.Send(notify.MsgRecordingFailed, c.lastErr)
	if reply != nil {
		reply <- err
	}
}

func (c *Coordinator) handleStop() error {
	if c.starting {
		c.cancelStart(ErrCancelled)
		return nil
	}
	if c.state != StateRecording {
		return ErrNotRecording
	}
	c.beginStop()
	return nil
}

// cancelStart aborts a pending start. The open goroutine's result is
// abandoned when it arrives.
func (c *Coordinator) cancelStart(reason error) {
	c.cancelAcquire()
	c.cancelAcquire = nil
	c.starting = false
	c.deps.Timer.Stop()
	c.state = StateIdle
	if c.pendingStart != nil {
		c.pendingStart <- reason
		c.pendingStart = nil
	}
	log.Printf("Interview: recording start for question %d cancelled", c.index+1)
}

// beginStop runs the stop sequence: transcription first so no transcript
// callback races a released stream, then media, then the timer.
func (c *Coordinator) beginStop() {
	c.state = StateStopping
	c.deps.Transcriber.Stop()
	c.releaseMedia()
	c.deps.Timer.Stop()
	c.deps.Notifier.Send(notify.MsgRecordingStopped)
}

func (c *Coordinator) releaseMedia() {
	if c.handle != nil {
		c.deps.Media.Release(c.handle.Slot)
		c.handle = nil
	}
}

func (c *Coordinator) handleInterim(ev interimEv) {
	if ev.gen != c.gen || c.finalized {
		return
	}
	if c.state == StateRecording || c.state == StateStopping {
		c.slots[c.index].Live = ev.text
	}
}

func (c *Coordinator) handleFinal(ev finalEv) {
	if ev.gen != c.gen || c.finalized {
		return
	}
	c.finalized = true
	if c.cancelRun != nil {
		c.cancelRun()
		c.cancelRun = nil
	}

	if c.state == StateRecording {
		// the engine ended on its own
		c.releaseMedia()
		c.deps.Timer.Stop()
	}

	slot := c.index
	c.slots[slot] = Slot{Answer: ev.text}
	if ev.text == "" {
		c.lastErr = "No speech was detected, please try again"
	} else {
		c.deps.Notifier.Send(notify.MsgAnswerSaved, slot+1)
	}
	log.Printf("Interview: question %d finalized with %d characters", slot+1, len(ev.text))

	c.state = StateTranscribing
	if c.settle <= 0 {
		c.state = StateIdle
	} else {
		gen := c.gen
		c.settleTimer = time.AfterFunc(c.settle, func() {
			c.post(settledEv{gen: gen})
		})
	}

	if nav := c.pendingNav; nav != nil {
		c.pendingNav = nil
		c.switchTo(nav.index)
		nav.reply <- nil
	}
}

func (c *Coordinator) stopSettle() {
	if c.settleTimer != nil {
		c.settleTimer.Stop()
		c.settleTimer = nil
	}
}

func (c *Coordinator) handleGoto(req gotoReq) {
	switch {
	case req.index < 0 || req.index >= len(c.questions):
		req.reply <- ErrInvalidIndex
		return
	case c.completed:
		req.reply <- ErrCompleted
		return
	case c.starting, c.submitting, c.pendingNav != nil:
		req.reply <- ErrBusy
		return
	}

	switch c.state {
	case StateRecording, StateStopping:
		if req.index == c.index {
			req.reply <- nil
			return
		}
		c.pendingNav = &req
		if c.state == StateRecording {
			log.Printf("Interview: navigating away from question %d, stopping recording", c.index+1)
			c.beginStop()
		}
	default:
		c.switchTo(req.index)
		req.reply <- nil
	}
}

func (c *Coordinator) switchTo(index int) {
	c.slots[c.index].Live = ""
	c.index = index
	c.lastErr = ""
}

func (c *Coordinator) handleNext(req nextReq) {
	switch {
	case c.completed:
		req.reply <- ErrCompleted
		return
	case c.submitting, c.starting, c.pendingNav != nil:
		req.reply <- ErrBusy
		return
	case c.state == StateRecording || c.state == StateStopping:
		req.reply <- ErrBusy
		return
	case !c.slots[c.index].IsComplete():
		req.reply <- ErrAnswerMissing
		return
	}

	if c.index < len(c.questions)-1 {
		c.switchTo(c.index + 1)
		req.reply <- nil
		return
	}

	sub := Submission{
		InterviewID: c.id,
		Answers:     make([]string, len(c.slots)),
		SubmittedAt: c.now().UTC(),
	}
	for i, s := range c.slots {
		sub.Answers[i] = s.Answer
	}

	c.submitting = true
	c.lastErr = ""
	log.Printf("Interview: submitting %d answers for %s", len(sub.Answers), c.id)

	ctx := req.ctx
	go func() {
		err := c.deps.Submitter.Submit(ctx, sub)
		if !c.post(submittedEv{err: err, reply: req.reply}) {
			req.reply <- ErrClosed
		}
	}()
}

func (c *Coordinator) handleSubmitted(ev submittedEv) {
	c.submitting = false
	if ev.err != nil {
		var sub *SubmissionError
		if !errors.As(ev.err, &sub) {
			ev.err = &SubmissionError{Err: ev.err}
		}
		c.lastErr = userMessage(ev.err)
		log.Printf("Interview: submission failed: %v", ev.err)
		c.deps.Notifier.Send(notify.MsgSubmissionFailed, c.lastErr)
		ev.reply <- ev.err
		return
	}

	c.completed = true
	close(c.done)
	log.Printf("Interview: %s submitted", c.id)
	c.deps.Notifier.Send(notify.MsgSubmissionComplete)
	ev.reply <- nil
}

func (c *Coordinator) teardown() {
	if c.closed {
		return
	}
	c.closed = true

	if c.starting {
		c.cancelStart(ErrClosed)
	}
	c.stopSettle()
	c.deps.Transcriber.Stop()
	c.handle = nil
	c.deps.Media.ReleaseAll()
	c.deps.Timer.Stop()
	c.state = StateIdle

	if c.pendingNav != nil {
		c.pendingNav.reply <- ErrClosed
		c.pendingNav = nil
	}
	log.Printf("Interview: session %s closed", c.id)
}

func (c *Coordinator) snapshot() Snapshot {
	s := Snapshot{
		InterviewID: c.id,
		Index:       c.index,
		Total:       len(c.questions),
		Prompt:      c.questions[c.index].Prompt,
		State:       c.state,
		Starting:    c.starting,
		Submitting:  c.submitting,
		Completed:   c.completed,
		Elapsed:     c.deps.Timer.Elapsed(),
		Live:        c.slots[c.index].Live,
		Warnings:    append([]string(nil), c.warnings...),
		Error:       c.lastErr,
		Slots:       make([]SlotView, len(c.slots)),
	}
	if c.handle != nil {
		s.Preview = c.handle.Preview()
	}
	recording := c.state == StateRecording || c.state == StateStopping
	for i, slot := range c.slots {
		s.Slots[i] = SlotView{
			Answer:    slot.Answer,
			Complete:  slot.IsComplete(),
			Recording: recording && i == c.index,
		}
	}
	return s
}
