package media

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/leonardotrapani/hyprinterview/internal/recording"
)

type TrackKind string

const (
	KindAudio TrackKind = "audio"
	KindVideo TrackKind = "video"
)

// Track describes one track of a capture stream.
type Track struct {
	Kind    TrackKind
	Label   string
	Enabled bool
}

// Stream is a live camera+microphone capture opened by a Device.
type Stream interface {
	Tracks() []Track
	// Audio delivers microphone frames; closed once the stream stops.
	Audio() <-chan recording.AudioFrame
	// Preview names what a view layer renders for the live camera.
	Preview() string
	Stop() error
}

// Device opens capture streams. Open may block on permission prompts.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// TrackStatus summarises which tracks are present and enabled.
type TrackStatus struct {
	AudioPresent bool
	AudioEnabled bool
	VideoPresent bool
	VideoEnabled bool
}

// Warnings lists track problems worth telling the user about.
func (s TrackStatus) Warnings() []string {
	var warnings []string
	switch {
	case !s.AudioPresent:
		warnings = append(warnings, "no microphone track")
	case !s.AudioEnabled:
		warnings = append(warnings, "microphone is muted")
	}
	switch {
	case !s.VideoPresent:
		warnings = append(warnings, "no camera track")
	case !s.VideoEnabled:
		warnings = append(warnings, "camera is disabled")
	}
	return warnings
}

// Handle is the live capture owned by the Acquirer for one slot.
type Handle struct {
	ID         string
	Slot       int
	AcquiredAt time.Time

	stream   Stream
	stopOnce sync.Once
	released atomic.Bool
}

func (h *Handle) Tracks() []Track {
	return h.stream.Tracks()
}

func (h *Handle) Audio() <-chan recording.AudioFrame {
	return h.stream.Audio()
}

func (h *Handle) Preview() string {
	return h.stream.Preview()
}

func (h *Handle) Released() bool {
	return h.released.Load()
}

func (h *Handle) Status() TrackStatus {
	var s TrackStatus
	for _, tr := range h.stream.Tracks() {
		switch tr.Kind {
		case KindAudio:
			s.AudioPresent = true
			s.AudioEnabled = s.AudioEnabled || tr.Enabled
		case KindVideo:
			s.VideoPresent = true
			s.VideoEnabled = s.VideoEnabled || tr.Enabled
		}
	}
	return s
}

func (h *Handle) stop() {
	h.stopOnce.Do(func() {
		h.released.Store(true)
		if err := h.stream.Stop(); err != nil {
			log.Printf("Media: error stopping handle %s (slot %d): %v", h.ID, h.Slot, err)
		}
	})
}

// Acquirer owns at most one live Handle per slot index.
// Acquire, Release, Discard and ReleaseAll are the only mutation points.
type Acquirer struct {
	device Device

	mu      sync.Mutex
	handles map[int]*Handle
}

func NewAcquirer(device Device) *Acquirer {
	return &Acquirer{
		device:  device,
		handles: make(map[int]*Handle),
	}
}

// Acquire opens the device for slot, replacing any handle the slot already holds.
func (a *Acquirer) Acquire(ctx context.Context, slot int) (*Handle, error) {
	if slot < 0 {
		return nil, fmt.Errorf("invalid slot index: %d", slot)
	}

	a.Release(slot)

	log.Printf("Media: acquiring camera and microphone for slot %d", slot)
	stream, err := a.device.Open(ctx)
	if err != nil {
		log.Printf("Media: acquisition for slot %d failed: %v", slot, err)
		return nil, classify(err, "")
	}

	h := &Handle{
		ID:         uuid.NewString(),
		Slot:       slot,
		AcquiredAt: time.Now(),
		stream:     stream,
	}

	if err := ctx.Err(); err != nil {
		h.stop()
		return nil, fmt.Errorf("acquire slot %d: %w", slot, err)
	}

	a.mu.Lock()
	prev := a.handles[slot]
	a.handles[slot] = h
	a.mu.Unlock()

	if prev != nil {
		prev.stop()
	}

	log.Printf("Media: slot %d acquired handle %s", slot, h.ID)
	return h, nil
}

// Release stops and clears the slot's handle. No-op when the slot is empty.
func (a *Acquirer) Release(slot int) {
	a.mu.Lock()
	h := a.handles[slot]
	delete(a.handles, slot)
	a.mu.Unlock()

	if h != nil {
		h.stop()
		log.Printf("Media: slot %d released handle %s", slot, h.ID)
	}
}

// Discard releases h, clearing its slot only if h is still the stored handle.
func (a *Acquirer) Discard(h *Handle) {
	if h == nil {
		return
	}
	a.mu.Lock()
	if a.handles[h.Slot] == h {
		delete(a.handles, h.Slot)
	}
	a.mu.Unlock()
	h.stop()
}

func (a *Acquirer) ReleaseAll() {
	a.mu.Lock()
	handles := a.handles
	a.handles = make(map[int]*Handle)
	a.mu.Unlock()

	for slot, h := range handles {
		h.stop()
		log.Printf("Media: slot %d released handle %s", slot, h.ID)
	}
}

// Handle returns the live handle for slot, or nil.
func (a *Acquirer) Handle(slot int) *Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.handles[slot]
}

// Live lists the slots currently holding a handle, ascending.
func (a *Acquirer) Live() []int {
	a.mu.Lock()
	slots := make([]int, 0, len(a.handles))
	for slot := range a.handles {
		slots = append(slots, slot)
	}
	a.mu.Unlock()
	sort.Ints(slots)
	return slots
}
