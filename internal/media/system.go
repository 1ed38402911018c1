package media

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/recording"
)

type SystemConfig struct {
	Camera     string // V4L2 node, e.g. /dev/video0
	Microphone recording.Config
	CheckMute  bool // ask wpctl whether the default source is muted
}

// SystemDevice opens a V4L2 camera node and a PipeWire microphone capture.
type SystemDevice struct {
	config SystemConfig
	muted  func(ctx context.Context) (bool, error)
}

func NewSystemDevice(config SystemConfig) *SystemDevice {
	return &SystemDevice{config: config, muted: sourceMuted}
}

func (d *SystemDevice) Open(ctx context.Context) (Stream, error) {
	if d.config.Camera == "" {
		return nil, &AccessError{Reason: ReasonNoDevice, Device: "camera", Err: fmt.Errorf("no camera configured")}
	}

	cam, err := os.OpenFile(d.config.Camera, os.O_RDWR, 0)
	if err != nil {
		return nil, classify(err, d.config.Camera)
	}

	if err := ctx.Err(); err != nil {
		cam.Close()
		return nil, err
	}

	mic := recording.NewMicrophone(d.config.Microphone)
	// capture outlives the acquisition call, so detach it from ctx cancellation
	frames, errs, err := mic.Start(context.WithoutCancel(ctx))
	if err != nil {
		cam.Close()
		return nil, classify(err, "microphone")
	}

	go func() {
		for err := range errs {
			log.Printf("Media: microphone error: %v", err)
		}
	}()

	audioEnabled := true
	if d.config.CheckMute && d.muted != nil {
		muted, err := d.muted(ctx)
		if err != nil {
			log.Printf("Media: mute check failed: %v", err)
		}
		audioEnabled = !muted
	}

	return &systemStream{
		camera: cam,
		mic:    mic,
		frames: frames,
		tracks: []Track{
			{Kind: KindVideo, Label: d.config.Camera, Enabled: true},
			{Kind: KindAudio, Label: microphoneLabel(d.config.Microphone), Enabled: audioEnabled},
		},
	}, nil
}

func microphoneLabel(cfg recording.Config) string {
	if cfg.Device == "" {
		return "default"
	}
	return cfg.Device
}

type systemStream struct {
	camera *os.File
	mic    *recording.Microphone
	frames <-chan recording.AudioFrame
	tracks []Track

	once sync.Once
	err  error
}

func (s *systemStream) Tracks() []Track { return s.tracks }

func (s *systemStream) Audio() <-chan recording.AudioFrame { return s.frames }

func (s *systemStream) Preview() string { return s.camera.Name() }

func (s *systemStream) Stop() error {
	s.once.Do(func() {
		s.mic.Stop()
		s.mic.Wait()
		s.err = s.camera.Close()
	})
	return s.err
}

// sourceMuted reports whether the default PipeWire source is muted.
func sourceMuted(ctx context.Context) (bool, error) {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	out, err := exec.CommandContext(checkCtx, "wpctl", "get-volume", "@DEFAULT_AUDIO_SOURCE@").Output()
	if err != nil {
		return false, fmt.Errorf("wpctl get-volume: %w", err)
	}
	return strings.Contains(string(out), "[MUTED]"), nil
}
