package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"syscall"

	"github.com/leonardotrapani/hyprinterview/internal/recording"
)

// Reason classifies why a capture device could not be opened.
type Reason string

const (
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonNoDevice         Reason = "no_device"
	ReasonDeviceBusy       Reason = "device_busy"
	ReasonUnknown          Reason = "unknown"
)

// AccessError is returned when camera or microphone access fails.
type AccessError struct {
	Reason Reason
	Device string
	Err    error
}

func (e *AccessError) Error() string {
	if e == nil {
		return "media access error"
	}
	msg := fmt.Sprintf("media access: %s", e.Reason)
	if e.Device != "" {
		msg += fmt.Sprintf(" (%s)", e.Device)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AccessError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// AsAccessError extracts an AccessError from err's chain.
func AsAccessError(err error) (*AccessError, bool) {
	var accessErr *AccessError
	if errors.As(err, &accessErr) {
		return accessErr, true
	}
	return nil, false
}

// classify wraps a device error into an AccessError. Context errors pass through.
func classify(err error, device string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if _, ok := AsAccessError(err); ok {
		return err
	}
	return &AccessError{Reason: reasonFor(err), Device: device, Err: err}
}

func reasonFor(err error) Reason {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return ReasonPermissionDenied
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENODEV), errors.Is(err, recording.ErrCaptureUnavailable):
		return ReasonNoDevice
	case errors.Is(err, syscall.EBUSY), errors.Is(err, recording.ErrAlreadyRecording):
		return ReasonDeviceBusy
	default:
		return ReasonUnknown
	}
}
