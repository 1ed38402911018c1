package interview

import (
	"errors"
	"fmt"

	"github.com/leonardotrapani/hyprinterview/internal/media"
	"github.com/leonardotrapani/hyprinterview/internal/transcriber"
)

var (
	ErrBusy          = errors.New("interview: operation not allowed in the current state")
	ErrNotRecording  = errors.New("interview: not recording")
	ErrAnswerMissing = errors.New("interview: current question has no answer yet")
	ErrInvalidIndex  = errors.New("interview: question index out of range")
	ErrCompleted     = errors.New("interview: already submitted")
	ErrClosed        = errors.New("interview: session closed")
	ErrCancelled     = errors.New("interview: recording start cancelled")
)

// SubmissionError is a failed hand-off of the answer set. The answers stay in
// memory so the submission can be retried.
type SubmissionError struct {
	Status  int    // HTTP status, 0 for transport failures
	Message string // server-provided message, if any
	Err     error
}

func (e *SubmissionError) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("submission failed (status %d): %s", e.Status, e.Message)
	case e.Message != "":
		return "submission failed: " + e.Message
	case e.Status != 0:
		return fmt.Sprintf("submission failed with status %d", e.Status)
	case e.Err != nil:
		return "submission failed: " + e.Err.Error()
	default:
		return "submission failed"
	}
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// userMessage is the single place errors become user-facing text.
func userMessage(err error) string {
	if access, ok := media.AsAccessError(err); ok {
		switch access.Reason {
		case media.ReasonPermissionDenied:
			return "Camera or microphone permission was denied"
		case media.ReasonNoDevice:
			return "No camera or microphone was found"
		case media.ReasonDeviceBusy:
			return "Camera or microphone is already in use"
		default:
			return "Could not access the camera or microphone"
		}
	}
	if transcriber.IsUnsupported(err) {
		return "Speech recognition is not supported on this device"
	}
	var sub *SubmissionError
	if errors.As(err, &sub) {
		if sub.Message != "" {
			return sub.Message
		}
		return "Failed to submit interview answers, please try again"
	}
	return err.Error()
}
