package transcriber

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning is returned by Start while a previous session has not ended.
var ErrAlreadyRunning = errors.New("transcriber: already running")

// UnsupportedError means speech recognition cannot run with the current setup at all.
type UnsupportedError struct {
	Provider string
	Reason   string
}

func (e *UnsupportedError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("speech recognition unsupported: %s", e.Reason)
	}
	return fmt.Sprintf("speech recognition unsupported (%s): %s", e.Provider, e.Reason)
}

func IsUnsupported(err error) bool {
	var unsupported *UnsupportedError
	return errors.As(err, &unsupported)
}
