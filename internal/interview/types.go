package interview

import "time"

// Question is one prompt of the interview. ReferenceAnswer is carried through
// untouched and never shown while recording.
type Question struct {
	Prompt          string `json:"question"`
	ReferenceAnswer string `json:"answer"`
}

// Slot is the mutable answer state for one question.
type Slot struct {
	Answer string // finalized transcript
	Live   string // interim transcript while recording
}

func (s Slot) IsComplete() bool {
	return s.Answer != ""
}

type State string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateStopping     State = "stopping"
	StateTranscribing State = "transcribing"
)

// Submission is the answer set handed to the submission endpoint.
type Submission struct {
	InterviewID string    `json:"interviewId"`
	Answers     []string  `json:"answers"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type SlotView struct {
	Answer    string `json:"answer"`
	Complete  bool   `json:"complete"`
	Recording bool   `json:"recording"`
}

// Snapshot is a copy of everything a presentation layer binds to.
type Snapshot struct {
	InterviewID string     `json:"interviewId"`
	Index       int        `json:"index"`
	Total       int        `json:"total"`
	Prompt      string     `json:"prompt"`
	State       State      `json:"state"`
	Starting    bool       `json:"starting"`
	Submitting  bool       `json:"submitting"`
	Completed   bool       `json:"completed"`
	Elapsed     int        `json:"elapsed"`
	Live        string     `json:"live"`
	Preview     string     `json:"preview,omitempty"`
	Warnings    []string   `json:"warnings,omitempty"`
	Error       string     `json:"error,omitempty"`
	Slots       []SlotView `json:"slots"`
}

// Recording reports whether a capture is active or being set up.
func (s Snapshot) Recording() bool {
	return s.State == StateRecording || s.State == StateStopping
}

// Transcribing reports whether the UI should show the processing indicator.
func (s Snapshot) Transcribing() bool {
	return s.State == StateStopping || s.State == StateTranscribing
}
