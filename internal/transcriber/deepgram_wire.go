package transcriber

import "fmt"

// Frames exchanged with Deepgram's /v1/listen websocket. Audio goes up as
// binary frames; everything else is JSON text.

type dgControl struct {
	Type string `json:"type"`
}

var dgCloseStream = dgControl{Type: "CloseStream"}

type dgMessage struct {
	Type        string      `json:"type"`
	Channel     *dgChannel  `json:"channel,omitempty"`
	Metadata    *dgMetadata `json:"metadata,omitempty"`
	Error       *dgError    `json:"error,omitempty"`
	Start       float64     `json:"start,omitempty"`
	Duration    float64     `json:"duration,omitempty"`
	IsFinal     bool        `json:"is_final,omitempty"`
	SpeechFinal bool        `json:"speech_final,omitempty"`
}

type dgChannel struct {
	Alternatives []dgAlternative `json:"alternatives,omitempty"`
}

type dgAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type dgMetadata struct {
	RequestID string `json:"request_id"`
	ModelInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"model_info"`
}

type dgError struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
}

func (e *dgError) String() string {
	if e.Description == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Description)
}

// transcript is the top alternative, empty for non-result frames.
func (m *dgMessage) transcript() string {
	if m.Channel == nil || len(m.Channel.Alternatives) == 0 {
		return ""
	}
	return m.Channel.Alternatives[0].Transcript
}

func (m *dgMessage) final() bool {
	return m.IsFinal || m.SpeechFinal
}
