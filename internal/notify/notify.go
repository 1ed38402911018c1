package notify

import (
	"fmt"
	"log"
	"os/exec"
)

const appName = "Hyprinterview"

type MessageType int

const (
	MsgInterviewLoaded MessageType = iota
	MsgRecordingStarted
	MsgRecordingStopped
	MsgAnswerSaved
	MsgDeviceWarning
	MsgRecordingFailed
	MsgSubmissionComplete
	MsgSubmissionFailed
	MsgConfigReloaded
)

// Message is a resolved notification. Body may hold fmt verbs filled by Send.
type Message struct {
	Title   string
	Body    string
	IsError bool
}

// MessageDef ties a message type to its config key and defaults.
type MessageDef struct {
	Type         MessageType
	ConfigKey    string
	DefaultTitle string
	DefaultBody  string
	IsError      bool
}

var MessageDefs = []MessageDef{
	{MsgInterviewLoaded, "interview_loaded", appName, "Interview loaded: %d questions", false},
	{MsgRecordingStarted, "recording_started", appName, "Recording answer %d", false},
	{MsgRecordingStopped, "recording_stopped", appName, "Recording stopped... Transcribing", false},
	{MsgAnswerSaved, "answer_saved", appName, "Answer %d saved", false},
	{MsgDeviceWarning, "device_warning", appName + " Warning", "%s", true},
	{MsgRecordingFailed, "recording_failed", appName + " Error", "%s", true},
	{MsgSubmissionComplete, "submission_complete", appName, "Interview submitted", false},
	{MsgSubmissionFailed, "submission_failed", appName + " Error", "%s", true},
	{MsgConfigReloaded, "config_reloaded", appName, "Config Reloaded", false},
}

// DefaultMessages returns the catalogue without user overrides.
func DefaultMessages() map[MessageType]Message {
	msgs := make(map[MessageType]Message, len(MessageDefs))
	for _, def := range MessageDefs {
		msgs[def.Type] = Message{Title: def.DefaultTitle, Body: def.DefaultBody, IsError: def.IsError}
	}
	return msgs
}

// Resolve picks mt from msgs, falling back to the default catalogue, and fills in args.
func Resolve(msgs map[MessageType]Message, mt MessageType, args ...any) Message {
	msg, ok := msgs[mt]
	if !ok {
		msg, ok = DefaultMessages()[mt]
		if !ok {
			return Message{Title: appName, Body: fmt.Sprint(args...)}
		}
	}
	if len(args) > 0 {
		msg.Body = fmt.Sprintf(msg.Body, args...)
	}
	return msg
}

type Notifier interface {
	Send(mt MessageType, args ...any)
	Notify(title, message string)
	Error(msg string)
}

// New picks a backend by config name: "desktop", "log" or anything else for Nop.
func New(kind string, msgs map[MessageType]Message) Notifier {
	switch kind {
	case "desktop":
		return Desktop{Messages: msgs}
	case "log":
		return Log{Messages: msgs}
	default:
		return Nop{}
	}
}

type Desktop struct {
	Messages map[MessageType]Message
}

func (d Desktop) Send(mt MessageType, args ...any) {
	msg := Resolve(d.Messages, mt, args...)
	if msg.IsError {
		d.send("critical", msg.Title, msg.Body)
		return
	}
	d.send("normal", msg.Title, msg.Body)
}

func (d Desktop) Notify(title, message string) {
	d.send("normal", title, message)
}

func (d Desktop) Error(msg string) {
	d.send("critical", appName+" Error", msg)
}

func (Desktop) send(urgency, title, body string) {
	cmd := exec.Command("notify-send", "-a", appName, "-u", urgency, title, body)
	if err := cmd.Run(); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

// Log writes notifications to the process log, for headless use.
type Log struct {
	Messages map[MessageType]Message
}

func (l Log) Send(mt MessageType, args ...any) {
	msg := Resolve(l.Messages, mt, args...)
	l.Notify(msg.Title, msg.Body)
}

func (Log) Notify(title, message string) {
	log.Printf("Notification: %s - %s", title, message)
}

func (Log) Error(msg string) {
	log.Printf("Notification: %s Error - %s", appName, msg)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) Send(mt MessageType, args ...any) {}
func (Nop) Notify(title, message string)     {}
func (Nop) Error(msg string)                 {}
