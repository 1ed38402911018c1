package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/hyprinterview/internal/daemon"
	"github.com/leonardotrapani/hyprinterview/internal/interview"
)

// RenderStatus draws the current question card. width <= 0 leaves the card unsized.
func RenderStatus(st daemon.Status, width int) string {
	if !st.Loaded || st.Snapshot == nil {
		return StyleMuted.Render("No interview loaded. Run `hyprinterview load <file>` or `hyprinterview fetch <id>`.")
	}
	s := st.Snapshot

	var b strings.Builder
	header := fmt.Sprintf("Interview %s", s.InterviewID)
	if s.Total > 0 {
		header += fmt.Sprintf(" · Question %d/%d", s.Index+1, s.Total)
	}
	b.WriteString(StyleHeader.Render(header))
	b.WriteString("\n")

	box := StyleBox
	if s.Recording() {
		box = StyleFocusedBox
	}
	if width > 4 {
		box = box.Width(width - 4)
	}
	b.WriteString(box.Render(renderCard(s)))
	b.WriteString("\n")

	b.WriteString(renderProgress(s.Slots, s.Index))
	b.WriteString("\n")

	for _, w := range s.Warnings {
		b.WriteString(StyleWarning.Render("! " + w))
		b.WriteString("\n")
	}
	if s.Error != "" {
		b.WriteString(StyleError.Render(s.Error))
		b.WriteString("\n")
	}

	switch {
	case s.Completed:
		b.WriteString(StyleSuccess.Render("✓ Interview submitted"))
		b.WriteString("\n")
	case s.Submitting:
		b.WriteString(StyleHighlight.Render("Submitting answers..."))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func renderCard(s *interview.Snapshot) string {
	lines := []string{StyleLabel.Render(s.Prompt), ""}

	var answer string
	if s.Index >= 0 && s.Index < len(s.Slots) {
		answer = s.Slots[s.Index].Answer
	}

	switch {
	case s.Starting:
		lines = append(lines, StyleMuted.Render("Starting camera and microphone..."))
	case s.State == interview.StateRecording:
		lines = append(lines, StyleLive.Render("● REC "+formatElapsed(s.Elapsed)))
		if s.Live != "" {
			lines = append(lines, s.Live)
		} else {
			lines = append(lines, StyleSubtle.Render("Listening..."))
		}
	case s.Transcribing():
		lines = append(lines, StyleHighlight.Render("Transcribing..."))
		if s.Live != "" {
			lines = append(lines, StyleMuted.Render(s.Live))
		}
	case answer != "":
		lines = append(lines, StyleSuccess.Render("Answer"), answer)
	default:
		lines = append(lines, StyleSubtle.Render("Not answered yet"))
	}

	if s.Preview != "" && s.Recording() {
		lines = append(lines, "", StyleMuted.Render("camera: "+s.Preview))
	}
	return strings.Join(lines, "\n")
}

// renderProgress draws one marker per question: answered, current, open.
func renderProgress(slots []interview.SlotView, current int) string {
	marks := make([]string, 0, len(slots))
	for i, slot := range slots {
		var mark string
		switch {
		case slot.Recording:
			mark = StyleLive.Render("●")
		case slot.Complete:
			mark = StyleSuccess.Render("✓")
		default:
			mark = StyleMuted.Render("○")
		}
		if i == current {
			mark = lipgloss.NewStyle().Underline(true).Render(mark)
		}
		marks = append(marks, mark)
	}
	return StyleMuted.Render("Answers ") + strings.Join(marks, " ")
}

func formatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
