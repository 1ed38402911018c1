package tui

import (
	"fmt"
	"strings"

	"github.com/leonardotrapani/hyprinterview/internal/deps"
)

// RenderDoctor lists dependency checks, one per line, with a hint for each problem.
func RenderDoctor(statuses []deps.Status) string {
	var b strings.Builder
	b.WriteString(StyleHeader.Render("System check"))
	b.WriteString("\n")

	for _, s := range statuses {
		var mark string
		switch {
		case s.Installed:
			mark = StyleSuccess.Render("✓")
		case s.Required:
			mark = StyleError.Render("✗")
		default:
			mark = StyleWarning.Render("!")
		}

		line := fmt.Sprintf("%s %s", mark, StyleLabel.Render(s.Name))
		if s.Installed {
			detail := s.Path
			if s.Version != "" {
				detail += " " + s.Version
			}
			line += " " + StyleMuted.Render(detail)
		} else if s.Hint != "" {
			line += " " + StyleSubtle.Render(s.Hint)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		b.WriteString("\n")
		b.WriteString(StyleError.Render("Missing required: " + strings.Join(missing, ", ")))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
