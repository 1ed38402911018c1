package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/hyprinterview/internal/config"
	"github.com/muesli/termenv"
)

type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

type ConfigSection string

const (
	SectionTranscription ConfigSection = "transcription"
	SectionProviders     ConfigSection = "providers"
	SectionInterview     ConfigSection = "interview"
	SectionMedia         ConfigSection = "media"
	SectionBackend       ConfigSection = "backend"
	SectionNotifications ConfigSection = "notifications"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

type menuEntry struct {
	section ConfigSection
	label   func(*config.Config) string
	edit    func(*config.Config)
}

var menu = []menuEntry{
	{SectionTranscription, formatTranscriptionLabel, editTranscription},
	{SectionProviders, formatProvidersLabel, editProviders},
	{SectionInterview, formatInterviewLabel, editInterview},
	{SectionMedia, formatMediaLabel, editMedia},
	{SectionBackend, formatBackendLabel, editBackend},
	{SectionNotifications, formatNotificationsLabel, editNotifications},
}

// Run edits a copy of existing in a menu loop. The copy is returned only
// when it validates and the user confirms the summary.
func Run(existing *config.Config) (*ConfigureResult, error) {
	cfg := cloneConfig(existing)
	cancelled := &ConfigureResult{Cancelled: true}

	for {
		clearScreen()
		fmt.Printf("%s\n\n", Logo())

		section, err := selectSection(cfg)
		if err != nil || section == SectionDiscardExit {
			return cancelled, nil
		}

		if section != SectionSaveExit {
			for _, entry := range menu {
				if entry.section == section {
					entry.edit(cfg)
				}
			}
			continue
		}

		if err := cfg.Validate(); err != nil {
			fmt.Println(StyleError.Render("Configuration is not valid: " + err.Error()))
			if !confirm("Keep editing?", "Edit", "Discard") {
				return cancelled, nil
			}
			continue
		}
		printSummary(cfg)
		if confirm("Save this configuration?", "Save", "Cancel") {
			return &ConfigureResult{Config: cfg}, nil
		}
	}
}

// cloneConfig copies the maps the editors write into.
func cloneConfig(cfg *config.Config) *config.Config {
	if cfg == nil {
		return config.DefaultConfig()
	}
	c := *cfg
	c.Providers = make(map[string]config.ProviderConfig, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		c.Providers[name] = pc
	}
	return &c
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := make([]huh.Option[ConfigSection], 0, len(menu)+2)
	for _, entry := range menu {
		options = append(options, huh.NewOption(entry.label(cfg), entry.section))
	}
	options = append(options,
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	)

	var selected ConfigSection
	err := runForm(
		huh.NewSelect[ConfigSection]().
			Title("Configuration Menu").
			Description("↑/↓ navigate • enter select • esc cancel").
			Options(options...).
			Value(&selected),
	)
	return selected, err
}

func printSummary(cfg *config.Config) {
	fmt.Printf("\n%s\n\n", StyleHeader.Render("Configuration Summary"))
	for _, line := range summaryLines(cfg) {
		fmt.Printf("  %s %s\n", StyleLabel.Render(line.label+":"), line.value)
	}
	fmt.Println()
}

// confirm treats an aborted form as "no".
func confirm(title, yes, no string) bool {
	var ok bool
	err := runForm(huh.NewConfirm().Title(title).Affirmative(yes).Negative(no).Value(&ok))
	return err == nil && ok
}

// runForm shows fields as a single themed group.
func runForm(fields ...huh.Field) error {
	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(theme()).Run()
}

func clearScreen() {
	termenv.NewOutput(os.Stdout).ClearScreen()
}

func theme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.Title = fg(ColorPrimary).Bold(true)
	t.Focused.Description = fg(ColorMuted)
	t.Focused.SelectedOption = fg(ColorSecondary)
	t.Focused.UnselectedOption = fg(ColorText)
	t.Focused.ErrorMessage = fg(ColorError)
	t.Focused.ErrorIndicator = fg(ColorError)
	t.Blurred.Title = fg(ColorMuted)
	t.Blurred.Description = fg(ColorSubtle)
	return t
}
