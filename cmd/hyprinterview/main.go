package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/bus"
	"github.com/leonardotrapani/hyprinterview/internal/config"
	"github.com/leonardotrapani/hyprinterview/internal/daemon"
	"github.com/leonardotrapani/hyprinterview/internal/deps"
	"github.com/leonardotrapani/hyprinterview/internal/language"
	"github.com/leonardotrapani/hyprinterview/internal/provider"
	"github.com/leonardotrapani/hyprinterview/internal/tui"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "hyprinterview",
	Short:        "Spoken interview answers, transcribed and submitted",
	SilenceUsage: true,
}

// sendFunc is swapped in tests.
var sendFunc = bus.SendCommand

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		loadCmd(),
		fetchCmd(),
		lineCmd("start", "Start recording an answer to the current question", "start"),
		lineCmd("stop", "Stop recording and transcribe the answer", "stop"),
		lineCmd("retry", "Discard the current answer and record again", "retry"),
		gotoCmd(),
		lineCmd("next", "Go to the next question, or submit after the last one", "next"),
		statusCmd(),
		lineCmd("close", "Close the loaded interview", "close"),
		lineCmd("quit", "Stop the daemon", "quit"),
		lineCmd("version", "Get protocol version", "version"),
		configureCmd(),
		doctorCmd(),
		modelCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := config.NewManager()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			setupLogging(mgr.GetConfig().Logging)
			return daemon.New(mgr).Run()
		},
	}
}

// setupLogging keeps stderr and adds a rotated file when one is configured.
func setupLogging(cfg config.LoggingConfig) {
	if cfg.File == "" {
		return
	}
	rotated := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotated))
}

func send(out io.Writer, line string) error {
	resp, err := sendFunc(line)
	if err != nil {
		return fmt.Errorf("daemon not reachable (is `hyprinterview serve` running?): %w", err)
	}
	kind, payload := bus.ParseReply(resp)
	if kind == "ERR" {
		return errors.New(payload)
	}
	fmt.Fprint(out, resp)
	return nil
}

func lineCmd(use, short, line string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd.OutOrStdout(), line)
		},
	}
}

func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file.json>",
		Short: "Load an interview from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// the daemon resolves paths against its own working directory
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			return send(cmd.OutOrStdout(), "load "+path)
		},
	}
}

func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <interview-id>",
		Short: "Fetch an interview from the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.ContainsAny(args[0], " \t\n/") {
				return fmt.Errorf("invalid interview id: %q", args[0])
			}
			return send(cmd.OutOrStdout(), "fetch "+args[0])
		},
	}
}

func gotoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "goto <question-number>",
		Short: "Jump to a question (1-based)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid question number: %s", args[0])
			}
			return send(cmd.OutOrStdout(), fmt.Sprintf("goto %d", n))
		},
	}
}

func statusCmd() *cobra.Command {
	var watch, raw bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current question and recording state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return tui.Watch(tui.SendFunc(sendFunc), interval)
			}

			resp, err := sendFunc("status")
			if err != nil {
				return fmt.Errorf("daemon not reachable (is `hyprinterview serve` running?): %w", err)
			}
			if raw {
				_, payload := bus.ParseReply(resp)
				fmt.Fprintln(cmd.OutOrStdout(), payload)
				return nil
			}
			st, err := daemon.ParseStatus(resp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderStatus(st, 0))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Interactive view with recording controls")
	cmd.Flags().BoolVar(&raw, "json", false, "Print the raw JSON status")
	cmd.Flags().DurationVar(&interval, "interval", 250*time.Millisecond, "Refresh interval for --watch")

	return cmd
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration menu for hyprinterview.
This will guide you through setting up:
- Transcription provider, model and answer language
- Provider API keys (Deepgram, OpenAI)
- The interview backend URL and token
- Camera, timing and notification preferences`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration menu error: %w", err)
	}

	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}

	if err := config.Save(result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(tui.StyleSuccess.Render("Configuration saved successfully!"))
	fmt.Println()

	showNextSteps()
	return nil
}

func showNextSteps() {
	serviceRunning := false
	if err := exec.Command("systemctl", "--user", "is-active", "--quiet", "hyprinterview.service").Run(); err == nil {
		serviceRunning = true
	}

	fmt.Println("Next Steps:")
	if serviceRunning {
		fmt.Println("1. The running daemon picks up the new config automatically")
	} else {
		fmt.Println("1. Start the daemon: hyprinterview serve (or systemctl --user start hyprinterview.service)")
	}
	fmt.Println("2. Load an interview: hyprinterview load questions.json")
	fmt.Println("3. Answer it: hyprinterview status --watch")
	fmt.Println()

	configPath, _ := config.GetConfigPath()
	fmt.Printf("Config file location: %s\n", configPath)
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check recording, camera and notification dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			statuses := deps.Doctor(cfg.Media.Camera)
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderDoctor(statuses))

			if err := cfg.Validate(); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), tui.StyleWarning.Render("config: "+err.Error()))
			}
			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required dependencies missing", len(missing))
			}
			return nil
		},
	}
}

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect transcription models",
	}
	cmd.AddCommand(modelListCmd())
	return cmd
}

func modelListCmd() *cobra.Command {
	var providerFilter string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transcription providers, models and languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModelList(cmd.OutOrStdout(), providerFilter, verbose)
		},
	}

	cmd.Flags().StringVar(&providerFilter, "provider", "", "filter by provider name")
	cmd.Flags().BoolVarP(&verbose, "languages", "l", false, "list supported languages")

	return cmd
}

func runModelList(out io.Writer, providerFilter string, verbose bool) error {
	providerNames := provider.ListProviders()
	if providerFilter != "" {
		if provider.GetProvider(providerFilter) == nil {
			return fmt.Errorf("unknown provider: %s", providerFilter)
		}
		providerNames = []string{providerFilter}
	}

	for _, name := range providerNames {
		p := provider.GetProvider(name)
		fmt.Fprintf(out, "%s (%s)\n", p.DisplayName(), name)

		for _, m := range p.Models() {
			mode := "batch"
			if m.Streaming {
				mode = "live"
			}
			marker := " "
			if m.ID == p.DefaultModel() {
				marker = "*"
			}
			fmt.Fprintf(out, "  %s %-20s %-6s %s\n", marker, m.ID, mode, m.Description)

			if verbose {
				var labels []string
				for _, code := range m.SupportedLanguages {
					labels = append(labels, language.Label(code))
				}
				if len(labels) == 0 {
					labels = append(labels, "any")
				}
				fmt.Fprintf(out, "      languages: %s\n", strings.Join(labels, ", "))
			}
		}
		fmt.Fprintln(out)
	}
	return nil
}
