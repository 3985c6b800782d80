package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/wesm/livesearch/internal/config"
	"github.com/wesm/livesearch/internal/remote"
	"github.com/wesm/livesearch/internal/tui"
)

var (
	searchURL      string
	searchDebounce time.Duration
	allowInsecure  bool
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive search box",
	Long: `Open a search box that queries a livesearch endpoint as you type.

Every keystroke except the modifier keys, Enter and the arrow keys cancels
the request in flight and sends a new one for the current text, even when the
text did not change (Tab, Ctrl+A). Clearing the box cancels without sending.

Keys:
  ↑/↓         Move through the results
  Esc         Clear the box
  Ctrl+C      Quit

Logs are written to livesearch.log in the home directory while the box is
open.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
			return fmt.Errorf("tui needs an interactive terminal; use 'livesearch query' in scripts")
		}
		applySearchFlags(cmd, &cfg.Search)

		// The terminal belongs to the UI; send log output to a file.
		logFile, err := tea.LogToFile(cfg.LogFilePath(), "livesearch")
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer logFile.Close()
		tuiLogger := newLogger(logFile, verbose)

		client, err := newSearchClient(cfg.Search, tuiLogger)
		if err != nil {
			return err
		}

		model := tui.New(client, tui.Options{
			Source:   cfg.Search.URL,
			Version:  Version,
			Debounce: cfg.Search.Debounce(),
			Logger:   tuiLogger,
		})
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run tui: %w", err)
		}
		return nil
	},
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// applySearchFlags overrides [search] values with flags the user set.
func applySearchFlags(cmd *cobra.Command, s *config.SearchConfig) {
	flags := cmd.Flags()
	if flags.Changed("url") {
		s.URL = searchURL
	}
	if flags.Changed("debounce") {
		s.DebounceMS = int(searchDebounce / time.Millisecond)
	}
	if flags.Changed("allow-insecure") {
		s.AllowInsecure = allowInsecure
	}
}

// newSearchClient builds the HTTP query service from the [search] section.
func newSearchClient(s config.SearchConfig, l *slog.Logger) (*remote.Client, error) {
	client, err := remote.New(remote.Config{
		URL:           s.URL,
		AllowInsecure: s.AllowInsecure,
		Timeout:       s.Timeout(),
		RateLimit:     s.RateLimitQPS,
		Burst:         s.RateLimitBurst,
		Fields:        s.Fields,
		Logger:        l,
	})
	if err != nil {
		return nil, fmt.Errorf("search endpoint: %w", err)
	}
	return client, nil
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&searchURL, "url", "", "search endpoint (default from config)")
	cmd.Flags().BoolVar(&allowInsecure, "allow-insecure", false, "allow plain http to non-local hosts")
}

func init() {
	addSearchFlags(tuiCmd)
	tuiCmd.Flags().DurationVar(&searchDebounce, "debounce", 0, "delay before a keystroke is sent, e.g. 150ms")
	rootCmd.AddCommand(tuiCmd)
}
