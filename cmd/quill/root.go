package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"quill/internal/config"
	"quill/internal/logging"
	"quill/internal/tui"
)

var (
	cfgPath string
	verbose bool
	logFile string
)

var rootCmd = &cobra.Command{
	Use:   "quill [file]",
	Short: "Terminal text editor with dictation and read-aloud",
	Long: `Quill edits plain text in the terminal and right-aligns lines written in
Arabic script. Dictation types what you say, read-aloud speaks the document.
Word and OpenDocument files can be opened and saved as plain text.

Press F1 inside the editor for the key list.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runEditor,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML or TOML config file (default ./quill.yaml, then ~/.config/quill/config.yaml)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file (overrides log.file)")
}

func loadConfig() (*config.AppConfig, error) {
	if cfgPath == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(cfgPath)
}

func runEditor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	lc := logging.Config{File: cfg.Log.File, Level: cfg.Log.Level, Verbose: verbose}
	if logFile != "" {
		lc.File = logFile
	}
	logger, closer, err := logging.New(lc)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	m := tui.New(ctx, a.Deps(), tui.Options{
		Path:       path,
		UndoLimit:  cfg.Editor.UndoLimit,
		TabWidth:   cfg.Editor.TabWidth,
		Theme:      cfg.Theme.Mode,
		Background: cfg.Theme.Background,
	})
	logger.Info("editor started", "path", path, "version", version)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
