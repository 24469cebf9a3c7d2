package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gubarz/pagemd/internal/blocks"
	"github.com/gubarz/pagemd/internal/config"
	"github.com/gubarz/pagemd/internal/document"
	"github.com/gubarz/pagemd/internal/logging"
	"github.com/gubarz/pagemd/internal/marks"
	"github.com/gubarz/pagemd/internal/session"
	"github.com/gubarz/pagemd/internal/store"
	"github.com/gubarz/pagemd/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "0.1.0"

var logCloser io.Closer

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pagemd [page]",
		Short: "Block editor for Markdown pages",
		Long: `Terminal editor that treats a Markdown page as a list of blocks.

Select a block and press Enter to edit it, Tab to keep the change and
Esc to throw it away. Pages are saved automatically.`,
		Args:              cobra.MaximumNArgs(1),
		PersistentPreRunE: initConfig,
		RunE:              runEditor,
		SilenceUsage:      true,
	}

	rootCmd.PersistentFlags().StringP("dir", "d", "", "Directory holding the pages")
	rootCmd.PersistentFlags().StringP("storage", "s", "", "Page storage: fs or sqlite")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (implies --storage sqlite)")

	viper.BindPFlag("content_dir", rootCmd.PersistentFlags().Lookup("dir"))
	viper.BindPFlag("storage", rootCmd.PersistentFlags().Lookup("storage"))
	viper.BindPFlag("sqlite_path", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(
		newExportCmd(),
		newPagesCmd(),
		newNewCmd(),
		newBlocksCmd(),
		newClassifyCmd(),
		newHistoryCmd(),
		newRmCmd(),
	)
	return rootCmd
}

func initConfig(cmd *cobra.Command, args []string) error {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
	}
	if cmd.Flags().Changed("db") && !cmd.Flags().Changed("storage") {
		config.SetStorage("sqlite")
	}

	closeLog()
	closer, err := logging.Setup(config.GetLogFile(), config.GetLogLevel())
	if err != nil {
		return err
	}
	logCloser = closer
	return nil
}

func closeLog() {
	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}
}

// ============================================================================
// Shared setup
// ============================================================================

func openBackend(ctx context.Context) (store.Backend, error) {
	return store.Open(ctx, store.Options{
		Backend:    config.GetStorage(),
		ContentDir: config.GetContentDir(),
		SQLitePath: config.GetSQLitePath(),
		Logger:     logging.With("component", "store"),
	})
}

func policies() (blocks.Policy, session.SplitPolicy, error) {
	policy, err := blocks.ParsePolicy(config.GetSegmentation())
	if err != nil {
		return policy, 0, err
	}
	split, err := session.ParseSplitPolicy(config.GetSplit())
	return policy, split, err
}

func newDocument() (*document.Controller, error) {
	policy, split, err := policies()
	if err != nil {
		return nil, err
	}
	return document.New(document.Options{
		Policy: policy,
		Split:  split,
		Logger: logging.With("component", "document"),
	}), nil
}

func palette() marks.Palette {
	return marks.DefaultPalette.Merge(config.GetColors())
}

// resolvePage turns the page argument into a route. A path to an existing
// .md file opens that file's directory with file storage.
func resolvePage(args []string) (string, error) {
	if len(args) == 0 {
		return store.CleanPath("", config.GetDefaultPage())
	}
	arg := args[0]
	if strings.HasSuffix(arg, ".md") {
		if info, err := os.Stat(arg); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return "", fmt.Errorf("error resolving path: %w", err)
			}
			config.SetContentDir(filepath.Dir(abs))
			config.SetStorage("fs")
			arg = filepath.Base(abs)
		}
	}
	return store.CleanPath(arg, config.GetDefaultPage())
}

// ============================================================================
// Editor
// ============================================================================

func runEditor(cmd *cobra.Command, args []string) error {
	page, err := resolvePage(args)
	if err != nil {
		return err
	}
	policy, split, err := policies()
	if err != nil {
		return err
	}

	backend, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer backend.Close()

	contentDir := ""
	if _, ok := backend.(*store.FileStore); ok {
		contentDir = config.GetContentDir()
	}

	logging.PageEvent("open", page, "storage", config.GetStorage())
	return ui.Run(ui.Options{
		Backend:       backend,
		Page:          page,
		DefaultPage:   config.GetDefaultPage(),
		Policy:        policy,
		Split:         split,
		Palette:       palette(),
		AutosaveDelay: config.GetAutosaveDelay(),
		CommitMessage: config.GetCommitMessage(),
		ContentDir:    contentDir,
		Opener:        ui.SystemOpener(config.GetBrowser()),
		Logger:        logging.With("component", "ui"),
	})
}

func main() {
	rootCmd := newRootCmd()
	rootCmd.Version = version
	err := rootCmd.Execute()
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}
