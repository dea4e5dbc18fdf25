// Package cli is the command-line front end over the article store, sorter,
// exporters and suggestion orchestrator.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"QiitaAnalyzer/internal/app"
	"QiitaAnalyzer/internal/config"
	"QiitaAnalyzer/internal/domain"
	"QiitaAnalyzer/internal/logging"
)

type globalOptions struct {
	configPath string
	logLevel   string
	token      string
	geminiKey  string
}

// appFunc returns the application built by the root pre-run hook.
type appFunc func() *app.Application

// NewRootCommand builds the command tree writing results to out and logs to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	opts := &globalOptions{}
	var application *app.Application

	root := &cobra.Command{
		Use:   "qiitaanalyzer",
		Short: "Analyze a Qiita author's articles",
		Long: `qiitaanalyzer fetches a Qiita author's latest articles, prints engagement
stats, exports the list as CSV or XLSX and asks Gemini for a profile summary,
new topic ideas and title rewrites.

Credentials come from the config file (QIITA_ANALYZER_CONFIG), environment
variables (QIITA_ACCESS_TOKEN, GEMINI_API_KEY) or the global flags below.

Examples:
  qiitaanalyzer fetch alice --sort likes_count
  qiitaanalyzer export alice --type xlsx --out ./exports
  qiitaanalyzer analyze alice --topics --titles 3
  qiitaanalyzer rewrite alice 4f1c2e0a9b8d7c6e5f4a
  qiitaanalyzer watch alice --cron "0 6 * * *"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(opts)
			application = app.New(cfg, logging.NewWriter(errOut, cfg.Logging.Level))
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config file (default: $QIITA_ANALYZER_CONFIG)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	flags.StringVar(&opts.token, "token", "", "Qiita access token")
	flags.StringVar(&opts.geminiKey, "gemini-key", "", "Gemini API key")

	get := func() *app.Application { return application }
	root.AddCommand(
		newFetchCommand(get),
		newExportCommand(get),
		newAnalyzeCommand(get),
		newRewriteCommand(get),
		newWatchCommand(get),
	)
	return root
}

// Execute runs the CLI against the process arguments. It is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", domain.UserMessage(err))
		os.Exit(1)
	}
}

func loadConfig(opts *globalOptions) config.Config {
	var cfg config.Config
	if opts.configPath != "" {
		cfg = config.LoadFile(opts.configPath)
	} else {
		cfg = config.Load()
	}

	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.token != "" {
		cfg.Qiita.AccessToken = opts.token
	}
	if opts.geminiKey != "" {
		cfg.Gemini.APIKey = opts.geminiKey
	}
	return cfg
}
