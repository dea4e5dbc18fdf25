package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"QiitaAnalyzer/internal/domain"
	"QiitaAnalyzer/internal/export"
	"QiitaAnalyzer/internal/sorter"
)

// maxParallelSuggestions bounds concurrent Gemini requests from one analyze run.
const maxParallelSuggestions = 4

func newFetchCommand(get appFunc) *cobra.Command {
	format := newEnum("text", "text", "yaml", "json")
	cmd := &cobra.Command{
		Use:   "fetch <user>",
		Short: "Fetch an author's articles and print stats and the sorted list",
		Args:  cobra.ExactArgs(1),
	}
	sf := addSortFlags(cmd.Flags())
	cmd.Flags().Var(format, "format", "output format (text|yaml|json)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		a := get()
		if err := a.Retrieve(cmd.Context(), args[0]); err != nil {
			return err
		}

		spec := sf.spec()
		snap := a.Store.Snapshot()
		cfg := a.Config().Export
		report := buildReport(snap, a.Sorter.Sort(snap.Articles, spec), sortLabel(spec), cfg.Location(), cfg.DateLayout)
		return writeReport(cmd.OutOrStdout(), format.value, report)
	}
	return cmd
}

func newExportCommand(get appFunc) *cobra.Command {
	var (
		kind   = newEnum("", "csv", "xlsx")
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export <user>",
		Short: "Write <user>_qiita_articles.<ext> in the current sort order",
		Args:  cobra.ExactArgs(1),
	}
	sf := addSortFlags(cmd.Flags())
	cmd.Flags().Var(kind, "type", "export format (csv|xlsx), default from config")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory, default from config")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		a := get()
		cfg := a.Config().Export
		if kind.value == "" {
			kind.value = cfg.Format
		}
		if outDir == "" {
			outDir = cfg.Dir
		}

		exporter, err := a.Exporters.Resolve(kind.value)
		if err != nil {
			return err
		}
		if err := a.Retrieve(cmd.Context(), args[0]); err != nil {
			return err
		}

		snap := a.Store.Snapshot()
		var buf bytes.Buffer
		if err := exporter.Export(&buf, a.Sorter.Sort(snap.Articles, sf.spec())); err != nil {
			if errors.Is(err, export.ErrNothingToExport) {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to export")
				return nil
			}
			return err
		}

		path := filepath.Join(outDir, export.FileName(snap.UserID, exporter.Extension()))
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d articles to %s\n", snap.Stats.Count, path)
		return nil
	}
	return cmd
}

func newAnalyzeCommand(get appFunc) *cobra.Command {
	var (
		topics bool
		titles int
	)
	cmd := &cobra.Command{
		Use:   "analyze <user>",
		Short: "Ask Gemini for a profile summary, topic ideas and title rewrites",
		Args:  cobra.ExactArgs(1),
	}
	sf := addSortFlags(cmd.Flags())
	cmd.Flags().BoolVar(&topics, "topics", false, "also suggest three new article topics")
	cmd.Flags().IntVar(&titles, "titles", 0, "rewrite titles of the first N articles in sort order")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		a := get()
		ctx := cmd.Context()
		if err := a.Retrieve(ctx, args[0]); err != nil {
			return err
		}

		ordered := a.Sorter.Sort(a.Store.Articles(), sf.spec())
		if titles > len(ordered) {
			titles = len(ordered)
		}
		targets := ordered[:max(titles, 0)]

		// Plain Group: one failed suggestion must not cancel the others.
		var g errgroup.Group
		g.SetLimit(maxParallelSuggestions)
		g.Go(func() error { return a.Suggestions.AnalyzeProfile(ctx) })
		if topics {
			g.Go(func() error { return a.Suggestions.SuggestTopics(ctx) })
		}
		for _, art := range targets {
			id := art.ID
			g.Go(func() error { return a.Suggestions.RequestTitleSuggestion(ctx, id) })
		}
		err := g.Wait()

		out := cmd.OutOrStdout()
		writeSuggestion(out, "Profile", a.Suggestions.Profile())
		if topics {
			writeSuggestion(out, "Topics", a.Suggestions.Topics())
		}
		for _, art := range targets {
			writeSuggestion(out, "Title: "+art.Title, a.Suggestions.TitleSuggestion(art.ID))
		}
		return err
	}
	return cmd
}

const rewriteLong = `rewrite fetches the author's articles and requests title rewrites for one
of them. Every run starts from a fresh fetch, so there is never an earlier
suggestion to dismiss; each invocation issues one request.`

func newRewriteCommand(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "rewrite <user> <article-id>",
		Short: "Suggest three catchier titles for one article",
		Long:  rewriteLong,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if err := a.Retrieve(ctx, args[0]); err != nil {
				return err
			}

			err := a.Suggestions.RequestTitleSuggestion(ctx, args[1])
			if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrConfiguration) {
				return err
			}

			title := args[1]
			if art, ok := domain.FindArticle(a.Store.Articles(), args[1]); ok {
				title = art.Title
			}
			writeSuggestion(cmd.OutOrStdout(), "Title: "+title, a.Suggestions.TitleSuggestion(args[1]))
			return err
		},
	}
}

func newWatchCommand(get appFunc) *cobra.Command {
	var (
		cronSpec string
		kind     = newEnum("", "csv", "xlsx")
		outDir   string
	)
	cmd := &cobra.Command{
		Use:   "watch <user>",
		Short: "Re-fetch on a cron schedule, export and publish a Telegram digest",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&cronSpec, "cron", "", "five-field cron expression, default from config")
	cmd.Flags().Var(kind, "type", "export format (csv|xlsx), default from config")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory, default from config")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		a := get()
		watcher, err := a.NewWatcher(args[0], cronSpec, kind.value, outDir)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		logArgs := []any{"user", args[0]}
		if next, ok := watcher.NextRun(time.Now()); ok {
			logArgs = append(logArgs, "next_run", next)
		}
		a.Logger().Info("watching", logArgs...)
		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return watcher.Stop(stopCtx)
	}
	return cmd
}

func sortLabel(spec sorter.Spec) string {
	return fmt.Sprintf("%s %s", spec.Key, spec.Direction)
}
