package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"QiitaAnalyzer/internal/domain"
	"QiitaAnalyzer/internal/export"
	"QiitaAnalyzer/internal/ports"
	"QiitaAnalyzer/internal/sorter"
	"QiitaAnalyzer/internal/stats"
)

const digestTopArticles = 3

// WatcherDeps wires the scheduled retrieve → export → notify job.
type WatcherDeps struct {
	Store     *Store
	Sorter    *sorter.Sorter
	Exporters *export.Registry
	Format    string
	OutDir    string
	Notifier  ports.Notifier
	Driver    ports.Scheduler
	Logger    *slog.Logger
}

// Watcher re-fetches one author on a schedule.
type Watcher struct {
	store     *Store
	sorter    *sorter.Sorter
	exporters *export.Registry
	format    string
	outDir    string
	notifier  ports.Notifier
	driver    ports.Scheduler
	logger    *slog.Logger

	userID string
	token  string
}

// NewWatcher returns a watcher for userID.
func NewWatcher(deps WatcherDeps, userID, token string) *Watcher {
	return &Watcher{
		store:     deps.Store,
		sorter:    deps.Sorter,
		exporters: deps.Exporters,
		format:    deps.Format,
		outDir:    deps.OutDir,
		notifier:  deps.Notifier,
		driver:    deps.Driver,
		logger:    deps.Logger,
		userID:    userID,
		token:     token,
	}
}

// Start registers RunOnce with the scheduler driver.
func (w *Watcher) Start(ctx context.Context) error {
	if w.driver == nil || w.store == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if err := w.RunOnce(ctx, trigger); err != nil && w.logger != nil {
			w.logger.Warn("scheduled run failed", "user", w.userID, "error", err)
		}
	}

	return w.driver.Start(ctx, job)
}

// NextRun reports the driver's next activation after now, when the driver can tell.
func (w *Watcher) NextRun(now time.Time) (time.Time, bool) {
	planner, ok := w.driver.(interface{ Next(time.Time) time.Time })
	if !ok {
		return time.Time{}, false
	}
	next := planner.Next(now)
	return next, !next.IsZero()
}

// Stop tears down the underlying scheduler.
func (w *Watcher) Stop(ctx context.Context) error {
	if w.driver == nil {
		return nil
	}
	return w.driver.Stop(ctx)
}

// RunOnce retrieves, writes the export file and publishes a digest.
func (w *Watcher) RunOnce(ctx context.Context, trigger time.Time) error {
	if err := w.store.Retrieve(ctx, w.userID, w.token); err != nil {
		return err
	}

	snap := w.store.Snapshot()
	ordered := snap.Articles
	if w.sorter != nil {
		ordered = w.sorter.Sort(snap.Articles, sorter.DefaultSpec)
	}

	path, err := w.writeExport(ordered)
	if err != nil {
		return err
	}

	if w.notifier == nil {
		return nil
	}

	top := snap.Articles
	if w.sorter != nil {
		top = w.sorter.Sort(snap.Articles, sorter.Spec{Key: sorter.KeyLikes, Direction: sorter.Descending})
	}
	digest := BuildDigest(snap, top, path, trigger)
	if err := w.notifier.PublishDigest(ctx, digest); err != nil {
		return fmt.Errorf("publish digest: %w", err)
	}
	return nil
}

func (w *Watcher) writeExport(ordered []domain.Article) (string, error) {
	if w.exporters == nil {
		return "", nil
	}
	exporter, err := w.exporters.Resolve(w.format)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := exporter.Export(&buf, ordered); err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			w.debug("nothing to export", "user", w.userID)
			return "", nil
		}
		return "", fmt.Errorf("export %s: %w", exporter.Name(), err)
	}

	path := filepath.Join(w.outDir, export.FileName(w.userID, exporter.Extension()))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	w.debug("export written", "path", path, "bytes", buf.Len())
	return path, nil
}

// BuildDigest renders a plain-text stats summary. top is expected in display order.
func BuildDigest(snap Snapshot, top []domain.Article, exportPath string, trigger time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Qiita digest for %s (%s)\n", snap.UserID, trigger.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Articles: %s\n", humanize.Comma(int64(snap.Stats.Count)))
	fmt.Fprintf(&b, "Likes: %s (avg %.1f)\n", humanize.Comma(int64(snap.Stats.TotalLikes)), stats.AverageLikes(snap.Stats))
	fmt.Fprintf(&b, "Bookmarks: %s (avg %.1f)\n", humanize.Comma(int64(snap.Stats.TotalStocks)), stats.AverageStocks(snap.Stats))

	if len(top) > digestTopArticles {
		top = top[:digestTopArticles]
	}
	if len(top) > 0 {
		b.WriteString("\nTop articles:\n")
		for _, art := range top {
			fmt.Fprintf(&b, "- %s (%s likes)\n  %s\n", art.Title, humanize.Comma(int64(art.Likes)), art.URL)
		}
	}
	if exportPath != "" {
		fmt.Fprintf(&b, "\nExport: %s\n", exportPath)
	}
	return b.String()
}

func (w *Watcher) debug(msg string, args ...interface{}) {
	if w.logger != nil {
		w.logger.Debug(msg, args...)
	}
}
