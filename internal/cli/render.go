package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"QiitaAnalyzer/internal/domain"
	"QiitaAnalyzer/internal/stats"
	"QiitaAnalyzer/internal/suggest"
	"QiitaAnalyzer/internal/usecase"
)

type articleView struct {
	ID      string   `json:"id" yaml:"id"`
	Title   string   `json:"title" yaml:"title"`
	URL     string   `json:"url" yaml:"url"`
	Likes   int      `json:"likes" yaml:"likes"`
	Stocks  int      `json:"stocks" yaml:"stocks"`
	Created string   `json:"created" yaml:"created"`
	Tags    []string `json:"tags" yaml:"tags"`
	Excerpt string   `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
}

type reportView struct {
	User          string        `json:"user" yaml:"user"`
	Sort          string        `json:"sort" yaml:"sort"`
	Count         int           `json:"count" yaml:"count"`
	TotalLikes    int           `json:"total_likes" yaml:"total_likes"`
	TotalStocks   int           `json:"total_stocks" yaml:"total_stocks"`
	AverageLikes  float64       `json:"average_likes" yaml:"average_likes"`
	AverageStocks float64       `json:"average_stocks" yaml:"average_stocks"`
	Articles      []articleView `json:"articles" yaml:"articles"`
}

func buildReport(snap usecase.Snapshot, ordered []domain.Article, sortLabel string, loc *time.Location, layout string) reportView {
	report := reportView{
		User:          snap.UserID,
		Sort:          sortLabel,
		Count:         snap.Stats.Count,
		TotalLikes:    snap.Stats.TotalLikes,
		TotalStocks:   snap.Stats.TotalStocks,
		AverageLikes:  stats.AverageLikes(snap.Stats),
		AverageStocks: stats.AverageStocks(snap.Stats),
		Articles:      make([]articleView, 0, len(ordered)),
	}
	for _, art := range ordered {
		report.Articles = append(report.Articles, articleView{
			ID:      art.ID,
			Title:   art.Title,
			URL:     art.URL,
			Likes:   art.Likes,
			Stocks:  art.Stocks,
			Created: createdDate(art, loc, layout),
			Tags:    art.TagNames(),
			Excerpt: art.Excerpt,
		})
	}
	return report
}

func createdDate(art domain.Article, loc *time.Location, layout string) string {
	if art.CreatedAt.IsZero() {
		return art.CreatedRaw
	}
	return art.CreatedAt.In(loc).Format(layout)
}

func writeReport(w io.Writer, format string, report reportView) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeReportText(w, report)
	}
}

func writeReportText(w io.Writer, r reportView) error {
	var b strings.Builder
	fmt.Fprintf(&b, "User: %s (sorted by %s)\n", r.User, r.Sort)
	fmt.Fprintf(&b, "Articles: %s  Likes: %s (avg %.1f)  Bookmarks: %s (avg %.1f)\n",
		humanize.Comma(int64(r.Count)),
		humanize.Comma(int64(r.TotalLikes)), r.AverageLikes,
		humanize.Comma(int64(r.TotalStocks)), r.AverageStocks)

	for i, art := range r.Articles {
		fmt.Fprintf(&b, "\n%3d. %s\n", i+1, art.Title)
		fmt.Fprintf(&b, "     %s  likes %s  bookmarks %s", art.Created, humanize.Comma(int64(art.Likes)), humanize.Comma(int64(art.Stocks)))
		if len(art.Tags) > 0 {
			fmt.Fprintf(&b, "  [%s]", strings.Join(art.Tags, ", "))
		}
		fmt.Fprintf(&b, "\n     %s  (%s)\n", art.URL, art.ID)
		if art.Excerpt != "" {
			fmt.Fprintf(&b, "     %s\n", art.Excerpt)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeSuggestion(w io.Writer, heading string, st suggest.State) {
	fmt.Fprintf(w, "== %s (%s)\n", heading, suggest.StatusName(st))
	switch s := st.(type) {
	case suggest.Resolved:
		fmt.Fprintln(w, strings.TrimSpace(s.Text))
	case suggest.Failed:
		fmt.Fprintln(w, s.Message)
	}
	fmt.Fprintln(w)
}
