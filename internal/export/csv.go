package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"QiitaAnalyzer/internal/domain"
)

const (
	utf8BOM = "\ufeff"

	// DefaultDateLayout renders dates the way a ja-JP locale prints them.
	DefaultDateLayout = "2006/1/2"
)

// ErrNothingToExport is returned for an empty collection; no bytes are written.
var ErrNothingToExport = errors.New("nothing to export")

var csvHeader = []string{"title", "url", "likes", "created-date", "tags"}

// CSV writes the collection as BOM-prefixed UTF-8 with every field quoted.
type CSV struct {
	location   *time.Location
	dateLayout string
}

// NewCSV builds a CSV exporter. Dates are rendered in loc with layout;
// empty arguments fall back to UTC and DefaultDateLayout.
func NewCSV(loc *time.Location, layout string) *CSV {
	if loc == nil {
		loc = time.UTC
	}
	if layout == "" {
		layout = DefaultDateLayout
	}
	return &CSV{location: loc, dateLayout: layout}
}

// Name identifies the exporter inside the registry.
func (c *CSV) Name() string {
	return "csv"
}

// Extension is the file suffix without a dot.
func (c *CSV) Extension() string {
	return "csv"
}

// Export writes rows in the order given; callers sort beforehand.
func (c *CSV) Export(w io.Writer, articles []domain.Article) error {
	if len(articles) == 0 {
		return ErrNothingToExport
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	if err := writeRecord(bw, csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, art := range articles {
		record := []string{
			art.Title,
			art.URL,
			strconv.Itoa(art.Likes),
			formatDate(art, c.location, c.dateLayout),
			strings.Join(art.TagNames(), " "),
		}
		if err := writeRecord(bw, record); err != nil {
			return fmt.Errorf("write article %s: %w", art.ID, err)
		}
	}

	return bw.Flush()
}

func writeRecord(w *bufio.Writer, fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(quote(field)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

func quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func formatDate(art domain.Article, loc *time.Location, layout string) string {
	if art.CreatedAt.IsZero() {
		return art.CreatedRaw
	}
	return art.CreatedAt.In(loc).Format(layout)
}
