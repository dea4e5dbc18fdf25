package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tealeg/xlsx/v3"

	"QiitaAnalyzer/internal/domain"
)

const sheetName = "Articles"

var xlsxHeader = []string{"title", "url", "likes", "stocks", "created-date", "tags", "excerpt"}

// XLSX writes the collection as a single-sheet workbook.
type XLSX struct {
	location *time.Location
}

// NewXLSX builds a workbook exporter; dates are stored in loc.
func NewXLSX(loc *time.Location) *XLSX {
	if loc == nil {
		loc = time.UTC
	}
	return &XLSX{location: loc}
}

func (x *XLSX) Name() string {
	return "xlsx"
}

func (x *XLSX) Extension() string {
	return "xlsx"
}

// Export writes one row per article in the order given.
func (x *XLSX) Export(w io.Writer, articles []domain.Article) error {
	if len(articles) == 0 {
		return ErrNothingToExport
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range xlsxHeader {
		header.AddCell().Value = h
	}

	for _, art := range articles {
		row := sheet.AddRow()
		row.AddCell().Value = art.Title
		row.AddCell().Value = art.URL
		row.AddCell().SetInt(art.Likes)
		row.AddCell().SetInt(art.Stocks)

		created := row.AddCell()
		if art.CreatedAt.IsZero() {
			created.Value = art.CreatedRaw
		} else {
			created.SetDate(art.CreatedAt.In(x.location))
		}

		row.AddCell().Value = strings.Join(art.TagNames(), " ")
		row.AddCell().Value = art.Excerpt
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
