// Package render writes report tables in output formats.
package render

import (
	"encoding/csv"
	"fmt"
	"io"

	"facility-usage-backend/internal/report"
)

// ContentTypeCSV is the media type of WriteCSV output.
const ContentTypeCSV = "text/csv; charset=utf-8"

// WriteCSV writes the header and rows of t as RFC 4180 CSV.
func WriteCSV(w io.Writer, t *report.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// Filename is the attachment name of a rendered report.
func Filename(t *report.Table) string {
	return t.Name + ".csv"
}
