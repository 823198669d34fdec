// Package report renders enrichment-status summaries: a plain-text view
// for CLI output and an XLSX workbook for sharing progress.
package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/secrag/filingcite/store"
)

// Overall aggregates per-source stats into corpus-wide totals.
func Overall(stats []store.SourceStats) store.SourceStats {
	total := store.SourceStats{SourceFile: "all"}
	for _, s := range stats {
		total.Total += s.Total
		total.Enriched += s.Enriched
	}
	return total
}

// Text renders per-source enrichment stats as an aligned plain-text table.
func Text(stats []store.SourceStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-24s %10s %10s %12s %8s\n",
		"SOURCE", "TOTAL", "ENRICHED", "REMAINING", "RATE")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-24s %10d %10d %12d %7.1f%%\n",
			s.SourceFile, s.Total, s.Enriched, s.NotEnriched(), s.Rate())
	}
	if len(stats) > 1 {
		o := Overall(stats)
		fmt.Fprintf(&b, "%-24s %10d %10d %12d %7.1f%%\n",
			"TOTAL", o.Total, o.Enriched, o.NotEnriched(), o.Rate())
	}
	return b.String()
}

// sheetName is the single worksheet holding the status table.
const sheetName = "Enrichment Status"

// WriteWorkbook writes per-source enrichment stats to an XLSX file.
func WriteWorkbook(path string, stats []store.SourceStats) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := []any{"Source file", "Total chunks", "Enriched", "Remaining", "Rate (%)"}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := 2
	for _, s := range stats {
		cell := fmt.Sprintf("A%d", row)
		values := []any{s.SourceFile, s.Total, s.Enriched, s.NotEnriched(), s.Rate()}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("writing row for %s: %w", s.SourceFile, err)
		}
		row++
	}

	if len(stats) > 1 {
		o := Overall(stats)
		cell := fmt.Sprintf("A%d", row)
		values := []any{"TOTAL", o.Total, o.Enriched, o.NotEnriched(), o.Rate()}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("writing totals row: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}
