package exporter

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"lipidqc/pkg/contracts/domain"
)

// Sheet names of the report workbook.
const (
	SheetQCSummary      = "QC Summary"
	SheetConcentrations = "Concentrations"
)

// ExcelWriter produces one report workbook holding the QC summary and
// the final concentration table.
type ExcelWriter struct {
	outputDir string
	logger    *slog.Logger
}

// NewExcelWriter creates an Excel writer rooted at outputDir.
func NewExcelWriter(outputDir string, logger *slog.Logger) *ExcelWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelWriter{outputDir: outputDir, logger: logger}
}

// WriteReport writes the workbook to name under the output directory.
func (w *ExcelWriter) WriteReport(name string, records []domain.QCRecord, table domain.ResultTable) error {
	f := excelize.NewFile()
	defer f.Close()

	summaryHeaders, summaryRows := QCSummaryRows(records)
	if err := writeSheet(f, SheetQCSummary, summaryHeaders, summaryRows); err != nil {
		return err
	}
	resultHeaders, resultRows := ResultTableRows(table)
	if err := writeSheet(f, SheetConcentrations, resultHeaders, resultRows); err != nil {
		return err
	}
	// Drop the default sheet excelize creates.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	fullPath := filepath.Join(w.outputDir, name)
	w.logger.Info("writing Excel report",
		slog.String("path", fullPath),
		slog.Int("qc_records", len(records)),
		slog.Int("samples", len(table.Samples)),
	)
	if err := f.SaveAs(fullPath); err != nil {
		return fmt.Errorf("save workbook %s: %w", fullPath, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	if err := setStringRow(f, sheet, 1, headers); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setStringRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setStringRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", rowNum, err)
	}
	asAny := make([]interface{}, len(values))
	for i, v := range values {
		asAny[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &asAny); err != nil {
		return fmt.Errorf("write row %d of %s: %w", rowNum, sheet, err)
	}
	return nil
}
