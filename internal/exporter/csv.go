// Package exporter writes the pipeline's terminal artifacts: the QC
// summary, the final wide concentration table and the dropped-lipid
// audit list, as CSV and optionally as one Excel workbook.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"lipidqc/pkg/contracts/domain"
)

// CSVWriter writes report CSVs under a fixed output directory.
type CSVWriter struct {
	outputDir string
	logger    *slog.Logger
}

// NewCSVWriter creates a CSV writer rooted at outputDir.
func NewCSVWriter(outputDir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{outputDir: outputDir, logger: logger}
}

// WriteOptions configures one CSV file.
type WriteOptions struct {
	Headers []string
	Records [][]string
	// BOMPrefix writes a UTF-8 BOM so Excel opens the file correctly.
	BOMPrefix bool
}

// WriteCSV writes a CSV file relative to the output directory.
func (w *CSVWriter) WriteCSV(name string, options WriteOptions) error {
	fullPath := filepath.Join(w.outputDir, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	w.logger.Info("writing CSV file",
		slog.String("path", fullPath),
		slog.Int("records", len(options.Records)),
	)

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", fullPath, err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("write BOM: %w", err)
		}
	}

	cw := csv.NewWriter(file)
	defer cw.Flush()
	if len(options.Headers) > 0 {
		if err := cw.Write(options.Headers); err != nil {
			return fmt.Errorf("write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	return cw.Error()
}

// WriteQCSummary writes the audit QC summary, one row per lipid.
func (w *CSVWriter) WriteQCSummary(name string, records []domain.QCRecord) error {
	headers, rows := QCSummaryRows(records)
	return w.WriteCSV(name, WriteOptions{Headers: headers, Records: rows, BOMPrefix: true})
}

// WriteResultTable writes the final wide concentration matrix.
func (w *CSVWriter) WriteResultTable(name string, table domain.ResultTable) error {
	headers, rows := ResultTableRows(table)
	return w.WriteCSV(name, WriteOptions{Headers: headers, Records: rows, BOMPrefix: true})
}

// WriteDroppedLipids writes the audit list of lipids excluded for
// missing ISTD mappings.
func (w *CSVWriter) WriteDroppedLipids(name string, lipids []string) error {
	rows := make([][]string, len(lipids))
	for i, lipid := range lipids {
		rows[i] = []string{lipid, "no ISTD mapping"}
	}
	return w.WriteCSV(name, WriteOptions{
		Headers:   []string{"lipid_id", "reason"},
		Records:   rows,
		BOMPrefix: true,
	})
}

// QCSummaryRows flattens QC records into header + rows. Curve columns
// are emitted per curve index present anywhere in the record set, so
// every row has the same shape.
func QCSummaryRows(records []domain.QCRecord) ([]string, [][]string) {
	curveSet := make(map[int]bool)
	for _, r := range records {
		for idx := range r.CurveR2 {
			curveSet[idx] = true
		}
	}
	curves := make([]int, 0, len(curveSet))
	for idx := range curveSet {
		curves = append(curves, idx)
	}
	sort.Ints(curves)

	headers := []string{
		"lipid_id", "class", "Area_SPL", "Conc_SPL", "SB_ratio",
		"CV_TQC", "CV_BQC", "CV_SAMPLE", "D_ratio",
	}
	for _, idx := range curves {
		headers = append(headers,
			fmt.Sprintf("R2_curve_%d", idx),
			fmt.Sprintf("pvalue_curve_%d", idx),
		)
	}
	headers = append(headers, "is_quantifier", "is_istd", "qc_pass")

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{
			r.Lipid, r.Class,
			formatFloat(r.AreaSPL), formatFloat(r.ConcSPL), formatFloat(r.SBRatio),
			formatFloat(r.CVTQC), formatFloat(r.CVBQC), formatFloat(r.CVSample),
			formatFloat(r.DRatio),
		}
		for _, idx := range curves {
			r2, okR2 := r.CurveR2[idx]
			p, okP := r.CurveP[idx]
			if !okR2 {
				r2 = math.NaN()
			}
			if !okP {
				p = math.NaN()
			}
			row = append(row, formatFloat(r2), formatFloat(p))
		}
		row = append(row,
			strconv.FormatBool(r.IsQuantifier),
			strconv.FormatBool(r.IsISTD),
			strconv.FormatBool(r.Pass),
		)
		rows = append(rows, row)
	}
	return headers, rows
}

// ResultTableRows flattens the wide matrix into header + rows.
func ResultTableRows(table domain.ResultTable) ([]string, [][]string) {
	headers := append([]string{"sample_id"}, table.Lipids...)
	rows := make([][]string, len(table.Samples))
	for i, sample := range table.Samples {
		row := make([]string, 1+len(table.Lipids))
		row[0] = sample
		for j := range table.Lipids {
			row[1+j] = formatFloat(table.Values[i][j])
		}
		rows[i] = row
	}
	return headers, rows
}

// formatFloat renders a value for export; missing values become empty
// cells rather than the string NaN.
func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}
