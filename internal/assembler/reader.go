package assembler

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	pipeerrors "lipidqc/internal/errors"
)

// Metadata columns every wide table must carry. All remaining columns
// are treated as per-lipid raw areas.
var requiredColumns = []string{"sample_id", "qc_type", "batch"}

// WideTable is the raw peak-area input: one row per sample in
// acquisition order, one numeric column per lipid.
type WideTable struct {
	Lipids  []string
	Samples []WideSample
}

// WideSample is one acquisition row of the wide table.
type WideSample struct {
	SampleID string
	QCType   string
	Batch    string
	// Areas is aligned with WideTable.Lipids. Missing cells are NaN.
	Areas []float64
}

// ReadWide loads the wide peak-area table from a CSV or Excel file,
// chosen by extension. sheet selects the Excel sheet; empty means the
// first sheet.
func ReadWide(path, sheet string) (*WideTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return readWideExcel(path, sheet)
	default:
		return readWideCSV(path)
	}
}

func readWideCSV(path string) (*WideTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pipeerrors.WrapImport("wide_table", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, pipeerrors.WrapImport("wide_table", err)
	}
	return parseWideRows(rows)
}

func readWideExcel(path, sheet string) (*WideTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, pipeerrors.WrapImport("wide_table", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, pipeerrors.NewImportError(pipeerrors.CodeEmptyTable, "wide_table", "workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, pipeerrors.WrapImport("wide_table", fmt.Errorf("sheet %q: %w", sheet, err))
	}
	return parseWideRows(rows)
}

func parseWideRows(rows [][]string) (*WideTable, error) {
	if len(rows) < 2 {
		return nil, pipeerrors.NewImportError(pipeerrors.CodeEmptyTable, "wide_table", "no data rows")
	}

	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, required := range requiredColumns {
		if _, ok := col[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, pipeerrors.MissingColumns("wide_table", missing...)
	}

	meta := map[int]bool{
		col["sample_id"]: true,
		col["qc_type"]:   true,
		col["batch"]:     true,
	}
	var (
		lipids    []string
		lipidCols []int
	)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if meta[i] || name == "" {
			continue
		}
		lipids = append(lipids, name)
		lipidCols = append(lipidCols, i)
	}
	if len(lipids) == 0 {
		return nil, pipeerrors.NewImportError(pipeerrors.CodeEmptyTable, "wide_table", "no lipid columns")
	}

	table := &WideTable{Lipids: lipids}
	for _, row := range rows[1:] {
		id := cellAt(row, col["sample_id"])
		if id == "" {
			continue
		}
		sample := WideSample{
			SampleID: id,
			QCType:   cellAt(row, col["qc_type"]),
			Batch:    cellAt(row, col["batch"]),
			Areas:    make([]float64, len(lipidCols)),
		}
		for j, ci := range lipidCols {
			sample.Areas[j] = parseNumber(cellAt(row, ci))
		}
		table.Samples = append(table.Samples, sample)
	}
	if len(table.Samples) == 0 {
		return nil, pipeerrors.NewImportError(pipeerrors.CodeEmptyTable, "wide_table", "no sample rows")
	}
	return table, nil
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseNumber converts one cell to a float. Empty cells and the usual
// spreadsheet missing markers degrade to NaN rather than aborting the
// import; only structural problems are fatal.
func parseNumber(s string) float64 {
	switch strings.ToUpper(s) {
	case "", "NA", "N/A", "#N/A", "NAN", "NULL":
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ReadCSVColumns reads a small reference CSV and returns its records
// keyed by lowercased header name. Shared by the reference loaders.
func ReadCSVColumns(path, table string) (map[string]int, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, pipeerrors.WrapImport(table, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, pipeerrors.WrapImport(table, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, pipeerrors.WrapImport(table, err)
		}
		records = append(records, rec)
	}
	return col, records, nil
}
