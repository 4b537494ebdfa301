package quant

import (
	"strconv"
	"strings"

	"lipidqc/internal/assembler"
	pipeerrors "lipidqc/internal/errors"
	"lipidqc/pkg/contracts/domain"
)

// LoadISTDMap reads the lipid → internal standard mapping CSV
// (columns: lipid_id, istd_id, response_factor).
func LoadISTDMap(path string) (map[string]domain.ISTDMapping, error) {
	col, records, err := assembler.ReadCSVColumns(path, "istd_map")
	if err != nil {
		return nil, err
	}
	for _, required := range []string{"lipid_id", "istd_id", "response_factor"} {
		if _, ok := col[required]; !ok {
			return nil, pipeerrors.MissingColumns("istd_map", required)
		}
	}

	out := make(map[string]domain.ISTDMapping, len(records))
	for _, rec := range records {
		lipid := strings.TrimSpace(rec[col["lipid_id"]])
		if lipid == "" {
			continue
		}
		rf, err := strconv.ParseFloat(strings.TrimSpace(rec[col["response_factor"]]), 64)
		if err != nil {
			return nil, pipeerrors.NewImportError(pipeerrors.CodeBadValue, "istd_map",
				"response_factor for "+lipid+" is not numeric")
		}
		out[lipid] = domain.ISTDMapping{
			Lipid:          lipid,
			ISTD:           strings.TrimSpace(rec[col["istd_id"]]),
			ResponseFactor: rf,
		}
	}
	if len(out) == 0 {
		return nil, pipeerrors.NewImportError(pipeerrors.CodeEmptyTable, "istd_map", "no mappings")
	}
	return out, nil
}

// LoadISTDConc reads the internal standard concentration CSV
// (columns: istd_id, concentration_nm).
func LoadISTDConc(path string) (map[string]float64, error) {
	col, records, err := assembler.ReadCSVColumns(path, "istd_conc")
	if err != nil {
		return nil, err
	}
	for _, required := range []string{"istd_id", "concentration_nm"} {
		if _, ok := col[required]; !ok {
			return nil, pipeerrors.MissingColumns("istd_conc", required)
		}
	}

	out := make(map[string]float64, len(records))
	for _, rec := range records {
		istd := strings.TrimSpace(rec[col["istd_id"]])
		if istd == "" {
			continue
		}
		conc, err := strconv.ParseFloat(strings.TrimSpace(rec[col["concentration_nm"]]), 64)
		if err != nil {
			return nil, pipeerrors.NewImportError(pipeerrors.CodeBadValue, "istd_conc",
				"concentration_nm for "+istd+" is not numeric")
		}
		out[istd] = conc
	}
	if len(out) == 0 {
		return nil, pipeerrors.NewImportError(pipeerrors.CodeEmptyTable, "istd_conc", "no standards")
	}
	return out, nil
}
