package domain

import "sort"

// QCRecord is the per-lipid QC summary produced by the metric engine and
// finalised by the filter. One record per lipid that reached the metric
// stage; terminal report artifact.
type QCRecord struct {
	Lipid string `json:"lipid"`

	AreaSPL  float64 `json:"area_spl"`
	ConcSPL  float64 `json:"conc_spl"`
	SBRatio  float64 `json:"sb_ratio"`
	CVTQC    float64 `json:"cv_tqc"`
	CVBQC    float64 `json:"cv_bqc"`
	CVSample float64 `json:"cv_sample"`
	DRatio   float64 `json:"d_ratio"`

	// CurveR2 and CurveP hold the response-curve fit quality keyed by
	// curve index. NaN marks a curve that could not be fitted.
	CurveR2 map[int]float64 `json:"curve_r2"`
	CurveP  map[int]float64 `json:"curve_p"`

	IsQuantifier bool   `json:"is_quantifier"`
	IsISTD       bool   `json:"is_istd"`
	Class        string `json:"class"`

	Pass bool `json:"pass"`
}

// CurveIndices returns the fitted curve indices in ascending order.
func (r QCRecord) CurveIndices() []int {
	idx := make([]int, 0, len(r.CurveR2))
	for k := range r.CurveR2 {
		idx = append(idx, k)
	}
	sort.Ints(idx)
	return idx
}

// ResultTable is the terminal wide concentration matrix: one row per
// SAMPLE-type sample, one column per passing quantifier lipid.
type ResultTable struct {
	Samples []string
	Lipids  []string
	// Values is indexed [sample][lipid] following the order of Samples
	// and Lipids. Missing concentrations are NaN.
	Values [][]float64
}

// Lookup returns the concentration for (sample, lipid) and whether the
// pair exists in the table.
func (t ResultTable) Lookup(sample, lipid string) (float64, bool) {
	si, li := -1, -1
	for i, s := range t.Samples {
		if s == sample {
			si = i
			break
		}
	}
	for j, l := range t.Lipids {
		if l == lipid {
			li = j
			break
		}
	}
	if si < 0 || li < 0 {
		return 0, false
	}
	return t.Values[si][li], true
}
