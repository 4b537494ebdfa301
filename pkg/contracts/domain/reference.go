package domain

// ISTDMapping assigns a lipid to its designated internal standard.
// Static reference data, loaded once and never mutated.
type ISTDMapping struct {
	Lipid          string  `json:"lipid"`
	ISTD           string  `json:"istd"`
	ResponseFactor float64 `json:"response_factor"`
}

// ISTDConcentration is the known spiked concentration of one internal
// standard, in nanomolar.
type ISTDConcentration struct {
	ISTD   string  `json:"istd"`
	ConcNM float64 `json:"conc_nm"`
}

// LipidAttributes are the normalized attributes the nomenclature service
// resolves for a raw lipid name. A name the service cannot resolve simply
// has no entry; absence means missing attributes, not an error.
type LipidAttributes struct {
	NormalizedName string `json:"normalized_name"`
	Class          string `json:"class"`
	IsQuantifier   bool   `json:"is_quantifier"`
}

// ReferenceTables bundles the immutable inputs shared by every stage.
type ReferenceTables struct {
	ISTDMap    map[string]ISTDMapping
	ISTDConc   map[string]float64
	Attributes map[string]LipidAttributes
}

// IsISTD reports whether the lipid identifier names one of the internal
// standards in the concentration table.
func (r ReferenceTables) IsISTD(lipid string) bool {
	_, ok := r.ISTDConc[lipid]
	return ok
}
