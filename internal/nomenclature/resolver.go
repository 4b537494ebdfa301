// Package nomenclature abstracts the external lipid-name normalization
// capability behind a narrow lookup contract. The pipeline never deals
// with nomenclature rules itself; it hands raw names to a Resolver and
// tolerates names the resolver cannot place.
package nomenclature

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	pipeerrors "lipidqc/internal/errors"
	"lipidqc/pkg/contracts/domain"
)

// Resolver maps raw lipid names to normalized attributes. Unresolved
// names are simply absent from the returned map; a resolver only errors
// on its own infrastructure failures, never on unknown names.
type Resolver interface {
	Resolve(ctx context.Context, names []string) (map[string]domain.LipidAttributes, error)
}

// TableResolver resolves names against a static metadata table loaded
// from CSV (columns: lipid_id, class, is_quantifier, normalized_name).
type TableResolver struct {
	attrs  map[string]domain.LipidAttributes
	logger *slog.Logger
}

// NewTableResolver wraps an already-loaded attribute table.
func NewTableResolver(attrs map[string]domain.LipidAttributes, logger *slog.Logger) *TableResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableResolver{attrs: attrs, logger: logger}
}

// LoadTableResolver reads the lipid metadata CSV and builds a resolver.
func LoadTableResolver(path string, logger *slog.Logger) (*TableResolver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pipeerrors.WrapImport("lipid_meta", err)
	}
	defer f.Close()

	attrs, err := parseMetadata(f)
	if err != nil {
		return nil, err
	}
	return NewTableResolver(attrs, logger), nil
}

func parseMetadata(r io.Reader) (map[string]domain.LipidAttributes, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, pipeerrors.WrapImport("lipid_meta", err)
	}
	col := indexColumns(header)
	for _, required := range []string{"lipid_id", "class", "is_quantifier"} {
		if _, ok := col[required]; !ok {
			return nil, pipeerrors.MissingColumns("lipid_meta", required)
		}
	}

	attrs := make(map[string]domain.LipidAttributes)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, pipeerrors.WrapImport("lipid_meta", err)
		}
		name := strings.TrimSpace(rec[col["lipid_id"]])
		if name == "" {
			continue
		}
		quant, _ := strconv.ParseBool(strings.ToLower(strings.TrimSpace(rec[col["is_quantifier"]])))
		a := domain.LipidAttributes{
			Class:        strings.TrimSpace(rec[col["class"]]),
			IsQuantifier: quant,
		}
		if i, ok := col["normalized_name"]; ok && i < len(rec) {
			a.NormalizedName = strings.TrimSpace(rec[i])
		}
		if a.NormalizedName == "" {
			a.NormalizedName = name
		}
		attrs[canonical(name)] = a
	}
	return attrs, nil
}

// Resolve looks each name up with whitespace-insensitive matching.
// Names without a table entry are reported once and omitted.
func (r *TableResolver) Resolve(ctx context.Context, names []string) (map[string]domain.LipidAttributes, error) {
	out := make(map[string]domain.LipidAttributes, len(names))
	var unresolved []string
	for _, name := range names {
		if a, ok := r.attrs[canonical(name)]; ok {
			out[name] = a
		} else {
			unresolved = append(unresolved, name)
		}
	}
	if len(unresolved) > 0 {
		r.logger.WarnContext(ctx, "lipid names not resolved by nomenclature table",
			slog.Int("count", len(unresolved)),
			slog.String("first", unresolved[0]),
		)
	}
	return out, nil
}

func indexColumns(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return col
}

// canonical collapses the whitespace and case differences acquisition
// software introduces into lipid names.
func canonical(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// String describes the resolver for log lines.
func (r *TableResolver) String() string {
	return fmt.Sprintf("table resolver (%d entries)", len(r.attrs))
}
