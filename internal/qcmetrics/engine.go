// Package qcmetrics aggregates the per-lipid quality statistics from
// the corrected observation table: medians, signal-to-blank, CVs,
// D-ratio and response-curve fit quality. Every aggregation ignores
// missing values; too few usable points yields a NaN metric, never an
// error.
package qcmetrics

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strconv"

	"lipidqc/internal/stats"
	"lipidqc/pkg/contracts/domain"
)

// Engine computes QC summary records.
type Engine struct {
	curveRe *regexp.Regexp
	logger  *slog.Logger
}

// NewEngine builds an Engine. curveRe must capture the curve index and
// the relative amount from an RQC sample identifier, in that order.
func NewEngine(curveRe *regexp.Regexp, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{curveRe: curveRe, logger: logger}
}

// curvePoint is one response-curve observation.
type curvePoint struct {
	relAmount float64
	area      float64
}

// Summarize produces one QCRecord per lipid present in the corrected
// table, in lexical lipid order. The pass flag is left false; the
// filter stage owns the pass/fail decision.
func (e *Engine) Summarize(ctx context.Context, observations []domain.Observation, refs domain.ReferenceTables) ([]domain.QCRecord, error) {
	type lipidData struct {
		areaByType map[domain.SampleType][]float64
		concByType map[domain.SampleType][]float64
		curves     map[int][]curvePoint
	}
	byLipid := make(map[string]*lipidData)
	badCurveNames := make(map[string]bool)

	for _, o := range observations {
		d := byLipid[o.Lipid]
		if d == nil {
			d = &lipidData{
				areaByType: make(map[domain.SampleType][]float64),
				concByType: make(map[domain.SampleType][]float64),
				curves:     make(map[int][]curvePoint),
			}
			byLipid[o.Lipid] = d
		}
		d.areaByType[o.SampleType] = append(d.areaByType[o.SampleType], o.Area)
		d.concByType[o.SampleType] = append(d.concByType[o.SampleType], o.AdjConc)

		if o.SampleType == domain.SampleTypeRQC {
			curve, amount, ok := e.parseCurveName(o.SampleID)
			if !ok {
				if !badCurveNames[o.SampleID] {
					badCurveNames[o.SampleID] = true
					e.logger.WarnContext(ctx, "RQC sample name does not match curve pattern, excluded from curve fits",
						slog.String("sample_id", o.SampleID),
					)
				}
				continue
			}
			d.curves[curve] = append(d.curves[curve], curvePoint{relAmount: amount, area: o.Area})
		}
	}

	lipids := make([]string, 0, len(byLipid))
	for lipid := range byLipid {
		lipids = append(lipids, lipid)
	}
	sort.Strings(lipids)

	records := make([]domain.QCRecord, 0, len(lipids))
	for _, lipid := range lipids {
		d := byLipid[lipid]
		rec := domain.QCRecord{
			Lipid:    lipid,
			AreaSPL:  stats.Median(d.areaByType[domain.SampleTypeSPL]),
			ConcSPL:  stats.Median(d.concByType[domain.SampleTypeSPL]),
			SBRatio:  stats.Ratio(stats.Median(d.areaByType[domain.SampleTypeSPL]), stats.Median(d.areaByType[domain.SampleTypePBLK])),
			CVTQC:    stats.CV(d.concByType[domain.SampleTypeTQC]),
			CVBQC:    stats.CV(d.concByType[domain.SampleTypeBQC]),
			CVSample: stats.CV(d.concByType[domain.SampleTypeSPL]),
			DRatio:   stats.Ratio(stats.StdDev(d.concByType[domain.SampleTypeBQC]), stats.StdDev(d.concByType[domain.SampleTypeSPL])),
			CurveR2:  make(map[int]float64),
			CurveP:   make(map[int]float64),
			IsISTD:   refs.IsISTD(lipid),
		}
		if attrs, ok := refs.Attributes[lipid]; ok {
			rec.Class = attrs.Class
			rec.IsQuantifier = attrs.IsQuantifier
		}
		for curve, points := range d.curves {
			x := make([]float64, len(points))
			y := make([]float64, len(points))
			for i, pt := range points {
				x[i] = pt.relAmount
				y[i] = pt.area
			}
			r2, p := FitLine(x, y)
			rec.CurveR2[curve] = r2
			rec.CurveP[curve] = p
		}
		records = append(records, rec)
	}

	e.logger.InfoContext(ctx, "computed QC metrics",
		slog.Int("lipids", len(records)),
	)
	return records, nil
}

// parseCurveName extracts (curve index, relative amount) from an RQC
// sample identifier.
func (e *Engine) parseCurveName(sampleID string) (curve int, amount float64, ok bool) {
	m := e.curveRe.FindStringSubmatch(sampleID)
	if len(m) < 3 {
		return 0, 0, false
	}
	curve, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	amount, err = strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}
	return curve, amount, true
}
