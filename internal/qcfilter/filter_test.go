package qcfilter

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lipidqc/internal/config"
	"lipidqc/pkg/contracts/domain"
)

func testQCConfig() config.QCConfig {
	return config.QCConfig{
		CVBQCStrict:  25,
		CVBQCRelaxed: 50,
		DRatioMax:    0.5,
		SBRatioMin:   3,
		CurveR2Min:   0.8,
	}
}

func passingRecord() domain.QCRecord {
	return domain.QCRecord{
		Lipid:        "PC 34:1",
		SBRatio:      6.0,
		CVBQC:        10,
		CVTQC:        8,
		DRatio:       0.3,
		CurveR2:      map[int]float64{1: 0.9},
		CurveP:       map[int]float64{1: 0.001},
		IsQuantifier: true,
	}
}

func TestFilterApply(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.QCRecord)
		pass   bool
	}{
		{
			name:   "all criteria met",
			mutate: func(r *domain.QCRecord) {},
			pass:   true,
		},
		{
			name: "relaxed CV admitted by low D-ratio",
			mutate: func(r *domain.QCRecord) {
				r.CVBQC = 40
				r.DRatio = 0.4
			},
			pass: true,
		},
		{
			name: "high CV with high D-ratio fails both disjuncts",
			mutate: func(r *domain.QCRecord) {
				r.CVBQC = 60
				r.DRatio = 0.6
			},
			pass: false,
		},
		{
			name: "relaxed CV rejected by high D-ratio",
			mutate: func(r *domain.QCRecord) {
				r.CVBQC = 40
				r.DRatio = 0.6
			},
			pass: false,
		},
		{
			name:   "signal-to-blank at threshold fails strict inequality",
			mutate: func(r *domain.QCRecord) { r.SBRatio = 3.0 },
			pass:   false,
		},
		{
			name:   "R2 exactly at threshold fails strict inequality",
			mutate: func(r *domain.QCRecord) { r.CurveR2[1] = 0.8 },
			pass:   false,
		},
		{
			name:   "non-quantifier transition fails",
			mutate: func(r *domain.QCRecord) { r.IsQuantifier = false },
			pass:   false,
		},
		{
			name:   "internal standard fails",
			mutate: func(r *domain.QCRecord) { r.IsISTD = true },
			pass:   false,
		},
		{
			name:   "missing CV fails",
			mutate: func(r *domain.QCRecord) { r.CVBQC = math.NaN() },
			pass:   false,
		},
		{
			name:   "missing SB ratio fails",
			mutate: func(r *domain.QCRecord) { r.SBRatio = math.NaN() },
			pass:   false,
		},
		{
			name:   "no fitted curve fails",
			mutate: func(r *domain.QCRecord) { r.CurveR2 = map[int]float64{} },
			pass:   false,
		},
		{
			name: "first curve decides even when a later curve is good",
			mutate: func(r *domain.QCRecord) {
				r.CurveR2 = map[int]float64{1: 0.5, 2: 0.99}
			},
			pass: false,
		},
	}

	filter := NewFilter(testQCConfig(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := passingRecord()
			tt.mutate(&rec)
			out := filter.Apply(context.Background(), []domain.QCRecord{rec})
			require.Len(t, out, 1)
			assert.Equal(t, tt.pass, out[0].Pass)
		})
	}
}

func resultObs(sample string, run int, st domain.SampleType, lipid string, adj float64) domain.Observation {
	return domain.Observation{
		SampleID:   sample,
		RunIndex:   run,
		Lipid:      lipid,
		Batch:      "B1",
		SampleType: st,
		AdjConc:    adj,
	}
}

func TestBuildResultTable(t *testing.T) {
	obs := []domain.Observation{
		resultObs("S1", 1, domain.SampleTypeSPL, "PC 34:1", 1.5),
		resultObs("S1", 1, domain.SampleTypeSPL, "SM 36:2", 2.5),
		resultObs("S1", 1, domain.SampleTypeSPL, "Cer 42:1", 3.5),
		resultObs("S2", 2, domain.SampleTypeSPL, "PC 34:1", 1.6),
		resultObs("S2", 2, domain.SampleTypeSPL, "SM 36:2", 2.6),
		resultObs("S2", 2, domain.SampleTypeSPL, "Cer 42:1", 3.6),
		resultObs("BQC1", 3, domain.SampleTypeBQC, "PC 34:1", 1.0),
	}
	records := []domain.QCRecord{
		{Lipid: "PC 34:1", Pass: true},
		{Lipid: "SM 36:2", Pass: true},
		{Lipid: "Cer 42:1", Pass: false},
	}

	table := BuildResultTable(obs, records)

	t.Run("only SAMPLE rows and passing lipids", func(t *testing.T) {
		assert.Equal(t, []string{"S1", "S2"}, table.Samples)
		assert.Equal(t, []string{"PC 34:1", "SM 36:2"}, table.Lipids)
	})

	t.Run("values pivoted by sample and lipid", func(t *testing.T) {
		v, ok := table.Lookup("S2", "SM 36:2")
		require.True(t, ok)
		assert.Equal(t, 2.6, v)
	})

	t.Run("round-trip reproduces passing SAMPLE pairs", func(t *testing.T) {
		// Pivot back to long and compare against the pairs that are
		// SAMPLE-type and passing in the corrected table.
		want := make(map[[2]string]bool)
		passing := map[string]bool{"PC 34:1": true, "SM 36:2": true}
		for _, o := range obs {
			if o.SampleType == domain.SampleTypeSPL && passing[o.Lipid] {
				want[[2]string{o.SampleID, o.Lipid}] = true
			}
		}
		got := make(map[[2]string]bool)
		for _, sample := range table.Samples {
			for _, lipid := range table.Lipids {
				got[[2]string{sample, lipid}] = true
			}
		}
		assert.Equal(t, want, got)
	})

	t.Run("lipid absent from records absent from table", func(t *testing.T) {
		_, ok := table.Lookup("S1", "TG 52:3")
		assert.False(t, ok)
	})
}

func TestBuildResultTableMissingValues(t *testing.T) {
	obs := []domain.Observation{
		resultObs("S1", 1, domain.SampleTypeSPL, "PC 34:1", math.NaN()),
	}
	records := []domain.QCRecord{{Lipid: "PC 34:1", Pass: true}}
	table := BuildResultTable(obs, records)
	v, ok := table.Lookup("S1", "PC 34:1")
	require.True(t, ok)
	assert.True(t, math.IsNaN(v))
}
