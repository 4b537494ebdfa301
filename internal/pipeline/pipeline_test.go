package pipeline

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lipidqc/internal/assembler"
	"lipidqc/internal/config"
	"lipidqc/pkg/contracts/domain"
)

// testConfig mirrors the shipped defaults without going through file
// loading.
func testConfig(outputDir string) *config.Config {
	return &config.Config{
		Paths: config.PathsConfig{OutputDir: outputDir, ExcelReport: false},
		Quant: config.QuantConfig{ISTDSpikeVolUL: 10, SampleVolUL: 100},
		Correction: config.CorrectionConfig{
			SmoothingSpan:  0.75,
			MinQCPoints:    3,
			MaxConcurrency: 2,
		},
		QC: config.QCConfig{
			CVBQCStrict:  25,
			CVBQCRelaxed: 50,
			DRatioMax:    0.5,
			SBRatioMin:   3,
			CurveR2Min:   0.8,
			CurvePattern: `(?i)(?:rqc|curve)[_\s-]*(\d+)[_\s-]+(\d+(?:\.\d+)?)`,
		},
	}
}

// syntheticBatch builds one batch with two study lipids and one
// internal standard: PC 34:1 behaves well, SM 36:2 is a qualifier
// transition and must not reach the final table.
func syntheticBatch() *State {
	lipids := []string{"PC 34:1", "SM 36:2", "IS PC"}
	row := func(id, qcType string, pc, sm float64) assembler.WideSample {
		return assembler.WideSample{
			SampleID: id,
			QCType:   qcType,
			Batch:    "B1",
			Areas:    []float64{pc, sm, 500},
		}
	}
	wide := &assembler.WideTable{
		Lipids: lipids,
		Samples: []assembler.WideSample{
			row("BQC_01.raw", "BQC", 250, 120),
			row("Sample_01.raw", "SPL", 290, 130),
			row("PBLK_01.raw", "PBLK", 40, 20),
			row("BQC_02.raw", "BQC", 255, 122),
			row("Sample_02.raw", "SPL", 300, 135),
			row("RQC1_25.raw", "RQC", 25, 10),
			row("RQC1_50.raw", "RQC", 50, 20),
			row("BQC_03.raw", "BQC", 245, 118),
			row("Sample_03.raw", "SPL", 310, 140),
			row("PBLK_02.raw", "PBLK", 60, 25),
			row("RQC1_100.raw", "RQC", 100, 40),
			row("RQC1_200.raw", "RQC", 200, 80),
		},
	}
	return &State{
		Wide: wide,
		Refs: domain.ReferenceTables{
			ISTDMap: map[string]domain.ISTDMapping{
				"PC 34:1": {Lipid: "PC 34:1", ISTD: "IS PC", ResponseFactor: 1},
				"SM 36:2": {Lipid: "SM 36:2", ISTD: "IS PC", ResponseFactor: 1},
			},
			ISTDConc: map[string]float64{"IS PC": 500},
			Attributes: map[string]domain.LipidAttributes{
				"PC 34:1": {Class: "PC", IsQuantifier: true},
				"SM 36:2": {Class: "SM", IsQuantifier: false},
			},
		},
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	outputDir := t.TempDir()
	cfg := testConfig(outputDir)
	state := syntheticBatch()

	stages := DefaultStages(cfg, outputDir, nil)
	_, err := NewRunner(nil).Run(context.Background(), stages, state)
	require.NoError(t, err)

	t.Run("stage outputs are versioned tables", func(t *testing.T) {
		assert.Len(t, state.Observations, 12*3)
		assert.Len(t, state.Quantified, 12*3)
		assert.Len(t, state.Corrected, 12*3)
		assert.Empty(t, state.DroppedLipids)
	})

	t.Run("QC summary covers every lipid", func(t *testing.T) {
		require.Len(t, state.QCRecords, 3)
		byLipid := map[string]domain.QCRecord{}
		for _, r := range state.QCRecords {
			byLipid[r.Lipid] = r
		}

		pc := byLipid["PC 34:1"]
		assert.True(t, pc.Pass)
		assert.Less(t, pc.CVBQC, 25.0)
		assert.Greater(t, pc.SBRatio, 3.0)
		assert.Greater(t, pc.CurveR2[1], 0.8)

		// Qualifier transition fails regardless of its metrics.
		assert.False(t, byLipid["SM 36:2"].Pass)
		// The internal standard never passes.
		assert.True(t, byLipid["IS PC"].IsISTD)
		assert.False(t, byLipid["IS PC"].Pass)
	})

	t.Run("final table holds passing quantifiers over SAMPLE rows", func(t *testing.T) {
		assert.Equal(t, []string{"PC 34:1"}, state.Result.Lipids)
		assert.Equal(t, []string{"Sample_01", "Sample_02", "Sample_03"}, state.Result.Samples)
		v, ok := state.Result.Lookup("Sample_02", "PC 34:1")
		require.True(t, ok)
		assert.False(t, math.IsNaN(v))
	})

	t.Run("reports written to the output directory", func(t *testing.T) {
		for _, name := range []string{FileQCSummary, FileResults, FileDropped} {
			_, err := os.Stat(filepath.Join(outputDir, name))
			assert.NoError(t, err, name)
		}
	})
}

func TestPipelineStructuralFailureAborts(t *testing.T) {
	outputDir := t.TempDir()
	cfg := testConfig(outputDir)
	state := syntheticBatch()
	state.Wide = &assembler.WideTable{} // nothing to assemble

	stages := DefaultStages(cfg, outputDir, nil)
	states, err := NewRunner(nil).Run(context.Background(), stages, state)
	require.Error(t, err)
	assert.Equal(t, StageStatusFailed, states[0].Status)
	assert.Equal(t, StageStatusPending, states[1].Status)
}

func TestPipelineSurvivesSparseData(t *testing.T) {
	// A lipid with no usable BQC data degrades to missing metrics and
	// a QC failure, never an aborted run.
	outputDir := t.TempDir()
	cfg := testConfig(outputDir)
	state := syntheticBatch()
	for i, sample := range state.Wide.Samples {
		if sample.QCType == "BQC" {
			state.Wide.Samples[i].Areas[0] = math.NaN()
		}
	}

	stages := DefaultStages(cfg, outputDir, nil)
	_, err := NewRunner(nil).Run(context.Background(), stages, state)
	require.NoError(t, err)

	var pc domain.QCRecord
	for _, r := range state.QCRecords {
		if r.Lipid == "PC 34:1" {
			pc = r
		}
	}
	assert.True(t, math.IsNaN(pc.CVBQC))
	assert.False(t, pc.Pass)
	assert.NotContains(t, state.Result.Lipids, "PC 34:1")
}
