package pipeline

import (
	"context"
	"log/slog"

	"lipidqc/internal/assembler"
	"lipidqc/internal/config"
	"lipidqc/internal/correction"
	"lipidqc/internal/exporter"
	"lipidqc/internal/qcfilter"
	"lipidqc/internal/qcmetrics"
	"lipidqc/internal/quant"
)

// Stage identifiers, in pipeline order.
const (
	StageAssemble = "assemble"
	StageQuantify = "quantify"
	StageCorrect  = "correct"
	StageMetrics  = "metrics"
	StageExport   = "export"
)

// Output file names under the output directory.
const (
	FileQCSummary   = "qc_summary.csv"
	FileResults     = "final_concentrations.csv"
	FileDropped     = "dropped_lipids.csv"
	FileExcelReport = "lipidqc_report.xlsx"
)

// DefaultStages builds the standard five-stage pipeline for the given
// configuration.
func DefaultStages(cfg *config.Config, outputDir string, logger *slog.Logger) []Stage {
	return []Stage{
		&assembleStage{cfg: cfg.Assembly, logger: logger},
		&quantifyStage{cfg: cfg.Quant, logger: logger},
		&correctStage{cfg: cfg.Correction, logger: logger},
		&metricsStage{cfg: cfg, logger: logger},
		&exportStage{cfg: cfg, outputDir: outputDir, logger: logger},
	}
}

type assembleStage struct {
	cfg    config.AssemblyConfig
	logger *slog.Logger
}

func (s *assembleStage) ID() string   { return StageAssemble }
func (s *assembleStage) Name() string { return "Long-format assembly" }

func (s *assembleStage) Run(ctx context.Context, state *State) error {
	obs, err := assembler.New(s.cfg.ExcludedSamples, s.logger).Assemble(ctx, state.Wide)
	if err != nil {
		return err
	}
	state.Observations = obs
	return nil
}

type quantifyStage struct {
	cfg    config.QuantConfig
	logger *slog.Logger
}

func (s *quantifyStage) ID() string   { return StageQuantify }
func (s *quantifyStage) Name() string { return "Concentration calculation" }

func (s *quantifyStage) Run(ctx context.Context, state *State) error {
	calc := quant.NewCalculator(state.Refs, s.cfg, s.logger)
	quantified, dropped, err := calc.Calculate(ctx, state.Observations)
	if err != nil {
		return err
	}
	state.Quantified = quantified
	state.DroppedLipids = dropped
	return nil
}

type correctStage struct {
	cfg    config.CorrectionConfig
	logger *slog.Logger
}

func (s *correctStage) ID() string   { return StageCorrect }
func (s *correctStage) Name() string { return "Drift and batch correction" }

func (s *correctStage) Run(ctx context.Context, state *State) error {
	corrected, err := correction.NewCorrector(s.cfg, s.logger).Correct(ctx, state.Quantified)
	if err != nil {
		return err
	}
	state.Corrected = corrected
	return nil
}

type metricsStage struct {
	cfg    *config.Config
	logger *slog.Logger
}

func (s *metricsStage) ID() string   { return StageMetrics }
func (s *metricsStage) Name() string { return "QC metric aggregation" }

func (s *metricsStage) Run(ctx context.Context, state *State) error {
	engine := qcmetrics.NewEngine(s.cfg.CurveRegexp(), s.logger)
	records, err := engine.Summarize(ctx, state.Corrected, state.Refs)
	if err != nil {
		return err
	}
	state.QCRecords = records
	return nil
}

type exportStage struct {
	cfg       *config.Config
	outputDir string
	logger    *slog.Logger
}

func (s *exportStage) ID() string   { return StageExport }
func (s *exportStage) Name() string { return "QC filtering and export" }

func (s *exportStage) Run(ctx context.Context, state *State) error {
	filter := qcfilter.NewFilter(s.cfg.QC, s.logger)
	state.QCRecords = filter.Apply(ctx, state.QCRecords)
	state.Result = qcfilter.BuildResultTable(state.Corrected, state.QCRecords)

	csvWriter := exporter.NewCSVWriter(s.outputDir, s.logger)
	if err := csvWriter.WriteQCSummary(FileQCSummary, state.QCRecords); err != nil {
		return err
	}
	if err := csvWriter.WriteResultTable(FileResults, state.Result); err != nil {
		return err
	}
	if err := csvWriter.WriteDroppedLipids(FileDropped, state.DroppedLipids); err != nil {
		return err
	}
	if s.cfg.Paths.ExcelReport {
		excelWriter := exporter.NewExcelWriter(s.outputDir, s.logger)
		if err := excelWriter.WriteReport(FileExcelReport, state.QCRecords, state.Result); err != nil {
			return err
		}
	}
	return nil
}
