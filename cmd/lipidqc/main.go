// Command lipidqc runs the QC post-processing pipeline for one
// targeted lipidomics batch: raw peak areas in, QC-filtered
// drift-corrected concentrations out.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"lipidqc/internal/assembler"
	"lipidqc/internal/config"
	"lipidqc/internal/infrastructure"
	"lipidqc/internal/nomenclature"
	"lipidqc/internal/pipeline"
	"lipidqc/internal/quant"
	"lipidqc/pkg/contracts/domain"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("pipeline run failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, closeLog, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()

	outputDir, err := cfg.EnsureOutputDir()
	if err != nil {
		return err
	}

	state, err := loadInputs(ctx, cfg, logger)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(logger)
	stages := pipeline.DefaultStages(cfg, outputDir, logger)
	if _, err := runner.Run(ctx, stages, state); err != nil {
		return err
	}

	logger.InfoContext(ctx, "results written",
		slog.String("output_dir", outputDir),
		slog.Int("passing_lipids", len(state.Result.Lipids)),
		slog.Int("samples", len(state.Result.Samples)),
	)
	return nil
}

// loadInputs reads the wide table and reference tables and resolves
// lipid attributes through the nomenclature service.
func loadInputs(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.State, error) {
	wide, err := assembler.ReadWide(cfg.Paths.WideTable, cfg.Paths.SheetName)
	if err != nil {
		return nil, err
	}
	istdMap, err := quant.LoadISTDMap(cfg.Paths.ISTDMap)
	if err != nil {
		return nil, err
	}
	istdConc, err := quant.LoadISTDConc(cfg.Paths.ISTDConc)
	if err != nil {
		return nil, err
	}

	attrs := map[string]domain.LipidAttributes{}
	if cfg.Paths.LipidMeta != "" {
		resolver, err := nomenclature.LoadTableResolver(cfg.Paths.LipidMeta, logger)
		if err != nil {
			return nil, err
		}
		attrs, err = resolver.Resolve(ctx, wide.Lipids)
		if err != nil {
			return nil, err
		}
	} else {
		logger.WarnContext(ctx, "no lipid metadata table configured; quantifier flags default to false")
	}

	return &pipeline.State{
		Wide: wide,
		Refs: domain.ReferenceTables{
			ISTDMap:    istdMap,
			ISTDConc:   istdConc,
			Attributes: attrs,
		},
	}, nil
}
