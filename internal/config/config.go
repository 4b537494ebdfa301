// Package config loads and validates pipeline configuration from a YAML
// file with environment variable overrides (prefix LIPIDQC).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete pipeline configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	Assembly   AssemblyConfig   `yaml:"assembly" envconfig:"ASSEMBLY"`
	Quant      QuantConfig      `yaml:"quant" envconfig:"QUANT"`
	Correction CorrectionConfig `yaml:"correction" envconfig:"CORRECTION"`
	QC         QCConfig         `yaml:"qc" envconfig:"QC"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
}

// PathsConfig names the input tables and the output directory.
type PathsConfig struct {
	WideTable   string `yaml:"wide_table" envconfig:"WIDE_TABLE" validate:"required"`
	ISTDMap     string `yaml:"istd_map" envconfig:"ISTD_MAP" validate:"required"`
	ISTDConc    string `yaml:"istd_conc" envconfig:"ISTD_CONC" validate:"required"`
	LipidMeta   string `yaml:"lipid_meta" envconfig:"LIPID_META"`
	OutputDir   string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"output"`
	SheetName   string `yaml:"sheet_name" envconfig:"SHEET_NAME"`
	ExcelReport bool   `yaml:"excel_report" envconfig:"EXCEL_REPORT" default:"true"`
}

// AssemblyConfig controls the wide-to-long reshape.
type AssemblyConfig struct {
	// ExcludedSamples lists sample identifiers (after extension
	// stripping) to drop before run indices are assigned, e.g. a known
	// mis-measured run.
	ExcludedSamples []string `yaml:"excluded_samples" envconfig:"EXCLUDED_SAMPLES"`
}

// QuantConfig holds the fixed instrument constants of the assay.
type QuantConfig struct {
	ISTDSpikeVolUL float64 `yaml:"istd_spike_vol_ul" envconfig:"ISTD_SPIKE_VOL_UL" default:"10" validate:"gt=0"`
	SampleVolUL    float64 `yaml:"sample_vol_ul" envconfig:"SAMPLE_VOL_UL" default:"100" validate:"gt=0"`
}

// CorrectionConfig tunes the drift/batch corrector.
type CorrectionConfig struct {
	// SmoothingSpan is the LOESS span: the fraction of a batch's BQC
	// points weighted into each local fit.
	SmoothingSpan float64 `yaml:"smoothing_span" envconfig:"SMOOTHING_SPAN" default:"0.75" validate:"gt=0,lte=1"`
	// MinQCPoints is the number of non-missing BQC points a (lipid,
	// batch) group needs before a trend is fitted at all.
	MinQCPoints int `yaml:"min_qc_points" envconfig:"MIN_QC_POINTS" default:"3" validate:"gte=2"`
	// MaxConcurrency bounds the per-group fit workers. Zero means
	// GOMAXPROCS.
	MaxConcurrency int `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY" default:"4" validate:"gte=0"`
}

// QCConfig holds the pass/fail thresholds and curve naming convention.
type QCConfig struct {
	CVBQCStrict  float64 `yaml:"cv_bqc_strict" envconfig:"CV_BQC_STRICT" default:"25" validate:"gt=0"`
	CVBQCRelaxed float64 `yaml:"cv_bqc_relaxed" envconfig:"CV_BQC_RELAXED" default:"50" validate:"gt=0,gtefield=CVBQCStrict"`
	DRatioMax    float64 `yaml:"d_ratio_max" envconfig:"D_RATIO_MAX" default:"0.5" validate:"gt=0"`
	SBRatioMin   float64 `yaml:"sb_ratio_min" envconfig:"SB_RATIO_MIN" default:"3" validate:"gt=0"`
	CurveR2Min   float64 `yaml:"curve_r2_min" envconfig:"CURVE_R2_MIN" default:"0.8" validate:"gt=0,lte=1"`
	// CurvePattern extracts (curve index, relative amount) from RQC
	// sample identifiers via two capture groups.
	CurvePattern string `yaml:"curve_pattern" envconfig:"CURVE_PATTERN" default:"(?i)(?:rqc|curve)[_\\s-]*(\\d+)[_\\s-]+(\\d+(?:\\.\\d+)?)"`
}

// LoggingConfig mirrors the standard logging knobs.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/lipidqc.log"`
}

// Load builds the configuration in increasing precedence: struct
// defaults, then LIPIDQC_* environment variables, then the YAML file.
// An empty path skips the file and uses defaults plus environment only.
func Load(path string) (*Config, error) {
	var cfg Config

	// envconfig applies the default tags even when no variables are set.
	if err := envconfig.Process("LIPIDQC", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the curve pattern shape.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	re, err := regexp.Compile(c.QC.CurvePattern)
	if err != nil {
		return fmt.Errorf("invalid curve pattern %q: %w", c.QC.CurvePattern, err)
	}
	if re.NumSubexp() < 2 {
		return fmt.Errorf("curve pattern %q must capture curve index and relative amount", c.QC.CurvePattern)
	}
	return nil
}

// CurveRegexp returns the compiled curve naming pattern. Validate must
// have succeeded first.
func (c *Config) CurveRegexp() *regexp.Regexp {
	return regexp.MustCompile(c.QC.CurvePattern)
}

// EnsureOutputDir creates the output directory if needed and returns
// its absolute path.
func (c *Config) EnsureOutputDir() (string, error) {
	abs, err := filepath.Abs(c.Paths.OutputDir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return abs, nil
}
