// Package config holds the single options struct for a contentsieve run and
// loads it from defaults, an optional YAML file, .env and SIEVE_* variables.
// CLI flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/lexandro/contentsieve/category"
	"github.com/lexandro/contentsieve/quality"
	"github.com/lexandro/contentsieve/report"
)

// Workload modes.
const (
	ModeOrganize = "organize"
	ModeGenerate = "generate"
)

// DefaultReportDirName is the report directory created inside the output
// directory when no report directory is configured.
const DefaultReportDirName = ".sieve"

var ErrInvalidConfig = errors.New("invalid configuration")

// LogConfig controls the zap logger built by the CLI.
type LogConfig struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"oneof=json console"`
	File   string `yaml:"file" json:"file"`
}

// Config is the options struct shared by both workloads.
type Config struct {
	// Organize workload
	Roots          []string      `yaml:"roots" json:"roots" validate:"dive,required"`
	ArchiveDir     string        `yaml:"archiveDir" json:"archiveDir"`
	SkipPatterns   []string      `yaml:"skipPatterns" json:"skipPatterns"`
	NoDefaultSkips bool          `yaml:"noDefaultSkips" json:"noDefaultSkips"`
	MaxItemBytes   int64         `yaml:"maxItemBytes" json:"maxItemBytes" validate:"gte=0"`
	SeedFromOutput bool          `yaml:"seedFromOutput" json:"seedFromOutput"`
	Watch          bool          `yaml:"watch" json:"watch"`
	WatchDebounce  time.Duration `yaml:"watchDebounce" json:"watchDebounce" validate:"gte=0"`

	// Identity
	HashPrefixBytes int64 `yaml:"hashPrefixBytes" json:"hashPrefixBytes" validate:"gte=0"`
	HashWorkers     int   `yaml:"hashWorkers" json:"hashWorkers" validate:"gte=0"`
	HashCacheSize   int   `yaml:"hashCacheSize" json:"hashCacheSize" validate:"gte=0"`

	// Gate
	QualityThreshold    float64 `yaml:"qualityThreshold" json:"qualityThreshold" validate:"gte=0,lte=100"`
	SimilarityThreshold float64 `yaml:"similarityThreshold" json:"similarityThreshold" validate:"gt=0,lte=1"`
	BatchSize           int     `yaml:"batchSize" json:"batchSize" validate:"gt=0"`

	// Generate workload
	PromptsFile    string        `yaml:"promptsFile" json:"promptsFile"`
	Producers      []string      `yaml:"producers" json:"producers" validate:"dive,required"`
	Parallelism    int           `yaml:"parallelism" json:"parallelism" validate:"gte=1"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
	AttemptTimeout time.Duration `yaml:"attemptTimeout" json:"attemptTimeout" validate:"gte=0"`
	Retries        int           `yaml:"retries" json:"retries" validate:"gte=0"`
	RetryBackoff   time.Duration `yaml:"retryBackoff" json:"retryBackoff" validate:"gte=0"`
	RateLimit      float64       `yaml:"rateLimit" json:"rateLimit" validate:"gte=0"`
	RateBurst      int           `yaml:"rateBurst" json:"rateBurst" validate:"gte=0"`
	GeminiAPIKey   string        `yaml:"geminiApiKey" json:"-"`
	OpenAIAPIKey   string        `yaml:"openaiApiKey" json:"-"`
	OpenAIBaseURL  string        `yaml:"openaiBaseUrl" json:"openaiBaseUrl" validate:"omitempty,url"`

	// Outputs
	OutputDir string          `yaml:"outputDir" json:"outputDir" validate:"required"`
	ReportDir string          `yaml:"reportDir" json:"reportDir"`
	S3        report.S3Config `yaml:"s3" json:"s3"`
	LedgerDSN string          `yaml:"ledgerDsn" json:"-"`

	Categories category.Table `yaml:"categories" json:"categories"`
	Quality    quality.Config `yaml:"quality" json:"quality"`
	Log        LogConfig      `yaml:"log" json:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MaxItemBytes:        1 << 30,
		WatchDebounce:       500 * time.Millisecond,
		HashCacheSize:       65536,
		QualityThreshold:    70,
		SimilarityThreshold: 0.85,
		BatchSize:           50,
		Parallelism:         3,
		Timeout:             60 * time.Second,
		AttemptTimeout:      20 * time.Second,
		Retries:             2,
		RetryBackoff:        500 * time.Millisecond,
		OutputDir:           "sieved",
		Categories:          append(category.Table(nil), category.DefaultTable...),
		Quality:             quality.DefaultConfig(),
		Log:                 LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds a Config from defaults, the YAML file at path (if non-empty),
// the .env files (missing ones are ignored) and the process environment.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeYAML(path); err != nil {
			return nil, err
		}
	}
	if err := loadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// loadDotEnv loads .env files without overriding variables already set.
func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges, the category table and the quality config.
func (c *Config) Validate() error {
	var errs error
	if err := validate.Struct(c); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := c.Categories.Validate(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := quality.NewScorer(c.Quality); err != nil {
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
	}
	return nil
}

// ValidateFor runs Validate plus the requirements of one workload.
func (c *Config) ValidateFor(mode string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch mode {
	case ModeOrganize:
		if len(c.Roots) == 0 {
			return fmt.Errorf("%w: at least one root is required", ErrInvalidConfig)
		}
	case ModeGenerate:
		if c.PromptsFile == "" {
			return fmt.Errorf("%w: a prompts file is required", ErrInvalidConfig)
		}
		if len(c.Producers) == 0 {
			return fmt.Errorf("%w: at least one producer is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, mode)
	}
	return nil
}

// ResolvedReportDir returns ReportDir, defaulting to a directory inside OutputDir.
func (c *Config) ResolvedReportDir() string {
	if c.ReportDir != "" {
		return c.ReportDir
	}
	return filepath.Join(c.OutputDir, DefaultReportDirName)
}

// ReportSettings is the subset of the config recorded in a report.
func (c *Config) ReportSettings(mode string) report.Settings {
	s := report.Settings{
		QualityThreshold:    c.QualityThreshold,
		SimilarityThreshold: c.SimilarityThreshold,
		OutputDir:           c.OutputDir,
	}
	if mode == ModeOrganize {
		s.Roots = append(s.Roots, c.Roots...)
		s.ArchiveDir = c.ArchiveDir
	} else {
		s.Producers = append(s.Producers, c.Producers...)
	}
	return s
}
