package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// EnvPrefix prefixes every contentsieve environment variable.
const EnvPrefix = "SIEVE_"

type envBinding struct {
	name  string
	apply func(c *Config, value string) error
}

func stringVar(set func(c *Config, v string)) func(*Config, string) error {
	return func(c *Config, v string) error {
		set(c, strings.TrimSpace(v))
		return nil
	}
}

func listVar(set func(c *Config, v []string)) func(*Config, string) error {
	return func(c *Config, v string) error {
		set(c, splitList(v))
		return nil
	}
}

func intVar(set func(c *Config, v int64)) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return err
		}
		set(c, n)
		return nil
	}
}

func floatVar(set func(c *Config, v float64)) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return err
		}
		set(c, f)
		return nil
	}
}

func boolVar(set func(c *Config, v bool)) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		set(c, b)
		return nil
	}
}

func durationVar(set func(c *Config, v time.Duration)) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		set(c, d)
		return nil
	}
}

var envBindings = []envBinding{
	{EnvPrefix + "ROOTS", listVar(func(c *Config, v []string) { c.Roots = v })},
	{EnvPrefix + "OUTPUT_DIR", stringVar(func(c *Config, v string) { c.OutputDir = v })},
	{EnvPrefix + "ARCHIVE_DIR", stringVar(func(c *Config, v string) { c.ArchiveDir = v })},
	{EnvPrefix + "REPORT_DIR", stringVar(func(c *Config, v string) { c.ReportDir = v })},
	{EnvPrefix + "SKIP", listVar(func(c *Config, v []string) { c.SkipPatterns = v })},
	{EnvPrefix + "MAX_ITEM_BYTES", intVar(func(c *Config, v int64) { c.MaxItemBytes = v })},
	{EnvPrefix + "SEED_OUTPUT", boolVar(func(c *Config, v bool) { c.SeedFromOutput = v })},
	{EnvPrefix + "HASH_PREFIX_BYTES", intVar(func(c *Config, v int64) { c.HashPrefixBytes = v })},
	{EnvPrefix + "HASH_WORKERS", intVar(func(c *Config, v int64) { c.HashWorkers = int(v) })},
	{EnvPrefix + "QUALITY_THRESHOLD", floatVar(func(c *Config, v float64) { c.QualityThreshold = v })},
	{EnvPrefix + "SIMILARITY_THRESHOLD", floatVar(func(c *Config, v float64) { c.SimilarityThreshold = v })},
	{EnvPrefix + "BATCH_SIZE", intVar(func(c *Config, v int64) { c.BatchSize = int(v) })},
	{EnvPrefix + "PROMPTS", stringVar(func(c *Config, v string) { c.PromptsFile = v })},
	{EnvPrefix + "PRODUCERS", listVar(func(c *Config, v []string) { c.Producers = v })},
	{EnvPrefix + "PARALLELISM", intVar(func(c *Config, v int64) { c.Parallelism = int(v) })},
	{EnvPrefix + "TIMEOUT", durationVar(func(c *Config, v time.Duration) { c.Timeout = v })},
	{EnvPrefix + "ATTEMPT_TIMEOUT", durationVar(func(c *Config, v time.Duration) { c.AttemptTimeout = v })},
	{EnvPrefix + "RETRIES", intVar(func(c *Config, v int64) { c.Retries = int(v) })},
	{EnvPrefix + "RATE_LIMIT", floatVar(func(c *Config, v float64) { c.RateLimit = v })},
	{EnvPrefix + "LEDGER_DSN", stringVar(func(c *Config, v string) { c.LedgerDSN = v })},
	{EnvPrefix + "S3_ENDPOINT", stringVar(func(c *Config, v string) { c.S3.Endpoint = v })},
	{EnvPrefix + "S3_REGION", stringVar(func(c *Config, v string) { c.S3.Region = v })},
	{EnvPrefix + "S3_BUCKET", stringVar(func(c *Config, v string) { c.S3.Bucket = v })},
	{EnvPrefix + "S3_PREFIX", stringVar(func(c *Config, v string) { c.S3.Prefix = v })},
	{EnvPrefix + "S3_ACCESS_KEY", stringVar(func(c *Config, v string) { c.S3.AccessKey = v })},
	{EnvPrefix + "S3_SECRET_KEY", stringVar(func(c *Config, v string) { c.S3.SecretKey = v })},
	{EnvPrefix + "S3_USE_SSL", boolVar(func(c *Config, v bool) { c.S3.UseSSL = v })},
	{EnvPrefix + "LOG_LEVEL", stringVar(func(c *Config, v string) { c.Log.Level = strings.ToLower(v) })},
	{EnvPrefix + "LOG_FORMAT", stringVar(func(c *Config, v string) { c.Log.Format = strings.ToLower(v) })},
	{EnvPrefix + "LOG_FILE", stringVar(func(c *Config, v string) { c.Log.File = v })},
	{"GEMINI_API_KEY", stringVar(func(c *Config, v string) { c.GeminiAPIKey = v })},
	{"OPENAI_API_KEY", stringVar(func(c *Config, v string) { c.OpenAIAPIKey = v })},
	{"OPENAI_BASE_URL", stringVar(func(c *Config, v string) { c.OpenAIBaseURL = v })},
}

// ApplyEnv overrides fields from the variables lookup reports as set.
// Empty values are ignored. Every malformed value is reported.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs error
	for _, b := range envBindings {
		v, ok := lookup(b.name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := b.apply(c, v); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", b.name, err))
		}
	}
	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
	}
	return nil
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
