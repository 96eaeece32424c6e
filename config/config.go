// Package config loads controller, logging and telemetry settings from a YAML
// file, with environment variables taking precedence over the file.
//
//	cfg, err := config.Load("asyncop.yaml")
//	if err != nil {
//	    return err
//	}
//
//	ctl := asyncop.New(action, cfg.Operation.Options()...)
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Aurel1407/Shu-no-sub002/asyncop"
	"github.com/Aurel1407/Shu-no-sub002/envutil"
	moderrors "github.com/Aurel1407/Shu-no-sub002/errors"
	"github.com/Aurel1407/Shu-no-sub002/logger"
	"github.com/Aurel1407/Shu-no-sub002/telemetry"
	"gopkg.in/yaml.v3"
)

const (
	BackoffLinear      = "linear"
	BackoffExponential = "exponential"

	defaultRetryDelayBase = time.Second
	defaultBackoffFactor  = 2.0
)

// Config is the root of the configuration file.
type Config struct {
	Operation Operation        `yaml:"operation"`
	Logging   Logging          `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// Operation configures controllers built with Options.
type Operation struct {
	Label          string        `yaml:"label"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryDelayBase time.Duration `yaml:"retry_delay_base"`
	MaxDelay       time.Duration `yaml:"max_delay"`
	Backoff        string        `yaml:"backoff"`
	BackoffFactor  float64       `yaml:"backoff_factor"`
	Jitter         float64       `yaml:"jitter"`
	ReportErrors   bool          `yaml:"report_errors"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	SingleFlight   bool          `yaml:"single_flight"`

	// NonRetryableKeywords replaces the default keyword list when non-empty.
	NonRetryableKeywords []string `yaml:"non_retryable_keywords"`
}

// Logging mirrors logger.Options in a file-friendly form.
type Logging struct {
	JSON        bool   `yaml:"json"`
	Level       string `yaml:"level"`
	LegacyLevel string `yaml:"legacy_level"`
	Output      string `yaml:"output"`
	OTelScope   string `yaml:"otel_scope"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Operation: Operation{
			Label:          asyncop.DefaultLabel,
			RetryDelayBase: defaultRetryDelayBase,
			Backoff:        BackoffLinear,
			BackoffFactor:  defaultBackoffFactor,
			ReportErrors:   true,
		},
		Logging: Logging{
			Level:       "info",
			LegacyLevel: "info",
			Output:      "stdout",
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// Parse decodes YAML on top of Default. Unknown fields are rejected and an
// empty document yields the defaults.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", moderrors.ErrInvalidConfig, err)
	}

	return cfg, nil
}

// Load reads the file at path, applies environment overrides and validates
// the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("opening config file: %w", err)
		}

		defer f.Close()

		cfg, err = Parse(f)
		if err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ApplyEnv overrides fields from ASYNCOP_*, LOG_* and OTEL_* variables.
// Variables that are set but cannot be parsed are reported together.
func (c *Config) ApplyEnv() error {
	var errs moderrors.Collection

	errs.Add(c.Operation.applyEnv())
	errs.Add(c.Logging.applyEnv())
	errs.Add(c.Telemetry.ApplyEnv())

	return errs.GetError()
}

func (o *Operation) applyEnv() error {
	label := envutil.String("ASYNCOP_LABEL")
	maxRetries := envutil.Int("ASYNCOP_MAX_RETRIES")
	base := envutil.Duration("ASYNCOP_RETRY_DELAY_BASE")
	maxDelay := envutil.Duration("ASYNCOP_MAX_DELAY")
	backoff := envutil.String("ASYNCOP_BACKOFF")
	factor := envutil.Map(envutil.String("ASYNCOP_BACKOFF_FACTOR"), parseFloat)
	jitter := envutil.Map(envutil.String("ASYNCOP_JITTER"), parseFloat)
	report := envutil.Bool("ASYNCOP_REPORT_ERRORS")
	timeout := envutil.Duration("ASYNCOP_ATTEMPT_TIMEOUT")
	singleFlight := envutil.Bool("ASYNCOP_SINGLE_FLIGHT")
	keywords := envutil.StringList("ASYNCOP_NON_RETRYABLE_KEYWORDS")

	label.DoWithValue(func(v string) { o.Label = v })
	maxRetries.DoWithValue(func(v int) { o.MaxRetries = v })
	base.DoWithValue(func(v time.Duration) { o.RetryDelayBase = v })
	maxDelay.DoWithValue(func(v time.Duration) { o.MaxDelay = v })
	backoff.DoWithValue(func(v string) { o.Backoff = v })
	factor.DoWithValue(func(v float64) { o.BackoffFactor = v })
	jitter.DoWithValue(func(v float64) { o.Jitter = v })
	report.DoWithValue(func(v bool) { o.ReportErrors = v })
	timeout.DoWithValue(func(v time.Duration) { o.AttemptTimeout = v })
	singleFlight.DoWithValue(func(v bool) { o.SingleFlight = v })
	keywords.DoWithValue(func(v []string) { o.NonRetryableKeywords = v })

	return errors.Join(
		maxRetries.Error(), base.Error(), maxDelay.Error(), factor.Error(),
		jitter.Error(), report.Error(), timeout.Error(), singleFlight.Error(),
	)
}

func (l *Logging) applyEnv() error {
	jsonOut := envutil.Bool("LOG_JSON")
	level := envutil.String("LOG_LEVEL")
	legacy := envutil.String("LEGACY_LOG_LEVEL")
	output := envutil.String("LOG_OUTPUT")
	scope := envutil.String("LOG_OTEL_SCOPE")

	jsonOut.DoWithValue(func(v bool) { l.JSON = v })
	level.DoWithValue(func(v string) { l.Level = v })
	legacy.DoWithValue(func(v string) { l.LegacyLevel = v })
	output.DoWithValue(func(v string) { l.Output = v })
	scope.DoWithValue(func(v string) { l.OTelScope = v })

	return jsonOut.Error()
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs moderrors.Collection

	op := c.Operation

	if op.MaxRetries < 0 {
		errs.Addf(moderrors.ErrInvalidConfig, "operation.max_retries must not be negative, got %d", op.MaxRetries)
	}

	if op.RetryDelayBase < 0 {
		errs.Addf(moderrors.ErrInvalidConfig, "operation.retry_delay_base must not be negative, got %s", op.RetryDelayBase)
	}

	if op.MaxDelay < 0 {
		errs.Addf(moderrors.ErrInvalidConfig, "operation.max_delay must not be negative, got %s", op.MaxDelay)
	}

	if op.AttemptTimeout < 0 {
		errs.Addf(moderrors.ErrInvalidConfig, "operation.attempt_timeout must not be negative, got %s", op.AttemptTimeout)
	}

	if op.Jitter < 0 || op.Jitter > 1 {
		errs.Addf(moderrors.ErrInvalidConfig, "operation.jitter must be within [0, 1], got %g", op.Jitter)
	}

	switch op.Backoff {
	case "", BackoffLinear:
	case BackoffExponential:
		if op.BackoffFactor < 1 {
			errs.Addf(moderrors.ErrInvalidConfig, "operation.backoff_factor must be at least 1, got %g", op.BackoffFactor)
		}
	default:
		errs.Addf(moderrors.ErrInvalidConfig, "operation.backoff must be %q or %q, got %q",
			BackoffLinear, BackoffExponential, op.Backoff)
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs.Addf(moderrors.ErrInvalidConfig, "logging.level: %v", err)
	}

	if _, err := parseLevel(c.Logging.LegacyLevel); err != nil {
		errs.Addf(moderrors.ErrInvalidConfig, "logging.legacy_level: %v", err)
	}

	if _, err := c.Logging.output(); err != nil {
		errs.Addf(moderrors.ErrInvalidConfig, "logging.output: %v", err)
	}

	if c.Telemetry.Timeout < 0 {
		errs.Addf(moderrors.ErrInvalidConfig, "telemetry.timeout must not be negative, got %s", c.Telemetry.Timeout)
	}

	return errs.GetError()
}

// Options translates the section into controller options.
func (o Operation) Options() []asyncop.Option {
	opts := []asyncop.Option{
		asyncop.WithLabel(o.Label),
		asyncop.WithMaxRetries(o.MaxRetries),
		asyncop.WithReportErrors(o.ReportErrors),
	}

	if o.Backoff == BackoffExponential {
		opts = append(opts, asyncop.WithBackoff(asyncop.ExpBackoff{
			Base:   o.RetryDelayBase,
			Max:    o.MaxDelay,
			Factor: o.BackoffFactor,
		}))
	} else {
		opts = append(opts, asyncop.WithBackoff(asyncop.LinearBackoff{
			Base: o.RetryDelayBase,
			Max:  o.MaxDelay,
		}))
	}

	if o.Jitter > 0 {
		opts = append(opts, asyncop.WithJitter(asyncop.Jitter(o.Jitter)))
	}

	if len(o.NonRetryableKeywords) > 0 {
		opts = append(opts, asyncop.WithPolicy(asyncop.NewKeywordPolicy(o.NonRetryableKeywords...)))
	}

	if o.AttemptTimeout > 0 {
		opts = append(opts, asyncop.WithAttemptTimeout(o.AttemptTimeout))
	}

	if o.SingleFlight {
		opts = append(opts, asyncop.WithSingleFlight())
	}

	return opts
}

// Options translates the section into logger options for subsystem.
func (l Logging) Options(subsystem string) (logger.Options, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return logger.Options{}, fmt.Errorf("%w: logging.level: %w", moderrors.ErrInvalidConfig, err)
	}

	legacy, err := parseLevel(l.LegacyLevel)
	if err != nil {
		return logger.Options{}, fmt.Errorf("%w: logging.legacy_level: %w", moderrors.ErrInvalidConfig, err)
	}

	out, err := l.output()
	if err != nil {
		return logger.Options{}, fmt.Errorf("%w: logging.output: %w", moderrors.ErrInvalidConfig, err)
	}

	return logger.Options{
		Subsystem:   subsystem,
		JSON:        l.JSON,
		MinLevel:    level,
		LegacyLevel: legacy,
		Output:      out,
		OTelScope:   l.OTelScope,
	}, nil
}

func (l Logging) output() (io.Writer, error) {
	switch strings.ToLower(l.Output) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return nil, fmt.Errorf("%w: %q", logger.ErrInvalidLogOutput, l.Output)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level

	if s == "" {
		return slog.LevelInfo, nil
	}

	err := level.UnmarshalText([]byte(s))

	return level, err
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
