// Package telemetry wires OpenTelemetry tracing and logging to an OTLP/HTTP
// collector. Controllers create spans through the global tracer provider and
// the logger package can bridge slog records to the global logger provider,
// so both start exporting once Initialize has run.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/Aurel1407/Shu-no-sub002/envutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	defaultServiceName    = "shu-no"
	defaultServiceVersion = "1.0.0"
	defaultTimeout        = 5 * time.Second

	tracesPath = "v1/traces"
	logsPath   = "v1/logs"
)

var (
	mu             sync.Mutex                //nolint:gochecknoglobals
	tracerProvider *sdktrace.TracerProvider  //nolint:gochecknoglobals
	loggerProvider *sdklog.LoggerProvider    //nolint:gochecknoglobals
)

// Config holds the OpenTelemetry configuration.
type Config struct {
	ServiceName    string        `yaml:"service_name"`
	ServiceVersion string        `yaml:"service_version"`
	Environment    string        `yaml:"environment"`
	Endpoint       string        `yaml:"endpoint"`
	Enabled        bool          `yaml:"enabled"`
	Timeout        time.Duration `yaml:"timeout"`
}

// DefaultConfig returns a disabled configuration. Inside Kubernetes the
// endpoint defaults to the in-cluster collector service.
func DefaultConfig() Config {
	endpoint := ""
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		endpoint = "http://opentelemetry-collector.opentelemetry.svc.cluster.local:4318"
	}

	return Config{
		ServiceName:    defaultServiceName,
		ServiceVersion: defaultServiceVersion,
		Endpoint:       endpoint,
		Timeout:        defaultTimeout,
	}
}

// ApplyEnv overrides fields from OTEL_* environment variables.
func (c *Config) ApplyEnv() error {
	enabled := envutil.Bool("OTEL_ENABLED")
	name := envutil.String("OTEL_SERVICE_NAME")
	version := envutil.String("OTEL_SERVICE_VERSION")
	environment := envutil.String("OTEL_ENVIRONMENT")
	endpoint := envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT")
	timeout := envutil.Duration("OTEL_EXPORTER_OTLP_TIMEOUT")

	enabled.DoWithValue(func(v bool) { c.Enabled = v })
	name.DoWithValue(func(v string) { c.ServiceName = v })
	version.DoWithValue(func(v string) { c.ServiceVersion = v })
	environment.DoWithValue(func(v string) { c.Environment = v })
	endpoint.DoWithValue(func(v string) { c.Endpoint = v })
	timeout.DoWithValue(func(v time.Duration) { c.Timeout = v })

	return errors.Join(enabled.Error(), timeout.Error())
}

// LoadConfigFromEnv returns DefaultConfig with environment overrides applied.
func LoadConfigFromEnv(runningEnv string) (Config, error) {
	cfg := DefaultConfig()
	cfg.Environment = runningEnv

	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Initialize installs global tracer and logger providers exporting to the
// configured collector. It is a no-op when telemetry is disabled or no
// endpoint is set.
func Initialize(ctx context.Context, config Config) error {
	if !config.Enabled {
		slog.Info("OpenTelemetry is disabled")

		return nil
	}

	if config.Endpoint == "" {
		slog.Warn("OpenTelemetry endpoint not configured, telemetry will be disabled")

		return nil
	}

	tracesURL, err := url.JoinPath(config.Endpoint, tracesPath)
	if err != nil {
		return fmt.Errorf("invalid OpenTelemetry endpoint: %w", err)
	}

	logsURL, err := url.JoinPath(config.Endpoint, logsPath)
	if err != nil {
		return fmt.Errorf("invalid OpenTelemetry endpoint: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(tracesURL),
		otlptracehttp.WithTimeout(config.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	logExporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpointURL(logsURL),
		otlploghttp.WithTimeout(config.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)

	mu.Lock()
	tracerProvider = tp
	loggerProvider = lp
	mu.Unlock()

	otel.SetTracerProvider(tp)
	global.SetLoggerProvider(lp)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("OpenTelemetry initialized",
		"service", config.ServiceName,
		"version", config.ServiceVersion,
		"environment", config.Environment,
		"endpoint", config.Endpoint,
	)

	return nil
}

// Shutdown flushes and stops the providers installed by Initialize.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	tp, lp := tracerProvider, loggerProvider
	tracerProvider, loggerProvider = nil, nil
	mu.Unlock()

	var errs []error

	if tp != nil {
		errs = append(errs, tp.Shutdown(ctx))
	}

	if lp != nil {
		errs = append(errs, lp.Shutdown(ctx))
	}

	return errors.Join(errs...)
}
