// Package logger configures log/slog for the module and hands out loggers that
// carry request-scoped fields (subsystem, request id, arbitrary key/values)
// from a context.
package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/Aurel1407/Shu-no-sub002/envutil"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// Default subsystem name, overridable per context with WithSubsystem.
var subsystem atomic.Value //nolint:gochecknoglobals

// configMutex serializes ConfigureLoggingWithOptions, which mutates global state.
var configMutex sync.Mutex //nolint:gochecknoglobals

type contextKey string

const (
	muteKey      contextKey = "mute"
	subsystemKey contextKey = "subsystem"
	requestIdKey contextKey = "request_id"
	valuesKey    contextKey = "loggerValues"
)

// Options is used to configure logging.
type Options struct {
	Subsystem   string
	JSON        bool
	MinLevel    slog.Level
	LegacyLevel slog.Level
	Output      io.Writer

	// OTelScope, when set, also forwards every record to the global
	// OpenTelemetry logger provider under this instrumentation scope.
	OTelScope string
}

// ConfigureLoggingWithOptions configures logging for the application and
// returns the default logger. Concurrent calls are serialized.
func ConfigureLoggingWithOptions(opts Options) *slog.Logger {
	configMutex.Lock()
	defer configMutex.Unlock()

	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	var handler slog.Handler

	if opts.JSON {
		handler = slog.NewJSONHandler(opts.Output, &slog.HandlerOptions{
			Level: opts.MinLevel,
		})
	} else {
		handler = slog.NewTextHandler(opts.Output, &slog.HandlerOptions{
			Level: opts.MinLevel,
		})
	}

	if opts.OTelScope != "" {
		handler = &fanoutHandler{
			handlers: []slog.Handler{handler, otelslog.NewHandler(opts.OTelScope)},
		}
	}

	handler = &slogErrorLogger{inner: handler}

	logger := slog.New(handler)

	slog.SetDefault(logger)

	// Third party packages may still use the log package; route it into slog.
	def := log.Default()
	*def = *slog.NewLogLogger(handler, opts.LegacyLevel)

	subsystem.Store(opts.Subsystem)

	return logger
}

// Option is a functional option for configuring logging via ConfigureLogging.
type Option func(*Options)

// WithOutput overrides the log destination.
func WithOutput(w io.Writer) Option {
	return func(o *Options) {
		o.Output = w
	}
}

// WithOTelScope enables the OpenTelemetry log bridge.
func WithOTelScope(scope string) Option {
	return func(o *Options) {
		o.OTelScope = scope
	}
}

// ConfigureLogging configures logging from the environment:
//
//	LOG_JSON          emit JSON instead of text (default false)
//	LOG_LEVEL         minimum level (default info)
//	LEGACY_LOG_LEVEL  level used for the standard log package (default info)
//	LOG_OUTPUT        stdout or stderr (default stdout)
func ConfigureLogging(app string, opts ...Option) (*slog.Logger, error) {
	output, err := envutil.Map(envutil.String("LOG_OUTPUT"), func(outName string) (io.Writer, error) {
		switch outName {
		case "stdout":
			return os.Stdout, nil
		case "stderr":
			return os.Stderr, nil
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidLogOutput, outName)
		}
	}).WithDefault(os.Stdout).Value()
	if err != nil {
		return nil, err
	}

	options := Options{
		Subsystem:   app,
		JSON:        envutil.Bool("LOG_JSON", envutil.Default(false)).ValueOrElse(false),
		MinLevel:    envutil.SlogLevel("LOG_LEVEL", envutil.Default(slog.LevelInfo)).ValueOrElse(slog.LevelInfo),
		LegacyLevel: envutil.SlogLevel("LEGACY_LOG_LEVEL").ValueOrElse(slog.LevelInfo),
		Output:      output,
	}

	for _, o := range opts {
		o(&options)
	}

	return ConfigureLoggingWithOptions(options), nil
}

// WithMuted marks the context so loggers obtained from it discard everything.
func WithMuted(ctx context.Context, muted bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, muteKey, muted)
}

func isMuted(ctx context.Context) bool {
	muted, ok := ctx.Value(muteKey).(bool)

	return ok && muted
}

// WithSubsystem overrides the subsystem for loggers obtained from the context.
func WithSubsystem(ctx context.Context, subsystem string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, subsystemKey, subsystem)
}

// GetSubsystem returns the subsystem from the context, or the default one set
// by ConfigureLogging.
func GetSubsystem(ctx context.Context) string { //nolint:contextcheck
	if ctx == nil {
		ctx = context.Background()
	}

	if val, ok := ctx.Value(subsystemKey).(string); ok {
		return val
	}

	if val, ok := subsystem.Load().(string); ok {
		return val
	}

	return ""
}

// WithRequestId adds a request id to the context.
func WithRequestId(ctx context.Context, requestId string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, requestIdKey, requestId)
}

// GetRequestId returns the request id from the context, if any.
func GetRequestId(ctx context.Context) (string, bool) { //nolint:contextcheck
	if ctx == nil {
		ctx = context.Background()
	}

	val, ok := ctx.Value(requestIdKey).(string)

	return val, ok
}

// With returns a new context with the given key/values added. Loggers obtained
// from the context include them automatically.
func With(ctx context.Context, values ...any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	if len(values) == 0 {
		return ctx
	}

	existing := getValues(ctx)
	vals := make([]any, 0, len(existing)+len(values))
	vals = append(vals, existing...)
	vals = append(vals, values...)

	return context.WithValue(ctx, valuesKey, vals)
}

func getValues(ctx context.Context) []any {
	vals, _ := ctx.Value(valuesKey).([]any)

	return vals
}

func getRealContext(ctx ...context.Context) context.Context {
	for _, c := range ctx {
		if c != nil {
			return c
		}
	}

	return context.Background()
}

// Get returns a logger decorated with the subsystem, request id and values
// carried by the (optional) context.
func Get(ctx ...context.Context) *slog.Logger {
	realCtx := getRealContext(ctx...)

	if isMuted(realCtx) {
		return nullLogger
	}

	logger := slog.Default().With("subsystem", GetSubsystem(realCtx))

	if requestId, found := GetRequestId(realCtx); found {
		logger = logger.With("request-id", requestId)
	}

	if vals := getValues(realCtx); vals != nil {
		logger = logger.With(vals...)
	}

	return logger
}
