package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// instrumentationName identifies log records emitted through the OpenTelemetry bridge.
const instrumentationName = "github.com/florianilch/claudine-bridge"

// Log exporters supported by Instrument.
const (
	ExporterNone     = ""
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

// Options configures the process-wide logger.
type Options struct {
	Level  slog.Level
	Format string

	// File additionally writes human-readable logs to a rotated file.
	File string

	// Exporter additionally ships records as OpenTelemetry logs. OTLP exporters
	// read their endpoint from the standard OTEL_EXPORTER_OTLP_* variables.
	Exporter string
}

// Instrument installs the default slog logger and the W3C trace context propagator.
// The returned function flushes and closes every sink and must be called on shutdown.
func Instrument(ctx context.Context, opts Options) (func(context.Context) error, error) {
	var shutdownFuncs []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdownFuncs) - 1; i >= 0; i-- {
			errs = append(errs, shutdownFuncs[i](ctx))
		}
		return errors.Join(errs...)
	}

	var out io.Writer = os.Stdout
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		shutdownFuncs = append(shutdownFuncs, func(context.Context) error { return rotator.Close() })
		out = io.MultiWriter(os.Stdout, rotator)
	}

	handler, err := newStdoutHandler(out, opts.Level, opts.Format)
	if err != nil {
		return nil, err
	}

	if opts.Exporter != ExporterNone {
		otelHandler, otelShutdown, err := newOTelHandler(ctx, opts.Exporter, opts.Level)
		if err != nil {
			return nil, errors.Join(err, shutdown(ctx))
		}
		shutdownFuncs = append(shutdownFuncs, otelShutdown)
		handler = newFanoutHandler(handler, otelHandler)
	}

	otel.SetTextMapPropagator(propagation.TraceContext{})
	slog.SetDefault(slog.New(newCorrelationHandler(handler)))

	return shutdown, nil
}

// newStdoutHandler creates a handler for human-readable logs.
func newStdoutHandler(w io.Writer, level slog.Level, logFormat string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch strings.ToLower(logFormat) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: json, text)", logFormat)
	}

	return handler, nil
}

// newOTelHandler bridges slog into an OpenTelemetry logger provider with a batching
// exporter. Records below level are dropped before export.
func newOTelHandler(ctx context.Context, exporter string, level slog.Level) (slog.Handler, func(context.Context) error, error) {
	var (
		exp sdklog.Exporter
		err error
	)
	switch exporter {
	case ExporterStdout:
		exp, err = stdoutlog.New()
	case ExporterOTLPHTTP:
		exp, err = otlploghttp.New(ctx)
	case ExporterOTLPGRPC:
		exp, err = otlploggrpc.New(ctx)
	default:
		return nil, nil, fmt.Errorf("unsupported log exporter %q (expected: %s, %s, %s)",
			exporter, ExporterStdout, ExporterOTLPHTTP, ExporterOTLPGRPC)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("create %s log exporter: %w", exporter, err)
	}

	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exp), severity(level))
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))

	handler := otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider))
	return handler, provider.Shutdown, nil
}

// severity maps a slog level onto the minimum OpenTelemetry severity.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
