// Copyright 2025 Nguyen Nhat Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Mode selects the logging backend: a human-readable colored handler in
// debug, an OTLP pipeline plus JSON stdout in release.
type Mode string

const (
	ModeDebug   Mode = "debug"
	ModeRelease Mode = "release"
)

// Logger bundles the slog front end with the OTel provider that must be
// shut down on exit. LoggerProvider is nil in debug mode.
type Logger struct {
	Slogger *slog.Logger
	*sdklog.LoggerProvider
}

type Options struct {
	Mode Mode

	// Writer receives debug-mode output. Defaults to os.Stdout.
	Writer io.Writer

	// Exporter selects the OTLP transport in release mode:
	// "otlp-http" (default) or "otlp-grpc".
	Exporter string

	ServiceName    string
	ServiceVersion string
}

// New builds the logger for the given options.
func New(ctx context.Context, opts *Options) (*Logger, error) {
	if opts == nil {
		opts = &Options{}
	}
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	if opts.Mode != ModeRelease {
		return &Logger{
			Slogger: slog.New(&DebugHandler{out: writer}),
		}, nil
	}

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "taskhost"
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(opts.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build log resource: %w", err)
	}

	exporter, err := newExporter(ctx, opts.Exporter)
	if err != nil {
		return nil, err
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter, nil)),
		sdklog.WithResource(res),
	)

	otelHandler := otelslog.NewHandler(
		serviceName, otelslog.WithLoggerProvider(provider))

	handlers := []slog.Handler{
		otelHandler,
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}),
	}

	return &Logger{
		Slogger:        slog.New(&MultiHandler{handlers}),
		LoggerProvider: provider,
	}, nil
}

func newExporter(ctx context.Context, kind string) (sdklog.Exporter, error) {
	switch kind {
	case "", "otlp-http":
		return otlploghttp.New(ctx)
	case "otlp-grpc":
		return otlploggrpc.New(ctx)
	default:
		return nil, fmt.Errorf("unknown log exporter %q", kind)
	}
}

// MultiHandler fans one record out to every configured handler.
type MultiHandler struct {
	handlers []slog.Handler
}

// Enabled implements slog.Handler
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler
func (m *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range m.handlers {
		// Best-effort handling: we log an error if a handler fails but continue.
		if err := h.Handle(ctx, record); err != nil {
			slog.Error("error from slog handler", "error", err)
		}
	}
	return nil
}

// WithAttrs implements slog.Handler
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: newHandlers}
}

// WithGroup implements slog.Handler
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: newHandlers}
}

var _ slog.Handler = (*MultiHandler)(nil)
