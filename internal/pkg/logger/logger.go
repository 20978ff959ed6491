package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Init configures the global zerolog logger for a service. Call once from main.
func Init(serviceName string) {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if parsed, err := zerolog.ParseLevel(v); err == nil {
			level = parsed
		}
	}
	log.Logger = zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx returns a logger enriched with the trace id of the current span, so log
// lines can be correlated with Jaeger traces.
func Ctx(ctx context.Context) *zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return &log.Logger
	}
	l := log.Logger.With().Str("trace_id", sc.TraceID().String()).Logger()
	return &l
}
