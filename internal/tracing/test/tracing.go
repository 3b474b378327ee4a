package test

import (
	"context"

	"github.com/adityawarman/citralab/internal/logger"
	"github.com/adityawarman/citralab/internal/tracing"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer returns a tracer that records nothing, for use in tests
func Tracer(log *logger.Logger) *tracing.Tracer {
	tp := noop.NewTracerProvider()
	return &tracing.Tracer{
		ServiceName:    "test",
		Log:            log,
		TracerProvider: tp,
		ShutdownFunc: func(context.Context) error {
			return nil
		},
		TracerInstance: tp.Tracer("test"),
	}
}
