package telemetry

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	applog "hospverse/internal/log"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	shutdown := Setup("hospverse-test")
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupLogsExporterFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := applog.L()
	applog.SetLogger(zap.New(core))
	t.Cleanup(func() { applog.SetLogger(prev) })

	orig := newExporter
	newExporter = func(context.Context, ...otlptracegrpc.Option) (sdktrace.SpanExporter, error) {
		return nil, errors.New("dial refused")
	}
	t.Cleanup(func() { newExporter = orig })

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	shutdown := Setup("hospverse-test")
	require.NoError(t, shutdown(context.Background()))

	entries := logs.FilterMessage("otel.exporter.fail").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "collector:4317", entries[0].ContextMap()["endpoint"])
	assert.Equal(t, "dial refused", entries[0].ContextMap()["error"])
}

func TestMiddlewareRecordsServerSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	app := fiber.New()
	app.Use(Middleware())
	var sawSpan bool
	app.Get("/reception/queue", func(c *fiber.Ctx) error {
		sawSpan = oteltrace.SpanFromContext(c.UserContext()).SpanContext().IsValid()
		return c.SendStatus(fiber.StatusOK)
	})

	_, err := app.Test(httptest.NewRequest("GET", "/reception/queue", nil))
	require.NoError(t, err)
	assert.True(t, sawSpan)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /reception/queue", spans[0].Name())
	assert.Equal(t, oteltrace.SpanKindServer, spans[0].SpanKind())
}
