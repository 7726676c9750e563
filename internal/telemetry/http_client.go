package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HTTPClientConfig holds configuration for an instrumented upstream client
type HTTPClientConfig struct {
	ServiceName string // e.g. "spam", "recommender"
	BaseURL     string
	Timeout     time.Duration
}

// NewUpstreamClient returns a resty client whose transport propagates
// trace context and opens a client span per request. Retries are off:
// upstream callers degrade instead of waiting.
func NewUpstreamClient(cfg HTTPClientConfig) *resty.Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return cfg.ServiceName + " " + r.Method
			}),
		),
	}

	return resty.NewWithClient(httpClient).
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "campuslink-backend").
		SetRetryCount(0)
}

// TraceExternalCall opens a span around one logical upstream operation.
func TraceExternalCall(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return otel.Tracer("external-api").Start(ctx, service+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("external.service", service),
			attribute.String("external.operation", operation),
		),
	)
}

// RecordExternalCallError marks the span failed. The caller still ends it.
func RecordExternalCallError(span trace.Span, err error, statusCode int) {
	if statusCode > 0 {
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
