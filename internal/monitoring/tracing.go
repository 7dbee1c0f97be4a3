package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// HTTP status codes
	httpErrorThreshold = 400
)

// TracingConfig holds configuration for tracing
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	EnableConsole  bool
	SampleRate     float64
}

// Enabled reports whether any exporter is configured
func (c *TracingConfig) Enabled() bool {
	return c != nil && (c.OTLPEndpoint != "" || c.EnableConsole)
}

// Tracer provides distributed tracing capabilities
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	logger   *slog.Logger
	config   *TracingConfig
}

// NewTracer creates a tracer and installs it as the global provider.
// Packages that call otel.Tracer pick it up without further wiring.
func NewTracer(config *TracingConfig, logger *slog.Logger) (*Tracer, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRate))),
	}

	if config.OTLPEndpoint != "" {
		otlpExporter, err := otlptracehttp.New(
			context.Background(),
			otlptracehttp.WithEndpoint(config.OTLPEndpoint),
		)
		if err != nil {
			logger.Warn("Failed to create OTLP exporter", "error", err)
		} else {
			opts = append(opts, sdktrace.WithBatcher(otlpExporter))
		}
	}

	if config.EnableConsole {
		consoleExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			logger.Warn("Failed to create console exporter", "error", err)
		} else {
			opts = append(opts, sdktrace.WithSyncer(consoleExporter))
		}
	}

	provider := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return &Tracer{
		tracer:   provider.Tracer(config.ServiceName),
		provider: provider,
		logger:   logger,
		config:   config,
	}, nil
}

// StartSpan starts a new span
func (t *Tracer) StartSpan(ctx context.Context, name string,
	opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// Shutdown flushes and stops the provider
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// GetProvider returns the tracer provider
func (t *Tracer) GetProvider() *sdktrace.TracerProvider {
	return t.provider
}

// EndSpan sets the span status from err and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// TracingMiddleware creates a middleware that adds tracing to HTTP requests
func TracingMiddleware(tracer *Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tracer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Extract trace context from headers
			ctx := otel.GetTextMapPropagator().Extract(r.Context(),
				propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.StartSpan(ctx, "HTTP "+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.target", r.URL.Path),
					attribute.String("http.user_agent", r.UserAgent()),
				))
			defer span.End()

			req := r.WithContext(ctx)
			rw := &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
			next.ServeHTTP(rw, req)

			// Pattern is filled in by the mux once a route matched
			if req.Pattern != "" {
				span.SetName(req.Pattern)
				span.SetAttributes(attribute.String("http.route", req.Pattern))
			}
			span.SetAttributes(
				attribute.Int("http.status_code", rw.StatusCode),
				attribute.Int64("http.duration_ms", time.Since(start).Milliseconds()),
			)
			if id := rw.Header().Get("X-Request-Id"); id != "" {
				span.SetAttributes(attribute.String("delivery.id", id))
			}

			if rw.StatusCode >= httpErrorThreshold {
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", rw.StatusCode))
			} else {
				span.SetStatus(codes.Ok, "")
			}
		})
	}
}
