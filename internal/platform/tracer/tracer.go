package tracer

import (
	"context"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const exporterSetupTimeout = 10 * time.Second

// InitTracer installs the global tracer provider and the W3C propagators.
// Without an endpoint, or when the exporter cannot be built, the provider has
// no exporter: spans are created for context propagation but never shipped.
// The caller owns Shutdown.
func InitTracer(serviceName, otlpEndpoint string, log *logger.Logger) *sdktrace.TracerProvider {
	log = log.Named("Tracer")
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	res := serviceResource(serviceName, log)
	if otlpEndpoint == "" {
		log.Info("Span export disabled, OTEL_EXPORTER_OTLP_ENDPOINT is not set")
		return install(sdktrace.NewTracerProvider(sdktrace.WithResource(res)))
	}

	exporter, err := newExporter(otlpEndpoint)
	if err != nil {
		log.Error("Span export disabled", zap.Error(err), zap.String("endpoint", otlpEndpoint))
		return install(sdktrace.NewTracerProvider(sdktrace.WithResource(res)))
	}

	log.Info("Exporting spans over OTLP", zap.String("service_name", serviceName), zap.String("endpoint", otlpEndpoint))
	return install(sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	))
}

func newExporter(endpoint string) (sdktrace.SpanExporter, error) {
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial OTLP collector: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), exporterSetupTimeout)
	defer cancel()
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}
	return exporter, nil
}

func serviceResource(serviceName string, log *logger.Logger) *resource.Resource {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		// Schema URL mismatch between the SDK default and semconv; keep the service name.
		log.Warn("Falling back to a bare resource", zap.Error(err))
		return resource.NewSchemaless(semconv.ServiceNameKey.String(serviceName))
	}
	return res
}

func install(tp *sdktrace.TracerProvider) *sdktrace.TracerProvider {
	otel.SetTracerProvider(tp)
	return tp
}
