package grpc

import (
	"context"
	"time"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// OpsServer is the gRPC endpoint used by orchestrators: health checking and reflection.
type OpsServer struct {
	Server      *grpc.Server
	health      *health.Server
	serviceName string
	logger      *logger.Logger
}

// NewOpsServer builds the server. Every service starts as NOT_SERVING until SetServing is called.
func NewOpsServer(serviceName string, log *logger.Logger) *OpsServer {
	log = log.Named("GRPC")
	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler(
			otelgrpc.WithTracerProvider(otel.GetTracerProvider()),
			otelgrpc.WithPropagators(otel.GetTextMapPropagator()),
		)),
		grpc.ChainUnaryInterceptor(LoggingInterceptor(log)),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	return &OpsServer{Server: server, health: healthServer, serviceName: serviceName, logger: log}
}

// SetServing flips the overall and per-service health status.
func (s *OpsServer) SetServing(serving bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(s.serviceName, st)
	s.logger.Info("gRPC health status changed", zap.String("service", s.serviceName), zap.String("status", st.String()))
}

// Stop marks the service NOT_SERVING and stops the server gracefully.
func (s *OpsServer) Stop() {
	s.health.Shutdown()
	s.Server.GracefulStop()
}

// LoggingInterceptor logs each unary call with its status code, trace id and duration.
func LoggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("status_code", status.Code(err).String()),
			zap.String("trace_id", trace.SpanFromContext(ctx).SpanContext().TraceID().String()),
		}
		if err != nil {
			log.Error("gRPC request failed", append(fields, zap.Error(err))...)
		} else {
			log.Debug("gRPC request completed", fields...)
		}
		return resp, err
	}
}
