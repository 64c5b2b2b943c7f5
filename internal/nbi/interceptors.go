package nbi

import (
	"context"

	"github.com/sky-map-team/skyorient/internal/logging"
	"github.com/sky-map-team/skyorient/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	requestIDMetadataKey = "x-request-id"
	tracerName           = "github.com/sky-map-team/skyorient/internal/nbi"
)

// RequestIDUnaryServerInterceptor takes the caller's x-request-id, or makes
// one up, echoes it as a response header and puts a logger tagged with the
// method on the context.
func RequestIDUnaryServerInterceptor(base logging.Logger) grpc.UnaryServerInterceptor {
	base = logging.OrNoop(base)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(requestIDMetadataKey); len(vals) > 0 && vals[0] != "" {
				ctx = logging.ContextWithRequestID(ctx, vals[0])
			}
		}
		ctx, id := logging.EnsureRequestID(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, id))

		_, method := observability.SplitMethod(info.FullMethod)
		ctx = logging.ContextWithLogger(ctx, base.With(logging.String("rpc", method)))
		return handler(ctx, req)
	}
}

// SpanUnaryServerInterceptor names the server span opened by the otelgrpc
// stats handler after the short service and method, tags it with the request
// ID and marks it failed when the handler returns an error.
func SpanUnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		span := trace.SpanFromContext(ctx)
		service, method := observability.SplitMethod(info.FullMethod)
		span.SetName(service + "/" + method)
		span.SetAttributes(
			attribute.String("rpc.service", service),
			attribute.String("rpc.method", method),
			attribute.String("request_id", logging.RequestIDFromContext(ctx)),
		)

		resp, err := handler(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, status.Code(err).String())
		}
		return resp, err
	}
}

// startSpan opens a child span for work done inside a handler.
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}
