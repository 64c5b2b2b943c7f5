package nbi

import (
	"github.com/sky-map-team/skyorient/internal/logging"
	"github.com/sky-map-team/skyorient/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

// NewGRPCServer builds a gRPC server carrying the request id, metrics and
// tracing interceptors and registers srv on it. api may be nil.
func NewGRPCServer(srv OrientationServer, log logging.Logger, api *observability.APICollector, opts ...grpc.ServerOption) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{RequestIDUnaryServerInterceptor(log)}
	if api != nil {
		interceptors = append(interceptors, api.UnaryServerInterceptor())
	}
	interceptors = append(interceptors, SpanUnaryServerInterceptor())

	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	}, opts...)

	s := grpc.NewServer(opts...)
	RegisterOrientationServer(s, srv)
	return s
}
