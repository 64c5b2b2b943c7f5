package nbi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "skyorient.v1.OrientationService"

// Method names of OrientationService.
const (
	MethodGetPointing      = "GetPointing"
	MethodGetDirections    = "GetDirections"
	MethodSetLocation      = "SetLocation"
	MethodPushSensorValues = "PushSensorValues"
	MethodSetFieldOfView   = "SetFieldOfView"
	MethodTimeTravel       = "TimeTravel"
	MethodReturnToRealTime = "ReturnToRealTime"
	MethodGetClock         = "GetClock"
)

// FullMethod returns the "/service/method" path of an OrientationService method.
func FullMethod(method string) string { return "/" + ServiceName + "/" + method }

// OrientationServer is the server API for OrientationService. Messages are
// protobuf well-known types; the field layout is defined by the types package.
type OrientationServer interface {
	GetPointing(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetDirections(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SetLocation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PushSensorValues(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	SetFieldOfView(context.Context, *wrapperspb.DoubleValue) (*wrapperspb.DoubleValue, error)
	TimeTravel(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	ReturnToRealTime(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetClock(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// OrientationServiceDesc describes OrientationService for grpc.Server.
var OrientationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrientationServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodGetPointing, OrientationServer.GetPointing),
		unaryMethod(MethodGetDirections, OrientationServer.GetDirections),
		unaryMethod(MethodSetLocation, OrientationServer.SetLocation),
		unaryMethod(MethodPushSensorValues, OrientationServer.PushSensorValues),
		unaryMethod(MethodSetFieldOfView, OrientationServer.SetFieldOfView),
		unaryMethod(MethodTimeTravel, OrientationServer.TimeTravel),
		unaryMethod(MethodReturnToRealTime, OrientationServer.ReturnToRealTime),
		unaryMethod(MethodGetClock, OrientationServer.GetClock),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "skyorient/v1/orientation.proto",
}

// RegisterOrientationServer registers srv on s.
func RegisterOrientationServer(s grpc.ServiceRegistrar, srv OrientationServer) {
	s.RegisterService(&OrientationServiceDesc, srv)
}

// unaryMethod builds the handler that protoc-gen-go-grpc would generate for a
// single unary method.
func unaryMethod[Req, Resp any](name string, call func(OrientationServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(OrientationServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(OrientationServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
