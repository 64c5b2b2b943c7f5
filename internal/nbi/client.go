package nbi

import (
	"context"

	"github.com/sky-map-team/skyorient/internal/nbi/types"
	"github.com/sky-map-team/skyorient/model"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is a typed OrientationService client.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) GetPointing(ctx context.Context, opts ...grpc.CallOption) (types.PointingReport, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(MethodGetPointing), &emptypb.Empty{}, out, opts...); err != nil {
		return types.PointingReport{}, err
	}
	return types.PointingFromProto(out)
}

func (c *Client) GetDirections(ctx context.Context, opts ...grpc.CallOption) (model.Directions, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(MethodGetDirections), &emptypb.Empty{}, out, opts...); err != nil {
		return model.Directions{}, err
	}
	return types.DirectionsFromProto(out)
}

// SetLocation sends raw coordinates and returns the location the server
// settled on after normalising longitude.
func (c *Client) SetLocation(ctx context.Context, lat, lon float64, opts ...grpc.CallOption) (model.LatLong, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		types.FieldLatitude:  structpb.NewNumberValue(lat),
		types.FieldLongitude: structpb.NewNumberValue(lon),
	}}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(MethodSetLocation), in, out, opts...); err != nil {
		return model.LatLong{}, err
	}
	gotLat, gotLon, err := types.LocationFromProto(out)
	if err != nil {
		return model.LatLong{}, err
	}
	return model.NewLatLong(gotLat, gotLon), nil
}

func (c *Client) PushSensorValues(ctx context.Context, sample model.SensorSample, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, FullMethod(MethodPushSensorValues), types.SensorSampleToProto(sample), new(emptypb.Empty), opts...)
}

func (c *Client) SetFieldOfView(ctx context.Context, degrees float64, opts ...grpc.CallOption) (float64, error) {
	out := new(wrapperspb.DoubleValue)
	if err := c.cc.Invoke(ctx, FullMethod(MethodSetFieldOfView), wrapperspb.Double(degrees), out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

// TimeTravel starts a transition towards targetMillis.
func (c *Client) TimeTravel(ctx context.Context, targetMillis int64, opts ...grpc.CallOption) (types.ClockStatus, error) {
	return c.clockCall(ctx, MethodTimeTravel, wrapperspb.Int64(targetMillis), opts)
}

func (c *Client) ReturnToRealTime(ctx context.Context, opts ...grpc.CallOption) (types.ClockStatus, error) {
	return c.clockCall(ctx, MethodReturnToRealTime, &emptypb.Empty{}, opts)
}

func (c *Client) GetClock(ctx context.Context, opts ...grpc.CallOption) (types.ClockStatus, error) {
	return c.clockCall(ctx, MethodGetClock, &emptypb.Empty{}, opts)
}

func (c *Client) clockCall(ctx context.Context, method string, in any, opts []grpc.CallOption) (types.ClockStatus, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return types.ClockStatus{}, err
	}
	return types.ClockStatusFromProto(out)
}
