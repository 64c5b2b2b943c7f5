package nbi

import (
	"context"
	"time"

	"github.com/sky-map-team/skyorient/core"
	"github.com/sky-map-team/skyorient/internal/logging"
	"github.com/sky-map-team/skyorient/internal/nbi/types"
	"github.com/sky-map-team/skyorient/internal/observability"
	"github.com/sky-map-team/skyorient/model"
	"github.com/sky-map-team/skyorient/timectrl"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Source labels used when a caller does not name itself.
const (
	SourceGRPC = "grpc"
	SourceAPI  = "api"
)

// OrientationService implements OrientationServer on top of an
// OrientationModel. When clock is non-nil it must be the clock the model was
// built with; it enables the time travel calls.
type OrientationService struct {
	model   *core.OrientationModel
	clock   *timectrl.TransitioningCompositeClock
	metrics *observability.OrientationCollector
	log     logging.Logger
}

var _ OrientationServer = (*OrientationService)(nil)

// NewOrientationService wires a service to a model. clock, metrics and log are
// optional.
func NewOrientationService(
	m *core.OrientationModel,
	clock *timectrl.TransitioningCompositeClock,
	metrics *observability.OrientationCollector,
	log logging.Logger,
) *OrientationService {
	return &OrientationService{
		model:   m,
		clock:   clock,
		metrics: metrics,
		log:     logging.OrNoop(log),
	}
}

// Report returns the current pointing together with its sky position.
func (s *OrientationService) Report() types.PointingReport {
	return types.NewPointingReport(s.model.Pointing(), s.model.FieldOfView())
}

// Directions returns the current cardinal directions.
func (s *OrientationService) Directions() model.Directions {
	return s.model.Directions()
}

// ClockStatus describes the clock driving the model.
func (s *OrientationService) ClockStatus() types.ClockStatus {
	if s.clock == nil {
		return types.ClockStatus{
			State:      timectrl.SteadyOnA.String(),
			TimeMillis: s.model.TimeMillis(),
		}
	}
	now := s.clock.NowMillis()
	state := s.clock.State()
	return types.ClockStatus{
		State:          state.String(),
		TimeMillis:     now,
		TimeTravelling: state == timectrl.SteadyOnB || state == timectrl.TransitioningAToB,
	}
}

func (s *OrientationService) GetPointing(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return types.PointingToProto(s.Report()), nil
}

func (s *OrientationService) GetDirections(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return types.DirectionsToProto(s.Directions()), nil
}

func (s *OrientationService) SetLocation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	lat, lon, err := types.LocationFromProto(in)
	if err != nil {
		return nil, ToStatusError(err)
	}
	if err := ValidateLocation(lat, lon); err != nil {
		return nil, ToStatusError(err)
	}

	loc := model.NewLatLong(lat, lon)
	_, span := startSpan(ctx, "OrientationModel.SetLocation",
		attribute.Float64("latitude", loc.Latitude()),
		attribute.Float64("longitude", loc.Longitude()),
	)
	s.model.SetLocation(loc)
	span.End()

	s.metrics.IncLocationUpdate(SourceAPI)
	logging.FromContext(ctx, s.log).Info(ctx, "observer location updated",
		logging.String("location", loc.String()),
	)
	return types.LocationToProto(s.model.Location()), nil
}

func (s *OrientationService) PushSensorValues(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	sample, err := types.SensorSampleFromProto(in)
	if err != nil {
		s.metrics.IncRejectedSample(SourceGRPC)
		return nil, ToStatusError(err)
	}
	source := sample.Source
	if source == "" {
		source = SourceGRPC
	}
	if err := ValidateSensorSample(sample); err != nil {
		s.metrics.IncRejectedSample(source)
		return nil, ToStatusError(err)
	}

	s.model.SetPhoneSensorValues(core.FromModel(sample.Acceleration), core.FromModel(sample.MagneticField))
	s.metrics.IncSensorSample(source)
	return &emptypb.Empty{}, nil
}

func (s *OrientationService) SetFieldOfView(ctx context.Context, in *wrapperspb.DoubleValue) (*wrapperspb.DoubleValue, error) {
	if in == nil {
		return nil, ToStatusError(ErrInvalidArgument)
	}
	if err := ValidateFieldOfView(in.GetValue()); err != nil {
		return nil, ToStatusError(err)
	}
	s.model.SetFieldOfView(in.GetValue())
	s.metrics.SetFieldOfView(in.GetValue())
	return wrapperspb.Double(s.model.FieldOfView()), nil
}

func (s *OrientationService) TimeTravel(ctx context.Context, in *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if s.clock == nil {
		return nil, ToStatusError(ErrTimeTravelUnavailable)
	}
	if in == nil {
		return nil, ToStatusError(ErrInvalidArgument)
	}

	target := in.GetValue()
	_, span := startSpan(ctx, "TransitioningCompositeClock.GoTimeTravel",
		attribute.Int64("target_millis", target),
	)
	s.clock.GoTimeTravel(target)
	span.End()

	offset := time.Duration(target-s.clock.RealClock().NowMillis()) * time.Millisecond
	s.metrics.SetTimeTravelOffset(offset)
	logging.FromContext(ctx, s.log).Info(ctx, "time travel requested",
		logging.String("target", time.UnixMilli(target).UTC().Format(time.RFC3339)),
		logging.String("offset", offset.String()),
	)
	return types.ClockStatusToProto(s.ClockStatus()), nil
}

func (s *OrientationService) ReturnToRealTime(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.clock == nil {
		return nil, ToStatusError(ErrTimeTravelUnavailable)
	}
	s.clock.ReturnToRealTime()
	s.metrics.SetTimeTravelOffset(0)
	logging.FromContext(ctx, s.log).Info(ctx, "returning to real time")
	return types.ClockStatusToProto(s.ClockStatus()), nil
}

func (s *OrientationService) GetClock(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return types.ClockStatusToProto(s.ClockStatus()), nil
}
