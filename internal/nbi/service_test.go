package nbi

import (
	"context"
	"math"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sky-map-team/skyorient/core"
	"github.com/sky-map-team/skyorient/internal/logging"
	"github.com/sky-map-team/skyorient/internal/observability"
	"github.com/sky-map-team/skyorient/model"
	"github.com/sky-map-team/skyorient/timectrl"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var equinoxNoon = time.Date(2009, time.March, 20, 12, 7, 24, 0, time.UTC)

// flatFaceDown is a device lying flat with its screen towards the ground and
// its top edge towards magnetic north.
var flatFaceDown = model.SensorSample{
	Acceleration:  model.Vector{X: 0, Y: 0, Z: -10},
	MagneticField: model.Vector{X: 0, Y: -1, Z: 10},
}

type testEnv struct {
	real      *timectrl.FakeClock
	composite *timectrl.TransitioningCompositeClock
	model     *core.OrientationModel
	metrics   *observability.OrientationCollector
	api       *observability.APICollector
	svc       *OrientationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewOrientationCollector(reg)
	if err != nil {
		t.Fatalf("NewOrientationCollector: %v", err)
	}
	api, err := observability.NewAPICollector(reg)
	if err != nil {
		t.Fatalf("NewAPICollector: %v", err)
	}

	real := timectrl.NewFakeClockAt(equinoxNoon)
	composite := timectrl.NewTransitioningCompositeClock(real, nil)
	m := core.NewOrientationModel(core.ZeroDeclinationCalculator{},
		core.WithClock(composite),
		core.WithLocation(model.NewLatLong(0, 90)),
		core.WithMetricsRecorder(metrics),
	)

	return &testEnv{
		real:      real,
		composite: composite,
		model:     m,
		metrics:   metrics,
		api:       api,
		svc:       NewOrientationService(m, composite, metrics, logging.Noop()),
	}
}

func (e *testEnv) dial(t *testing.T) *Client {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	srv := NewGRPCServer(e.svc, logging.Noop(), e.api)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func assertVector(t *testing.T, name string, got, want model.Vector) {
	t.Helper()
	if math.Abs(got.X-want.X) > 1e-6 || math.Abs(got.Y-want.Y) > 1e-6 || math.Abs(got.Z-want.Z) > 1e-6 {
		t.Fatalf("%s = %+v, want %+v", name, got, want)
	}
}

func TestPushSensorValuesThenGetPointing(t *testing.T) {
	env := newTestEnv(t)
	client := env.dial(t)
	ctx := testContext(t)

	if err := client.PushSensorValues(ctx, flatFaceDown); err != nil {
		t.Fatalf("PushSensorValues: %v", err)
	}

	report, err := client.GetPointing(ctx)
	if err != nil {
		t.Fatalf("GetPointing: %v", err)
	}
	// At (0, 90) at the equinox the zenith is +y, so looking down means -y.
	assertVector(t, "line of sight", report.LineOfSight, model.Vector{Y: -1})
	assertVector(t, "perpendicular", report.Perpendicular, model.Vector{Z: 1})
	if math.Abs(report.RA-270) > 1e-3 || math.Abs(report.Dec) > 1e-3 {
		t.Fatalf("RA/Dec = (%v, %v), want (270, 0)", report.RA, report.Dec)
	}
	if report.TimeMillis != equinoxNoon.UnixMilli() {
		t.Fatalf("time = %d, want %d", report.TimeMillis, equinoxNoon.UnixMilli())
	}
	if report.FieldOfView != core.DefaultFieldOfViewDegrees {
		t.Fatalf("field of view = %v, want %v", report.FieldOfView, core.DefaultFieldOfViewDegrees)
	}

	if got := testutil.ToFloat64(env.metrics.SensorSamples.WithLabelValues(SourceGRPC)); got != 1 {
		t.Fatalf("sensor samples = %v, want 1", got)
	}
	if got := testutil.ToFloat64(env.api.RPCRequests.WithLabelValues("OrientationService", MethodPushSensorValues, codes.OK.String())); got != 1 {
		t.Fatalf("rpc requests = %v, want 1", got)
	}
}

func TestGetDirectionsMatchesModel(t *testing.T) {
	env := newTestEnv(t)
	client := env.dial(t)

	got, err := client.GetDirections(testContext(t))
	if err != nil {
		t.Fatalf("GetDirections: %v", err)
	}
	if want := env.model.Directions(); got != want {
		t.Fatalf("directions = %+v, want %+v", got, want)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t)
	client := env.dial(t)

	ctx := metadata.AppendToOutgoingContext(testContext(t), requestIDMetadataKey, "req-123")
	var header metadata.MD
	if _, err := client.GetClock(ctx, grpc.Header(&header)); err != nil {
		t.Fatalf("GetClock: %v", err)
	}
	if got := header.Get(requestIDMetadataKey); len(got) != 1 || got[0] != "req-123" {
		t.Fatalf("x-request-id = %v, want [req-123]", got)
	}

	header = nil
	if _, err := client.GetClock(testContext(t), grpc.Header(&header)); err != nil {
		t.Fatalf("GetClock: %v", err)
	}
	if got := header.Get(requestIDMetadataKey); len(got) == 0 || got[0] == "" {
		t.Fatalf("expected a generated request id")
	}
}

func TestInvalidRequestsAreRejected(t *testing.T) {
	env := newTestEnv(t)
	client := env.dial(t)
	ctx := testContext(t)

	if _, err := client.SetLocation(ctx, 95, 0); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("SetLocation(95, 0) code = %v, want InvalidArgument", status.Code(err))
	}

	bad := flatFaceDown
	bad.Acceleration.X = math.NaN()
	if err := client.PushSensorValues(ctx, bad); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("PushSensorValues(NaN) code = %v, want InvalidArgument", status.Code(err))
	}
	if got := testutil.ToFloat64(env.metrics.RejectedSamples.WithLabelValues(SourceGRPC)); got != 1 {
		t.Fatalf("rejected samples = %v, want 1", got)
	}

	if _, err := client.SetFieldOfView(ctx, 0); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("SetFieldOfView(0) code = %v, want InvalidArgument", status.Code(err))
	}
	if got := env.model.FieldOfView(); got != core.DefaultFieldOfViewDegrees {
		t.Fatalf("field of view changed to %v after rejected call", got)
	}
}

func TestSetLocationAndFieldOfView(t *testing.T) {
	env := newTestEnv(t)
	client := env.dial(t)
	ctx := testContext(t)

	loc, err := client.SetLocation(ctx, 10, 270)
	if err != nil {
		t.Fatalf("SetLocation: %v", err)
	}
	if loc.Latitude() != 10 || loc.Longitude() != -90 {
		t.Fatalf("location = %v, want (10, -90)", loc)
	}
	if got := env.model.Location(); got != loc {
		t.Fatalf("model location = %v, want %v", got, loc)
	}
	if got := testutil.ToFloat64(env.metrics.LocationUpdates.WithLabelValues(SourceAPI)); got != 1 {
		t.Fatalf("location updates = %v, want 1", got)
	}

	fov, err := client.SetFieldOfView(ctx, 60)
	if err != nil {
		t.Fatalf("SetFieldOfView: %v", err)
	}
	if fov != 60 || env.model.FieldOfView() != 60 {
		t.Fatalf("field of view = %v (model %v), want 60", fov, env.model.FieldOfView())
	}
	if got := testutil.ToFloat64(env.metrics.FieldOfView); got != 60 {
		t.Fatalf("field of view gauge = %v, want 60", got)
	}
}

func TestTimeTravelAndBack(t *testing.T) {
	env := newTestEnv(t)
	client := env.dial(t)
	ctx := testContext(t)

	target := equinoxNoon.Add(time.Hour).UnixMilli()
	st, err := client.TimeTravel(ctx, target)
	if err != nil {
		t.Fatalf("TimeTravel: %v", err)
	}
	if st.State != timectrl.TransitioningAToB.String() || !st.TimeTravelling {
		t.Fatalf("after TimeTravel status = %+v", st)
	}
	if got := testutil.ToFloat64(env.metrics.TimeTravelOffset); got != 3600 {
		t.Fatalf("time travel offset = %v, want 3600", got)
	}

	env.real.AdvanceMillis(timectrl.TransitionTimeMillis)
	st, err = client.GetClock(ctx)
	if err != nil {
		t.Fatalf("GetClock: %v", err)
	}
	if st.State != timectrl.SteadyOnB.String() || st.TimeMillis != target {
		t.Fatalf("after transition status = %+v, want steady on %d", st, target)
	}

	report, err := client.GetPointing(ctx)
	if err != nil {
		t.Fatalf("GetPointing: %v", err)
	}
	if report.TimeMillis != target {
		t.Fatalf("pointing time = %d, want %d", report.TimeMillis, target)
	}

	st, err = client.ReturnToRealTime(ctx)
	if err != nil {
		t.Fatalf("ReturnToRealTime: %v", err)
	}
	if st.State != timectrl.TransitioningBToA.String() || st.TimeTravelling {
		t.Fatalf("after ReturnToRealTime status = %+v", st)
	}

	env.real.AdvanceMillis(timectrl.TransitionTimeMillis)
	st, err = client.GetClock(ctx)
	if err != nil {
		t.Fatalf("GetClock: %v", err)
	}
	if st.State != timectrl.SteadyOnA.String() || st.TimeMillis != env.real.NowMillis() {
		t.Fatalf("after return status = %+v, want steady on %d", st, env.real.NowMillis())
	}
}

func TestTimeTravelUnavailableWithoutCompositeClock(t *testing.T) {
	clock := timectrl.NewFakeClockAt(equinoxNoon)
	m := core.NewOrientationModel(core.ZeroDeclinationCalculator{}, core.WithClock(clock))
	svc := NewOrientationService(m, nil, nil, nil)
	ctx := context.Background()

	if _, err := svc.TimeTravel(ctx, wrapperspb.Int64(0)); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("TimeTravel code = %v, want FailedPrecondition", status.Code(err))
	}
	if _, err := svc.ReturnToRealTime(ctx, &emptypb.Empty{}); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("ReturnToRealTime code = %v, want FailedPrecondition", status.Code(err))
	}

	st := svc.ClockStatus()
	if st.State != timectrl.SteadyOnA.String() || st.TimeMillis != equinoxNoon.UnixMilli() || st.TimeTravelling {
		t.Fatalf("ClockStatus = %+v", st)
	}
}
