package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"

	"github.com/sky-map-team/skyorient/core"
	"github.com/sky-map-team/skyorient/internal/config"
	"github.com/sky-map-team/skyorient/internal/gps"
	"github.com/sky-map-team/skyorient/internal/ingest"
	"github.com/sky-map-team/skyorient/internal/logging"
	"github.com/sky-map-team/skyorient/internal/nbi"
	"github.com/sky-map-team/skyorient/internal/observability"
	"github.com/sky-map-team/skyorient/model"
	"github.com/sky-map-team/skyorient/timectrl"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file; SKYORIENT_* environment variables override it")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "skyorient: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	grpcLis, err := listen(cfg.Server.GRPCAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.Server.GRPCAddr), logging.Err(err))
		os.Exit(1)
	}
	httpLis, err := listen(cfg.Server.HTTPAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for HTTP", logging.String("addr", cfg.Server.HTTPAddr), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, grpcLis, httpLis); err != nil {
		log.Error(ctx, "skyorient exited", logging.Err(err))
		os.Exit(1)
	}
}

// listen returns a nil listener for an empty address, which disables that
// server.
func listen(addr string) (net.Listener, error) {
	if addr == "" {
		return nil, nil
	}
	return net.Listen("tcp", addr)
}

// run wires the orientation model to its sources and servers and blocks until
// ctx is done or a server fails.
func run(ctx context.Context, cfg config.Config, log logging.Logger, grpcLis, httpLis net.Listener) error {
	log = logging.OrNoop(log)

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observability.NewOrientationCollector(reg)
	if err != nil {
		return fmt.Errorf("orientation metrics: %w", err)
	}
	api, err := observability.NewAPICollector(reg)
	if err != nil {
		return fmt.Errorf("api metrics: %w", err)
	}

	clock := newCompositeClock(cfg.Model)
	clock.OnTransition(func(from, to timectrl.State) {
		metrics.ObserveClockTransition(from, to)
		log.Info(context.Background(), "clock transition",
			logging.String("from", from.String()),
			logging.String("to", to.String()),
		)
	})

	m := core.NewOrientationModel(core.DeclinationModel(cfg.Model.Declination),
		core.WithClock(clock),
		core.WithLocation(model.NewLatLong(cfg.Observer.Latitude, cfg.Observer.Longitude)),
		core.WithZenithCalculator(core.SiderealModel(cfg.Model.Sidereal)),
		core.WithLogger(log),
		core.WithMetricsRecorder(metrics),
	)
	m.SetFieldOfView(cfg.Model.FieldOfView)
	metrics.SetFieldOfView(m.FieldOfView())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	refresh := cfg.Model.RefreshInterval
	if refresh <= 0 {
		refresh = config.Default().Model.RefreshInterval
	}
	tc := timectrl.NewTimeController(clock, refresh, timectrl.RealTime)
	tc.AddListener(func(int64) { m.Refresh(false) })
	loopDone := tc.Start(runCtx, 0)

	svc := nbi.NewOrientationService(m, clock, metrics, log)
	errCh := make(chan error, 2)

	var grpcServer *grpc.Server
	if grpcLis != nil {
		grpcServer = nbi.NewGRPCServer(svc, log, api)
		log.Info(ctx, "starting gRPC server", logging.String("addr", grpcLis.Addr().String()))
		go func() {
			if err := grpcServer.Serve(grpcLis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	var httpServer *http.Server
	if httpLis != nil {
		httpServer = &http.Server{
			Handler:           nbi.NewHTTPHandler(svc, api, log, cfg.Server.StreamInterval),
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info(ctx, "starting HTTP server", logging.String("addr", httpLis.Addr().String()))
		go func() {
			if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	if cfg.MQTT.Enabled {
		sub := ingest.NewSubscriber(cfg.MQTT, m, metrics, log)
		if err := sub.Start(runCtx); err != nil {
			log.Warn(ctx, "MQTT sensor ingest unavailable", logging.Err(err))
		}
		defer sub.Stop()
	}

	if cfg.GPS.Enabled {
		tracker := gps.NewTracker(m, cfg.GPS.MinMoveMeters, metrics, log)
		go func() {
			if err := gps.Run(runCtx, cfg.GPS, tracker); err != nil {
				log.Warn(ctx, "GPS location source stopped", logging.String("port", cfg.GPS.Port), logging.Err(err))
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	log.Info(context.Background(), "shutting down skyorient")
	cancel()
	<-loopDone

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if httpServer != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = httpServer.Shutdown(shutdownCtx)
	}
	return runErr
}

func newCompositeClock(cfg config.ModelConfig) *timectrl.TransitioningCompositeClock {
	real := timectrl.SystemClock{}
	var travel timectrl.TravelClock = timectrl.NewTimeTravelClock()
	if cfg.RunningTimeTravel {
		travel = timectrl.NewRunningTimeTravelClock(real)
	}
	return timectrl.NewTransitioningCompositeClock(real, travel)
}
