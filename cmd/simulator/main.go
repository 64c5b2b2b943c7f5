package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/sky-map-team/skyorient/core"
	"github.com/sky-map-team/skyorient/internal/config"
	"github.com/sky-map-team/skyorient/internal/ingest"
	"github.com/sky-map-team/skyorient/internal/logging"
	"github.com/sky-map-team/skyorient/model"
	"github.com/sky-map-team/skyorient/timectrl"
)

// simConfig drives one simulated session.
type simConfig struct {
	Start       time.Time
	Duration    time.Duration
	Tick        time.Duration
	Step        time.Duration
	Location    model.LatLong
	Declination string
	Sidereal    string
	TravelAfter time.Duration // zero disables time travel
	TravelTo    time.Time
	TurnDegrees float64 // device heading change per tick
}

type simResult struct {
	Ticks     int
	Last      model.Pointing
	LastState timectrl.State
}

func main() {
	duration := flag.Duration("duration", 60*time.Second, "total simulated duration")
	tick := flag.Duration("tick", 100*time.Millisecond, "wall-clock tick interval")
	step := flag.Duration("step", time.Second, "simulated time advanced per tick")
	lat := flag.Float64("lat", 51.4779, "observer latitude in degrees")
	lon := flag.Float64("lon", -0.0015, "observer longitude in degrees")
	start := flag.String("start", "", "simulation start time (RFC3339); defaults to now")
	travelAfter := flag.Duration("travel-after", 0, "simulated time after which to time travel; 0 disables")
	travelTo := flag.String("travel-to", "", "time travel target (RFC3339)")
	turn := flag.Float64("turn", 5, "device heading change per tick in degrees")
	declination := flag.String("declination", "dipole", "declination model: zero or dipole")
	sidereal := flag.String("sidereal", "mean", "sidereal time model: mean or apparent")
	mqttBroker := flag.String("mqtt-broker", "", "if set, also publish every synthetic sample to this MQTT broker")
	mqttTopic := flag.String("mqtt-topic", config.Default().MQTT.Topic, "MQTT topic for published samples")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := simConfig{
		Start:       time.Now().UTC(),
		Duration:    *duration,
		Tick:        *tick,
		Step:        *step,
		Location:    model.NewLatLong(*lat, *lon),
		Declination: *declination,
		Sidereal:    *sidereal,
		TravelAfter: *travelAfter,
		TurnDegrees: *turn,
	}
	if *start != "" {
		t, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			log.Error(ctx, "invalid -start", logging.Err(err))
			os.Exit(2)
		}
		cfg.Start = t
	}
	if cfg.TravelAfter > 0 {
		t, err := time.Parse(time.RFC3339, *travelTo)
		if err != nil {
			log.Error(ctx, "-travel-to is required with -travel-after", logging.Err(err))
			os.Exit(2)
		}
		cfg.TravelTo = t
	}

	var publish func(context.Context, model.SensorSample) error
	if *mqttBroker != "" {
		mqttCfg := config.Default().MQTT
		mqttCfg.Broker = *mqttBroker
		mqttCfg.Topic = *mqttTopic
		mqttCfg.ClientID = "skyorient-simulator"
		pub := ingest.NewPublisher(mqttCfg)
		if err := pub.Connect(ctx); err != nil {
			log.Error(ctx, "failed to connect to MQTT broker", logging.Err(err))
			os.Exit(1)
		}
		defer pub.Close()
		publish = pub.Publish
	}

	fmt.Printf("Starting simulation: start=%s duration=%s tick=%s step=%s at %s\n",
		cfg.Start.Format(time.RFC3339), cfg.Duration, cfg.Tick, cfg.Step, cfg.Location)
	res := runSimulation(ctx, cfg, os.Stdout, publish, log)
	fmt.Printf("Simulation complete after %d ticks.\n", res.Ticks)
}

// syntheticSample is a device lying face down whose top edge turns by
// headingDegrees away from magnetic north.
func syntheticSample(headingDegrees float64) model.SensorSample {
	s, c := math.Sincos(headingDegrees * math.Pi / 180)
	return model.SensorSample{
		Source:        "simulator",
		Acceleration:  model.Vector{X: 0, Y: 0, Z: -9.81},
		MagneticField: model.Vector{X: 20 * s, Y: -20 * c, Z: 40},
	}
}

// runSimulation feeds synthetic samples into a model driven by an accelerated
// fake clock and prints one line per tick.
func runSimulation(ctx context.Context, cfg simConfig, out io.Writer, publish func(context.Context, model.SensorSample) error, log logging.Logger) simResult {
	log = logging.OrNoop(log)

	real := timectrl.NewFakeClockAt(cfg.Start)
	clock := timectrl.NewTransitioningCompositeClock(real, nil)
	m := core.NewOrientationModel(core.DeclinationModel(cfg.Declination),
		core.WithClock(clock),
		core.WithLocation(cfg.Location),
		core.WithZenithCalculator(core.SiderealModel(cfg.Sidereal)),
		core.WithLogger(log),
	)

	tc := timectrl.NewTimeController(real, cfg.Tick, timectrl.Accelerated)
	tc.Step = cfg.Step

	var res simResult
	travelled := false
	startMillis := real.NowMillis()

	tc.AddListener(func(realMillis int64) {
		res.Ticks++
		elapsed := time.Duration(realMillis-startMillis) * time.Millisecond
		if cfg.TravelAfter > 0 && !travelled && elapsed >= cfg.TravelAfter {
			clock.GoTimeTravel(cfg.TravelTo.UnixMilli())
			travelled = true
			fmt.Fprintf(out, "--- time travel to %s ---\n", cfg.TravelTo.UTC().Format(time.RFC3339))
		}

		sample := syntheticSample(float64(res.Ticks) * cfg.TurnDegrees)
		sample.TimeMillis = realMillis
		m.SetPhoneSensorValues(core.FromModel(sample.Acceleration), core.FromModel(sample.MagneticField))
		if publish != nil {
			if err := publish(ctx, sample); err != nil {
				log.Warn(ctx, "publish failed", logging.Err(err))
			}
		}

		p := m.Pointing()
		rd := p.RaDec()
		res.Last = p
		res.LastState = clock.State()
		fmt.Fprintf(out, "[%s] %-24s RA=%7.3f Dec=%+7.3f\n",
			time.UnixMilli(p.TimeMillis).UTC().Format(time.RFC3339), res.LastState, rd.RA, rd.Dec)
	})

	<-tc.Start(ctx, cfg.Duration)
	return res
}
