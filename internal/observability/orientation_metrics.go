package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sky-map-team/skyorient/timectrl"
)

// OrientationCollector exposes orientation-model and sensor-pipeline metrics.
// It satisfies core.MetricsRecorder.
type OrientationCollector struct {
	gatherer prometheus.Gatherer

	CelestialRefreshes       *prometheus.CounterVec
	CelestialRefreshDuration prometheus.Histogram
	CelestialCacheHits       prometheus.Counter
	DegenerateInputs         *prometheus.CounterVec
	SensorSamples            *prometheus.CounterVec
	RejectedSamples          *prometheus.CounterVec
	LocationUpdates          *prometheus.CounterVec
	ClockTransitions         *prometheus.CounterVec
	FieldOfView              prometheus.Gauge
	TimeTravelOffset         prometheus.Gauge
}

// NewOrientationCollector registers orientation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewOrientationCollector(reg prometheus.Registerer) (*OrientationCollector, error) {
	reg, gatherer := resolveRegistry(reg)
	c := &OrientationCollector{gatherer: gatherer}

	var err error
	if c.CelestialRefreshes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyorient_celestial_refreshes_total",
		Help: "Sky frame recomputations, labeled by reason (forced or interval).",
	}, []string{"reason"}), "skyorient_celestial_refreshes_total"); err != nil {
		return nil, err
	}
	if c.CelestialRefreshDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skyorient_celestial_refresh_duration_seconds",
		Help:    "Time spent recomputing the sky frame.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	}), "skyorient_celestial_refresh_duration_seconds"); err != nil {
		return nil, err
	}
	if c.CelestialCacheHits, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skyorient_celestial_cache_hits_total",
		Help: "Reads served from the cached sky frame.",
	}), "skyorient_celestial_cache_hits_total"); err != nil {
		return nil, err
	}
	if c.DegenerateInputs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyorient_degenerate_inputs_total",
		Help: "Sensor readings that could not produce a device frame, labeled by input.",
	}, []string{"input"}), "skyorient_degenerate_inputs_total"); err != nil {
		return nil, err
	}
	if c.SensorSamples, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyorient_sensor_samples_total",
		Help: "Sensor samples applied to the model, labeled by source.",
	}, []string{"source"}), "skyorient_sensor_samples_total"); err != nil {
		return nil, err
	}
	if c.RejectedSamples, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyorient_sensor_samples_rejected_total",
		Help: "Sensor samples dropped because they could not be decoded, labeled by source.",
	}, []string{"source"}), "skyorient_sensor_samples_rejected_total"); err != nil {
		return nil, err
	}
	if c.LocationUpdates, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyorient_location_updates_total",
		Help: "Observer location changes, labeled by source.",
	}, []string{"source"}), "skyorient_location_updates_total"); err != nil {
		return nil, err
	}
	if c.ClockTransitions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyorient_clock_transitions_total",
		Help: "Composite clock state changes, labeled by source and destination state.",
	}, []string{"from", "to"}), "skyorient_clock_transitions_total"); err != nil {
		return nil, err
	}
	if c.FieldOfView, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skyorient_field_of_view_degrees",
		Help: "Current display field of view.",
	}), "skyorient_field_of_view_degrees"); err != nil {
		return nil, err
	}
	if c.TimeTravelOffset, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skyorient_time_travel_offset_seconds",
		Help: "Difference between model time and wall time at the last time travel request.",
	}), "skyorient_time_travel_offset_seconds"); err != nil {
		return nil, err
	}
	return c, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *OrientationCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveCelestialRefresh records a sky frame recomputation.
func (c *OrientationCollector) ObserveCelestialRefresh(forced bool, d time.Duration) {
	if c == nil {
		return
	}
	reason := "interval"
	if forced {
		reason = "forced"
	}
	c.CelestialRefreshes.WithLabelValues(reason).Inc()
	c.CelestialRefreshDuration.Observe(d.Seconds())
}

// IncCelestialCacheHit counts a read served from the cached sky frame.
func (c *OrientationCollector) IncCelestialCacheHit() {
	if c == nil {
		return
	}
	c.CelestialCacheHits.Inc()
}

// IncDegenerateInput counts a sensor reading that was ignored.
func (c *OrientationCollector) IncDegenerateInput(input string) {
	if c == nil {
		return
	}
	c.DegenerateInputs.WithLabelValues(input).Inc()
}

func (c *OrientationCollector) IncSensorSample(source string) {
	if c == nil {
		return
	}
	c.SensorSamples.WithLabelValues(source).Inc()
}

func (c *OrientationCollector) IncRejectedSample(source string) {
	if c == nil {
		return
	}
	c.RejectedSamples.WithLabelValues(source).Inc()
}

func (c *OrientationCollector) IncLocationUpdate(source string) {
	if c == nil {
		return
	}
	c.LocationUpdates.WithLabelValues(source).Inc()
}

// ObserveClockTransition has the shape of timectrl.TransitionFunc so it can be
// registered directly with a composite clock.
func (c *OrientationCollector) ObserveClockTransition(from, to timectrl.State) {
	if c == nil {
		return
	}
	c.ClockTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

// SetFieldOfView updates the field-of-view gauge.
func (c *OrientationCollector) SetFieldOfView(degrees float64) {
	if c == nil {
		return
	}
	c.FieldOfView.Set(degrees)
}

// SetTimeTravelOffset updates the time-travel offset gauge.
func (c *OrientationCollector) SetTimeTravelOffset(d time.Duration) {
	if c == nil {
		return
	}
	c.TimeTravelOffset.Set(d.Seconds())
}
