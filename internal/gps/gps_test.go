package gps

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/sky-map-team/skyorient/model"
)

const (
	rmcMunich     = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	ggaMunich     = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	rmcVoid       = "$GPRMC,123520,V,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*77"
	ggaNoFix      = "$GPGGA,123520,4807.038,N,01131.000,E,0,00,,,M,,M,,*58"
	rmcNear       = "$GPRMC,123521,A,4807.100,N,01131.000,E,022.4,084.4,230394,003.1,W*6B"
	rmcFar        = "$GPRMC,123522,A,4812.038,N,01131.000,E,022.4,084.4,230394,003.1,W*66"
	gsaSatellites = "$GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1*39"
)

type recordingSetter struct {
	locations []model.LatLong
}

func (s *recordingSetter) SetLocation(loc model.LatLong) { s.locations = append(s.locations, loc) }

type countingRecorder map[string]int

func (c countingRecorder) IncLocationUpdate(source string) { c[source]++ }

func TestParseSentence(t *testing.T) {
	fix, ok, err := ParseSentence(rmcMunich)
	if err != nil || !ok {
		t.Fatalf("ParseSentence(RMC) = %v, %v", ok, err)
	}
	if math.Abs(fix.Location.Latitude()-48.1173) > 1e-4 || math.Abs(fix.Location.Longitude()-11.516667) > 1e-4 {
		t.Fatalf("RMC location = %v", fix.Location)
	}
	wantTime := time.Date(1994, time.March, 23, 12, 35, 19, 0, time.UTC)
	if !fix.Time.Equal(wantTime) {
		t.Fatalf("RMC time = %v, want %v", fix.Time, wantTime)
	}

	fix, ok, err = ParseSentence(ggaMunich)
	if err != nil || !ok {
		t.Fatalf("ParseSentence(GGA) = %v, %v", ok, err)
	}
	if fix.Satellites != 8 || fix.Kind != "GGA" || !fix.Time.IsZero() {
		t.Fatalf("GGA fix = %+v", fix)
	}

	for _, line := range []string{rmcVoid, ggaNoFix, gsaSatellites} {
		if _, ok, err := ParseSentence(line); ok || err != nil {
			t.Fatalf("ParseSentence(%q) = %v, %v, want no fix and no error", line, ok, err)
		}
	}

	for _, line := range []string{"", "GPRMC without dollar", "$GPRMC,123519,A,4807.038,N*00"} {
		if _, _, err := ParseSentence(line); err == nil {
			t.Fatalf("ParseSentence(%q) succeeded, want error", line)
		}
	}
}

func TestTrackerSkipsSmallMoves(t *testing.T) {
	setter := &recordingSetter{}
	rec := countingRecorder{}
	tracker := NewTracker(setter, 500, rec, nil)
	ctx := context.Background()

	for _, line := range []string{rmcMunich, rmcNear, rmcFar} {
		fix, ok, err := ParseSentence(line)
		if err != nil || !ok {
			t.Fatalf("ParseSentence(%q) = %v, %v", line, ok, err)
		}
		tracker.Update(ctx, fix)
	}

	if len(setter.locations) != 2 {
		t.Fatalf("SetLocation called %d times, want 2 (first fix and the far one)", len(setter.locations))
	}
	if rec[SourceGPS] != 2 {
		t.Fatalf("location updates = %d, want 2", rec[SourceGPS])
	}
	last, ok := tracker.Last()
	if !ok || last != setter.locations[1] {
		t.Fatalf("Last() = %v, %v, want %v", last, ok, setter.locations[1])
	}
}

func TestTrackerConsume(t *testing.T) {
	setter := &recordingSetter{}
	tracker := NewTracker(setter, 0, nil, nil)

	stream := strings.Join([]string{
		"garbage",
		rmcVoid,
		gsaSatellites,
		"",
		ggaMunich,
		ggaNoFix,
		rmcFar,
	}, "\r\n") + "\r\n"

	if err := tracker.Consume(context.Background(), strings.NewReader(stream)); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if len(setter.locations) != 2 {
		t.Fatalf("SetLocation called %d times, want 2", len(setter.locations))
	}
}

func TestTrackerConsumeStopsOnCancel(t *testing.T) {
	setter := &recordingSetter{}
	tracker := NewTracker(setter, 0, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := tracker.Consume(ctx, strings.NewReader(rmcMunich+"\n")); err != context.Canceled {
		t.Fatalf("Consume after cancel = %v, want context.Canceled", err)
	}
	if len(setter.locations) != 0 {
		t.Fatalf("SetLocation called after cancel")
	}
}
