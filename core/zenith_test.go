package core

import (
	"math"
	"testing"
	"time"

	"github.com/sky-map-team/skyorient/model"
)

// equinoxNoon is when RA 0 / Dec 0 sits overhead at Greenwich.
var equinoxNoon = time.Date(2009, time.March, 20, 12, 7, 24, 0, time.UTC)

func angleDiff(a, b float64) float64 {
	return math.Abs(math.Remainder(a-b, 360))
}

func TestZenithAtEquinoxNoon(t *testing.T) {
	calcs := map[string]ZenithCalculator{
		"mean":     MeanSiderealZenith{},
		"apparent": ApparentSiderealZenith{},
	}
	cases := []struct {
		loc  model.LatLong
		want model.RaDec
	}{
		{model.NewLatLong(0, 0), model.RaDec{RA: 0, Dec: 0}},
		{model.NewLatLong(0, 90), model.RaDec{RA: 90, Dec: 0}},
		{model.NewLatLong(45, -120), model.RaDec{RA: 240, Dec: 45}},
	}
	for name, calc := range calcs {
		for _, tc := range cases {
			got := calc.ZenithRaDec(equinoxNoon, tc.loc)
			if angleDiff(got.RA, tc.want.RA) > 0.02 || math.Abs(got.Dec-tc.want.Dec) > 1e-12 {
				t.Fatalf("%s: ZenithRaDec(%v) = %+v, want %+v", name, tc.loc, got, tc.want)
			}
			if got.RA < 0 || got.RA >= 360 {
				t.Fatalf("%s: RA %v out of [0, 360)", name, got.RA)
			}
		}
	}
}

func TestMeanSiderealZenithUsesMilliseconds(t *testing.T) {
	loc := model.NewLatLong(10, 20)
	calc := MeanSiderealZenith{}
	base := calc.ZenithRaDec(equinoxNoon, loc).RA
	half := calc.ZenithRaDec(equinoxNoon.Add(500*time.Millisecond), loc).RA
	full := calc.ZenithRaDec(equinoxNoon.Add(time.Second), loc).RA

	// The sky turns 360.98564736629 degrees per solar day.
	perSecond := 360.98564736629 / 86400
	if math.Abs((full-base)-perSecond) > 1e-5 {
		t.Fatalf("one second moved RA by %v, want %v", full-base, perSecond)
	}
	if math.Abs((half-base)-perSecond/2) > 1e-5 {
		t.Fatalf("half second moved RA by %v, want %v", half-base, perSecond/2)
	}
}

func TestZenithVectorIsUnit(t *testing.T) {
	v := ZenithVector(MeanSiderealZenith{}, equinoxNoon, model.NewLatLong(-37, 145))
	if math.Abs(v.Norm()-1) > 1e-12 {
		t.Fatalf("|zenith| = %v", v.Norm())
	}
	if math.Abs(v.Z-math.Sin(-37*degToRad)) > 1e-12 {
		t.Fatalf("zenith z = %v, want sin(latitude)", v.Z)
	}
}

func TestSiderealModel(t *testing.T) {
	if _, ok := SiderealModel("apparent").(ApparentSiderealZenith); !ok {
		t.Fatalf("apparent model not selected")
	}
	if _, ok := SiderealModel("").(MeanSiderealZenith); !ok {
		t.Fatalf("mean model not default")
	}
}
