package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/sky-map-team/skyorient/model"
)

// wireSample is the JSON layout published by sensor bridges:
//
//	{"ax": 0, "ay": -1, "az": -9.8, "mx": 12, "my": -30, "mz": -40, "source": "phone", "time": 1700000000000}
//
// The six components are required; source and time are optional.
type wireSample struct {
	AX     *float64 `json:"ax"`
	AY     *float64 `json:"ay"`
	AZ     *float64 `json:"az"`
	MX     *float64 `json:"mx"`
	MY     *float64 `json:"my"`
	MZ     *float64 `json:"mz"`
	Source string   `json:"source,omitempty"`
	Time   int64    `json:"time,omitempty"`
}

// DecodeSample parses one JSON sensor sample and validates it.
func DecodeSample(payload []byte) (model.SensorSample, error) {
	var w wireSample
	if err := json.Unmarshal(payload, &w); err != nil {
		return model.SensorSample{}, fmt.Errorf("%w: %v", model.ErrInvalidSample, err)
	}

	fields := [...]struct {
		name string
		v    *float64
	}{{"ax", w.AX}, {"ay", w.AY}, {"az", w.AZ}, {"mx", w.MX}, {"my", w.MY}, {"mz", w.MZ}}
	for _, f := range fields {
		if f.v == nil {
			return model.SensorSample{}, fmt.Errorf("%w: missing %q", model.ErrInvalidSample, f.name)
		}
	}

	s := model.SensorSample{
		Source:        w.Source,
		Acceleration:  model.Vector{X: *w.AX, Y: *w.AY, Z: *w.AZ},
		MagneticField: model.Vector{X: *w.MX, Y: *w.MY, Z: *w.MZ},
		TimeMillis:    w.Time,
	}
	if err := s.Validate(); err != nil {
		return model.SensorSample{}, err
	}
	return s, nil
}

// EncodeSample is the inverse of DecodeSample, used by publishers.
func EncodeSample(s model.SensorSample) ([]byte, error) {
	return json.Marshal(wireSample{
		AX: &s.Acceleration.X, AY: &s.Acceleration.Y, AZ: &s.Acceleration.Z,
		MX: &s.MagneticField.X, MY: &s.MagneticField.Y, MZ: &s.MagneticField.Z,
		Source: s.Source,
		Time:   s.TimeMillis,
	})
}
