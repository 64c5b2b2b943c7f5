// Package types converts between the orientation model's domain values and
// the protobuf well-known types carried on the OrientationService wire.
package types

import (
	"errors"
	"fmt"
	"math"

	"github.com/sky-map-team/skyorient/model"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrInvalidMessage is returned when a message is missing a field or carries a
// field of the wrong kind.
var ErrInvalidMessage = errors.New("invalid message")

// Field names used on the wire.
const (
	FieldX             = "x"
	FieldY             = "y"
	FieldZ             = "z"
	FieldLineOfSight   = "line_of_sight"
	FieldPerpendicular = "perpendicular"
	FieldRA            = "ra"
	FieldDec           = "dec"
	FieldTimeMillis    = "time_millis"
	FieldFieldOfView   = "field_of_view"
	FieldLatitude      = "latitude"
	FieldLongitude     = "longitude"
	FieldAcceleration  = "acceleration"
	FieldMagneticField = "magnetic_field"
	FieldSource        = "source"
	FieldState         = "state"
	FieldTimeTravel    = "time_travelling"
)

// PointingReport is a pointing snapshot together with the derived sky
// position and the field of view in effect. It is the payload of both the
// gRPC GetPointing call and the HTTP/websocket endpoints.
type PointingReport struct {
	LineOfSight   model.Vector `json:"line_of_sight"`
	Perpendicular model.Vector `json:"perpendicular"`
	RA            float64      `json:"ra"`
	Dec           float64      `json:"dec"`
	TimeMillis    int64        `json:"time_millis"`
	FieldOfView   float64      `json:"field_of_view"`
}

// NewPointingReport derives the report for p.
func NewPointingReport(p model.Pointing, fieldOfView float64) PointingReport {
	rd := p.RaDec()
	return PointingReport{
		LineOfSight:   p.LineOfSight,
		Perpendicular: p.Perpendicular,
		RA:            rd.RA,
		Dec:           rd.Dec,
		TimeMillis:    p.TimeMillis,
		FieldOfView:   fieldOfView,
	}
}

// Pointing returns the bare pointing the report was built from.
func (r PointingReport) Pointing() model.Pointing {
	return model.Pointing{
		LineOfSight:   r.LineOfSight,
		Perpendicular: r.Perpendicular,
		TimeMillis:    r.TimeMillis,
	}
}

// ClockStatus describes the clock driving the model.
type ClockStatus struct {
	State          string `json:"state"`
	TimeMillis     int64  `json:"time_millis"`
	TimeTravelling bool   `json:"time_travelling"`
}

// VectorToValue encodes v as {x, y, z}.
func VectorToValue(v model.Vector) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		FieldX: structpb.NewNumberValue(v.X),
		FieldY: structpb.NewNumberValue(v.Y),
		FieldZ: structpb.NewNumberValue(v.Z),
	}})
}

// VectorFromValue decodes a {x, y, z} value. name is used in error messages.
func VectorFromValue(name string, v *structpb.Value) (model.Vector, error) {
	s := v.GetStructValue()
	if s == nil {
		return model.Vector{}, fmt.Errorf("%w: %s must be an object with x, y and z", ErrInvalidMessage, name)
	}
	var out model.Vector
	var err error
	if out.X, err = number(s, name, FieldX); err != nil {
		return model.Vector{}, err
	}
	if out.Y, err = number(s, name, FieldY); err != nil {
		return model.Vector{}, err
	}
	if out.Z, err = number(s, name, FieldZ); err != nil {
		return model.Vector{}, err
	}
	return out, nil
}

// PointingToProto encodes a pointing report.
func PointingToProto(r PointingReport) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldLineOfSight:   VectorToValue(r.LineOfSight),
		FieldPerpendicular: VectorToValue(r.Perpendicular),
		FieldRA:            structpb.NewNumberValue(r.RA),
		FieldDec:           structpb.NewNumberValue(r.Dec),
		FieldTimeMillis:    structpb.NewNumberValue(float64(r.TimeMillis)),
		FieldFieldOfView:   structpb.NewNumberValue(r.FieldOfView),
	}}
}

// PointingFromProto decodes a pointing report.
func PointingFromProto(s *structpb.Struct) (PointingReport, error) {
	if s == nil {
		return PointingReport{}, fmt.Errorf("%w: pointing is required", ErrInvalidMessage)
	}
	var r PointingReport
	var err error
	if r.LineOfSight, err = VectorFromValue(FieldLineOfSight, s.GetFields()[FieldLineOfSight]); err != nil {
		return PointingReport{}, err
	}
	if r.Perpendicular, err = VectorFromValue(FieldPerpendicular, s.GetFields()[FieldPerpendicular]); err != nil {
		return PointingReport{}, err
	}
	if r.RA, err = number(s, "pointing", FieldRA); err != nil {
		return PointingReport{}, err
	}
	if r.Dec, err = number(s, "pointing", FieldDec); err != nil {
		return PointingReport{}, err
	}
	if r.TimeMillis, err = millis(s, "pointing", FieldTimeMillis); err != nil {
		return PointingReport{}, err
	}
	if r.FieldOfView, err = number(s, "pointing", FieldFieldOfView); err != nil {
		return PointingReport{}, err
	}
	return r, nil
}

var directionFields = [...]string{"north", "south", "east", "west", "zenith", "nadir"}

func directionSlots(d *model.Directions) [6]*model.Vector {
	return [6]*model.Vector{&d.North, &d.South, &d.East, &d.West, &d.Zenith, &d.Nadir}
}

// DirectionsToProto encodes the six cardinal directions.
func DirectionsToProto(d model.Directions) *structpb.Struct {
	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(directionFields))}
	for i, v := range directionSlots(&d) {
		out.Fields[directionFields[i]] = VectorToValue(*v)
	}
	return out
}

// DirectionsFromProto decodes the six cardinal directions.
func DirectionsFromProto(s *structpb.Struct) (model.Directions, error) {
	if s == nil {
		return model.Directions{}, fmt.Errorf("%w: directions are required", ErrInvalidMessage)
	}
	var d model.Directions
	for i, slot := range directionSlots(&d) {
		v, err := VectorFromValue(directionFields[i], s.GetFields()[directionFields[i]])
		if err != nil {
			return model.Directions{}, err
		}
		*slot = v
	}
	return d, nil
}

// LocationToProto encodes a location.
func LocationToProto(loc model.LatLong) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldLatitude:  structpb.NewNumberValue(loc.Latitude()),
		FieldLongitude: structpb.NewNumberValue(loc.Longitude()),
	}}
}

// LocationFromProto returns the raw latitude and longitude in degrees. Range
// checks are left to the caller.
func LocationFromProto(s *structpb.Struct) (lat, lon float64, err error) {
	if s == nil {
		return 0, 0, fmt.Errorf("%w: location is required", ErrInvalidMessage)
	}
	if lat, err = number(s, "location", FieldLatitude); err != nil {
		return 0, 0, err
	}
	if lon, err = number(s, "location", FieldLongitude); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

// SensorSampleToProto encodes a sensor sample. Source and time are omitted when
// unset.
func SensorSampleToProto(sample model.SensorSample) *structpb.Struct {
	out := &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldAcceleration:  VectorToValue(sample.Acceleration),
		FieldMagneticField: VectorToValue(sample.MagneticField),
	}}
	if sample.Source != "" {
		out.Fields[FieldSource] = structpb.NewStringValue(sample.Source)
	}
	if sample.TimeMillis != 0 {
		out.Fields[FieldTimeMillis] = structpb.NewNumberValue(float64(sample.TimeMillis))
	}
	return out
}

// SensorSampleFromProto decodes a sensor sample.
func SensorSampleFromProto(s *structpb.Struct) (model.SensorSample, error) {
	if s == nil {
		return model.SensorSample{}, fmt.Errorf("%w: sensor sample is required", ErrInvalidMessage)
	}
	var sample model.SensorSample
	var err error
	if sample.Acceleration, err = VectorFromValue(FieldAcceleration, s.GetFields()[FieldAcceleration]); err != nil {
		return model.SensorSample{}, err
	}
	if sample.MagneticField, err = VectorFromValue(FieldMagneticField, s.GetFields()[FieldMagneticField]); err != nil {
		return model.SensorSample{}, err
	}
	if v, ok := s.GetFields()[FieldSource]; ok {
		src, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return model.SensorSample{}, fmt.Errorf("%w: sensor sample.%s must be a string", ErrInvalidMessage, FieldSource)
		}
		sample.Source = src.StringValue
	}
	if _, ok := s.GetFields()[FieldTimeMillis]; ok {
		if sample.TimeMillis, err = millis(s, "sensor sample", FieldTimeMillis); err != nil {
			return model.SensorSample{}, err
		}
	}
	return sample, nil
}

// ClockStatusToProto encodes a clock status.
func ClockStatusToProto(c ClockStatus) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldState:      structpb.NewStringValue(c.State),
		FieldTimeMillis: structpb.NewNumberValue(float64(c.TimeMillis)),
		FieldTimeTravel: structpb.NewBoolValue(c.TimeTravelling),
	}}
}

// ClockStatusFromProto decodes a clock status.
func ClockStatusFromProto(s *structpb.Struct) (ClockStatus, error) {
	if s == nil {
		return ClockStatus{}, fmt.Errorf("%w: clock status is required", ErrInvalidMessage)
	}
	state, ok := s.GetFields()[FieldState].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return ClockStatus{}, fmt.Errorf("%w: clock.%s must be a string", ErrInvalidMessage, FieldState)
	}
	ms, err := millis(s, "clock", FieldTimeMillis)
	if err != nil {
		return ClockStatus{}, err
	}
	return ClockStatus{
		State:          state.StringValue,
		TimeMillis:     ms,
		TimeTravelling: s.GetFields()[FieldTimeTravel].GetBoolValue(),
	}, nil
}

func number(s *structpb.Struct, parent, key string) (float64, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s.%s is required", ErrInvalidMessage, parent, key)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s.%s must be a number", ErrInvalidMessage, parent, key)
	}
	return n.NumberValue, nil
}

// millis reads an epoch-millisecond field. Doubles hold integers exactly up to
// 2^53, which covers any plausible timestamp.
func millis(s *structpb.Struct, parent, key string) (int64, error) {
	f, err := number(s, parent, key)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%w: %s.%s is out of range", ErrInvalidMessage, parent, key)
	}
	return int64(math.Round(f)), nil
}
