// Package gps turns NMEA sentences from a serial GPS receiver into observer
// locations for the orientation model.
package gps

import (
	"fmt"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/sky-map-team/skyorient/model"
)

// Fix is one usable position report.
type Fix struct {
	Location   model.LatLong
	Time       time.Time // zero when the sentence carries no date
	Satellites int64     // GGA only
	Kind       string    // sentence type, "RMC" or "GGA"
}

// ParseSentence parses a single NMEA line. ok is false for well-formed
// sentences that carry no position: void RMC, GGA without a fix, and the
// sentence types that are not position reports.
func ParseSentence(line string) (fix Fix, ok bool, err error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Fix{}, false, fmt.Errorf("not an NMEA sentence: %q", line)
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false, err
	}

	switch sentence.DataType() {
	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		if m.Validity != nmea.ValidRMC {
			return Fix{}, false, nil
		}
		return Fix{
			Location: model.NewLatLong(m.Latitude, m.Longitude),
			Time:     fixTime(m.Date, m.Time),
			Kind:     nmea.TypeRMC,
		}, true, nil

	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		if m.FixQuality == nmea.Invalid {
			return Fix{}, false, nil
		}
		return Fix{
			Location:   model.NewLatLong(m.Latitude, m.Longitude),
			Satellites: m.NumSatellites,
			Kind:       nmea.TypeGGA,
		}, true, nil
	}
	return Fix{}, false, nil
}

// fixTime combines an RMC date and time. Two-digit years pivot at 1980.
func fixTime(d nmea.Date, t nmea.Time) time.Time {
	if !d.Valid || !t.Valid {
		return time.Time{}
	}
	year := 2000 + d.YY
	if d.YY >= 80 {
		year = 1900 + d.YY
	}
	return time.Date(year, time.Month(d.MM), d.DD, t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}
