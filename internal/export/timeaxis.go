package export

import (
	"fmt"
	"time"
)

// dayHours is the span covered by a capture's time axis.
const dayHours = 24

// TimeAxis spreads n samples evenly over a day starting at start hours UT,
// endpoints included: start, ..., start+24.
func TimeAxis(n int, start float64) []float64 {
	switch {
	case n <= 0:
		return []float64{}
	case n == 1:
		return []float64{start}
	}

	step := dayHours / float64(n-1)
	axis := make([]float64, n)
	for i := range axis {
		axis[i] = start + float64(i)*step
	}
	axis[n-1] = start + dayHours
	return axis
}

// StartUT returns the UT hour of a capture started at clock ("15:04") on date
// ("2006-01-02") in the IANA zone, and the zone's offset from UT in hours on
// that day. Daylight saving is taken into account.
func StartUT(date, clock, zone string) (start, offset float64, err error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return 0, 0, fmt.Errorf("loading time zone %q: %w", zone, err)
	}

	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing capture start: %w", err)
	}

	_, seconds := t.Zone()
	offset = float64(seconds) / 3600
	local := float64(t.Hour()) + float64(t.Minute())/60
	return local - offset, offset, nil
}
