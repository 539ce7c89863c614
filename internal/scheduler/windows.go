package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseWindow resolves an HH:MM window to the concrete instant on the
// given local calendar day.
func parseWindow(day time.Time, window string) (time.Time, error) {
	parts := strings.SplitN(window, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("malformed window %q", window)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed window %q", window)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed window %q", window)
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()), nil
}

// fixedWindowDue reports whether a fixed HH:MM window should dispatch at
// nowLocal. Without catch-up the dispatch must land inside the tolerance
// band after the slot; with catch-up any later tick on the same local day
// still dispatches (the slot-based job key keeps it single-shot).
func fixedWindowDue(nowLocal time.Time, window string, tolerance time.Duration, catchup bool) (bool, error) {
	slot, err := parseWindow(nowLocal, window)
	if err != nil {
		return false, err
	}

	if nowLocal.Before(slot) {
		return false, nil
	}
	if catchup {
		return true, nil
	}
	return !nowLocal.After(slot.Add(tolerance)), nil
}

// tMinusBand returns the T-minus band (in minutes) that minutesToStart
// falls into, if any. A band matches only within +-tolerance minutes, so
// a game 150 minutes out does not trigger the T-120 band.
func tMinusBand(minutesToStart float64, bands []int, toleranceMinutes float64) (int, bool) {
	for _, band := range bands {
		delta := minutesToStart - float64(band)
		if delta >= -toleranceMinutes && delta <= toleranceMinutes {
			return band, true
		}
	}
	return 0, false
}

// maxBandMinutes returns the widest configured T-minus band
func maxBandMinutes(bands []int) int {
	max := 0
	for _, band := range bands {
		if band > max {
			max = band
		}
	}
	return max
}
