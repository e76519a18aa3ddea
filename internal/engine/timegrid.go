package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Operating window and slot granularity in minutes from midnight.
const (
	dayStart = 480  // 08:00
	dayEnd   = 1080 // 18:00
	slotStep = 15
)

// ErrInvalidTimeFormat reports a clock string that is not H:MM/HH:MM or
// falls outside 00:00-23:59.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// ToMinutes parses a clock string into a minute offset from midnight.
func ToMinutes(clock string) (int, error) {
	hh, mm, ok := strings.Cut(clock, ":")
	if !ok || len(hh) < 1 || len(hh) > 2 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, clock)
	}
	hours, err := parseDigits(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, clock)
	}
	minutes, err := parseDigits(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, clock)
	}
	total := hours*60 + minutes
	if hours > 23 || minutes > 59 || total < 0 || total > 1439 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, clock)
	}
	return total, nil
}

// ToClock formats a minute offset as HH:MM. It is the exact inverse of
// ToMinutes for offsets in 0-1439.
func ToClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// CandidateStarts enumerates every valid session start for the given
// duration: multiples of 15 within the operating window such that the
// session ends by 18:00. Empty when the duration cannot fit.
func CandidateStarts(duration int) []int {
	var starts []int
	for t := dayStart; t+duration <= dayEnd; t += slotStep {
		starts = append(starts, t)
	}
	return starts
}

func parseDigits(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit %q", r)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}
