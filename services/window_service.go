package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// ScheduleSlots is the catalogue of overnight wall-clock values an employee
// may pick as a window boundary. The catalogue itself wraps past midnight, so
// ordering rules compare catalogue positions, never raw minutes.
var ScheduleSlots = []string{
	"22:00", "22:30", "23:00", "23:30",
	"00:00", "00:30", "01:00", "01:30",
	"02:00", "02:30", "03:00", "03:30",
	"04:00",
}

// ParseClock parses an "HH:MM" wall-clock string to minutes since midnight.
func ParseClock(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour*60 + minute, nil
}

// ValidateWindowSelection checks a submitted (start, end) pair against the
// slot catalogue. Both boundaries must be catalogue slots and the end slot
// must come strictly after the start slot in catalogue order.
func ValidateWindowSelection(start, end string) error {
	startIdx := slices.Index(ScheduleSlots, start)
	if startIdx < 0 {
		return NewValidationError(fmt.Sprintf("window start %q is not an allowed slot (22:00-04:00, 30 minute steps)", start))
	}
	endIdx := slices.Index(ScheduleSlots, end)
	if endIdx < 0 {
		return NewValidationError(fmt.Sprintf("window end %q is not an allowed slot (22:00-04:00, 30 minute steps)", end))
	}
	if endIdx <= startIdx {
		return NewValidationError("window end must be later than window start")
	}
	return nil
}

// IsWithinWindow reports whether the given wall-clock instant falls inside the
// stored window, inclusive at both boundaries. A window whose start is later
// than its end wraps past midnight. now must be the reporter's own local
// clock, never the server's.
func IsWithinWindow(start, end string, now time.Time) (bool, error) {
	startMin, err := ParseClock(start)
	if err != nil {
		return false, err
	}
	endMin, err := ParseClock(end)
	if err != nil {
		return false, err
	}
	nowMin := now.Hour()*60 + now.Minute()

	if startMin <= endMin {
		return nowMin >= startMin && nowMin <= endMin, nil
	}
	// Overnight wrap: inside if after start (evening) or before end (morning).
	return nowMin >= startMin || nowMin <= endMin, nil
}

// ParseReporterClock accepts the caller-asserted local timestamp sent with a
// confirmation, either as "HH:MM" or as an RFC3339 timestamp. For RFC3339 the
// wall-clock reading stays in the timestamp's own offset.
func ParseReporterClock(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	minutes, err := ParseClock(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("reporter clock %q is neither RFC3339 nor HH:MM", value)
	}
	return time.Date(0, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC), nil
}
