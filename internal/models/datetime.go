// Date and time interchange helpers.
//
// Dates travel as DD-Mon-YYYY strings (the scheduling API's interchange
// form); times are 24-hour HH:MM everywhere inside the engine. Provider
// responses carrying 12-hour AM/PM times are converted on ingest.
package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the scheduling API's date interchange format.
const DateLayout = "02-Jan-2006"

// DefaultDurationMinutes is assumed when a service carries no parseable duration.
const DefaultDurationMinutes = 30

var firstIntRe = regexp.MustCompile(`\d+`)

// ParseDate parses a DD-Mon-YYYY interchange date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a time as a DD-Mon-YYYY interchange date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NormalizeTime converts a provider or user supplied time to 24-hour HH:MM.
// Accepted inputs: "HH:MM", "H:MM", and 12-hour forms with an AM/PM suffix
// ("02:30 PM" -> "14:30", "12:00 AM" -> "00:00", "12:00 PM" -> "12:00").
func NormalizeTime(s string) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	var meridiem string
	switch {
	case strings.HasSuffix(v, "AM"):
		meridiem = "AM"
		v = strings.TrimSpace(strings.TrimSuffix(v, "AM"))
	case strings.HasSuffix(v, "PM"):
		meridiem = "PM"
		v = strings.TrimSpace(strings.TrimSuffix(v, "PM"))
	}

	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q", s)
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return "", fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", fmt.Errorf("invalid minute in %q", s)
	}
	if minute < 0 || minute > 59 {
		return "", fmt.Errorf("minute out of range in %q", s)
	}

	switch meridiem {
	case "PM":
		if hour != 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}
	if hour < 0 || hour > 23 {
		return "", fmt.Errorf("hour out of range in %q", s)
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// DurationMinutes extracts the duration in minutes from a free-text
// duration field by first integer match, defaulting when absent.
func DurationMinutes(raw string) int {
	m := firstIntRe.FindString(raw)
	if m == "" {
		return DefaultDurationMinutes
	}
	n, err := strconv.Atoi(m)
	if err != nil || n <= 0 {
		return DefaultDurationMinutes
	}
	return n
}

// AddMinutes returns an HH:MM time advanced by the given minutes, wrapping
// at midnight. The appointment end time is start + service duration.
func AddMinutes(hhmm string, minutes int) (string, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return "", fmt.Errorf("invalid time %q: %w", hhmm, err)
	}
	t = t.Add(time.Duration(minutes) * time.Minute)
	return t.Format("15:04"), nil
}
