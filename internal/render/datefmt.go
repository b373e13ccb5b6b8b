package render

import (
	"fmt"
	"strings"
	"time"
)

// InvalidDate is shown for stored dates that cannot be parsed.
const InvalidDate = "Invalid Date"

// DefaultDateLayout renders day/month/year and a 24-hour clock.
const DefaultDateLayout = "2/1/2006, 15:04:05"

// Layouts carrying their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

// Layouts without an offset are read in the formatter's location.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// dateOnly is read as UTC midnight.
const dateOnly = "2006-01-02"

// DateFormatter turns stored appointment dates into display strings.
type DateFormatter struct {
	Layout   string
	Location *time.Location
}

// NewDateFormatter builds a formatter for layout in the named IANA zone.
// An empty zone or "Local" uses the host's zone.
func NewDateFormatter(layout, zone string) (DateFormatter, error) {
	if layout == "" {
		layout = DefaultDateLayout
	}
	loc := time.Local
	if zone != "" && zone != "Local" {
		var err error
		if loc, err = time.LoadLocation(zone); err != nil {
			return DateFormatter{}, fmt.Errorf("render: time zone %q: %w", zone, err)
		}
	}
	return DateFormatter{Layout: layout, Location: loc}, nil
}

// Parse reads a stored date-time.
func (f DateFormatter) Parse(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, l := range zonedLayouts {
		if t, err := time.Parse(l, raw); err == nil {
			return t, true
		}
	}
	for _, l := range localLayouts {
		if t, err := time.ParseInLocation(l, raw, f.location()); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(dateOnly, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Format renders raw in the formatter's layout and location, or InvalidDate.
func (f DateFormatter) Format(raw string) string {
	t, ok := f.Parse(raw)
	if !ok {
		return InvalidDate
	}
	layout := f.Layout
	if layout == "" {
		layout = DefaultDateLayout
	}
	return t.In(f.location()).Format(layout)
}

func (f DateFormatter) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}
