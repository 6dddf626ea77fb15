package readhub

import (
	"fmt"
	"math"
	"time"
)

// UnknownTime is rendered for missing or unparsable timestamps.
const UnknownTime = "未知时间"

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// Formatter renders upstream timestamps for display.
type Formatter struct {
	Now      func() time.Time
	Location *time.Location
}

// DefaultFormatter uses the wall clock and the local zone.
var DefaultFormatter = Formatter{}

func (f Formatter) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f Formatter) loc() *time.Location {
	if f.Location != nil {
		return f.Location
	}
	return time.Local
}

func (f Formatter) parse(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, f.loc()); err == nil {
			return t, true
		}
	}
	// Date-only forms are UTC midnight.
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// FormatDate renders "MM月DD日 HH:MM" in the formatter's zone.
func (f Formatter) FormatDate(iso string) string {
	t, ok := f.parse(iso)
	if !ok {
		return UnknownTime
	}
	t = t.In(f.loc())
	return fmt.Sprintf("%02d月%02d日 %02d:%02d", int(t.Month()), t.Day(), t.Hour(), t.Minute())
}

// FormatRelativeOrDate renders a relative label for timestamps within a
// week of now and falls back to FormatDate beyond that.
func (f Formatter) FormatRelativeOrDate(iso string) string {
	t, ok := f.parse(iso)
	if !ok {
		return UnknownTime
	}
	diff := t.Sub(f.now())
	abs := diff
	if abs < 0 {
		abs = -abs
	}
	if abs >= 7*24*time.Hour {
		return f.FormatDate(iso)
	}

	suffix := "前"
	if diff >= 0 {
		suffix = "后"
	}
	switch {
	case abs < time.Minute:
		return "刚刚"
	case abs < time.Hour:
		return fmt.Sprintf("%d分钟%s", roundUnits(abs, time.Minute), suffix)
	case abs < 24*time.Hour:
		return fmt.Sprintf("%d小时%s", roundUnits(abs, time.Hour), suffix)
	default:
		return fmt.Sprintf("%d天%s", roundUnits(abs, 24*time.Hour), suffix)
	}
}

func roundUnits(d, unit time.Duration) int {
	return int(math.Round(float64(d) / float64(unit)))
}

// ParseTime parses an upstream timestamp in the local zone.
func ParseTime(iso string) (time.Time, bool) { return DefaultFormatter.parse(iso) }

// FormatDate formats with DefaultFormatter.
func FormatDate(iso string) string { return DefaultFormatter.FormatDate(iso) }

// FormatRelativeOrDate formats with DefaultFormatter.
func FormatRelativeOrDate(iso string) string { return DefaultFormatter.FormatRelativeOrDate(iso) }
