package xbrl

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// matchTolerance is how much longer than the requested span a duration
// context may be and still match.
const matchTolerance = 7 * day

// Selector describes the period a caller wants to read. The zero Selector
// is invalid; use one of the constructors.
type Selector struct {
	instant bool
	span    time.Duration
}

// Instant selects point-in-time contexts (balance sheet items).
func Instant() Selector { return Selector{instant: true} }

// Quarter selects 90-day durations.
func Quarter() Selector { return Days(90) }

// Year selects 360-day durations.
func Year() Selector { return Days(360) }

// Days selects durations of n days.
func Days(n int) Selector { return Selector{span: time.Duration(n) * day} }

// Span selects durations of d, rounded down to whole days.
func Span(d time.Duration) Selector { return Selector{span: d.Truncate(day)} }

// ParseSelector accepts "instant", "quarter", "year" or a day count.
func ParseSelector(s string) (Selector, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "instant":
		return Instant(), nil
	case "quarter":
		return Quarter(), nil
	case "year":
		return Year(), nil
	default:
		n, err := strconv.Atoi(v)
		if err != nil {
			return Selector{}, fmt.Errorf("%w: %q", ErrInvalidSelector, s)
		}
		return Days(n), nil
	}
}

// IsInstant reports whether the selector asks for instant contexts.
func (s Selector) IsInstant() bool { return s.instant }

func (s Selector) String() string {
	if s.instant {
		return "instant"
	}
	return fmt.Sprintf("%d days", int(s.span/day))
}

// Resolve picks the context for sel ending on end. A zero end means today.
//
// Instant selectors need an instant context dated end. Duration selectors
// need a duration ending on end whose length is between the requested span
// and one week more. The first qualifying context in document order wins.
func Resolve(catalog *Catalog, sel Selector, end time.Time) (string, error) {
	if end.IsZero() {
		end = time.Now()
	}
	end = civil(end)

	for _, id := range catalog.order {
		p := catalog.byID[id]
		if sel.instant {
			if p.Instant && p.End.Equal(end) {
				return id, nil
			}
			continue
		}
		if p.Instant || !p.End.Equal(end) {
			continue
		}
		length := p.End.Sub(p.Start)
		if length >= sel.span && length <= sel.span+matchTolerance {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %s ending %s", ErrNoContextMatch, sel, end.Format("2006-01-02"))
}

// ParseEndDate reads a report end date given as YYYYMMDD or YYYY-MM-DD. An
// empty string yields the zero time, which Resolve treats as today.
func ParseEndDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{dateLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid end date %q", s)
}
