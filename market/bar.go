package market

import (
	"fmt"
	"time"
)

// Bar is a single price sample for the traded future. Slices of Bar are
// always kept in chronological order; window slicing depends on it.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open,omitempty"`
	High   float64   `json:"high,omitempty"`
	Low    float64   `json:"low,omitempty"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Day is one calendar date worth of bars.
type Day struct {
	Date time.Time `json:"date"`
	Bars []Bar     `json:"bars"`
}

// GroupByDay splits bars into calendar days in loc, preserving the source
// order inside each day and the order in which days first appear. A nil loc
// uses each bar's own location.
func GroupByDay(bars []Bar, loc *time.Location) []Day {
	var days []Day
	index := map[string]int{}

	for _, b := range bars {
		t := b.Time
		if loc != nil {
			t = t.In(loc)
		}
		key := t.Format("2006-01-02")

		i, ok := index[key]
		if !ok {
			i = len(days)
			index[key] = i
			days = append(days, Day{
				Date: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()),
			})
		}
		days[i].Bars = append(days[i].Bars, b)
	}
	return days
}

// Session is an intraday trading window expressed as wall-clock times
// ("09:30", "16:00"). A zero Session admits every bar.
type Session struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// IsZero reports whether the session has no bounds.
func (s Session) IsZero() bool {
	return s.Start == "" && s.End == ""
}

// Filter returns the bars whose wall-clock time in loc falls in [Start, End).
func (s Session) Filter(bars []Bar, loc *time.Location) ([]Bar, error) {
	if s.IsZero() {
		return bars, nil
	}
	start, err := clockMinutes(s.Start, 0)
	if err != nil {
		return nil, err
	}
	end, err := clockMinutes(s.End, 24*60)
	if err != nil {
		return nil, err
	}

	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		t := b.Time
		if loc != nil {
			t = t.In(loc)
		}
		m := t.Hour()*60 + t.Minute()
		if m >= start && m < end {
			out = append(out, b)
		}
	}
	return out, nil
}

// Validate checks both bounds parse as "15:04" and Start is before End.
func (s Session) Validate() error {
	start, err := clockMinutes(s.Start, 0)
	if err != nil {
		return fmt.Errorf("session start: %w", err)
	}
	end, err := clockMinutes(s.End, 24*60)
	if err != nil {
		return fmt.Errorf("session end: %w", err)
	}
	if start >= end {
		return fmt.Errorf("session start %q is not before end %q", s.Start, s.End)
	}
	return nil
}

func clockMinutes(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
