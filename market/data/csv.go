package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/magnet/market"
)

// CSVSource reads bars from a CSV file on every call.
//
//	time,open,high,low,close,volume
//	time,close,volume
//
// time is RFC3339, RFC3339Nano or "2006-01-02 15:04:05" (UTC). A header row
// ("time,...") is allowed and empty rows are skipped.
type CSVSource struct {
	Path           string
	SecondaryIndex float64
	Location       *time.Location // calendar days for HistoricalBars, nil is UTC
}

func (c *CSVSource) load() ([]market.Bar, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("data: %w: %w", market.ErrDataUnavailable, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

func (c *CSVSource) CurrentQuote(ctx context.Context) (market.Quote, error) {
	bars, err := c.load()
	if err != nil {
		return market.Quote{}, err
	}
	return quoteFromBars(bars, c.SecondaryIndex)
}

func (c *CSVSource) HistoricalBars(ctx context.Context, days int) ([]market.Bar, error) {
	bars, err := c.load()
	if err != nil {
		return nil, err
	}
	return market.LastDays(bars, days, c.Location), nil
}

// ReadCSV parses bars from r. Rows must be in chronological order.
func ReadCSV(r io.Reader) ([]market.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		bars []market.Bar
		line int
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
			continue
		}

		b, err := parseBarRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if n := len(bars); n > 0 && b.Time.Before(bars[n-1].Time) {
			return nil, fmt.Errorf("line %d: %s is before the previous bar", line, b.Time.Format(time.RFC3339))
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func parseBarRow(row []string) (market.Bar, error) {
	var (
		b   market.Bar
		err error
	)
	if b.Time, err = parseTime(row[0]); err != nil {
		return b, err
	}

	var fields []*float64
	switch len(row) {
	case 6:
		fields = []*float64{&b.Open, &b.High, &b.Low, &b.Close, &b.Volume}
	case 3:
		fields = []*float64{&b.Close, &b.Volume}
	default:
		return b, fmt.Errorf("want 3 or 6 columns, got %d", len(row))
	}
	for i, dst := range fields {
		s := strings.TrimSpace(row[i+1])
		if *dst, err = strconv.ParseFloat(s, 64); err != nil {
			return b, fmt.Errorf("bad number %q: %w", s, err)
		}
	}
	return b, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}

// WriteCSV writes bars with a header in the six column layout.
func WriteCSV(w io.Writer, bars []market.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		if err := cw.Write([]string{
			b.Time.Format(time.RFC3339Nano),
			f(b.Open), f(b.High), f(b.Low), f(b.Close), f(b.Volume),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
