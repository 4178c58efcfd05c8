package data

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/magnet/market"
)

func TestReadCSV(t *testing.T) {
	t.Parallel()

	in := `time,open,high,low,close,volume
2025-01-02T14:30:00Z,6699.5,6701,6698,6700.25,1200

2025-01-02T14:35:00Z,6700,6702,6699,6701,900
`
	bars, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, market.Bar{
		Time:   time.Date(2025, 1, 2, 14, 30, 0, 0, time.UTC),
		Open:   6699.5,
		High:   6701,
		Low:    6698,
		Close:  6700.25,
		Volume: 1200,
	}, bars[0])
}

func TestReadCSV_ShortLayout(t *testing.T) {
	t.Parallel()

	bars, err := ReadCSV(strings.NewReader("2025-01-02 14:30:00,6700,10\n2025-01-02 14:31:00,6701,11\n"))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 6701.0, bars[1].Close)
	assert.Equal(t, 11.0, bars[1].Volume)
	assert.Zero(t, bars[1].Open)
}

func TestReadCSV_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bad time", "yesterday,6700,10\n", "bad time"},
		{"bad number", "2025-01-02T14:30:00Z,abc,10\n", "bad number"},
		{"wrong columns", "2025-01-02T14:30:00Z,6700\n", "columns"},
		{"out of order", "2025-01-02T14:31:00Z,6700,1\n2025-01-02T14:30:00Z,6700,1\n", "before the previous bar"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadCSV(strings.NewReader(tt.in))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestCSV_RoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleBars()))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleBars(), got)
}

func TestCSVSource(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "es.csv")

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteCSV(f, sampleBars()))
	require.NoError(t, f.Close())

	src := &CSVSource{Path: path, SecondaryIndex: 18.5}
	bars, err := src.HistoricalBars(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, bars, 4)

	q, err := src.CurrentQuote(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6723.0, q.Price)
	assert.Equal(t, 18.5, q.SecondaryIndex)

	_, err = (&CSVSource{Path: filepath.Join(t.TempDir(), "missing.csv")}).HistoricalBars(ctx, 1)
	assert.ErrorIs(t, err, market.ErrDataUnavailable)
}
