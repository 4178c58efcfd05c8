package data

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/magnet/market"
)

const esChart = `{"chart":{"result":[{"meta":{"symbol":"ES=F","regularMarketPrice":6701.5},
"timestamp":[1735828200,1735828500,1735828800],
"indicators":{"quote":[{"open":[6699,null,6700.5],"high":[6702,null,6702],"low":[6698,null,6700],
"close":[6700.25,null,6701.5],"volume":[1200,null,800]}]}}],"error":null}}`

const vixChart = `{"chart":{"result":[{"meta":{"symbol":"^VIX"},"timestamp":[1735828200],
"indicators":{"quote":[{"close":[17.25],"volume":[0]}]}}],"error":null}}`

func testYahoo(url string) *Yahoo {
	y := NewYahoo(quiet)
	y.BaseURL = url + "/"
	y.Limiter = nil
	y.Backoff = time.Millisecond
	return y
}

func TestYahoo_HistoricalBars(t *testing.T) {
	t.Parallel()

	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Path + "?" + r.URL.RawQuery)
		w.Write([]byte(esChart))
	}))
	defer srv.Close()

	bars, err := testYahoo(srv.URL).HistoricalBars(context.Background(), 5)
	require.NoError(t, err)

	q := gotQuery.Load().(string)
	assert.Contains(t, q, "/ES=F?")
	assert.Contains(t, q, "range=5d")
	assert.Contains(t, q, "interval=5m")

	// The null row is dropped.
	require.Len(t, bars, 2)
	assert.Equal(t, market.Bar{
		Time:   time.Unix(1735828200, 0).UTC(),
		Open:   6699,
		High:   6702,
		Low:    6698,
		Close:  6700.25,
		Volume: 1200,
	}, bars[0])
	assert.Equal(t, 6701.5, bars[1].Close)
}

func TestYahoo_CurrentQuote(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "VIX") {
			w.Write([]byte(vixChart))
			return
		}
		w.Write([]byte(esChart))
	}))
	defer srv.Close()

	q, err := testYahoo(srv.URL).CurrentQuote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6701.5, q.Price)
	assert.Equal(t, 800.0, q.Volume)
	assert.Equal(t, 17.25, q.SecondaryIndex)
}

func TestYahoo_SecondaryIndexDefaults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "VIX") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(esChart))
	}))
	defer srv.Close()

	q, err := testYahoo(srv.URL).CurrentQuote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, market.DefaultSecondaryIndex, q.SecondaryIndex)
}

func TestYahoo_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(esChart))
	}))
	defer srv.Close()

	bars, err := testYahoo(srv.URL).HistoricalBars(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestYahoo_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		calls   int32
	}{
		{"not found is not retried", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }, 1},
		{"server error exhausts attempts", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}, 3},
		{"chart error", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
		}, 1},
		{"all nulls", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"chart":{"result":[{"timestamp":[1],"indicators":{"quote":[{"close":[null]}]}}]}}`))
		}, 1},
		{"garbage", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html>")) }, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tt.handler(w, r)
			}))
			defer srv.Close()

			bars, err := testYahoo(srv.URL).HistoricalBars(context.Background(), 1)
			assert.Nil(t, bars)
			assert.ErrorIs(t, err, market.ErrDataUnavailable)
			assert.Equal(t, tt.calls, calls.Load())
		})
	}
}

func TestYahoo_RateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(esChart))
	}))
	defer srv.Close()

	y := testYahoo(srv.URL)
	y.Limiter = NewYahoo(nil).Limiter

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := y.HistoricalBars(context.Background(), 1)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}
