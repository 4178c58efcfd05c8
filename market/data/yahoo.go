package data

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/rustyeddy/magnet/market"
)

// Yahoo symbols for the E-mini future and the volatility index.
const (
	DefaultSymbol          = "ES=F"
	DefaultSecondarySymbol = "^VIX"
	DefaultYahooURL        = "https://query1.finance.yahoo.com/v8/finance/chart/"
)

// Yahoo reads bars from the Yahoo Finance chart API. Requests are paced by
// a token bucket and retried with exponential backoff.
type Yahoo struct {
	BaseURL         string
	Symbol          string
	SecondarySymbol string
	Client          *http.Client
	Limiter         *rate.Limiter
	Attempts        int
	Backoff         time.Duration
	Log             *slog.Logger
}

// NewYahoo returns a source for ES=F and ^VIX allowing two requests per
// second.
func NewYahoo(log *slog.Logger) *Yahoo {
	if log == nil {
		log = slog.Default()
	}
	return &Yahoo{
		BaseURL:         DefaultYahooURL,
		Symbol:          DefaultSymbol,
		SecondarySymbol: DefaultSecondarySymbol,
		Client:          &http.Client{Timeout: 20 * time.Second},
		Limiter:         rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		Attempts:        3,
		Backoff:         500 * time.Millisecond,
		Log:             log,
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// CurrentQuote returns the last one minute bar of today and the last
// volatility index close, which defaults to 15 when it cannot be read.
func (y *Yahoo) CurrentQuote(ctx context.Context) (market.Quote, error) {
	bars, err := y.chart(ctx, y.Symbol, "1d", "1m")
	if err != nil {
		return market.Quote{}, fmt.Errorf("data: %w: %w", market.ErrDataUnavailable, err)
	}

	index := market.DefaultSecondaryIndex
	if y.SecondarySymbol != "" {
		vix, err := y.chart(ctx, y.SecondarySymbol, "1d", "1m")
		if err != nil || len(vix) == 0 {
			y.log().Warn("secondary index unavailable", "symbol", y.SecondarySymbol, "err", err)
		} else {
			index = vix[len(vix)-1].Close
		}
	}
	return quoteFromBars(bars, index)
}

// HistoricalBars fetches five minute bars for the last days.
func (y *Yahoo) HistoricalBars(ctx context.Context, days int) ([]market.Bar, error) {
	if days <= 0 {
		days = 1
	}
	bars, err := y.chart(ctx, y.Symbol, fmt.Sprintf("%dd", days), "5m")
	if err != nil {
		return nil, fmt.Errorf("data: %w: %w", market.ErrDataUnavailable, err)
	}
	return bars, nil
}

func (y *Yahoo) chart(ctx context.Context, symbol, period, interval string) ([]market.Bar, error) {
	u := y.BaseURL + url.PathEscape(symbol) + "?" + url.Values{
		"range":    {period},
		"interval": {interval},
	}.Encode()

	client := y.Client
	if client == nil {
		client = http.DefaultClient
	}

	var body []byte
	err := retry(ctx, max(y.Attempts, 1), y.Backoff, func() error {
		if y.Limiter != nil {
			if err := y.Limiter.Wait(ctx); err != nil {
				return permanent(err)
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return permanent(err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (magnet)")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("%s: %s", symbol, resp.Status)
		case resp.StatusCode != http.StatusOK:
			return permanent(fmt.Errorf("%s: %s", symbol, resp.Status))
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("%s: decode chart: %w", symbol, err)
	}
	if e := cr.Chart.Error; e != nil {
		return nil, fmt.Errorf("%s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%s: empty chart", symbol)
	}

	res := cr.Chart.Result[0]
	q := res.Indicators.Quote[0]
	bars := make([]market.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		c := at(q.Close, i)
		if c == nil {
			continue
		}
		b := market.Bar{Time: time.Unix(ts, 0).UTC(), Close: *c}
		if v := at(q.Open, i); v != nil {
			b.Open = *v
		}
		if v := at(q.High, i); v != nil {
			b.High = *v
		}
		if v := at(q.Low, i); v != nil {
			b.Low = *v
		}
		if v := at(q.Volume, i); v != nil {
			b.Volume = *v
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: no bars for %s", symbol, period)
	}
	y.log().Debug("chart fetched", "symbol", symbol, "range", period, "interval", interval, "bars", len(bars))
	return bars, nil
}

func at(vals []*float64, i int) *float64 {
	if i < len(vals) {
		return vals[i]
	}
	return nil
}

func (y *Yahoo) log() *slog.Logger {
	if y.Log == nil {
		return slog.Default()
	}
	return y.Log
}
