package backtest

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Stat is a metric that may be undefined, such as the average of an empty
// selection. Undefined stats print as "undefined" and marshal to null.
type Stat struct {
	Value float64
	Valid bool
}

// Defined wraps a computed value.
func Defined(v float64) Stat {
	return Stat{Value: v, Valid: true}
}

// Undefined is the zero Stat.
var Undefined = Stat{}

func (s Stat) String() string {
	return s.Format("%g")
}

// Format renders the value with a fmt verb, or "undefined".
func (s Stat) Format(verb string) string {
	if !s.Valid {
		return "undefined"
	}
	return fmt.Sprintf(verb, s.Value)
}

// Percent renders a fraction as "61.5%", or "undefined".
func (s Stat) Percent() string {
	if !s.Valid {
		return "undefined"
	}
	return fmt.Sprintf("%.1f%%", 100*s.Value)
}

func (s Stat) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

func (s *Stat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = Undefined
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*s = Defined(v)
	return nil
}

// Grade buckets the edge into the dashboard's three verdicts.
type Grade string

const (
	GradeCasino    Grade = "casino"
	GradeMild      Grade = "mild"
	GradeNegative  Grade = "negative"
	GradeUndefined Grade = "undefined"
)

// GradeEdge grades an edge: above 0.15 is casino level, above 0 is mild.
func GradeEdge(edge Stat) Grade {
	switch {
	case !edge.Valid:
		return GradeUndefined
	case edge.Value > 0.15:
		return GradeCasino
	case edge.Value > 0:
		return GradeMild
	default:
		return GradeNegative
	}
}

// DayResult summarises one simulated day.
type DayResult struct {
	Date       time.Time `json:"date"`
	Trades     int       `json:"trades"`
	PnL        float64   `json:"pnl"`
	EndBalance float64   `json:"end_balance"`
	Stopped    bool      `json:"stopped"` // daily loss limit breached
}

// Summary is the aggregate result of a run.
type Summary struct {
	RunID string    `json:"run_id,omitempty"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	TotalTrades int `json:"total_trades"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`

	WinRate      Stat    `json:"win_rate"`
	AvgWin       Stat    `json:"avg_win"`
	AvgLoss      Stat    `json:"avg_loss"`
	AvgPnL       Stat    `json:"avg_pnl"`
	TotalPnL     float64 `json:"total_pnl"`
	ProfitFactor float64 `json:"profit_factor"`
	Edge         Stat    `json:"edge"`
	EdgeGrade    Grade   `json:"edge_grade"`

	InitialBalance float64 `json:"initial_balance"`
	FinalBalance   float64 `json:"final_balance"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`

	Faults  int         `json:"faults"`
	Stopped int         `json:"stopped"` // sells skipped by the daily stop
	Days    []DayResult `json:"days,omitempty"`
}

// Aggregate computes the performance metrics of trades. Averages over empty
// selections and an edge without losses are Undefined, never NaN.
//
//	win rate      = wins / trades
//	profit factor = gross profit / |gross loss|, 0 without losses
//	edge          = (winRate*avgWin - (1-winRate)*|avgLoss|) / |avgLoss|
func Aggregate(trades []TradeRecord, initialBalance, finalBalance float64) Summary {
	s := Summary{
		TotalTrades:    len(trades),
		InitialBalance: initialBalance,
		FinalBalance:   finalBalance,
	}

	var (
		grossProfit, grossLoss float64
		nProfit, nLoss         int
		equity                 = initialBalance
		peak                   = initialBalance
	)
	for _, tr := range trades {
		switch tr.Outcome {
		case Win:
			s.Wins++
		case Loss:
			s.Losses++
		}
		switch {
		case tr.PnL > 0:
			grossProfit += tr.PnL
			nProfit++
		case tr.PnL < 0:
			grossLoss += tr.PnL
			nLoss++
		}
		s.TotalPnL += tr.PnL

		equity += tr.PnL
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > s.MaxDrawdown {
			s.MaxDrawdown = dd
			if peak > 0 {
				s.MaxDrawdownPct = dd / peak
			}
		}
	}

	if s.TotalTrades > 0 {
		s.WinRate = Defined(float64(s.Wins) / float64(s.TotalTrades))
		s.AvgPnL = Defined(s.TotalPnL / float64(s.TotalTrades))
	}
	if nProfit > 0 {
		s.AvgWin = Defined(grossProfit / float64(nProfit))
	}
	if nLoss > 0 {
		s.AvgLoss = Defined(grossLoss / float64(nLoss))
	}
	if grossLoss != 0 {
		s.ProfitFactor = grossProfit / -grossLoss
	}

	s.Edge = edge(s.WinRate, s.AvgWin, s.AvgLoss)
	s.EdgeGrade = GradeEdge(s.Edge)
	return s
}

func edge(winRate, avgWin, avgLoss Stat) Stat {
	if !winRate.Valid || !avgLoss.Valid || avgLoss.Value == 0 {
		return Undefined
	}
	winTerm := 0.0
	if winRate.Value > 0 {
		if !avgWin.Valid {
			return Undefined
		}
		winTerm = winRate.Value * avgWin.Value
	}
	loss := -avgLoss.Value
	if loss < 0 {
		loss = -loss
	}
	return Defined((winTerm - (1-winRate.Value)*loss) / loss)
}

// Print writes a human readable report of s.
func Print(w io.Writer, s *Summary) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Magnet Backtest Result")
	fmt.Fprintln(w, "==================================================")

	if s == nil {
		fmt.Fprintln(w, "No result: market data unavailable")
		return
	}

	if s.RunID != "" {
		fmt.Fprintf(w, "Run ID:        %s\n", s.RunID)
	}
	fmt.Fprintf(w, "Start:         %s\n", s.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", s.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Days:          %d\n", len(s.Days))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", s.TotalTrades)
	fmt.Fprintf(w, "Wins:          %d\n", s.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", s.Losses)
	fmt.Fprintf(w, "Win Rate:      %s\n", s.WinRate.Percent())
	fmt.Fprintf(w, "Avg Win:       %s\n", s.AvgWin.Format("$%.2f"))
	fmt.Fprintf(w, "Avg Loss:      %s\n", s.AvgLoss.Format("$%.2f"))
	fmt.Fprintf(w, "Avg P/L:       %s\n", s.AvgPnL.Format("$%.2f"))
	fmt.Fprintf(w, "Profit Factor: %.2f\n", s.ProfitFactor)
	fmt.Fprintf(w, "Edge:          %s (%s)\n", s.Edge.Percent(), s.EdgeGrade)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Balance: $%.2f\n", s.InitialBalance)
	fmt.Fprintf(w, "End Balance:   $%.2f\n", s.FinalBalance)
	fmt.Fprintf(w, "Net P/L:       $%.2f\n", s.TotalPnL)
	fmt.Fprintf(w, "Max Drawdown:  $%.2f (%.2f%%)\n", s.MaxDrawdown, 100*s.MaxDrawdownPct)

	if s.Faults > 0 || s.Stopped > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Faulted steps: %d\n", s.Faults)
		fmt.Fprintf(w, "Daily stops:   %d\n", s.Stopped)
	}
	fmt.Fprintln(w)
}
