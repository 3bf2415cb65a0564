package engine

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"papertrade/types"
)

// Report summarizes a user's trade history. Realized profit is measured
// against the average cost of the shares held at the time of each sale.
type Report struct {
	// Meta / period info
	StartDate   time.Time
	TotalPeriod time.Duration
	TotalTrades int

	// Cash flow
	TotalBought decimal.Decimal
	TotalSold   decimal.Decimal

	// Realized performance
	RealizedPnL          decimal.Decimal
	AvgWin               decimal.Decimal
	AvgLoss              decimal.Decimal
	MaxConsecutiveLosses int

	// Open lots at average cost, sorted by symbol
	Holdings []Holding
}

type Holding struct {
	Symbol  string
	Shares  int64
	AvgCost decimal.Decimal
}

// GenerateReport replays entries (oldest first) and computes the summary.
func GenerateReport(entries []types.HistoryEntry) *Report {
	report := &Report{
		TotalTrades: len(entries),
		TotalBought: decimal.Zero,
		TotalSold:   decimal.Zero,
		RealizedPnL: decimal.Zero,
		AvgWin:      decimal.Zero,
		AvgLoss:     decimal.Zero,
	}
	if len(entries) == 0 {
		return report
	}
	report.StartDate = entries[0].Time
	report.TotalPeriod = entries[len(entries)-1].Time.Sub(entries[0].Time)

	lots := make(map[string]*Holding)
	var wins, losses []decimal.Decimal
	streak := 0

	for _, en := range entries {
		lot := lots[en.Symbol]
		if lot == nil {
			lot = &Holding{Symbol: en.Symbol, AvgCost: decimal.Zero}
			lots[en.Symbol] = lot
		}
		shares := decimal.NewFromInt(en.Shares)

		switch en.Side {
		case types.SideTypeBuy:
			report.TotalBought = report.TotalBought.Add(en.Amount())
			lot.AvgCost = weightedAvg(lot.AvgCost, decimal.NewFromInt(lot.Shares), en.Price, shares)
			lot.Shares += en.Shares

		case types.SideTypeSell:
			report.TotalSold = report.TotalSold.Add(en.Amount())
			pnl := en.Price.Sub(lot.AvgCost).Mul(shares)
			report.RealizedPnL = report.RealizedPnL.Add(pnl)
			if pnl.IsNegative() {
				losses = append(losses, pnl)
				streak++
				report.MaxConsecutiveLosses = max(report.MaxConsecutiveLosses, streak)
			} else {
				wins = append(wins, pnl)
				streak = 0
			}
			lot.Shares -= en.Shares
			if lot.Shares <= 0 {
				lot.Shares = 0
				lot.AvgCost = decimal.Zero
			}
		}
	}

	report.AvgWin = average(wins)
	report.AvgLoss = average(losses)

	for _, lot := range lots {
		if lot.Shares > 0 {
			report.Holdings = append(report.Holdings, *lot)
		}
	}
	sort.Slice(report.Holdings, func(i, j int) bool { return report.Holdings[i].Symbol < report.Holdings[j].Symbol })
	return report
}

// PrintReport writes report in a human readable layout.
func PrintReport(w io.Writer, report *Report) {
	fmt.Fprintln(w, "===== Trading Report =====")
	if report.TotalTrades > 0 {
		fmt.Fprintf(w, "Start Date:            %s\n", report.StartDate.Format("2006-01-02"))
		fmt.Fprintf(w, "Total Period:          %d days\n", report.TotalPeriod/(24*time.Hour))
	}
	fmt.Fprintf(w, "Total Trades:          %d\n", report.TotalTrades)

	fmt.Fprintln(w, "\n-- Cash Flow --")
	fmt.Fprintf(w, "Total Bought:          %s\n", types.FormatUSD(report.TotalBought))
	fmt.Fprintf(w, "Total Sold:            %s\n", types.FormatUSD(report.TotalSold))

	fmt.Fprintln(w, "\n-- Realized Performance --")
	fmt.Fprintf(w, "Realized P&L:          %s\n", types.FormatUSD(report.RealizedPnL))
	fmt.Fprintf(w, "Avg Win:               %s\n", types.FormatUSD(report.AvgWin))
	fmt.Fprintf(w, "Avg Loss:              %s\n", types.FormatUSD(report.AvgLoss))
	fmt.Fprintf(w, "Max Consecutive Losses:%d\n", report.MaxConsecutiveLosses)

	if len(report.Holdings) > 0 {
		fmt.Fprintln(w, "\n-- Open Holdings --")
		for _, h := range report.Holdings {
			fmt.Fprintf(w, "%-6s %8d @ %s\n", h.Symbol, h.Shares, types.FormatUSD(h.AvgCost))
		}
	}

	fmt.Fprintln(w, "==========================")
}

func weightedAvg(existingAvgPrice, existingQty, newPrice, newQty decimal.Decimal) decimal.Decimal {
	if existingQty.IsZero() {
		return newPrice
	}
	return existingAvgPrice.Mul(existingQty).
		Add(newPrice.Mul(newQty)).
		Div(existingQty.Add(newQty))
}

func average(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}
