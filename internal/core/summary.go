package core

import "time"

// Summary is the aggregated view of a month's transactions.
// ChartSeries is the two-slice [income, expense] series the dashboard
// pie chart renders.
type Summary struct {
	Month        int // 1-12
	Year         int // 0 when the filter matched any year
	IncomeCents  int64
	ExpenseCents int64
	NetCents     int64
	ChartSeries  [2]int64
}

// Summarize computes income, expense, and net totals over txs for the
// given calendar month. A year of zero or less matches the month in
// any year; a positive year restricts the filter to that year.
//
// The function is pure: it never mutates txs and identical inputs
// always produce identical output.
func Summarize(txs []Transaction, month time.Month, year int) Summary {
	s := Summary{Month: int(month)}
	if year > 0 {
		s.Year = year
	}
	for _, tx := range txs {
		if tx.CreatedAt.Month() != month {
			continue
		}
		if year > 0 && tx.CreatedAt.Year() != year {
			continue
		}
		switch tx.Type {
		case Income:
			s.IncomeCents += tx.Amount.Cents
		case Expense:
			s.ExpenseCents += tx.Amount.Cents
		}
	}
	s.NetCents = s.IncomeCents - s.ExpenseCents
	s.ChartSeries = [2]int64{s.IncomeCents, s.ExpenseCents}
	return s
}
