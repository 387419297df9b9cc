package core

import (
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

// AnalyticsInput is the query window of an analytics request
type AnalyticsInput struct {
	Username  string `json:"username"`
	StartDate Date   `json:"startDate"`
	EndDate   Date   `json:"endDate"`
}

// Validate checks the window. Both ends are inclusive.
func (in AnalyticsInput) Validate() error {
	if in.Username == "" {
		return errors.New("analytics input: username is required")
	}
	if err := in.StartDate.Validate(); err != nil {
		return errors.New("analytics input: start date: " + err.Error())
	}
	if err := in.EndDate.Validate(); err != nil {
		return errors.New("analytics input: end date: " + err.Error())
	}
	if in.EndDate.Before(in.StartDate) {
		return ErrInvalidWindow
	}
	return nil
}

// AnalysedTransaction is a query-time view of a transaction against a window.
// Its cost fields are derived on demand and never persisted.
type AnalysedTransaction struct {
	Transaction Transaction
	Window      AnalyticsInput
}

// Analyse pairs a transaction with a window
func Analyse(t Transaction, window AnalyticsInput) AnalysedTransaction {
	return AnalysedTransaction{Transaction: t, Window: window}
}

// Interval is the span over which the amount is spread. One-off
// transactions occupy their own date. A recurring interval that ends
// before it starts collapses onto its start date.
func (a AnalysedTransaction) Interval() (start, end Date) {
	t := a.Transaction
	if t.EcoData.OneOff {
		return t.Date, t.Date
	}
	start, end = t.EcoData.StartDate, t.EcoData.EndDate
	if end.Before(start) {
		return start, start
	}
	return start, end
}

// DaysInPeriod is the inclusive length of Interval, at least 1
func (a AnalysedTransaction) DaysInPeriod() int64 {
	start, end := a.Interval()
	return start.DaysUntil(end) + 1
}

// OverlapDays counts the days shared by Interval and the window
func (a AnalysedTransaction) OverlapDays() int64 {
	start, end := a.Interval()
	lo := MaxDate(start, a.Window.StartDate)
	hi := MinDate(end, a.Window.EndDate)
	if hi.Before(lo) {
		return 0
	}
	return lo.DaysUntil(hi) + 1
}

// PeriodCost is the share of the amount attributable to the window
func (a AnalysedTransaction) PeriodCost() decimal.Decimal {
	amount := a.Transaction.Amount.Decimal
	if a.Transaction.EcoData.OneOff {
		if a.Transaction.Date.Within(a.Window.StartDate, a.Window.EndDate) {
			return amount
		}
		return decimal.Zero
	}
	overlap := a.OverlapDays()
	if overlap == 0 {
		return decimal.Zero
	}
	return amount.Mul(decimal.NewFromInt(overlap)).Div(decimal.NewFromInt(a.DaysInPeriod()))
}

// DailyCost is the amount spread over each day of Interval
func (a AnalysedTransaction) DailyCost() decimal.Decimal {
	return a.Transaction.Amount.Div(decimal.NewFromInt(a.DaysInPeriod()))
}

func (a AnalysedTransaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Transaction
		PeriodCost Amount `json:"periodCost"`
		DailyCost  Amount `json:"dailyCost"`
	}{
		Transaction: a.Transaction,
		PeriodCost:  NewAmount(a.PeriodCost()),
		DailyCost:   NewAmount(a.DailyCost()),
	})
}

// AnalyticsOutput is the per-transaction breakdown plus its total
type AnalyticsOutput struct {
	Input        AnalyticsInput        `json:"-"`
	Transactions []AnalysedTransaction `json:"transactions"`
	PeriodCost   Amount                `json:"periodCost"`
}

// Summarise computes the breakdown of txs over window. It is pure and
// keeps the order of txs. Signs are preserved, so credits offset debits.
func Summarise(window AnalyticsInput, txs []Transaction) AnalyticsOutput {
	out := AnalyticsOutput{
		Input:        window,
		Transactions: make([]AnalysedTransaction, 0, len(txs)),
	}
	total := decimal.Zero
	for _, t := range txs {
		at := Analyse(t, window)
		out.Transactions = append(out.Transactions, at)
		total = total.Add(at.PeriodCost())
	}
	out.PeriodCost = NewAmount(total)
	return out
}
