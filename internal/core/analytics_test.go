package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oneOff(id string, amount int64, date Date) Transaction {
	return Transaction{
		Username: "alice",
		ID:       id,
		Amount:   NewAmount(decimal.NewFromInt(amount)),
		Currency: "GBP",
		Date:     date,
		EcoData:  SingleDay(date),
	}
}

func recurring(id string, amount int64, start, end Date) Transaction {
	t := oneOff(id, amount, start)
	t.EcoData = EcoData{OneOff: false, StartDate: start, EndDate: end}
	return t
}

func window(start, end Date) AnalyticsInput {
	return AnalyticsInput{Username: "alice", StartDate: start, EndDate: end}
}

func TestDaysInPeriod(t *testing.T) {
	tests := []struct {
		name  string
		start Date
		end   Date
		want  int64
	}{
		{"january", NewDate(2022, 1, 1), NewDate(2022, 1, 31), 31},
		{"february", NewDate(2022, 2, 1), NewDate(2022, 2, 28), 28},
		{"march", NewDate(2022, 3, 1), NewDate(2022, 3, 31), 31},
		{"single day", NewDate(2022, 3, 1), NewDate(2022, 3, 1), 1},
		{"leap february", NewDate(2024, 2, 1), NewDate(2024, 2, 29), 29},
		{"malformed collapses to one day", NewDate(2022, 3, 10), NewDate(2022, 3, 1), 1},
		{"five centuries", NewDate(1500, 1, 1), NewDate(2000, 12, 31), 182987},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := Analyse(recurring("r", 10, tt.start, tt.end), window(tt.start, tt.start))
			assert.Equal(t, tt.want, at.DaysInPeriod())
		})
	}
}

func TestPeriodCost_OneOffBoundary(t *testing.T) {
	tx := oneOff("o", 10, NewDate(2022, 1, 15))

	tests := []struct {
		name string
		in   AnalyticsInput
		want int64
	}{
		{"inside january", window(NewDate(2022, 1, 1), NewDate(2022, 1, 31)), 10},
		{"window ends on the date", window(NewDate(2022, 1, 1), NewDate(2022, 1, 15)), 10},
		{"window starts on the date", window(NewDate(2022, 1, 15), NewDate(2022, 1, 20)), 10},
		{"february", window(NewDate(2022, 2, 1), NewDate(2022, 2, 28)), 0},
		{"day before", window(NewDate(2022, 1, 1), NewDate(2022, 1, 14)), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyse(tx, tt.in).PeriodCost()
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)), "got %s", got)
		})
	}
}

func TestPeriodCost_Amortized(t *testing.T) {
	tx := recurring("r", 10, NewDate(2022, 1, 1), NewDate(2022, 1, 31))

	half := Analyse(tx, window(NewDate(2022, 1, 1), NewDate(2022, 1, 15)))
	assert.Equal(t, int64(15), half.OverlapDays())
	want := decimal.NewFromInt(10).Mul(decimal.NewFromInt(15)).Div(decimal.NewFromInt(31))
	assert.True(t, half.PeriodCost().Equal(want), "got %s want %s", half.PeriodCost(), want)

	whole := Analyse(tx, window(NewDate(2021, 12, 1), NewDate(2022, 3, 1)))
	assert.True(t, whole.PeriodCost().Equal(decimal.NewFromInt(10)))

	outside := Analyse(tx, window(NewDate(2022, 2, 1), NewDate(2022, 2, 28)))
	assert.Equal(t, int64(0), outside.OverlapDays())
	assert.True(t, outside.PeriodCost().IsZero())

	tail := Analyse(tx, window(NewDate(2022, 1, 31), NewDate(2022, 2, 10)))
	assert.Equal(t, int64(1), tail.OverlapDays())

	long := recurring("lease", 182987, NewDate(1500, 1, 1), NewDate(2000, 12, 31))
	full := Analyse(long, window(NewDate(1500, 1, 1), NewDate(2000, 12, 31)))
	assert.Equal(t, int64(182987), full.OverlapDays())
	assert.True(t, full.PeriodCost().Equal(decimal.NewFromInt(182987)), "got %s", full.PeriodCost())
}

func TestPeriodCost_MalformedIntervalIsSingleDay(t *testing.T) {
	tx := recurring("bad", 31, NewDate(2022, 1, 20), NewDate(2022, 1, 10))

	on := Analyse(tx, window(NewDate(2022, 1, 20), NewDate(2022, 1, 20)))
	assert.True(t, on.PeriodCost().Equal(decimal.NewFromInt(31)))

	off := Analyse(tx, window(NewDate(2022, 1, 10), NewDate(2022, 1, 19)))
	assert.True(t, off.PeriodCost().IsZero())
}

func TestDailyCost(t *testing.T) {
	tx := recurring("r", 31, NewDate(2022, 1, 1), NewDate(2022, 1, 31))
	at := Analyse(tx, window(NewDate(2022, 1, 1), NewDate(2022, 1, 1)))
	assert.True(t, at.DailyCost().Equal(decimal.NewFromInt(1)))

	single := Analyse(oneOff("o", 7, NewDate(2022, 1, 1)), window(NewDate(2022, 1, 1), NewDate(2022, 1, 1)))
	assert.True(t, single.DailyCost().Equal(decimal.NewFromInt(7)))
}

func TestSummarise_SignsArePreserved(t *testing.T) {
	in := window(NewDate(2022, 1, 1), NewDate(2022, 1, 31))
	txs := []Transaction{
		oneOff("debit", -40, NewDate(2022, 1, 5)),
		oneOff("credit", 100, NewDate(2022, 1, 6)),
		recurring("rent", -62, NewDate(2022, 1, 1), NewDate(2022, 2, 28)),
	}

	out := Summarise(in, txs)
	require.Len(t, out.Transactions, 3)

	// -40 + 100 + (-62 * 31 / 59)
	want := decimal.NewFromInt(60).Add(decimal.NewFromInt(-62).Mul(decimal.NewFromInt(31)).Div(decimal.NewFromInt(59)))
	assert.True(t, out.PeriodCost.Equal(want), "got %s want %s", out.PeriodCost, want)
	assert.Equal(t, "debit", out.Transactions[0].Transaction.ID)
}

func TestSummarise_Empty(t *testing.T) {
	out := Summarise(window(NewDate(2022, 1, 1), NewDate(2022, 1, 31)), nil)
	assert.True(t, out.PeriodCost.IsZero())

	body, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"transactions":[],"periodCost":0}`, string(body))
}

func TestAnalysedTransaction_MarshalJSON(t *testing.T) {
	tx := recurring("r", 10, NewDate(2022, 1, 1), NewDate(2022, 1, 10))
	at := Analyse(tx, window(NewDate(2022, 1, 1), NewDate(2022, 1, 5)))

	body, err := json.Marshal(at)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "r", got["id"])
	assert.Equal(t, "alice", got["username"])
	assert.Equal(t, float64(5), got["periodCost"])
	assert.Equal(t, float64(1), got["dailyCost"])
	assert.Contains(t, got, "ecoData")
}

func TestAnalyticsInput_Validate(t *testing.T) {
	assert.NoError(t, window(NewDate(2022, 1, 1), NewDate(2022, 1, 1)).Validate())
	assert.ErrorIs(t, window(NewDate(2022, 2, 1), NewDate(2022, 1, 1)).Validate(), ErrInvalidWindow)
	assert.Error(t, AnalyticsInput{StartDate: NewDate(2022, 1, 1), EndDate: NewDate(2022, 1, 2)}.Validate())
	assert.Error(t, AnalyticsInput{Username: "alice", EndDate: NewDate(2022, 1, 2)}.Validate())
}
