// Package analytics answers amortized-cost queries over a date window.
package analytics

import (
	"context"
	"fmt"
	"log/slog"

	"ecobud/internal/core"
	"ecobud/internal/log"
	"ecobud/internal/storage"
)

// Engine selects candidates through the store and prices them in core
type Engine struct {
	store storage.TransactionReader
}

func NewEngine(store storage.TransactionReader) *Engine {
	return &Engine{store: store}
}

// Query returns every transaction effective in the window with its
// period cost, plus the total.
func (e *Engine) Query(ctx context.Context, in core.AnalyticsInput) (core.AnalyticsOutput, error) {
	if err := in.Validate(); err != nil {
		return core.AnalyticsOutput{}, err
	}

	txs, err := e.store.FindEffective(ctx, in.Username, in.StartDate, in.EndDate)
	if err != nil {
		return core.AnalyticsOutput{}, fmt.Errorf("select effective transactions: %w", err)
	}

	out := core.Summarise(in, txs)
	slog.DebugContext(ctx, "Analytics computed",
		log.FieldComponent, log.ComponentAnalytics,
		log.FieldOperation, log.OpAnalyse,
		log.FieldUsername, in.Username,
		"start_date", in.StartDate.String(),
		"end_date", in.EndDate.String(),
		"candidates", len(txs),
		log.FieldPeriodCost, out.PeriodCost.String())
	return out, nil
}

// QueryDay is Query over the single day
func (e *Engine) QueryDay(ctx context.Context, username string, day core.Date) (core.AnalyticsOutput, error) {
	return e.Query(ctx, core.AnalyticsInput{Username: username, StartDate: day, EndDate: day})
}
