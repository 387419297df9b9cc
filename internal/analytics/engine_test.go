package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecobud/internal/core"
	"ecobud/internal/storage"
	"ecobud/internal/storage/memory"
	"ecobud/internal/storage/storagetest"
)

func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	oneOff := storagetest.Transaction("alice", "lunch", core.NewDate(2022, 1, 15), -12)
	require.NoError(t, store.Insert(ctx, oneOff))

	rent := storagetest.Transaction("alice", "rent", core.NewDate(2022, 1, 1), -31)
	rent.EcoData = core.EcoData{StartDate: core.NewDate(2022, 1, 1), EndDate: core.NewDate(2022, 1, 31)}
	require.NoError(t, store.Insert(ctx, rent))

	salary := storagetest.Transaction("alice", "salary", core.NewDate(2022, 1, 20), 100)
	require.NoError(t, store.Insert(ctx, salary))

	february := storagetest.Transaction("alice", "feb", core.NewDate(2022, 2, 3), -7)
	require.NoError(t, store.Insert(ctx, february))

	other := storagetest.Transaction("bob", "lunch", core.NewDate(2022, 1, 15), -99)
	require.NoError(t, store.Insert(ctx, other))
	return store
}

func TestEngine_Query(t *testing.T) {
	engine := NewEngine(seed(t))

	out, err := engine.Query(context.Background(), core.AnalyticsInput{
		Username:  "alice",
		StartDate: core.NewDate(2022, 1, 1),
		EndDate:   core.NewDate(2022, 1, 15),
	})
	require.NoError(t, err)

	costs := map[string]decimal.Decimal{}
	for _, at := range out.Transactions {
		costs[at.Transaction.ID] = at.PeriodCost()
	}
	require.Len(t, costs, 2)
	assert.True(t, costs["lunch"].Equal(decimal.NewFromInt(-12)))
	assert.True(t, costs["rent"].Equal(decimal.NewFromInt(-15)))
	assert.True(t, out.PeriodCost.Equal(decimal.NewFromInt(-27)), "total = %s", out.PeriodCost)
}

func TestEngine_QueryCreditsOffsetDebits(t *testing.T) {
	engine := NewEngine(seed(t))

	out, err := engine.Query(context.Background(), core.AnalyticsInput{
		Username:  "alice",
		StartDate: core.NewDate(2022, 1, 1),
		EndDate:   core.NewDate(2022, 1, 31),
	})
	require.NoError(t, err)
	assert.Len(t, out.Transactions, 3)
	assert.True(t, out.PeriodCost.Equal(decimal.NewFromInt(57)), "total = %s", out.PeriodCost)
}

func TestEngine_QueryDay(t *testing.T) {
	engine := NewEngine(seed(t))

	out, err := engine.QueryDay(context.Background(), "alice", core.NewDate(2022, 1, 10))
	require.NoError(t, err)
	require.Len(t, out.Transactions, 1)
	assert.Equal(t, "rent", out.Transactions[0].Transaction.ID)
	assert.True(t, out.PeriodCost.Equal(decimal.NewFromInt(-1)))
}

func TestEngine_QueryEmptyWindow(t *testing.T) {
	engine := NewEngine(seed(t))

	out, err := engine.Query(context.Background(), core.AnalyticsInput{
		Username:  "alice",
		StartDate: core.NewDate(2023, 1, 1),
		EndDate:   core.NewDate(2023, 1, 31),
	})
	require.NoError(t, err)
	assert.NotNil(t, out.Transactions)
	assert.Empty(t, out.Transactions)
	assert.True(t, out.PeriodCost.IsZero())
}

func TestEngine_QueryInvalidWindow(t *testing.T) {
	engine := NewEngine(seed(t))

	_, err := engine.Query(context.Background(), core.AnalyticsInput{
		Username:  "alice",
		StartDate: core.NewDate(2022, 2, 1),
		EndDate:   core.NewDate(2022, 1, 1),
	})
	assert.ErrorIs(t, err, core.ErrInvalidWindow)
}

type brokenReader struct{ storage.TransactionReader }

func (brokenReader) FindEffective(context.Context, string, core.Date, core.Date) ([]core.Transaction, error) {
	return nil, &core.DecodeError{Origin: core.OriginStored, Field: "amount", Reason: "missing"}
}

func TestEngine_QueryPropagatesDecodeErrors(t *testing.T) {
	_, err := NewEngine(brokenReader{}).QueryDay(context.Background(), "alice", core.NewDate(2022, 1, 1))
	assert.True(t, errors.Is(err, core.ErrDecode))
}
