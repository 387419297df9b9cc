// Package storagetest holds behaviour tests shared by every storage backend.
package storagetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecobud/internal/core"
	"ecobud/internal/storage"
)

// Factory returns an empty store for one test
type Factory func(t *testing.T) storage.Store

// Transaction builds a one-off fixture
func Transaction(username, id string, date core.Date, amount int64) core.Transaction {
	return core.Transaction{
		Username:    username,
		ID:          id,
		Amount:      core.NewAmount(decimal.NewFromInt(amount)),
		Currency:    "GBP",
		Date:        date,
		Description: core.Description{Display: core.StringPtr("display " + id), User: core.StringPtr("display " + id)},
		EcoData:     core.SingleDay(date),
		TinkData:    core.TinkData{Status: "PENDING", AccountID: "acc-1"},
	}
}

// Run executes the shared suite against stores produced by newStore
func Run(t *testing.T, newStore Factory) {
	t.Run("FindByIDMissing", func(t *testing.T) { testFindByIDMissing(t, newStore(t)) })
	t.Run("InsertAndFind", func(t *testing.T) { testInsertAndFind(t, newStore(t)) })
	t.Run("InsertDuplicate", func(t *testing.T) { testInsertDuplicate(t, newStore(t)) })
	t.Run("UpsertMergedKeepsAnnotations", func(t *testing.T) { testUpsertMerged(t, newStore(t)) })
	t.Run("UpsertMergedMissing", func(t *testing.T) { testUpsertMergedMissing(t, newStore(t)) })
	t.Run("Replace", func(t *testing.T) { testReplace(t, newStore(t)) })
	t.Run("FindManyDefaults", func(t *testing.T) { testFindManyDefaults(t, newStore(t)) })
	t.Run("FindManyScopedByUser", func(t *testing.T) { testFindManyScopedByUser(t, newStore(t)) })
	t.Run("FindEffective", func(t *testing.T) { testFindEffective(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
}

func testFindByIDMissing(t *testing.T, s storage.Store) {
	_, err := s.FindByID(context.Background(), "alice", "nope")
	require.ErrorIs(t, err, storage.ErrNotFound)

	var nf *core.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nope", nf.ID)
}

func testInsertAndFind(t *testing.T, s storage.Store) {
	ctx := context.Background()
	tx := Transaction("alice", "tx-1", core.NewDate(2022, 1, 15), -42)
	tx.Amount = core.NewAmount(decimal.RequireFromString("-42.17"))
	require.NoError(t, s.Insert(ctx, tx))

	got, err := s.FindByID(ctx, "alice", "tx-1")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(tx.Amount.Decimal), "amount = %s", got.Amount)
	assert.Equal(t, tx.Date, got.Date)
	assert.Equal(t, tx.Description, got.Description)
	assert.Equal(t, tx.EcoData, got.EcoData)
	assert.Equal(t, tx.TinkData, got.TinkData)

	_, err = s.FindByID(ctx, "bob", "tx-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testInsertDuplicate(t *testing.T, s storage.Store) {
	ctx := context.Background()
	tx := Transaction("alice", "tx-1", core.NewDate(2022, 1, 15), 1)
	require.NoError(t, s.Insert(ctx, tx))

	tx.Currency = "EUR"
	assert.ErrorIs(t, s.Insert(ctx, tx), storage.ErrAlreadyExists)

	got, err := s.FindByID(ctx, "alice", "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "GBP", got.Currency)
}

func testUpsertMerged(t *testing.T, s storage.Store) {
	ctx := context.Background()
	tx := Transaction("alice", "tx-1", core.NewDate(2022, 1, 15), -10)
	tx.EcoData = core.EcoData{OneOff: false, StartDate: core.NewDate(2022, 1, 1), EndDate: core.NewDate(2022, 12, 31)}
	tx.Ignore = true
	require.NoError(t, s.Insert(ctx, tx))

	desc := core.Description{Detailed: core.StringPtr("fresh detail"), Display: core.StringPtr("Fresh"), User: core.StringPtr("Fresh")}
	tink := core.TinkData{Status: "BOOKED", AccountID: "acc-2"}
	require.NoError(t, s.UpsertMerged(ctx, "alice", "tx-1", tink, desc))

	got, err := s.FindByID(ctx, "alice", "tx-1")
	require.NoError(t, err)
	assert.Equal(t, tink, got.TinkData)
	assert.Equal(t, desc, got.Description)
	assert.Equal(t, tx.EcoData, got.EcoData)
	assert.True(t, got.Ignore)
}

func testUpsertMergedMissing(t *testing.T, s storage.Store) {
	err := s.UpsertMerged(context.Background(), "alice", "ghost", core.TinkData{}, core.Description{})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testReplace(t *testing.T, s storage.Store) {
	ctx := context.Background()
	tx := Transaction("alice", "tx-1", core.NewDate(2022, 1, 15), -10)
	require.NoError(t, s.Insert(ctx, tx))

	edited := tx
	edited.EcoData = core.EcoData{OneOff: false, StartDate: core.NewDate(2022, 1, 1), EndDate: core.NewDate(2022, 1, 31)}
	edited.Ignore = true
	require.NoError(t, s.Replace(ctx, "alice", "tx-1", edited))

	got, err := s.FindByID(ctx, "alice", "tx-1")
	require.NoError(t, err)
	assert.Equal(t, edited.EcoData, got.EcoData)
	assert.True(t, got.Ignore)

	assert.ErrorIs(t, s.Replace(ctx, "alice", "ghost", edited), storage.ErrNotFound)
}

func testFindManyDefaults(t *testing.T, s storage.Store) {
	ctx := context.Background()
	start := core.NewDate(2022, 1, 1)
	for i := 0; i < 130; i++ {
		tx := Transaction("alice", fmt.Sprintf("tx-%03d", i), core.DateOf(start.AddDate(0, 0, i)), int64(i))
		tx.Ignore = i%10 == 0
		require.NoError(t, s.Insert(ctx, tx))
	}

	got, err := s.FindMany(ctx, "alice", storage.DefaultListOptions())
	require.NoError(t, err)
	require.Len(t, got, storage.DefaultLimit)

	for i, tx := range got {
		assert.False(t, tx.Ignore, "ignored record %s listed", tx.ID)
		if i > 0 {
			assert.False(t, tx.Date.After(got[i-1].Date), "not sorted by date desc at %d", i)
		}
	}
	assert.Equal(t, "tx-129", got[0].ID)

	all, err := s.FindMany(ctx, "alice", storage.ListOptions{ExcludeIgnored: false, SortByDateDesc: false, Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, all, 130)
}

func testFindManyScopedByUser(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, Transaction("alice", "a", core.NewDate(2022, 1, 1), 1)))
	require.NoError(t, s.Insert(ctx, Transaction("bob", "a", core.NewDate(2022, 1, 1), 2)))

	got, err := s.FindMany(ctx, "bob", storage.DefaultListOptions())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].Username)

	none, err := s.FindMany(ctx, "carol", storage.DefaultListOptions())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testFindEffective(t *testing.T, s storage.Store) {
	ctx := context.Background()

	inWindow := Transaction("alice", "one-off-in", core.NewDate(2022, 1, 15), -10)
	onEdge := Transaction("alice", "one-off-edge", core.NewDate(2022, 1, 31), -10)
	outside := Transaction("alice", "one-off-out", core.NewDate(2022, 2, 15), -10)

	overlapping := Transaction("alice", "recurring-overlap", core.NewDate(2021, 12, 20), -100)
	overlapping.EcoData = core.EcoData{StartDate: core.NewDate(2021, 12, 20), EndDate: core.NewDate(2022, 1, 5)}

	// dated outside the window but amortized across it
	spanning := Transaction("alice", "recurring-span", core.NewDate(2021, 6, 1), -365)
	spanning.EcoData = core.EcoData{StartDate: core.NewDate(2021, 6, 1), EndDate: core.NewDate(2022, 5, 31)}

	before := Transaction("alice", "recurring-before", core.NewDate(2021, 11, 1), -30)
	before.EcoData = core.EcoData{StartDate: core.NewDate(2021, 11, 1), EndDate: core.NewDate(2021, 12, 31)}

	otherUser := Transaction("bob", "one-off-in", core.NewDate(2022, 1, 15), -10)

	for _, tx := range []core.Transaction{inWindow, onEdge, outside, overlapping, spanning, before, otherUser} {
		require.NoError(t, s.Insert(ctx, tx))
	}

	got, err := s.FindEffective(ctx, "alice", core.NewDate(2022, 1, 1), core.NewDate(2022, 1, 31))
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, tx := range got {
		ids = append(ids, tx.ID)
	}
	assert.ElementsMatch(t, []string{"one-off-in", "one-off-edge", "recurring-overlap", "recurring-span"}, ids)

	day, err := s.FindEffective(ctx, "alice", core.NewDate(2022, 1, 5), core.NewDate(2022, 1, 5))
	require.NoError(t, err)
	ids = ids[:0]
	for _, tx := range day {
		ids = append(ids, tx.ID)
	}
	assert.ElementsMatch(t, []string{"recurring-overlap", "recurring-span"}, ids)
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, err := s.GetUser(ctx, "alice")
	require.ErrorIs(t, err, storage.ErrUserNotFound)

	u := core.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash", TinkUserID: "tink-1"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.ErrorIs(t, s.CreateUser(ctx, u), storage.ErrUserAlreadyExists)

	require.NoError(t, s.AddCredential(ctx, "alice", "cred-1"))
	require.NoError(t, s.AddCredential(ctx, "alice", "cred-2"))
	assert.ErrorIs(t, s.AddCredential(ctx, "ghost", "cred"), storage.ErrUserNotFound)

	got, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "tink-1", got.TinkUserID)
	assert.Equal(t, []string{"cred-1", "cred-2"}, got.Credentials)
}
