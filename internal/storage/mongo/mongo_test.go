package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"ecobud/internal/core"
	"ecobud/internal/storage"
	"ecobud/internal/storage/storagetest"
)

func TestEffectiveFilter(t *testing.T) {
	got := effectiveFilter("alice", core.NewDate(2022, 1, 1), core.NewDate(2022, 1, 31))

	want := bson.D{
		{Key: "username", Value: "alice"},
		{Key: "$or", Value: bson.A{
			bson.D{
				{Key: "ecoData.oneOff", Value: true},
				{Key: "date", Value: bson.D{{Key: "$gte", Value: "2022-01-01"}, {Key: "$lte", Value: "2022-01-31"}}},
			},
			bson.D{
				{Key: "ecoData.oneOff", Value: false},
				{Key: "ecoData.startDate", Value: bson.D{{Key: "$lte", Value: "2022-01-31"}}},
				{Key: "ecoData.endDate", Value: bson.D{{Key: "$gte", Value: "2022-01-01"}}},
			},
			bson.D{
				{Key: "ecoData", Value: bson.D{{Key: "$exists", Value: false}}},
				{Key: "date", Value: bson.D{{Key: "$gte", Value: "2022-01-01"}, {Key: "$lte", Value: "2022-01-31"}}},
			},
		}},
	}
	assert.Equal(t, want, got)
}

func TestListFilterAndOptions(t *testing.T) {
	filter := listFilter("alice", storage.DefaultListOptions())
	assert.Equal(t, bson.D{
		{Key: "username", Value: "alice"},
		{Key: "ignore", Value: bson.D{{Key: "$ne", Value: true}}},
	}, filter)

	opts := listOptions(storage.DefaultListOptions())
	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(100), *opts.Limit)
	assert.Equal(t, bson.D{{Key: "date", Value: -1}, {Key: "id", Value: 1}}, opts.Sort)

	all := listFilter("alice", storage.ListOptions{})
	assert.Len(t, all, 1)
}

func TestBSONRoundTrip(t *testing.T) {
	tx := storagetest.Transaction("alice", "tx-1", core.NewDate(2022, 1, 15), -13)
	tx.EcoData = core.EcoData{StartDate: core.NewDate(2022, 1, 1), EndDate: core.NewDate(2022, 1, 31)}

	doc, err := toBSON(tx)
	require.NoError(t, err)

	raw, err := bson.Marshal(append(bson.D{{Key: "_id", Value: "65a1f0c2e4b0a1b2c3d4e5f6"}}, doc...))
	require.NoError(t, err)

	got, err := fromBSON(raw)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)
	assert.True(t, got.Amount.Equal(tx.Amount.Decimal))
	assert.Equal(t, tx.EcoData, got.EcoData)
	assert.Equal(t, tx.Description, got.Description)
}

// Live tests need a reachable server, e.g.
// ECOBUD_MONGO_TEST_URI=mongodb://localhost:27017 go test ./internal/storage/mongo
func TestStore_Live(t *testing.T) {
	uri := os.Getenv("ECOBUD_MONGO_TEST_URI")
	if uri == "" {
		t.Skip("ECOBUD_MONGO_TEST_URI not set")
	}

	storagetest.Run(t, func(t *testing.T) storage.Store {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		database := fmt.Sprintf("ecobud_test_%d", time.Now().UnixNano())
		s, err := Connect(ctx, uri, database)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = s.client.Database(database).Drop(context.Background())
			_ = s.Close()
		})
		return s
	})
}
