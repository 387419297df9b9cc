package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storedDoc = `{
	"_id": "65a1f0c2e4b0a1b2c3d4e5f6",
	"username": "alice",
	"id": "tx-1",
	"amount": -12.5,
	"currency": "GBP",
	"date": "2022-01-15",
	"description": {"detailed": null, "display": "Gym", "original": "GYM LTD", "user": "My gym"},
	"ecoData": {"oneOff": false, "startDate": "2022-01-01", "endDate": "2022-01-31", "dailyAmount": 0.4},
	"tinkData": {"status": "BOOKED", "accountId": "acc-1"},
	"ignore": true
}`

func TestDecodeStored(t *testing.T) {
	tx, err := DecodeStored([]byte(storedDoc))
	require.NoError(t, err)

	assert.Equal(t, "alice", tx.Username)
	assert.Equal(t, "tx-1", tx.ID)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("-12.5")))
	assert.Nil(t, tx.Description.Detailed)
	assert.Equal(t, "My gym", *tx.Description.User)
	assert.False(t, tx.EcoData.OneOff)
	assert.Equal(t, NewDate(2022, 1, 1), tx.EcoData.StartDate)
	assert.Equal(t, NewDate(2022, 1, 31), tx.EcoData.EndDate)
	require.NotNil(t, tx.EcoData.DailyAmount)
	assert.True(t, tx.EcoData.DailyAmount.Equal(decimal.RequireFromString("0.4")))
	assert.True(t, tx.Ignore)
}

func TestDecodeStored_EncodeRoundTripKeepsAnnotations(t *testing.T) {
	tx, err := DecodeStored([]byte(storedDoc))
	require.NoError(t, err)
	doc, err := tx.Encode()
	require.NoError(t, err)

	again, err := DecodeStored(doc)
	require.NoError(t, err)
	assert.Equal(t, tx.EcoData.StartDate, again.EcoData.StartDate)
	assert.True(t, tx.Amount.Equal(again.Amount.Decimal))
	assert.Equal(t, tx.Description, again.Description)
	assert.Equal(t, tx.Ignore, again.Ignore)
}

func TestDecodeStored_Defaults(t *testing.T) {
	doc := `{"username":"alice","id":"tx-2","amount":3,"currency":"GBP","date":"2022-02-02",
		"description":{},"tinkData":{"status":"","accountId":""}}`
	tx, err := DecodeStored([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, SingleDay(NewDate(2022, 2, 2)), tx.EcoData)
	assert.False(t, tx.Ignore)

	partial := `{"username":"alice","id":"tx-3","amount":3,"currency":"GBP","date":"2022-02-02",
		"description":{},"ecoData":{"oneOff":true},"tinkData":{"status":"","accountId":""}}`
	tx, err = DecodeStored([]byte(partial))
	require.NoError(t, err)
	assert.Equal(t, SingleDay(NewDate(2022, 2, 2)), tx.EcoData)
}

func TestDecodeStored_Strictness(t *testing.T) {
	valid := func(override string) string {
		base := map[string]string{
			"username":    `"alice"`,
			"id":          `"tx"`,
			"amount":      `1`,
			"currency":    `"GBP"`,
			"date":        `"2022-01-01"`,
			"description": `{}`,
			"tinkData":    `{"status":"BOOKED","accountId":"a"}`,
		}
		out := "{"
		first := true
		for _, k := range []string{"username", "id", "amount", "currency", "date", "description", "tinkData"} {
			if k == override {
				continue
			}
			if !first {
				out += ","
			}
			out += `"` + k + `":` + base[k]
			first = false
		}
		return out + "}"
	}

	for _, field := range []string{"username", "id", "amount", "currency", "date", "description", "tinkData"} {
		t.Run("missing "+field, func(t *testing.T) {
			_, err := DecodeStored([]byte(valid(field)))
			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, field, decodeErr.Field)
			assert.Equal(t, OriginStored, decodeErr.Origin)
		})
	}

	mistypedDocs := []struct {
		name  string
		doc   string
		field string
	}{
		{"amount as string", `{"username":"a","id":"t","amount":"1","currency":"GBP","date":"2022-01-01","description":{},"tinkData":{"status":"","accountId":""}}`, "amount"},
		{"id as number", `{"username":"a","id":7,"amount":1,"currency":"GBP","date":"2022-01-01","description":{},"tinkData":{"status":"","accountId":""}}`, "id"},
		{"date wrong layout", `{"username":"a","id":"t","amount":1,"currency":"GBP","date":"01/01/2022","description":{},"tinkData":{"status":"","accountId":""}}`, "date"},
		{"description not object", `{"username":"a","id":"t","amount":1,"currency":"GBP","date":"2022-01-01","description":"x","tinkData":{"status":"","accountId":""}}`, "description"},
		{"display as number", `{"username":"a","id":"t","amount":1,"currency":"GBP","date":"2022-01-01","description":{"display":5},"tinkData":{"status":"","accountId":""}}`, "description.display"},
		{"oneOff as string", `{"username":"a","id":"t","amount":1,"currency":"GBP","date":"2022-01-01","description":{},"ecoData":{"oneOff":"yes"},"tinkData":{"status":"","accountId":""}}`, "ecoData.oneOff"},
		{"tink status missing", `{"username":"a","id":"t","amount":1,"currency":"GBP","date":"2022-01-01","description":{},"tinkData":{"accountId":""}}`, "tinkData.status"},
		{"ignore as number", `{"username":"a","id":"t","amount":1,"currency":"GBP","date":"2022-01-01","description":{},"tinkData":{"status":"","accountId":""},"ignore":1}`, "ignore"},
	}
	for _, tt := range mistypedDocs {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeStored([]byte(tt.doc))
			require.ErrorIs(t, err, ErrDecode)
			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, tt.field, decodeErr.Field)
		})
	}
}

func TestEcoData_Validate(t *testing.T) {
	assert.NoError(t, SingleDay(NewDate(2022, 1, 1)).Validate())
	assert.NoError(t, EcoData{StartDate: NewDate(2022, 1, 1), EndDate: NewDate(2022, 1, 31)}.Validate())
	assert.ErrorIs(t, EcoData{StartDate: NewDate(2022, 2, 1), EndDate: NewDate(2022, 1, 31)}.Validate(), ErrInvalidEcoData)
	assert.NoError(t, EcoData{OneOff: true, StartDate: NewDate(2022, 2, 1), EndDate: NewDate(2022, 1, 31)}.Validate())
}

func TestWithSourceFields(t *testing.T) {
	stored, err := DecodeStored([]byte(storedDoc))
	require.NoError(t, err)
	fresh, err := FromSource("alice", sourceJSON("tx-1", "-1250", "2"))
	require.NoError(t, err)

	merged := stored.WithSourceFields(fresh)
	assert.Equal(t, stored.EcoData, merged.EcoData)
	assert.Equal(t, stored.Ignore, merged.Ignore)
	assert.Equal(t, fresh.Description, merged.Description)
	assert.Equal(t, fresh.TinkData, merged.TinkData)
}
