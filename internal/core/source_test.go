package core

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceJSON(id, unscaled, scale string) []byte {
	idField := ""
	if id != "" {
		idField = fmt.Sprintf(`"id": %q,`, id)
	}
	return []byte(fmt.Sprintf(`{
		%s
		"accountId": "acc-1",
		"status": "BOOKED",
		"amount": {"currencyCode": "GBP", "value": {"unscaledValue": %q, "scale": %q}},
		"dates": {"booked": "2022-01-15"},
		"descriptions": {
			"detailed": {"unstructured": "CARD PAYMENT TO SHOP"},
			"display": "Shop",
			"original": "SHOP LTD 1234"
		}
	}`, idField, unscaled, scale))
}

func TestFromSource(t *testing.T) {
	tx, err := FromSource("alice", sourceJSON("tx-1", "-1300", "1"))
	require.NoError(t, err)

	assert.Equal(t, "alice", tx.Username)
	assert.Equal(t, "tx-1", tx.ID)
	assert.Equal(t, "GBP", tx.Currency)
	assert.Equal(t, NewDate(2022, 1, 15), tx.Date)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(-130)), "amount = %s", tx.Amount)
	assert.Equal(t, TinkData{Status: "BOOKED", AccountID: "acc-1"}, tx.TinkData)
	assert.Equal(t, SingleDay(NewDate(2022, 1, 15)), tx.EcoData)
	assert.False(t, tx.Ignore)

	require.NotNil(t, tx.Description.Detailed)
	assert.Equal(t, "CARD PAYMENT TO SHOP", *tx.Description.Detailed)
	assert.Equal(t, "Shop", *tx.Description.Display)
	assert.Equal(t, "SHOP LTD 1234", *tx.Description.Original)
	assert.Equal(t, "Shop", *tx.Description.User)
}

func TestFromSource_DecimalExactness(t *testing.T) {
	tests := []struct {
		unscaled string
		scale    string
		want     string
	}{
		{"-1300", "1", "-130"},
		{"1000", "2", "10"},
		{"100", "2", "1"},
		{"1", "4", "0.0001"},
		{"12345", "0", "12345"},
		{"-999999999999", "3", "-999999999.999"},
		{"7", "3", "0.007"},
	}
	for _, tt := range tests {
		t.Run(tt.unscaled+"e-"+tt.scale, func(t *testing.T) {
			tx, err := FromSource("alice", sourceJSON("tx", tt.unscaled, tt.scale))
			require.NoError(t, err)
			want := decimal.RequireFromString(tt.want)
			assert.True(t, tx.Amount.Equal(want), "got %s, want %s", tx.Amount, want)
		})
	}
}

func TestFromSource_NumericScaleFields(t *testing.T) {
	payload := []byte(`{"id":"n","amount":{"currencyCode":"EUR","value":{"unscaledValue":-2599,"scale":2}},"dates":{"booked":"2022-03-01"}}`)
	tx, err := FromSource("bob", payload)
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("-25.99")))
}

func TestFromSource_MissingDescriptionsAreNil(t *testing.T) {
	payload := []byte(`{"id":"x","amount":{"currencyCode":"GBP","value":{"unscaledValue":"5","scale":"0"}},"dates":{"booked":"2022-01-01"},"descriptions":{"display":"Cafe"}}`)
	tx, err := FromSource("alice", payload)
	require.NoError(t, err)

	assert.Nil(t, tx.Description.Detailed)
	assert.Nil(t, tx.Description.Original)
	assert.Equal(t, "Cafe", *tx.Description.Display)
	assert.Equal(t, "Cafe", *tx.Description.User)
	assert.Empty(t, tx.TinkData.Status)

	noDesc := []byte(`{"id":"y","amount":{"currencyCode":"GBP","value":{"unscaledValue":"5","scale":"0"}},"dates":{"booked":"2022-01-01"}}`)
	tx, err = FromSource("alice", noDesc)
	require.NoError(t, err)
	assert.Equal(t, Description{}, tx.Description)
}

func TestFromSource_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{"missing id", `{"amount":{"currencyCode":"GBP","value":{"unscaledValue":"1","scale":"0"}},"dates":{"booked":"2022-01-01"}}`, "id"},
		{"missing amount", `{"id":"a","dates":{"booked":"2022-01-01"}}`, "amount"},
		{"missing currency", `{"id":"a","amount":{"value":{"unscaledValue":"1","scale":"0"}},"dates":{"booked":"2022-01-01"}}`, "amount.currencyCode"},
		{"missing scale", `{"id":"a","amount":{"currencyCode":"GBP","value":{"unscaledValue":"1"}},"dates":{"booked":"2022-01-01"}}`, "amount.value.scale"},
		{"fractional unscaled", `{"id":"a","amount":{"currencyCode":"GBP","value":{"unscaledValue":"1.5","scale":"0"}},"dates":{"booked":"2022-01-01"}}`, "amount.value.unscaledValue"},
		{"missing booked date", `{"id":"a","amount":{"currencyCode":"GBP","value":{"unscaledValue":"1","scale":"0"}}}`, "dates.booked"},
		{"bad booked date", `{"id":"a","amount":{"currencyCode":"GBP","value":{"unscaledValue":"1","scale":"0"}},"dates":{"booked":"15/01/2022"}}`, "dates.booked"},
		{"not json", `not json`, "$"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromSource("alice", []byte(tt.payload))
			require.ErrorIs(t, err, ErrDecode)

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, OriginSource, decodeErr.Origin)
			assert.Equal(t, tt.field, decodeErr.Field)
		})
	}
}

func TestFromSource_EncodesStoredShape(t *testing.T) {
	tx, err := FromSource("alice", sourceJSON("tx-1", "1000", "2"))
	require.NoError(t, err)

	doc, err := tx.Encode()
	require.NoError(t, err)

	var shape map[string]any
	require.NoError(t, json.Unmarshal(doc, &shape))
	assert.Equal(t, float64(10), shape["amount"])
	assert.Equal(t, "2022-01-15", shape["date"])
	assert.Equal(t, map[string]any{"oneOff": true, "startDate": "2022-01-15", "endDate": "2022-01-15"}, shape["ecoData"])
	assert.Equal(t, map[string]any{"status": "BOOKED", "accountId": "acc-1"}, shape["tinkData"])
	assert.Equal(t, false, shape["ignore"])
}
