package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// numeric accepts a number sent either bare or as a quoted string
type numeric string

func (n *numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = numeric(strings.TrimSpace(s))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = numeric(num.String())
	return nil
}

type sourceText struct {
	Unstructured *string `json:"unstructured"`
}

type sourcePayload struct {
	ID        string `json:"id"`
	AccountID string `json:"accountId"`
	Status    string `json:"status"`
	Amount    *struct {
		CurrencyCode string `json:"currencyCode"`
		Value        *struct {
			UnscaledValue numeric `json:"unscaledValue"`
			Scale         numeric `json:"scale"`
		} `json:"value"`
	} `json:"amount"`
	Dates *struct {
		Booked string `json:"booked"`
	} `json:"dates"`
	Descriptions *struct {
		Detailed *sourceText `json:"detailed"`
		Display  *string     `json:"display"`
		Original *string     `json:"original"`
	} `json:"descriptions"`
}

// FromSource converts one aggregator transaction payload into a Transaction
// owned by username. The record starts life as a single-day expense.
func FromSource(username string, payload []byte) (Transaction, error) {
	var p sourcePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Transaction{}, &DecodeError{Origin: OriginSource, Field: "$", Reason: err.Error()}
	}

	if p.ID == "" {
		return Transaction{}, missing(OriginSource, "id")
	}
	if p.Amount == nil {
		return Transaction{}, missing(OriginSource, "amount")
	}
	if p.Amount.CurrencyCode == "" {
		return Transaction{}, missing(OriginSource, "amount.currencyCode")
	}
	if p.Amount.Value == nil {
		return Transaction{}, missing(OriginSource, "amount.value")
	}
	if p.Amount.Value.UnscaledValue == "" {
		return Transaction{}, missing(OriginSource, "amount.value.unscaledValue")
	}
	if p.Amount.Value.Scale == "" {
		return Transaction{}, missing(OriginSource, "amount.value.scale")
	}
	scale, err := strconv.ParseInt(string(p.Amount.Value.Scale), 10, 32)
	if err != nil {
		return Transaction{}, mistyped(OriginSource, "amount.value.scale", "an integer")
	}
	amount, err := AmountFromScaled(string(p.Amount.Value.UnscaledValue), int32(scale))
	if err != nil {
		return Transaction{}, mistyped(OriginSource, "amount.value.unscaledValue", "an integer")
	}
	if p.Dates == nil || p.Dates.Booked == "" {
		return Transaction{}, missing(OriginSource, "dates.booked")
	}
	booked, err := ParseDate(p.Dates.Booked)
	if err != nil {
		return Transaction{}, mistyped(OriginSource, "dates.booked", "a YYYY-MM-DD date")
	}

	var desc Description
	if d := p.Descriptions; d != nil {
		if d.Detailed != nil {
			desc.Detailed = d.Detailed.Unstructured
		}
		desc.Display = d.Display
		desc.Original = d.Original
		if d.Display != nil {
			desc.User = StringPtr(*d.Display)
		}
	}

	return Transaction{
		Username:    username,
		ID:          p.ID,
		Amount:      amount,
		Currency:    p.Amount.CurrencyCode,
		Date:        booked,
		Description: desc,
		EcoData:     SingleDay(booked),
		TinkData:    TinkData{Status: p.Status, AccountID: p.AccountID},
	}, nil
}
