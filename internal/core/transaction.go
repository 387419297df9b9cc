// Package core holds the transaction record model and the pure cost
// apportionment used by analytics. Nothing here performs I/O.
package core

import "encoding/json"

type (
	// Description carries the aggregator's labels plus the user-facing one
	Description struct {
		Detailed *string `json:"detailed"`
		Display  *string `json:"display"`
		Original *string `json:"original"`
		User     *string `json:"user"`
	}

	// EcoData is the user-editable recurrence annotation
	EcoData struct {
		OneOff      bool    `json:"oneOff"`
		StartDate   Date    `json:"startDate"`
		EndDate     Date    `json:"endDate"`
		DailyAmount *Amount `json:"dailyAmount,omitempty"`
	}

	// TinkData is aggregator bookkeeping refreshed on every sync
	TinkData struct {
		Status    string `json:"status"`
		AccountID string `json:"accountId"`
	}

	// Transaction is identified by (Username, ID)
	Transaction struct {
		Username    string      `json:"username"`
		ID          string      `json:"id"`
		Amount      Amount      `json:"amount"`
		Currency    string      `json:"currency"`
		Date        Date        `json:"date"`
		Description Description `json:"description"`
		EcoData     EcoData     `json:"ecoData"`
		TinkData    TinkData    `json:"tinkData"`
		Ignore      bool        `json:"ignore"`
	}

	// Key is the natural key of a stored transaction
	Key struct {
		Username string
		ID       string
	}
)

// SingleDay returns the annotation every transaction starts with
func SingleDay(date Date) EcoData {
	return EcoData{OneOff: true, StartDate: date, EndDate: date}
}

// Validate rejects recurring intervals that end before they start
func (e EcoData) Validate() error {
	if !e.OneOff && e.EndDate.Before(e.StartDate) {
		return ErrInvalidEcoData
	}
	return nil
}

// Key returns the transaction's natural key
func (t Transaction) Key() Key {
	return Key{Username: t.Username, ID: t.ID}
}

// WithSourceFields returns a copy of t carrying fresh's description and
// aggregator bookkeeping. Every other field of t is kept.
func (t Transaction) WithSourceFields(fresh Transaction) Transaction {
	t.Description = fresh.Description
	t.TinkData = fresh.TinkData
	return t
}

// Encode renders the stored document shape
func (t Transaction) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// StringPtr is a helper for optional description fields
func StringPtr(s string) *string {
	return &s
}
