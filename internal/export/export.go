// Package export renders transactions and analytics results for operators:
// CSV and XLSX files, JSON and YAML documents, and terminal tables.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"ecobud/internal/core"
)

// Formats accepted by Write
const (
	FormatCSV   = "csv"
	FormatXLSX  = "xlsx"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
)

// Row is the flat shape of one exported transaction
type Row struct {
	ID          string `csv:"id" json:"id" yaml:"id"`
	Date        string `csv:"date" json:"date" yaml:"date"`
	Amount      string `csv:"amount" json:"amount" yaml:"amount"`
	Currency    string `csv:"currency" json:"currency" yaml:"currency"`
	Description string `csv:"description" json:"description" yaml:"description"`
	OneOff      bool   `csv:"one_off" json:"one_off" yaml:"one_off"`
	StartDate   string `csv:"start_date" json:"start_date" yaml:"start_date"`
	EndDate     string `csv:"end_date" json:"end_date" yaml:"end_date"`
	Ignore      bool   `csv:"ignore" json:"ignore" yaml:"ignore"`
	Status      string `csv:"status" json:"status" yaml:"status"`
	AccountID   string `csv:"account_id" json:"account_id" yaml:"account_id"`
}

// Label is the text shown for a transaction: the user's description,
// else the aggregator's display one.
func Label(t core.Transaction) string {
	if t.Description.User != nil && *t.Description.User != "" {
		return *t.Description.User
	}
	if t.Description.Display != nil {
		return *t.Description.Display
	}
	return ""
}

// Rows flattens txs, keeping their order
func Rows(txs []core.Transaction) []Row {
	rows := make([]Row, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, Row{
			ID:          t.ID,
			Date:        t.Date.String(),
			Amount:      t.Amount.String(),
			Currency:    t.Currency,
			Description: Label(t),
			OneOff:      t.EcoData.OneOff,
			StartDate:   t.EcoData.StartDate.String(),
			EndDate:     t.EcoData.EndDate.String(),
			Ignore:      t.Ignore,
			Status:      t.TinkData.Status,
			AccountID:   t.TinkData.AccountID,
		})
	}
	return rows
}

// Write renders txs to w in format
func Write(w io.Writer, format string, txs []core.Transaction) error {
	rows := Rows(txs)
	switch strings.ToLower(format) {
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatXLSX:
		return WriteXLSX(w, rows)
	case FormatJSON:
		return WriteJSON(w, rows)
	case FormatYAML:
		return WriteYAML(w, rows)
	case FormatTable:
		WriteTransactionTable(w, rows)
		return nil
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteCSV writes a header line and one line per row
func WriteCSV(w io.Writer, rows []Row) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML writes v as a YAML document
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}
	return enc.Close()
}
