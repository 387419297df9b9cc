package core

import (
	"bytes"
	"encoding/json"
)

type object map[string]json.RawMessage

func (o object) get(name string) (json.RawMessage, bool) {
	raw, ok := o[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

func decodeObject(raw json.RawMessage, path string) (object, error) {
	var o object
	if err := json.Unmarshal(raw, &o); err != nil || o == nil {
		return nil, mistyped(OriginStored, path, "an object")
	}
	return o, nil
}

func requiredString(o object, name, path string) (string, error) {
	raw, ok := o.get(name)
	if !ok {
		return "", missing(OriginStored, path)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", mistyped(OriginStored, path, "a string")
	}
	return s, nil
}

func optionalString(o object, name, path string) (*string, error) {
	raw, ok := o.get(name)
	if !ok {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, mistyped(OriginStored, path, "a string or null")
	}
	return &s, nil
}

func optionalBool(o object, name, path string, def bool) (bool, error) {
	raw, ok := o.get(name)
	if !ok {
		return def, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, mistyped(OriginStored, path, "a boolean")
	}
	return b, nil
}

func dateField(o object, name, path string, def *Date) (Date, error) {
	raw, ok := o.get(name)
	if !ok {
		if def != nil {
			return *def, nil
		}
		return Date{}, missing(OriginStored, path)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return Date{}, mistyped(OriginStored, path, "a YYYY-MM-DD string")
	}
	d, err := ParseDate(s)
	if err != nil {
		return Date{}, mistyped(OriginStored, path, "a YYYY-MM-DD string")
	}
	return d, nil
}

func amountField(o object, name, path string) (*Amount, error) {
	raw, ok := o.get(name)
	if !ok {
		return nil, nil
	}
	var a Amount
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, mistyped(OriginStored, path, "a number")
	}
	return &a, nil
}

// DecodeStored strictly decodes a persisted transaction document.
//
// username, id, amount, currency and date are required, as are the
// description and tinkData objects. ecoData may be absent; its fields
// default to a single-day annotation on the transaction date. Unknown
// fields are ignored so that store-specific keys such as _id pass through.
func DecodeStored(doc []byte) (Transaction, error) {
	root, err := decodeObject(doc, "$")
	if err != nil {
		return Transaction{}, err
	}

	var t Transaction
	if t.Username, err = requiredString(root, "username", "username"); err != nil {
		return Transaction{}, err
	}
	if t.ID, err = requiredString(root, "id", "id"); err != nil {
		return Transaction{}, err
	}
	amount, err := amountField(root, "amount", "amount")
	if err != nil {
		return Transaction{}, err
	}
	if amount == nil {
		return Transaction{}, missing(OriginStored, "amount")
	}
	t.Amount = *amount
	if t.Currency, err = requiredString(root, "currency", "currency"); err != nil {
		return Transaction{}, err
	}
	if t.Date, err = dateField(root, "date", "date", nil); err != nil {
		return Transaction{}, err
	}

	if t.Description, err = decodeDescription(root); err != nil {
		return Transaction{}, err
	}
	if t.EcoData, err = decodeEcoData(root, t.Date); err != nil {
		return Transaction{}, err
	}
	if t.TinkData, err = decodeTinkData(root); err != nil {
		return Transaction{}, err
	}
	if t.Ignore, err = optionalBool(root, "ignore", "ignore", false); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func decodeDescription(root object) (Description, error) {
	raw, ok := root.get("description")
	if !ok {
		return Description{}, missing(OriginStored, "description")
	}
	o, err := decodeObject(raw, "description")
	if err != nil {
		return Description{}, err
	}

	var d Description
	fields := []struct {
		name string
		dst  **string
	}{
		{"detailed", &d.Detailed},
		{"display", &d.Display},
		{"original", &d.Original},
		{"user", &d.User},
	}
	for _, f := range fields {
		if *f.dst, err = optionalString(o, f.name, "description."+f.name); err != nil {
			return Description{}, err
		}
	}
	return d, nil
}

func decodeEcoData(root object, date Date) (EcoData, error) {
	raw, ok := root.get("ecoData")
	if !ok {
		return SingleDay(date), nil
	}
	o, err := decodeObject(raw, "ecoData")
	if err != nil {
		return EcoData{}, err
	}

	var e EcoData
	if e.OneOff, err = optionalBool(o, "oneOff", "ecoData.oneOff", true); err != nil {
		return EcoData{}, err
	}
	if e.StartDate, err = dateField(o, "startDate", "ecoData.startDate", &date); err != nil {
		return EcoData{}, err
	}
	if e.EndDate, err = dateField(o, "endDate", "ecoData.endDate", &date); err != nil {
		return EcoData{}, err
	}
	if e.DailyAmount, err = amountField(o, "dailyAmount", "ecoData.dailyAmount"); err != nil {
		return EcoData{}, err
	}
	return e, nil
}

func decodeTinkData(root object) (TinkData, error) {
	raw, ok := root.get("tinkData")
	if !ok {
		return TinkData{}, missing(OriginStored, "tinkData")
	}
	o, err := decodeObject(raw, "tinkData")
	if err != nil {
		return TinkData{}, err
	}

	var td TinkData
	if td.Status, err = requiredString(o, "status", "tinkData.status"); err != nil {
		return TinkData{}, err
	}
	if td.AccountID, err = requiredString(o, "accountId", "tinkData.accountId"); err != nil {
		return TinkData{}, err
	}
	return td, nil
}
