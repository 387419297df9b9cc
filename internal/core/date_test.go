package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2022-01-15")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2022, 1, 15), d)
	assert.Equal(t, "2022-01-15", d.String())

	_, err = ParseDate("2022-13-01")
	assert.Error(t, err)
}

func TestDate_DaysUntil(t *testing.T) {
	assert.Equal(t, int64(30), NewDate(2022, 1, 1).DaysUntil(NewDate(2022, 1, 31)))
	assert.Equal(t, int64(-1), NewDate(2022, 1, 2).DaysUntil(NewDate(2022, 1, 1)))
	assert.Equal(t, int64(365), NewDate(2022, 1, 1).DaysUntil(NewDate(2023, 1, 1)))
	assert.Equal(t, int64(182986), NewDate(1500, 1, 1).DaysUntil(NewDate(2000, 12, 31)))
	assert.Equal(t, int64(-182986), NewDate(2000, 12, 31).DaysUntil(NewDate(1500, 1, 1)))
}

func TestDateOf(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skip("tzdata not available")
	}
	late := time.Date(2022, 3, 27, 23, 30, 0, 0, rome)
	assert.Equal(t, NewDate(2022, 3, 27), DateOf(late))
}

func TestDate_JSON(t *testing.T) {
	body, err := json.Marshal(NewDate(2022, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, `"2022-02-03"`, string(body))

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2021-12-31"`), &d))
	assert.Equal(t, NewDate(2021, 12, 31), d)

	assert.Error(t, json.Unmarshal([]byte(`20211231`), &d))
}

func TestAmount_JSON(t *testing.T) {
	a, err := ParseAmount("-130.25")
	require.NoError(t, err)

	body, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `-130.25`, string(body))

	var back Amount
	require.NoError(t, json.Unmarshal([]byte(`1e2`), &back))
	assert.Equal(t, "100", back.String())
	assert.Error(t, json.Unmarshal([]byte(`"10"`), &back))
	assert.Error(t, json.Unmarshal([]byte(`null`), &back))
}
