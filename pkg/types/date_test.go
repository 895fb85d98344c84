package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", d.String())
	assert.Equal(t, NewDate(2026, time.March, 10), d)

	_, err = ParseDate("10/03/2026")
	assert.ErrorIs(t, err, ErrInvalidDateFormat)

	_, err = ParseDate("2026-02-30")
	assert.ErrorIs(t, err, ErrInvalidDateFormat)
}

func TestDateComparison(t *testing.T) {
	a := MustParseDate("2026-03-10")
	b := MustParseDate("2026-03-12")

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.After(a))
	assert.True(t, a.Equal(MustParseDate("2026-03-10")))
	assert.Equal(t, b, a.AddDays(2))
	assert.Equal(t, 2, a.DaysUntil(b))
	assert.Equal(t, -2, b.DaysUntil(a))
}

func TestDateOfDropsTimeAndZone(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	d := DateOf(time.Date(2026, time.March, 10, 23, 30, 0, 0, loc))
	assert.Equal(t, "2026-03-10", d.String())
}

func TestDateJSON(t *testing.T) {
	type payload struct {
		From Date `json:"from"`
	}

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"from":"2026-03-10"}`), &p))
	assert.Equal(t, MustParseDate("2026-03-10"), p.From)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"2026-03-10"}`, string(raw))

	err = json.Unmarshal([]byte(`{"from":"tomorrow"}`), &p)
	assert.ErrorIs(t, err, ErrInvalidDateFormat)
}

func TestDateSQL(t *testing.T) {
	d := MustParseDate("2026-03-10")

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", v)

	var scanned Date
	require.NoError(t, scanned.Scan(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, d, scanned)

	require.NoError(t, scanned.Scan([]byte("2026-03-11T00:00:00Z")))
	assert.Equal(t, "2026-03-11", scanned.String())

	require.NoError(t, scanned.Scan(nil))
	assert.True(t, scanned.IsZero())

	assert.ErrorIs(t, scanned.Scan(42), ErrUnsupportedScanType)
}
