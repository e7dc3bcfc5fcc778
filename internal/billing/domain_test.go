package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2026-05-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("2026-05-10T23:30:00-03:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), got, "calendar day is taken in UTC")

	for _, raw := range []string{"", "10/05/2026", "2026-13-01", "tomorrow"} {
		_, err := ParseDate(raw)
		assert.ErrorIs(t, err, ErrInvalidDate, raw)
	}
}

func TestParseValue(t *testing.T) {
	for _, raw := range []string{"0", "10", "10.5", "10.50", "999999999999.99"} {
		_, err := ParseValue(raw)
		assert.NoError(t, err, raw)
	}
	for _, raw := range []string{"", "abc", "-1", "-0.01", "1.005", "1000000000000"} {
		_, err := ParseValue(raw)
		assert.ErrorIs(t, err, ErrInvalidValue, raw)
	}

	v, err := ParseValue("10.5")
	require.NoError(t, err)
	assert.Equal(t, "10.50", v.StringFixed(2))
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusExpired.Valid())
	assert.True(t, StatusPaid.Valid())
	assert.False(t, Status("CANCELLED").Valid())
	assert.False(t, Status("pending").Valid())
}

func TestNormalizePhone(t *testing.T) {
	got, err := NormalizePhone("+44 121 234 5678", "US")
	require.NoError(t, err)
	assert.Equal(t, "+441212345678", got)

	got, err = NormalizePhone("650-253-0000", "us")
	require.NoError(t, err)
	assert.Equal(t, "+16502530000", got)

	for _, raw := range []string{"", "abc", "12345"} {
		_, err := NormalizePhone(raw, "US")
		assert.ErrorIs(t, err, ErrInvalidPhone, raw)
	}
}
