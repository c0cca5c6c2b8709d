package datetime

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormats(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)
	now := time.Date(2024, 2, 1, 9, 0, 0, 0, moscow)
	want := time.Date(2024, 3, 10, 10, 0, 0, 0, moscow)

	tests := []struct {
		name string
		raw  string
	}{
		{"rfc3339", "2024-03-10T10:00:00+03:00"},
		{"rfc3339 utc", "2024-03-10T07:00:00Z"},
		{"iso local seconds", "2024-03-10T10:00:00"},
		{"iso local minutes", "2024-03-10T10:00"},
		{"plain with seconds", "2024-03-10 10:00:00"},
		{"plain", "2024-03-10 10:00"},
		{"localized", "10 марта 10:00"},
		{"localized capitalized", "10 Марта 10:00"},
		{"localized with year", "10 марта 2024 10:00"},
		{"localized with comma", "10 марта, 10:00"},
		{"localized with preposition", "10 марта в 10:00"},
		{"epoch envelope", "/Date(1710054000000)/"},
		{"epoch envelope with offset", "/Date(1710054000000+0300)/"},
		{"padded", "  2024-03-10 10:00  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw, now, moscow)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s want %s", got, want)
		})
	}
}

func TestParseLocalizedAssumesCurrentYear(t *testing.T) {
	now := time.Date(2031, 7, 1, 0, 0, 0, 0, time.UTC)
	got, err := Parse("5 января 08:30", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2031, 1, 5, 8, 30, 0, 0, time.UTC), got)
}

func TestParseRejects(t *testing.T) {
	now := time.Now()
	for _, raw := range []string{
		"",
		"tomorrow",
		"10 martius 10:00",
		"31 февраля 10:00",
		"10 марта 25:00",
		"2024-13-01 10:00",
	} {
		_, err := Parse(raw, now, time.UTC)
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, ErrUnparseable), raw)
	}
}

func TestMonthTable(t *testing.T) {
	for m := time.January; m <= time.December; m++ {
		assert.Equal(t, int(m), MonthNumber(MonthName(m)))
	}
	assert.Equal(t, 0, MonthNumber("march"))
	assert.Equal(t, "", MonthName(0))
}

func TestResolvePrefersDecoded(t *testing.T) {
	decoded := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	got, err := Resolve(decoded, "garbage", time.Now(), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, decoded, got)

	_, err = Resolve(time.Time{}, "garbage", time.Now(), time.UTC)
	assert.Error(t, err)
}

func TestFormatting(t *testing.T) {
	ts := time.Date(2024, 3, 10, 7, 5, 0, 0, time.UTC)
	msk := time.FixedZone("MSK", 3*60*60)
	assert.Equal(t, "2024-03-10 10:05", Format(ts, msk))
	assert.Equal(t, "10 марта 10:05", Localized(ts, msk))
	assert.Equal(t, "", Format(time.Time{}, msk))
}
