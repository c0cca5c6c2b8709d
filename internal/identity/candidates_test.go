package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhoneCandidatesScenarios(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "eleven digits with leading 8",
			raw:  "89991234567",
			want: []string{"89991234567", "+79991234567", "79991234567"},
		},
		{
			name: "ten digits",
			raw:  "9991234567",
			want: []string{"9991234567", "+79991234567", "89991234567"},
		},
		{
			name: "eleven digits with leading 7",
			raw:  "79991234567",
			want: []string{"79991234567", "+79991234567", "89991234567"},
		},
		{
			name: "formatted international",
			raw:  " +7 (999) 123-45-67 ",
			want: []string{" +7 (999) 123-45-67 ", "79991234567", "+79991234567", "89991234567"},
		},
		{
			name: "already e164",
			raw:  "+79991234567",
			want: []string{"+79991234567", "79991234567", "89991234567"},
		},
		{
			name: "short number is only tried as given",
			raw:  "12-34",
			want: []string{"12-34", "1234"},
		},
		{
			name: "empty",
			raw:  "   ",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PhoneCandidates(tt.raw))
		})
	}
}

func TestPhoneCandidatesNeverShortenElevenDigits(t *testing.T) {
	assert.NotContains(t, PhoneCandidates("89991234567"), "9991234567")
}

func TestPhoneCandidatesProperties(t *testing.T) {
	inputs := []string{
		"9991234567", "0000000000", "89991234567", "79991234567",
		"19991234567", "8 999 123 45 67", "+7-999-123-45-67",
	}
	for _, raw := range inputs {
		got := PhoneCandidates(raw)
		digits := DigitsOnly(raw)

		assert.Contains(t, got, digits, raw)

		seen := map[string]bool{}
		for _, c := range got {
			assert.False(t, seen[c], "duplicate %q for %q", c, raw)
			seen[c] = true
		}
		assert.Equal(t, got, PhoneCandidates(raw), "order must be stable for %q", raw)

		if len(digits) == 10 || (len(digits) == 11 && (digits[0] == '7' || digits[0] == '8')) {
			hasPlus7 := false
			for _, c := range got {
				if len(c) == 12 && c[:2] == "+7" {
					hasPlus7 = true
				}
			}
			assert.True(t, hasPlus7, "no +7 form for %q", raw)
		}
	}
}

func TestPhoneCandidatesKeepInputAsGiven(t *testing.T) {
	got := PhoneCandidates(" 8 999 123 45 67\n")
	require.NotEmpty(t, got)
	assert.Equal(t, " 8 999 123 45 67\n", got[0])
	assert.Equal(t, []string{" 8 999 123 45 67\n", "89991234567", "+79991234567", "79991234567"}, got)

	assert.Empty(t, PhoneCandidates(" \t "))
}
