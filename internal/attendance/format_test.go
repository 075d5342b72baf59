package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMinutes_RoundTrip(t *testing.T) {
	for _, minutes := range []int{0, 1, 59, 60, 270, 495, 541, 1440} {
		s := FormatMinutes(minutes)
		parsed, err := ParseMinutes(s)
		require.NoError(t, err, s)
		assert.Equal(t, minutes, parsed, s)
	}
	assert.Equal(t, "8h 15m", FormatMinutes(495))
	assert.Equal(t, "0h 0m", FormatMinutes(-5))
}

func TestParseMinutes(t *testing.T) {
	testCases := []struct {
		input     string
		expected  int
		expectErr bool
	}{
		{input: "8h 15m", expected: 495},
		{input: "  4h 30m ", expected: 270},
		{input: "45m", expected: 45},
		{input: "2h", expected: 120},
		{input: "", expectErr: true},
		{input: "8 hours", expectErr: true},
		{input: "xh 5m", expectErr: true},
		{input: "-1h", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseMinutes(tc.input)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "8h 15m", FormatHours(8.25))
	assert.Equal(t, "7h 30m", FormatHours(7.5))
	assert.Equal(t, "8h 6m", FormatHours(8.1))
	assert.Equal(t, "0h 0m", FormatHours(0))
}
