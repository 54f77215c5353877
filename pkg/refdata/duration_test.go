package refdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDurationMinutes(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expect    float64
		expectErr bool
	}{
		{name: "minutes", input: "PT10M", expect: 10},
		{name: "hours", input: "PT1H", expect: 60},
		{name: "hours and minutes", input: "PT1H30M", expect: 90},
		{name: "days and hours", input: "P1DT1H", expect: 1500},
		{name: "zero", input: "PT0S", expect: 0},
		{name: "seconds are fractional minutes", input: "PT30S", expect: 0.5},
		{name: "weeks", input: "P1W", expect: 7 * 24 * 60},
		{name: "fractional minutes", input: "PT2.5M", expect: 2.5},
		{name: "empty", input: "", expectErr: true},
		{name: "bare P", input: "P", expectErr: true},
		{name: "bare PT", input: "PT", expectErr: true},
		{name: "garbage", input: "ten minutes", expectErr: true},
		{name: "months unsupported", input: "P1M", expectErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseDurationMinutes(tc.input)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.InDelta(t, tc.expect, got, 1e-9)
		})
	}
}
