package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFee(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1.500,00", 1500},
		{"250", 250},
		{"99,90", 99.9},
		{"12.345.678,5", 12345678.5},
		{"  75,25 ", 75.25},
		{"", 0},
		{"abc", 0},
		{"12a", 0},
		{"-50", 0},
		{"NaN", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseFee(tt.in), 0.0001)
		})
	}
}

func TestFormatFee(t *testing.T) {
	assert.Equal(t, "1.500,00", FormatFee(1500))
	assert.Equal(t, "0,00", FormatFee(0))
	assert.Equal(t, "99,90", FormatFee(99.9))
}
