package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCelsiusToFahrenheit(t *testing.T) {
	tests := []struct {
		c    float64
		want float64
	}{
		{0, 32},
		{100, 212},
		{-40, -40},
		{26, 78.8},
		{21, 69.8},
		{20, 68},
		{37.777, 100},
		{22.123, 71.82},
		// Exact binary ties round to the even digit.
		{0.625, 33.12},
		{1.875, 35.38},
		{-0.625, 30.88},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CelsiusToFahrenheit(tt.c), "c=%v", tt.c)
	}
}

func TestCelsiusToFahrenheit_TwoDecimalPlaces(t *testing.T) {
	for c := -50.0; c <= 60; c += 0.37 {
		f := CelsiusToFahrenheit(c)
		assert.InDelta(t, c*9/5+32, f, 0.005+1e-9)
		assert.InDelta(t, math.Round(f*100), f*100, 1e-6, "more than two decimals for c=%v", c)
	}
}
