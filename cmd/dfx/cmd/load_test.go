package cmd

import (
	"math"
	"testing"
)

func TestFormatOffset(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0x0"},
		{0x1000, "0x1000"},
		{-0x1000, "-0x1000"},
		{-1, "-0x1"},
		{math.MinInt64, "-0x8000000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatOffset(tt.in); got != tt.want {
				t.Errorf("formatOffset(%d) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
