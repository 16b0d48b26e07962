package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "0"},
		{"   ", "0"},
		{"abc", "0"},
		{"12,5", "0"},
		{"12.50", "12.5"},
		{" 3 ", "3"},
		{"-4", "-4"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CoerceMoney(tt.in).String(), "input %q", tt.in)
	}
}

func TestClampZero(t *testing.T) {
	assert.True(t, ClampZero(MustMoney("-0.01")).IsZero())
	assert.Equal(t, "7.5", ClampZero(MustMoney("7.5")).String())
}
