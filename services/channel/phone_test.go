package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "919876543210", want: "+919876543210"},
		{raw: "+91 98765 43210", want: "+919876543210"},
		{raw: "9876543210", want: "+919876543210"},
		{raw: "16502530000", want: "+16502530000"},
		{raw: "  ", want: ""},
		{raw: "12345", want: "+12345"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.raw, "IN"))
		})
	}
}

func TestWireNumber(t *testing.T) {
	assert.Equal(t, "919876543210", WireNumber("+919876543210"))
}
