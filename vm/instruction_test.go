package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeOpcode(t *testing.T) {
	for _, tok := range []string{"+", "-", "*", "/", "@", "!", "&", ";", ">", "<", "?", "^", ".", ","} {
		op, ok := decodeOpcode(tok)
		assert.True(t, ok, tok)
		assert.Equal(t, tok[0], byte(op))
		assert.NotEqual(t, "unknown", op.String())
	}

	for _, tok := range []string{"", "++", "x", "#", ":", "$", "%"} {
		_, ok := decodeOpcode(tok)
		assert.False(t, ok, tok)
	}
	assert.Equal(t, "unknown", Opcode('x').String())
}

func TestIsIntegerLiteral(t *testing.T) {
	tests := []struct {
		tok  string
		want bool
	}{
		{"0", true},
		{"42", true},
		{"+7", true},
		{"-7", true},
		{"007", true},
		{"+", false},
		{"-", false},
		{"1a", false},
		{"--1", false},
		{"1.5", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isIntegerLiteral(tt.tok), tt.tok)
	}
}
