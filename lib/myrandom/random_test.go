package myrandom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandom(t *testing.T) {
	tests := []struct {
		name     string
		generate func() (string, error)
		length   int
	}{
		{name: "hex", generate: func() (string, error) { return Hex(16) }, length: 32},
		{name: "token", generate: func() (string, error) { return Token(32) }, length: 43},
		{name: "password", generate: func() (string, error) { return Password(14) }, length: 14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := tt.generate()
			assert.NoError(t, err)
			second, err := tt.generate()
			assert.NoError(t, err)

			assert.Len(t, first, tt.length)
			assert.NotEqual(t, first, second)
		})
	}
}

func TestPasswordAlphabet(t *testing.T) {
	password, err := Password(200)
	assert.NoError(t, err)
	for _, r := range password {
		assert.True(t, strings.ContainsRune(passwordAlphabet, r))
	}
	assert.False(t, strings.ContainsAny(password, "0O1lI"))
}
