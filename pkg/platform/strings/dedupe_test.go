package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil stays nil", input: nil, expected: nil},
		{name: "empty stays empty", input: []string{}, expected: []string{}},
		{name: "trims", input: []string{" sanctions ", "pep  "}, expected: []string{"sanctions", "pep"}},
		{name: "first occurrence wins", input: []string{"card", "wire", "card", " wire"}, expected: []string{"card", "wire"}},
		{name: "drops blanks", input: []string{"", "   ", "mule"}, expected: []string{"mule"}},
		{name: "case sensitive", input: []string{"AML", "aml"}, expected: []string{"AML", "aml"}},
		{name: "only blanks", input: []string{" ", ""}, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}
