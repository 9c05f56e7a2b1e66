package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercases", input: "SUPERMARKET", want: "supermarket"},
		{name: "trims", input: "  supermarket  ", want: "supermarket"},
		{name: "collapses internal whitespace", input: "whole \t foods\n  market", want: "whole foods market"},
		{name: "empty", input: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
			assert.Equal(t, tt.want, Normalize(Normalize(tt.input)), "normalization must be idempotent")
		})
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{name: "identical", a: "starbucks", b: "starbucks", want: 100},
		{name: "classic edit distance", a: "kitten", b: "sitting", want: 57},
		{name: "empty left", a: "", b: "starbucks", want: 0},
		{name: "empty right", a: "starbucks", b: "", want: 0},
		{name: "substring penalized by length", a: "walmart supercenter", b: "mart", want: 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Ratio(tt.a, tt.b))
			assert.Equal(t, tt.want, Ratio(tt.b, tt.a), "ratio must be symmetric")
		})
	}
}

func TestPartialRatio(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{name: "keyword inside description", a: "walmart supercenter #1234", b: "walmart", want: 100},
		{name: "fragment of a word", a: "mart", b: "walmart supercenter", want: 100},
		{name: "equal length falls back to ratio", a: "kitten", b: "sittin", want: 67},
		{name: "empty", a: "", b: "walmart", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PartialRatio(tt.a, tt.b))
		})
	}
}

func TestTokenSortRatio(t *testing.T) {
	assert.Equal(t, 100, TokenSortRatio("new york mets", "mets new york"))
	assert.Equal(t, 28, TokenSortRatio("walmart supercenter #1234", "walmart"))
}

func TestTokenSetRatio(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{name: "extra tokens ignored", a: "starbucks store 1234 seattle", b: "starbucks", want: 100},
		{name: "repeated tokens ignored", a: "uber uber trip", b: "uber trip", want: 100},
		{name: "no shared tokens", a: "walmart supercenter", b: "mart", want: 21},
		{name: "both empty", a: "", b: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenSetRatio(tt.a, tt.b))
		})
	}
}
