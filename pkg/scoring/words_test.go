package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lingo-api/pkg/scoring"
)

func TestCountWords(t *testing.T) {
	cases := map[string]int{
		"":                        0,
		"   \n\t ":                0,
		"hello":                   1,
		"  hello   world  ":       2,
		"one\ntwo\t\tthree  four": 4,
		" bonjour le monde ":      3,
	}

	for input, expected := range cases {
		require.Equal(t, expected, scoring.CountWords(input), "input %q", input)
	}
}

func TestCountWordsIgnoresSurroundingWhitespace(t *testing.T) {
	text := "Ich lerne jeden Tag ein bisschen Deutsch"
	require.Equal(t, scoring.CountWords(text), scoring.CountWords("\n\n  "+text+"  \t"))
}
