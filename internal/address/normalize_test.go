package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "abbreviated street", input: "123 Main St", expected: "123 main street"},
		{name: "already expanded", input: "123 main street", expected: "123 main street"},
		{name: "court abbreviation", input: "5 Oak Ct", expected: "5 oak court"},
		{name: "trailing period", input: "5 Oak Ct.", expected: "5 oak court"},
		{name: "commas and extra whitespace", input: "  42   Cloverleaf,  Cir  ", expected: "42 cloverleaf circle"},
		{name: "alternate avenue spelling", input: "9 Elm Av", expected: "9 elm avenue"},
		{name: "only last token expanded", input: "1 St Andrews Dr", expected: "1 st andrews drive"},
		{name: "unknown suffix left alone", input: "77 Quarry Xing", expected: "77 quarry xing"},
		{name: "empty", input: "", expected: ""},
		{name: "whitespace only", input: " \t  ", expected: ""},
		{name: "punctuation only", input: " ., ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"123 Main St",
		"5 OAK CT.",
		"  42   Cloverleaf,  Cir  ",
		"9 Elm Av",
		"1 St Andrews Dr",
		"77 Quarry Xing",
		"",
		"st",
		"Apt 4, 100 Ridge Rd.",
	}

	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "input %q", input)
	}
}

func TestNormalize_Equivalence(t *testing.T) {
	assert.Equal(t, Normalize("123 Main St"), Normalize("123 main street"))
	assert.Equal(t, Normalize("5 Oak Ct"), Normalize("5 oak court"))
	assert.NotEqual(t, Normalize("5 Oak Ct"), Normalize("5 Oak Ln"))
}

func TestNormalizeCity(t *testing.T) {
	assert.Equal(t, NormalizeCity("Ashburn"), NormalizeCity("Broadlands"))
	assert.Equal(t, NormalizeCity(" ASHBURN "), NormalizeCity("broadlands"))
	assert.NotEqual(t, NormalizeCity("Ashburn"), NormalizeCity("Sterling"))
	assert.Equal(t, "sterling", NormalizeCity("Sterling"))
	assert.Equal(t, "", NormalizeCity("   "))
}

func TestNewNormalizer_CustomGroups(t *testing.T) {
	n := NewNormalizer([][]string{
		{"Leesburg", "Lansdowne"},
		{"Solo"},
	})

	assert.Equal(t, n.NormalizeCity("Lansdowne"), n.NormalizeCity("leesburg"))
	assert.Equal(t, "solo", n.NormalizeCity("Solo"))
	// Defaults are not implied by a custom configuration
	assert.NotEqual(t, n.NormalizeCity("Ashburn"), n.NormalizeCity("Broadlands"))
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("5 Oak Ct", "Ashburn"), Key("5 oak court", "Broadlands"))
	assert.NotEqual(t, Key("5 Oak Ct", "Ashburn"), Key("5 Oak Ct", "Sterling"))
	assert.Equal(t, "5 oak court", Key("5 Oak Ct", ""))
	assert.Equal(t, "", Key("  ", "Ashburn"))
}
