package address

import (
	"strings"
)

// streetTypes maps every known street-type spelling to its canonical expansion.
// Canonical words map to themselves so normalization is idempotent.
var streetTypes = buildStreetTypes(map[string][]string{
	"avenue":    {"ave", "av"},
	"boulevard": {"blvd", "boul"},
	"circle":    {"cir"},
	"court":     {"ct"},
	"drive":     {"dr"},
	"lane":      {"ln"},
	"place":     {"pl"},
	"road":      {"rd"},
	"square":    {"sq"},
	"street":    {"st"},
	"terrace":   {"ter"},
	"trail":     {"trl"},
})

// DefaultCityEquivalents lists the city labels known to refer to the same postal locality
var DefaultCityEquivalents = [][]string{
	{"Ashburn", "Broadlands"},
}

var defaultNormalizer = NewNormalizer(DefaultCityEquivalents)

func buildStreetTypes(expansions map[string][]string) map[string]string {
	m := make(map[string]string)
	for full, abbrs := range expansions {
		m[full] = full
		for _, abbr := range abbrs {
			m[abbr] = full
		}
	}
	return m
}

// Normalizer canonicalizes street addresses and city names into comparison keys
type Normalizer struct {
	cities map[string]string
}

// NewNormalizer creates a normalizer with the given city equivalence groups.
// Every city in a group maps to a single token made of the group's folded names joined by "/".
func NewNormalizer(cityGroups [][]string) *Normalizer {
	cities := make(map[string]string)
	for _, group := range cityGroups {
		var names []string
		for _, city := range group {
			if folded := fold(city); folded != "" {
				names = append(names, folded)
			}
		}
		if len(names) < 2 {
			continue
		}
		canonical := strings.Join(names, "/")
		for _, name := range names {
			cities[name] = canonical
		}
	}
	return &Normalizer{cities: cities}
}

// Normalize canonicalizes a free-text street address.
//
// Only the trailing street-type token is expanded; house number and street name
// pass through after case, whitespace and punctuation folding. Empty input yields "".
func (n *Normalizer) Normalize(raw string) string {
	parts := strings.Fields(stripPunctuation(strings.ToLower(raw)))
	if len(parts) == 0 {
		return ""
	}

	last := len(parts) - 1
	if expanded, ok := streetTypes[parts[last]]; ok {
		parts[last] = expanded
	}

	return strings.Join(parts, " ")
}

// NormalizeCity folds a city name and maps declared equivalents onto one canonical token
func (n *Normalizer) NormalizeCity(city string) string {
	folded := fold(city)
	if canonical, ok := n.cities[folded]; ok {
		return canonical
	}
	return folded
}

// Key builds the comparison key for a street plus an optional city.
// An address with no street has no key and never matches anything.
func (n *Normalizer) Key(street, city string) string {
	normalized := n.Normalize(street)
	if normalized == "" {
		return ""
	}
	if c := n.NormalizeCity(city); c != "" {
		return normalized + "|" + c
	}
	return normalized
}

// Normalize canonicalizes a street address using the default normalizer
func Normalize(raw string) string {
	return defaultNormalizer.Normalize(raw)
}

// NormalizeCity folds a city name using the default city equivalences
func NormalizeCity(city string) string {
	return defaultNormalizer.NormalizeCity(city)
}

// Key builds a street+city comparison key using the default normalizer
func Key(street, city string) string {
	return defaultNormalizer.Key(street, city)
}

// fold lower-cases, trims and collapses internal whitespace
func fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', '.':
			return ' '
		}
		return r
	}, s)
}
