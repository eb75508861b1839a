package matcher

import (
	"strings"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/address"
)

// IDKey namespaces an explicit identifier so ids from either lane compare equal
func IDKey(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	return "id:" + id
}

// IdentityKey is the exact identity of a person: full name plus the raw street, verbatim
func IdentityKey(firstName, lastName, street string) string {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	street = strings.TrimSpace(street)
	if (firstName == "" && lastName == "") || street == "" {
		return ""
	}
	return "name:" + firstName + "\x1f" + lastName + "\x1f" + street
}

// NormalizedIdentityKey folds case and whitespace of the name and normalizes the street
func NormalizedIdentityKey(firstName, lastName, street string) string {
	name := FoldName(firstName + " " + lastName)
	normalizedStreet := address.Normalize(street)
	if name == "" || normalizedStreet == "" {
		return ""
	}
	return name + "|" + normalizedStreet
}

// FoldName lower-cases a name and collapses whitespace
func FoldName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
