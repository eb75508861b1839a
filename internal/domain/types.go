package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Collection names a remote collection
type Collection string

const (
	CollectionAddress  Collection = "address"
	CollectionResident Collection = "resident"
	CollectionConsent  Collection = "consent"
)

// Stage returns the dependency rank of a collection: parents before children
func (c Collection) Stage() int {
	switch c {
	case CollectionAddress:
		return 0
	case CollectionResident:
		return 1
	case CollectionConsent:
		return 2
	default:
		return 3
	}
}

// Entity is implemented by every record stored in a collection
type Entity[T any] interface {
	// EntityID returns the store-assigned identifier ("" before creation)
	EntityID() string
	// WithID returns a copy of the record carrying the given identifier
	WithID(id string) T
	// FieldValue returns the string form of a filterable field
	FieldValue(field string) (string, bool)
}

// Address is a physical property
type Address struct {
	ID         string     `json:"id,omitempty"`
	ExternalID string     `json:"externalId,omitempty"`
	Street     string     `json:"street"`
	City       string     `json:"city"`
	State      string     `json:"state,omitempty"`
	Zip        string     `json:"zip,omitempty"`
	Lat        *float64   `json:"lat,omitempty"`
	Lng        *float64   `json:"lng,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
}

func (a Address) EntityID() string { return a.ID }

func (a Address) WithID(id string) Address {
	a.ID = id
	return a
}

func (a Address) FieldValue(field string) (string, bool) {
	switch field {
	case "id":
		return a.ID, true
	case "externalId":
		return a.ExternalID, true
	case "street":
		return a.Street, true
	case "city":
		return a.City, true
	case "state":
		return a.State, true
	case "zip":
		return a.Zip, true
	}
	return "", false
}

// Resident is a person living at (or owning) an address
type Resident struct {
	ID              string     `json:"id,omitempty"`
	PersonID        string     `json:"personId,omitempty"`
	ExternalID      string     `json:"externalId,omitempty"`
	AddressID       string     `json:"addressId"`
	FirstName       string     `json:"firstName,omitempty"`
	LastName        string     `json:"lastName,omitempty"`
	OccupantType    string     `json:"occupantType,omitempty"`
	ContactEmail    string     `json:"contactEmail,omitempty"`
	AdditionalEmail string     `json:"additionalEmail,omitempty"`
	CellPhone       string     `json:"cellPhone,omitempty"`
	CellPhoneAlert  string     `json:"cellPhoneAlert,omitempty"`
	UnitPhone       string     `json:"unitPhone,omitempty"`
	WorkPhone       string     `json:"workPhone,omitempty"`
	IsAbsentee      bool       `json:"isAbsentee"`
	HasSigned       bool       `json:"hasSigned"`
	SignedAt        *time.Time `json:"signedAt,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
}

func (r Resident) EntityID() string { return r.ID }

func (r Resident) WithID(id string) Resident {
	r.ID = id
	return r
}

func (r Resident) FieldValue(field string) (string, bool) {
	switch field {
	case "id":
		return r.ID, true
	case "personId":
		return r.PersonID, true
	case "externalId":
		return r.ExternalID, true
	case "addressId":
		return r.AddressID, true
	case "firstName":
		return r.FirstName, true
	case "lastName":
		return r.LastName, true
	case "isAbsentee":
		return strconv.FormatBool(r.IsAbsentee), true
	case "hasSigned":
		return strconv.FormatBool(r.HasSigned), true
	}
	return "", false
}

// FullName returns "first last" with surrounding whitespace removed
func (r Resident) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// Consent is a signed consent form attributed to one resident
type Consent struct {
	ID         string     `json:"id,omitempty"`
	ResidentID string     `json:"residentId"`
	AddressID  string     `json:"addressId"`
	RecordedAt time.Time  `json:"recordedAt"`
	RecordedBy string     `json:"recordedBy,omitempty"`
	Source     string     `json:"source,omitempty"`
	Email      string     `json:"email,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
}

func (c Consent) EntityID() string { return c.ID }

func (c Consent) WithID(id string) Consent {
	c.ID = id
	return c
}

func (c Consent) FieldValue(field string) (string, bool) {
	switch field {
	case "id":
		return c.ID, true
	case "residentId":
		return c.ResidentID, true
	case "addressId":
		return c.AddressID, true
	case "source":
		return c.Source, true
	case "email":
		return c.Email, true
	}
	return "", false
}

// HasEmail reports whether the consent carries a non-blank email
func (c Consent) HasEmail() bool {
	return strings.TrimSpace(c.Email) != ""
}

// CreatedTime returns the creation timestamp, falling back to the recorded time
func (c Consent) CreatedTime() time.Time {
	if c.CreatedAt != nil && !c.CreatedAt.IsZero() {
		return *c.CreatedAt
	}
	return c.RecordedAt
}

// ResidentView is a resident joined with its address.
// The join is computed by filtering the address snapshot; Address is nil when the reference dangles.
type ResidentView struct {
	Resident Resident
	Address  *Address
}

// Street returns the resident's street, or "" when the address is unknown
func (v ResidentView) Street() string {
	if v.Address == nil {
		return ""
	}
	return v.Address.Street
}

// JoinResidents attaches each resident's address from the address snapshot
func JoinResidents(residents []Resident, addresses []Address) []ResidentView {
	byID := make(map[string]*Address, len(addresses))
	for i := range addresses {
		byID[addresses[i].ID] = &addresses[i]
	}

	views := make([]ResidentView, 0, len(residents))
	for _, r := range residents {
		views = append(views, ResidentView{Resident: r, Address: byID[r.AddressID]})
	}
	return views
}

// Describe renders a short human-readable label for logs and reports
func (v ResidentView) Describe() string {
	return fmt.Sprintf("%s at %s", v.Resident.FullName(), v.Street())
}

// BillingAddress is the mailing address on file for an owner, looked up by folded name
type BillingAddress struct {
	Street                  string `json:"street"`
	City                    string `json:"city"`
	State                   string `json:"state"`
	Zip                     string `json:"zip"`
	IsDifferentFromProperty bool   `json:"isDifferentFromProperty"`
}
