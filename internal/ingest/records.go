package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
)

// Resident export columns
const (
	colPersonID        = "person_id"
	colFirstName       = "Occupant First Name"
	colLastName        = "Occupant Last Name"
	colOccupantType    = "Occupant Type"
	colStreet          = "Street"
	colCity            = "City"
	colState           = "State"
	colZip             = "Zip"
	colAddressID       = "address_id"
	colContactEmail    = "Contact Email"
	colAdditionalEmail = "Additional Email"
	colCellPhone       = "Cell Phone"
	colCellPhoneAlert  = "Cell Phone Resident Alert Emergency"
	colUnitPhone       = "Unit Phone"
	colWorkPhone       = "Work Phone"
	colIsAbsentee      = "Is Absentee"
)

// Address export columns
const (
	colID  = "id"
	colLat = "lat"
	colLng = "lng"
)

// Matched-resident columns
const (
	colExpandedName      = "expanded_name"
	colExpandedEmail     = "expanded_email"
	colExpandedStreet    = "expanded_street"
	colResidentStreet    = "resident_street"
	colResidentFirstName = "resident_first_name"
	colResidentLastName  = "resident_last_name"
	colResidentEmail     = "resident_email"
	colMatchType         = "match_type"
)

// ResidentRow is one row of the legacy resident export
type ResidentRow struct {
	Line            int    `json:"line"`
	RowID           string `json:"rowId"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	OccupantType    string `json:"occupantType"`
	Street          string `json:"street"`
	City            string `json:"city"`
	State           string `json:"state"`
	Zip             string `json:"zip"`
	AddressID       string `json:"addressId"`
	ContactEmail    string `json:"contactEmail"`
	AdditionalEmail string `json:"additionalEmail"`
	CellPhone       string `json:"cellPhone"`
	CellPhoneAlert  string `json:"cellPhoneAlert"`
	UnitPhone       string `json:"unitPhone"`
	WorkPhone       string `json:"workPhone"`
	IsAbsentee      bool   `json:"isAbsentee"`
}

// Resident converts the row into a resident record (without store id or address id)
func (r ResidentRow) Resident() domain.Resident {
	return domain.Resident{
		ExternalID:      r.RowID,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		OccupantType:    r.OccupantType,
		ContactEmail:    r.ContactEmail,
		AdditionalEmail: r.AdditionalEmail,
		CellPhone:       r.CellPhone,
		CellPhoneAlert:  r.CellPhoneAlert,
		UnitPhone:       r.UnitPhone,
		WorkPhone:       r.WorkPhone,
		IsAbsentee:      r.IsAbsentee,
	}
}

// AddressRow is one row of the address export
type AddressRow struct {
	Line   int      `json:"line"`
	RowID  string   `json:"rowId"`
	Street string   `json:"street"`
	City   string   `json:"city"`
	State  string   `json:"state"`
	Zip    string   `json:"zip"`
	Lat    *float64 `json:"lat,omitempty"`
	Lng    *float64 `json:"lng,omitempty"`
}

// Address converts the row into an address record
func (r AddressRow) Address() domain.Address {
	return domain.Address{
		ExternalID: r.RowID,
		Street:     r.Street,
		City:       r.City,
		State:      r.State,
		Zip:        r.Zip,
		Lat:        r.Lat,
		Lng:        r.Lng,
	}
}

// MatchedRow is one row produced by the external matching pass.
// RowID is the target resident's external identifier.
type MatchedRow struct {
	Line              int    `json:"line"`
	RowID             string `json:"rowId"`
	ExpandedName      string `json:"expandedName"`
	ExpandedEmail     string `json:"expandedEmail"`
	ExpandedStreet    string `json:"expandedStreet"`
	ResidentStreet    string `json:"residentStreet"`
	ResidentFirstName string `json:"residentFirstName"`
	ResidentLastName  string `json:"residentLastName"`
	ResidentEmail     string `json:"residentEmail"`
	MatchType         string `json:"matchType"`
}

// Email returns the resident email, falling back to the matched email
func (r MatchedRow) Email() string {
	if r.ResidentEmail != "" {
		return r.ResidentEmail
	}
	return r.ExpandedEmail
}

// ReadResidents parses the resident export
func ReadResidents(r io.Reader) ([]ResidentRow, error) {
	t, err := readTable(r, colPersonID, colFirstName, colLastName, colStreet)
	if err != nil {
		return nil, err
	}

	rows := make([]ResidentRow, 0, len(t.rows))
	for _, rec := range t.rows {
		rows = append(rows, ResidentRow{
			Line:            rec.line,
			RowID:           t.get(rec, colPersonID),
			FirstName:       t.get(rec, colFirstName),
			LastName:        t.get(rec, colLastName),
			OccupantType:    t.get(rec, colOccupantType),
			Street:          t.get(rec, colStreet),
			City:            t.get(rec, colCity),
			State:           t.get(rec, colState),
			Zip:             t.get(rec, colZip),
			AddressID:       t.get(rec, colAddressID),
			ContactEmail:    t.get(rec, colContactEmail),
			AdditionalEmail: t.get(rec, colAdditionalEmail),
			CellPhone:       t.get(rec, colCellPhone),
			CellPhoneAlert:  t.get(rec, colCellPhoneAlert),
			UnitPhone:       t.get(rec, colUnitPhone),
			WorkPhone:       t.get(rec, colWorkPhone),
			IsAbsentee:      strings.EqualFold(t.get(rec, colIsAbsentee), "true"),
		})
	}
	return rows, nil
}

// ReadAddresses parses the address export
func ReadAddresses(r io.Reader) ([]AddressRow, error) {
	t, err := readTable(r, colID, colStreet, colCity)
	if err != nil {
		return nil, err
	}

	rows := make([]AddressRow, 0, len(t.rows))
	for _, rec := range t.rows {
		lat, err := parseCoordinate(t.get(rec, colLat))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: lat: %v", domain.ErrMalformedInput, rec.line, err)
		}
		lng, err := parseCoordinate(t.get(rec, colLng))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: lng: %v", domain.ErrMalformedInput, rec.line, err)
		}

		rows = append(rows, AddressRow{
			Line:   rec.line,
			RowID:  t.get(rec, colID),
			Street: t.get(rec, colStreet),
			City:   t.get(rec, colCity),
			State:  t.get(rec, colState),
			Zip:    t.get(rec, colZip),
			Lat:    lat,
			Lng:    lng,
		})
	}
	return rows, nil
}

// ReadMatched parses the matched-resident file
func ReadMatched(r io.Reader) ([]MatchedRow, error) {
	t, err := readTable(r, colID, colResidentFirstName, colResidentLastName, colResidentStreet)
	if err != nil {
		return nil, err
	}

	rows := make([]MatchedRow, 0, len(t.rows))
	for _, rec := range t.rows {
		rows = append(rows, MatchedRow{
			Line:              rec.line,
			RowID:             t.get(rec, colID),
			ExpandedName:      t.get(rec, colExpandedName),
			ExpandedEmail:     t.get(rec, colExpandedEmail),
			ExpandedStreet:    t.get(rec, colExpandedStreet),
			ResidentStreet:    t.get(rec, colResidentStreet),
			ResidentFirstName: t.get(rec, colResidentFirstName),
			ResidentLastName:  t.get(rec, colResidentLastName),
			ResidentEmail:     t.get(rec, colResidentEmail),
			MatchType:         t.get(rec, colMatchType),
		})
	}
	return rows, nil
}

func parseCoordinate(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
