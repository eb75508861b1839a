package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Phone keys stored in Resident.Phones
const (
	PhoneCell      = "cell"
	PhoneCellAlert = "cell_alert"
	PhoneUnit      = "unit"
	PhoneWork      = "work"
)

// Resident represents the residents table - people living at or owning an address
type Resident struct {
	ID string `gorm:"column:id;primaryKey;type:varchar(36)"`
	// PersonID and ExternalID are the two legacy identifier lanes
	PersonID        string `gorm:"column:person_id;not null;default:'';type:text"`
	ExternalID      string `gorm:"column:external_id;not null;default:'';type:text"`
	AddressID       string `gorm:"column:address_id;not null;default:'';type:varchar(36)"`
	FirstName       string `gorm:"column:first_name;not null;default:'';type:text"`
	LastName        string `gorm:"column:last_name;not null;default:'';type:text"`
	OccupantType    string `gorm:"column:occupant_type;not null;default:'';type:text"`
	ContactEmail    string `gorm:"column:contact_email;not null;default:'';type:text"`
	AdditionalEmail string `gorm:"column:additional_email;not null;default:'';type:text"`
	// Phones maps a phone kind (cell, cell_alert, unit, work) to a number
	Phones     datatypes.JSONMap `gorm:"column:phones;not null;default:'{}';type:jsonb"`
	IsAbsentee bool              `gorm:"column:is_absentee;not null;default:false"`
	HasSigned  bool              `gorm:"column:has_signed;not null;default:false"`
	SignedAt   *time.Time        `gorm:"column:signed_at;type:timestamptz"`
	CreatedAt  time.Time         `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the default table name for the Resident model
func (Resident) TableName() string {
	return "residents"
}
