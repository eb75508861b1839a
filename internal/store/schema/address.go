package schema

import "time"

// Address represents the addresses table - physical properties in the community
type Address struct {
	// ID is the record identifier (UUID)
	ID string `gorm:"column:id;primaryKey;type:varchar(36)"`
	// ExternalID is the row id of the legacy address export
	ExternalID string `gorm:"column:external_id;not null;default:'';type:text"`
	Street     string `gorm:"column:street;not null;type:text"`
	City       string `gorm:"column:city;not null;default:'';type:text"`
	State      string `gorm:"column:state;not null;default:'';type:text"`
	Zip        string `gorm:"column:zip;not null;default:'';type:text"`
	// Lat and Lng are optional coordinates carried over from the export
	Lat       *float64  `gorm:"column:lat;type:double precision"`
	Lng       *float64  `gorm:"column:lng;type:double precision"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the default table name for the Address model
func (Address) TableName() string {
	return "addresses"
}
