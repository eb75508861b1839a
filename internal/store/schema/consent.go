package schema

import "time"

// Consent represents the consents table - signed consent forms
type Consent struct {
	ID         string `gorm:"column:id;primaryKey;type:varchar(36)"`
	ResidentID string `gorm:"column:resident_id;not null;type:varchar(36)"`
	// AddressID is a copy of the resident's address at signing time
	AddressID  string    `gorm:"column:address_id;not null;default:'';type:varchar(36)"`
	RecordedAt time.Time `gorm:"column:recorded_at;not null;type:timestamptz"`
	RecordedBy string    `gorm:"column:recorded_by;not null;default:'';type:text"`
	// Source is the provenance tag (e.g. bulk-upload, csv-upload)
	Source    string    `gorm:"column:source;not null;default:'';type:text"`
	Email     string    `gorm:"column:email;not null;default:'';type:text"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the default table name for the Consent model
func (Consent) TableName() string {
	return "consents"
}
