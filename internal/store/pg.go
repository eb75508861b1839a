package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/adapter"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/store/schema"
)

// TableNames names the tables backing each collection
type TableNames struct {
	Address  string
	Resident string
	Consent  string
}

type pgRepository struct {
	db        *gorm.DB
	addresses Collection[domain.Address]
	residents Collection[domain.Resident]
	consents  Collection[domain.Consent]
}

// NewPGRepository creates a PostgreSQL backed repository.
// Empty table names fall back to the schema defaults.
func NewPGRepository(db *gorm.DB, tables TableNames) Repository {
	encoder := adapter.NewTokenCodec()
	return &pgRepository{
		db: db,
		addresses: &pgCollection[domain.Address, schema.Address]{
			db:        db,
			table:     tableOr(tables.Address, schema.Address{}.TableName()),
			columns:   map[string]string{"id": "id", "externalId": "external_id", "street": "street", "city": "city", "state": "state", "zip": "zip"},
			toModel:   addressToModel,
			fromModel: addressFromModel,
			encoder:   encoder,
		},
		residents: &pgCollection[domain.Resident, schema.Resident]{
			db:    db,
			table: tableOr(tables.Resident, schema.Resident{}.TableName()),
			columns: map[string]string{
				"id": "id", "personId": "person_id", "externalId": "external_id", "addressId": "address_id",
				"firstName": "first_name", "lastName": "last_name", "isAbsentee": "is_absentee", "hasSigned": "has_signed",
			},
			toModel:   residentToModel,
			fromModel: residentFromModel,
			encoder:   encoder,
		},
		consents: &pgCollection[domain.Consent, schema.Consent]{
			db:        db,
			table:     tableOr(tables.Consent, schema.Consent{}.TableName()),
			columns:   map[string]string{"id": "id", "residentId": "resident_id", "addressId": "address_id", "source": "source", "email": "email"},
			toModel:   consentToModel,
			fromModel: consentFromModel,
			encoder:   encoder,
		},
	}
}

func (r *pgRepository) Addresses() Collection[domain.Address] { return r.addresses }

func (r *pgRepository) Residents() Collection[domain.Resident] { return r.residents }

func (r *pgRepository) Consents() Collection[domain.Consent] { return r.consents }

func (r *pgRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// If any of the pool settings are 0 or empty, reasonable defaults are used:
//   - MaxOpenConns: 20 (if 0)
//   - MaxIdleConns: 5 (if 0)
//   - ConnMaxLifetime: 5 minutes (if 0)
//   - ConnMaxIdleTime: 10 minutes (if 0)
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Notes:
//   - database/sql treats MaxOpenConns=0 as "unlimited"
//   - database/sql treats MaxIdleConns=0 as "no idle connections"
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// pgCollection maps a domain record type T onto a table through the gorm model M.
// Pages are keyset-paginated on id; the continuation token is the encoded last id.
type pgCollection[T domain.Entity[T], M any] struct {
	db        *gorm.DB
	table     string
	columns   map[string]string
	toModel   func(T) M
	fromModel func(M) T
	encoder   adapter.TokenCodec
}

func (c *pgCollection[T, M]) Name() string {
	return c.table
}

func (c *pgCollection[T, M]) List(ctx context.Context, filter Filter, limit int, token string) (*Page[T], error) {
	q := c.db.WithContext(ctx).Table(c.table)

	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		column, ok := c.columns[field]
		if !ok {
			return nil, fmt.Errorf("unsupported filter field %q on %s", field, c.table)
		}
		q = q.Where(clause.Eq{Column: clause.Column{Name: column}, Value: filter[field]})
	}

	if token != "" {
		afterID, err := c.encoder.Decode(token)
		if err != nil {
			return nil, err
		}
		q = q.Where("id > ?", afterID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var models []M
	if err := q.Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.table, err)
	}

	page := &Page[T]{Items: make([]T, 0, len(models))}
	for _, m := range models {
		page.Items = append(page.Items, c.fromModel(m))
	}
	if limit > 0 && len(page.Items) == limit {
		page.NextToken = c.encoder.Encode(page.Items[len(page.Items)-1].EntityID())
	}

	return page, nil
}

func (c *pgCollection[T, M]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	if item.EntityID() == "" {
		item = item.WithID(uuid.NewString())
	}

	model := c.toModel(item)
	if err := c.db.WithContext(ctx).Table(c.table).Create(&model).Error; err != nil {
		return zero, fmt.Errorf("failed to create %s: %w", c.table, err)
	}

	return c.fromModel(model), nil
}

func (c *pgCollection[T, M]) Update(ctx context.Context, item T) (T, error) {
	var zero T
	id := item.EntityID()
	if id == "" {
		return zero, fmt.Errorf("%w: %s update without id", domain.ErrRecordNotFound, c.table)
	}

	model := c.toModel(item)
	result := c.db.WithContext(ctx).
		Table(c.table).
		Where("id = ?", id).
		Select("*").
		Omit("id", "created_at").
		Updates(&model)
	if result.Error != nil {
		return zero, fmt.Errorf("failed to update %s: %w", c.table, result.Error)
	}
	if result.RowsAffected == 0 {
		return zero, fmt.Errorf("%w: %s %s", domain.ErrRecordNotFound, c.table, id)
	}

	return c.get(ctx, id)
}

func (c *pgCollection[T, M]) Delete(ctx context.Context, id string) (T, error) {
	var zero T
	existing, err := c.get(ctx, id)
	if err != nil {
		return zero, err
	}

	result := c.db.WithContext(ctx).Table(c.table).Where("id = ?", id).Delete(new(M))
	if result.Error != nil {
		return zero, fmt.Errorf("failed to delete %s: %w", c.table, result.Error)
	}
	if result.RowsAffected == 0 {
		return zero, fmt.Errorf("%w: %s %s", domain.ErrRecordNotFound, c.table, id)
	}

	return existing, nil
}

func (c *pgCollection[T, M]) get(ctx context.Context, id string) (T, error) {
	var zero T
	var model M
	err := c.db.WithContext(ctx).Table(c.table).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, fmt.Errorf("%w: %s %s", domain.ErrRecordNotFound, c.table, id)
		}
		return zero, fmt.Errorf("failed to get %s: %w", c.table, err)
	}
	return c.fromModel(model), nil
}

func tableOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func createdAt(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func createdAtPtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func addressToModel(a domain.Address) schema.Address {
	return schema.Address{
		ID:         a.ID,
		ExternalID: a.ExternalID,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		Zip:        a.Zip,
		Lat:        a.Lat,
		Lng:        a.Lng,
		CreatedAt:  createdAt(a.CreatedAt),
	}
}

func addressFromModel(m schema.Address) domain.Address {
	return domain.Address{
		ID:         m.ID,
		ExternalID: m.ExternalID,
		Street:     m.Street,
		City:       m.City,
		State:      m.State,
		Zip:        m.Zip,
		Lat:        m.Lat,
		Lng:        m.Lng,
		CreatedAt:  createdAtPtr(m.CreatedAt),
	}
}

func residentToModel(r domain.Resident) schema.Resident {
	phones := datatypes.JSONMap{}
	for key, number := range map[string]string{
		schema.PhoneCell:      r.CellPhone,
		schema.PhoneCellAlert: r.CellPhoneAlert,
		schema.PhoneUnit:      r.UnitPhone,
		schema.PhoneWork:      r.WorkPhone,
	} {
		if number != "" {
			phones[key] = number
		}
	}

	return schema.Resident{
		ID:              r.ID,
		PersonID:        r.PersonID,
		ExternalID:      r.ExternalID,
		AddressID:       r.AddressID,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		OccupantType:    r.OccupantType,
		ContactEmail:    r.ContactEmail,
		AdditionalEmail: r.AdditionalEmail,
		Phones:          phones,
		IsAbsentee:      r.IsAbsentee,
		HasSigned:       r.HasSigned,
		SignedAt:        r.SignedAt,
		CreatedAt:       createdAt(r.CreatedAt),
	}
}

func residentFromModel(m schema.Resident) domain.Resident {
	phone := func(key string) string {
		s, _ := m.Phones[key].(string)
		return s
	}

	return domain.Resident{
		ID:              m.ID,
		PersonID:        m.PersonID,
		ExternalID:      m.ExternalID,
		AddressID:       m.AddressID,
		FirstName:       m.FirstName,
		LastName:        m.LastName,
		OccupantType:    m.OccupantType,
		ContactEmail:    m.ContactEmail,
		AdditionalEmail: m.AdditionalEmail,
		CellPhone:       phone(schema.PhoneCell),
		CellPhoneAlert:  phone(schema.PhoneCellAlert),
		UnitPhone:       phone(schema.PhoneUnit),
		WorkPhone:       phone(schema.PhoneWork),
		IsAbsentee:      m.IsAbsentee,
		HasSigned:       m.HasSigned,
		SignedAt:        m.SignedAt,
		CreatedAt:       createdAtPtr(m.CreatedAt),
	}
}

func consentToModel(c domain.Consent) schema.Consent {
	return schema.Consent{
		ID:         c.ID,
		ResidentID: c.ResidentID,
		AddressID:  c.AddressID,
		RecordedAt: c.RecordedAt,
		RecordedBy: c.RecordedBy,
		Source:     c.Source,
		Email:      c.Email,
		CreatedAt:  createdAt(c.CreatedAt),
	}
}

func consentFromModel(m schema.Consent) domain.Consent {
	return domain.Consent{
		ID:         m.ID,
		ResidentID: m.ResidentID,
		AddressID:  m.AddressID,
		RecordedAt: m.RecordedAt,
		RecordedBy: m.RecordedBy,
		Source:     m.Source,
		Email:      m.Email,
		CreatedAt:  createdAtPtr(m.CreatedAt),
	}
}
