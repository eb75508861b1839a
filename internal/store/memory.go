package store

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/adapter"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
)

// FailureFunc decides whether a mutation against an in-memory collection should fail
type FailureFunc[T any] func(op Mutation, item T) error

// MemoryCollection is an in-process Collection used as a fake backend and for local runs
type MemoryCollection[T domain.Entity[T]] struct {
	mu      sync.Mutex
	name    string
	items   []T
	encoder adapter.TokenCodec
	failure FailureFunc[T]
}

// NewMemoryCollection creates an in-memory collection seeded with items.
// Seed items without an id are assigned one.
func NewMemoryCollection[T domain.Entity[T]](name string, items ...T) *MemoryCollection[T] {
	c := &MemoryCollection[T]{name: name, encoder: adapter.NewTokenCodec()}
	for _, item := range items {
		if item.EntityID() == "" {
			item = item.WithID(uuid.NewString())
		}
		c.items = append(c.items, item)
	}
	return c
}

// FailWith installs a hook consulted before every mutation
func (c *MemoryCollection[T]) FailWith(fn FailureFunc[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failure = fn
}

// Items returns a copy of the stored records in insertion order
func (c *MemoryCollection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

func (c *MemoryCollection[T]) Name() string {
	return c.name
}

func (c *MemoryCollection[T]) List(ctx context.Context, filter Filter, limit int, token string) (*Page[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	offset, err := c.decodeToken(token)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = len(c.items)
	}

	// Like a scan-based remote, the limit bounds the records examined, not the records returned
	end := min(offset+limit, len(c.items))
	page := &Page[T]{}
	for _, item := range c.items[offset:end] {
		if matches(item, filter) {
			page.Items = append(page.Items, item)
		}
	}
	if end < len(c.items) {
		page.NextToken = c.encoder.Encode(strconv.Itoa(end))
	}

	return page, nil
}

func (c *MemoryCollection[T]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failure != nil {
		if err := c.failure(MutationCreate, item); err != nil {
			return zero, err
		}
	}

	if item.EntityID() == "" {
		item = item.WithID(uuid.NewString())
	} else if c.indexOf(item.EntityID()) >= 0 {
		return zero, fmt.Errorf("%s %s already exists", c.name, item.EntityID())
	}

	c.items = append(c.items, item)
	return item, nil
}

func (c *MemoryCollection[T]) Update(ctx context.Context, item T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failure != nil {
		if err := c.failure(MutationUpdate, item); err != nil {
			return zero, err
		}
	}

	i := c.indexOf(item.EntityID())
	if i < 0 {
		return zero, fmt.Errorf("%w: %s %s", domain.ErrRecordNotFound, c.name, item.EntityID())
	}

	c.items[i] = item
	return item, nil
}

func (c *MemoryCollection[T]) Delete(ctx context.Context, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return zero, fmt.Errorf("%w: %s %s", domain.ErrRecordNotFound, c.name, id)
	}

	item := c.items[i]
	if c.failure != nil {
		if err := c.failure(MutationDelete, item); err != nil {
			return zero, err
		}
	}

	c.items = append(c.items[:i], c.items[i+1:]...)
	return item, nil
}

func (c *MemoryCollection[T]) indexOf(id string) int {
	for i, item := range c.items {
		if item.EntityID() == id {
			return i
		}
	}
	return -1
}

func (c *MemoryCollection[T]) decodeToken(token string) (int, error) {
	if token == "" {
		return 0, nil
	}

	raw, err := c.encoder.Decode(token)
	if err != nil {
		return 0, err
	}
	offset, err := strconv.Atoi(raw)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("invalid continuation token %q", token)
	}
	return min(offset, len(c.items)), nil
}

func matches[T domain.Entity[T]](item T, filter Filter) bool {
	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		value, ok := item.FieldValue(field)
		if !ok || value != fmt.Sprint(filter[field]) {
			return false
		}
	}
	return true
}

// MemoryRepository is a Repository backed by in-memory collections
type MemoryRepository struct {
	AddressCollection  *MemoryCollection[domain.Address]
	ResidentCollection *MemoryCollection[domain.Resident]
	ConsentCollection  *MemoryCollection[domain.Consent]
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		AddressCollection:  NewMemoryCollection[domain.Address](string(domain.CollectionAddress)),
		ResidentCollection: NewMemoryCollection[domain.Resident](string(domain.CollectionResident)),
		ConsentCollection:  NewMemoryCollection[domain.Consent](string(domain.CollectionConsent)),
	}
}

// MemorySeed is the collection content of an export file
type MemorySeed struct {
	Addresses []domain.Address  `json:"addresses"`
	Residents []domain.Resident `json:"residents"`
	Consents  []domain.Consent  `json:"consents"`
}

// LoadMemoryRepository creates an in-memory repository from an export so a run can be rehearsed offline
func LoadMemoryRepository(r io.Reader, json adapter.JSON) (*MemoryRepository, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}

	var seed MemorySeed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}

	return &MemoryRepository{
		AddressCollection:  NewMemoryCollection(string(domain.CollectionAddress), seed.Addresses...),
		ResidentCollection: NewMemoryCollection(string(domain.CollectionResident), seed.Residents...),
		ConsentCollection:  NewMemoryCollection(string(domain.CollectionConsent), seed.Consents...),
	}, nil
}

func (r *MemoryRepository) Addresses() Collection[domain.Address] {
	return r.AddressCollection
}

func (r *MemoryRepository) Residents() Collection[domain.Resident] {
	return r.ResidentCollection
}

func (r *MemoryRepository) Consents() Collection[domain.Consent] {
	return r.ConsentCollection
}

func (r *MemoryRepository) Close() error {
	return nil
}
