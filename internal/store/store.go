package store

import (
	"context"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
)

// Mutation is the kind of a write against a collection
type Mutation string

const (
	MutationCreate Mutation = "create"
	MutationUpdate Mutation = "update"
	MutationDelete Mutation = "delete"
)

// Filter restricts a list call to records whose fields equal the given values
type Filter map[string]any

// Page is one page of a paginated list call.
// An empty NextToken means the listing is exhausted.
type Page[T any] struct {
	Items     []T
	NextToken string
}

// Collection is a paginated list/create/update/delete API over one record type
type Collection[T any] interface {
	// Name returns the collection name used in logs and reports
	Name() string
	// List returns one page of records matching the filter, starting at token ("" for the first page)
	List(ctx context.Context, filter Filter, limit int, token string) (*Page[T], error)
	// Create inserts a record and returns it with its assigned id
	Create(ctx context.Context, item T) (T, error)
	// Update replaces the record with the same id
	Update(ctx context.Context, item T) (T, error)
	// Delete removes the record and returns its last state
	Delete(ctx context.Context, id string) (T, error)
}

// Repository groups the collections the reconciler works with
type Repository interface {
	Addresses() Collection[domain.Address]
	Residents() Collection[domain.Resident]
	Consents() Collection[domain.Consent]
	// Close releases the underlying connections
	Close() error
}
