package appsync

import (
	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/store"
)

var (
	addressFields  = []string{"id", "externalId", "street", "city", "state", "zip", "lat", "lng", "createdAt"}
	residentFields = []string{
		"id", "personId", "externalId", "addressId", "firstName", "lastName", "occupantType",
		"contactEmail", "additionalEmail", "cellPhone", "cellPhoneAlert", "unitPhone", "workPhone",
		"isAbsentee", "hasSigned", "signedAt", "createdAt",
	}
	consentFields = []string{"id", "residentId", "addressId", "recordedAt", "recordedBy", "source", "email", "createdAt"}
)

// ModelNames names the AppSync types backing each collection
type ModelNames struct {
	Address  string
	Resident string
	Consent  string
}

type repository struct {
	addresses store.Collection[domain.Address]
	residents store.Collection[domain.Resident]
	consents  store.Collection[domain.Consent]
}

// NewRepository creates a store.Repository over an AppSync API
func NewRepository(client *Client, names ModelNames) store.Repository {
	return &repository{
		addresses: NewCollection[domain.Address](client, Model{Name: names.Address, Fields: addressFields}),
		residents: NewCollection[domain.Resident](client, Model{Name: names.Resident, Fields: residentFields}),
		consents:  NewCollection[domain.Consent](client, Model{Name: names.Consent, Fields: consentFields}),
	}
}

func (r *repository) Addresses() store.Collection[domain.Address] { return r.addresses }

func (r *repository) Residents() store.Collection[domain.Resident] { return r.residents }

func (r *repository) Consents() store.Collection[domain.Consent] { return r.consents }

// Close is a no-op: the HTTP client holds no per-repository connections
func (r *repository) Close() error { return nil }
