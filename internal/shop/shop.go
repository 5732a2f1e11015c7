// Package shop holds the car-wash business entities the WhatsApp flow reads
// and writes: customers, vehicles, and the document/vehicle type catalogs
// used to validate what users type.
package shop

import (
	"context"
	"strings"
	"time"
)

type Customer struct {
	ID             string    `json:"id"`
	DocumentType   string    `json:"document_type"`
	DocumentNumber string    `json:"document_number"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Vehicle is identified by its plate. OwnerIDs lists every customer linked to
// it; the first one registered it, the rest joined with the association key.
type Vehicle struct {
	ID        string    `json:"id"`
	Plate     string    `json:"plate"`
	TypeID    string    `json:"type_id"`
	Brand     string    `json:"brand"`
	Model     string    `json:"model"`
	Color     string    `json:"color"`
	OwnerIDs  []string  `json:"owner_ids"`
	KeySalt   string    `json:"key_salt,omitempty"`
	KeyHash   string    `json:"key_hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (v *Vehicle) HasOwner(customerID string) bool {
	for _, id := range v.OwnerIDs {
		if id == customerID {
			return true
		}
	}
	return false
}

func (v *Vehicle) AddOwner(customerID string) {
	if !v.HasOwner(customerID) {
		v.OwnerIDs = append(v.OwnerIDs, customerID)
	}
}

func (v *Vehicle) RemoveOwner(customerID string) {
	owners := v.OwnerIDs[:0]
	for _, id := range v.OwnerIDs {
		if id != customerID {
			owners = append(owners, id)
		}
	}
	v.OwnerIDs = owners
}

// Customers is the customer persistence contract.
// Lookups return ErrNotFound when nothing matches.
type Customers interface {
	CreateCustomer(ctx context.Context, c *Customer) error
	UpdateCustomer(ctx context.Context, c *Customer) error
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	FindCustomerByDocument(ctx context.Context, docType, number string) (*Customer, error)
	FindCustomerByPhone(ctx context.Context, phone string) (*Customer, error)
}

// Vehicles is the vehicle persistence contract, keyed by normalized plate.
// A vehicle can be shared by several customers, so changes are expressed as
// mutations applied to the current stored record rather than full writes of
// a copy read earlier.
type Vehicles interface {
	CreateVehicle(ctx context.Context, v *Vehicle) error
	UpdateVehicle(ctx context.Context, plate string, fn func(*Vehicle) error) (*Vehicle, error)
	RemoveVehicleOwner(ctx context.Context, plate, customerID string) (deleted bool, err error)
	FindVehicleByPlate(ctx context.Context, plate string) (*Vehicle, error)
	ListVehiclesByOwner(ctx context.Context, customerID string) ([]Vehicle, error)
}
