package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojasmm/washbot/internal/shop"
)

var (
	_ shop.Customers = (*BoltStore)(nil)
	_ shop.Vehicles  = (*BoltStore)(nil)
)

func TestCustomers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := &shop.Customer{DocumentType: "DNI", DocumentNumber: "30123456", FirstName: "Ana", LastName: "Pérez", Phone: "5491111"}
	require.NoError(t, s.CreateCustomer(ctx, c))
	require.NotEmpty(t, c.ID)
	assert.False(t, c.CreatedAt.IsZero())

	dup := &shop.Customer{DocumentType: "DNI", DocumentNumber: "30.123.456", Phone: "5492222"}
	assert.ErrorIs(t, s.CreateCustomer(ctx, dup), shop.ErrDuplicate)

	byDoc, err := s.FindCustomerByDocument(ctx, "DNI", "30-123-456")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byDoc.ID)

	byPhone, err := s.FindCustomerByPhone(ctx, "5491111")
	require.NoError(t, err)
	assert.Equal(t, "Ana Pérez", byPhone.FullName())

	_, err = s.FindCustomerByPhone(ctx, "5492222")
	assert.ErrorIs(t, err, shop.ErrNotFound)
	_, err = s.GetCustomer(ctx, "missing")
	assert.ErrorIs(t, err, shop.ErrNotFound)

	c.Email = "ana@example.com"
	c.Phone = "5493333"
	require.NoError(t, s.UpdateCustomer(ctx, c))

	got, err := s.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got.Email)

	_, err = s.FindCustomerByPhone(ctx, "5491111")
	assert.ErrorIs(t, err, shop.ErrNotFound, "old phone index is dropped")
	_, err = s.FindCustomerByPhone(ctx, "5493333")
	assert.NoError(t, err)

	assert.ErrorIs(t, s.UpdateCustomer(ctx, &shop.Customer{ID: "missing"}), shop.ErrNotFound)
}

func TestUpdateCustomerDocumentConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &shop.Customer{DocumentType: "DNI", DocumentNumber: "1111111"}
	b := &shop.Customer{DocumentType: "DNI", DocumentNumber: "2222222"}
	require.NoError(t, s.CreateCustomer(ctx, a))
	require.NoError(t, s.CreateCustomer(ctx, b))

	b.DocumentNumber = "1111111"
	assert.ErrorIs(t, s.UpdateCustomer(ctx, b), shop.ErrDuplicate)
}

func TestVehicles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v := &shop.Vehicle{Plate: "ab 123 cd", TypeID: "AUTO", Brand: "Fiat", Model: "Cronos", Color: "Gris", OwnerIDs: []string{"c1"}}
	require.NoError(t, s.CreateVehicle(ctx, v))
	assert.Equal(t, "AB123CD", v.Plate)
	assert.NotEmpty(t, v.ID)

	assert.ErrorIs(t, s.CreateVehicle(ctx, &shop.Vehicle{Plate: "AB-123-CD"}), shop.ErrDuplicate)

	require.NoError(t, s.CreateVehicle(ctx, &shop.Vehicle{Plate: "AAA111", OwnerIDs: []string{"c1"}}))
	require.NoError(t, s.CreateVehicle(ctx, &shop.Vehicle{Plate: "BBB222", OwnerIDs: []string{"c10"}}))

	list, err := s.ListVehiclesByOwner(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "AAA111", list[0].Plate)
	assert.Equal(t, "AB123CD", list[1].Plate)

	got, err := s.UpdateVehicle(ctx, "ab123cd", func(v *shop.Vehicle) error {
		v.AddOwner("c2")
		v.Color = "Negro"
		v.Plate, v.ID = "HIJACK", "other"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
	assert.Equal(t, "AB123CD", got.Plate, "identity is not writable")

	list, err = s.ListVehiclesByOwner(ctx, "c2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Negro", list[0].Color)

	_, err = s.UpdateVehicle(ctx, "AB123CD", func(v *shop.Vehicle) error {
		v.Color = "Azul"
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	after, err := s.FindVehicleByPlate(ctx, "AB123CD")
	require.NoError(t, err)
	assert.Equal(t, "Negro", after.Color, "a failed mutation writes nothing")

	deleted, err := s.RemoveVehicleOwner(ctx, "AB123CD", "c1")
	require.NoError(t, err)
	assert.False(t, deleted)
	list, err = s.ListVehiclesByOwner(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, list, 1, "only AAA111 left for c1")

	_, err = s.RemoveVehicleOwner(ctx, "AB123CD", "c1")
	assert.ErrorIs(t, err, shop.ErrNotFound, "no longer an owner")

	deleted, err = s.RemoveVehicleOwner(ctx, "AB123CD", "c2")
	require.NoError(t, err)
	assert.True(t, deleted)
	_, err = s.FindVehicleByPlate(ctx, "AB123CD")
	assert.ErrorIs(t, err, shop.ErrNotFound)
	list, err = s.ListVehiclesByOwner(ctx, "c2")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.RemoveVehicleOwner(ctx, "AB123CD", "c2")
	assert.ErrorIs(t, err, shop.ErrNotFound)
	_, err = s.UpdateVehicle(ctx, "ZZZ999", func(*shop.Vehicle) error { return nil })
	assert.ErrorIs(t, err, shop.ErrNotFound)
}

func TestVehicleOwnersConcurrentJoins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateVehicle(ctx, &shop.Vehicle{Plate: "AB123CD", OwnerIDs: []string{"owner"}}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("co%02d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateVehicle(ctx, "AB123CD", func(v *shop.Vehicle) error {
				v.AddOwner(id)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.UpdateVehicle(ctx, "AB123CD", func(v *shop.Vehicle) error {
			v.Color = "Rojo"
			return nil
		})
		assert.NoError(t, err)
	}()
	wg.Wait()

	v, err := s.FindVehicleByPlate(ctx, "AB123CD")
	require.NoError(t, err)
	assert.Len(t, v.OwnerIDs, 21)
	assert.Equal(t, "Rojo", v.Color)
	for i := 0; i < 20; i++ {
		list, err := s.ListVehiclesByOwner(ctx, fmt.Sprintf("co%02d", i))
		require.NoError(t, err)
		assert.Len(t, list, 1)
	}
}
