package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/lojasmm/washbot/internal/shop"
)

// vehicle_owners keys are "<customerID>/<plate>" so a prefix scan lists a
// customer's vehicles.
func ownerKey(customerID, plate string) []byte {
	return []byte(customerID + "/" + plate)
}

func (s *BoltStore) CreateVehicle(ctx context.Context, v *shop.Vehicle) error {
	v.Plate = shop.NormalizeCode(v.Plate)
	return s.update(ctx, func(tx *bolt.Tx) error {
		if tx.Bucket(vehiclesBucket).Get([]byte(v.Plate)) != nil {
			return fmt.Errorf("vehicle %s: %w", v.Plate, shop.ErrDuplicate)
		}
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		now := time.Now()
		if v.CreatedAt.IsZero() {
			v.CreatedAt = now
		}
		v.UpdatedAt = now

		if err := putVehicle(tx, v); err != nil {
			return err
		}
		return indexOwners(tx, v.Plate, nil, v.OwnerIDs)
	})
}

// UpdateVehicle applies fn to the stored vehicle and writes the result in the
// same transaction, so concurrent changes from other customers sharing the
// vehicle are never overwritten. An error from fn aborts the update.
func (s *BoltStore) UpdateVehicle(ctx context.Context, plate string, fn func(*shop.Vehicle) error) (*shop.Vehicle, error) {
	plate = shop.NormalizeCode(plate)
	var out *shop.Vehicle
	err := s.update(ctx, func(tx *bolt.Tx) error {
		old, err := getVehicle(tx, plate)
		if err != nil {
			return err
		}
		v := *old
		v.OwnerIDs = append([]string(nil), old.OwnerIDs...)
		if err := fn(&v); err != nil {
			return err
		}
		v.ID, v.Plate, v.CreatedAt = old.ID, old.Plate, old.CreatedAt
		v.UpdatedAt = time.Now()
		if err := putVehicle(tx, &v); err != nil {
			return err
		}
		out = &v
		return indexOwners(tx, plate, old.OwnerIDs, v.OwnerIDs)
	})
	return out, err
}

// RemoveVehicleOwner unlinks customerID from the vehicle and deletes the
// vehicle once nobody owns it. deleted reports whether the record is gone.
func (s *BoltStore) RemoveVehicleOwner(ctx context.Context, plate, customerID string) (deleted bool, err error) {
	plate = shop.NormalizeCode(plate)
	err = s.update(ctx, func(tx *bolt.Tx) error {
		old, err := getVehicle(tx, plate)
		if err != nil {
			return err
		}
		if !old.HasOwner(customerID) {
			return fmt.Errorf("vehicle %s owned by %s: %w", plate, customerID, shop.ErrNotFound)
		}
		if err := tx.Bucket(vehicleOwnersBucket).Delete(ownerKey(customerID, plate)); err != nil {
			return err
		}

		v := *old
		v.OwnerIDs = append([]string(nil), old.OwnerIDs...)
		v.RemoveOwner(customerID)
		if len(v.OwnerIDs) == 0 {
			deleted = true
			return tx.Bucket(vehiclesBucket).Delete([]byte(plate))
		}
		v.UpdatedAt = time.Now()
		return putVehicle(tx, &v)
	})
	return deleted, err
}

func (s *BoltStore) FindVehicleByPlate(ctx context.Context, plate string) (*shop.Vehicle, error) {
	var v *shop.Vehicle
	err := s.view(ctx, func(tx *bolt.Tx) error {
		var err error
		v, err = getVehicle(tx, shop.NormalizeCode(plate))
		return err
	})
	return v, err
}

func (s *BoltStore) ListVehiclesByOwner(ctx context.Context, customerID string) ([]shop.Vehicle, error) {
	var out []shop.Vehicle
	err := s.view(ctx, func(tx *bolt.Tx) error {
		prefix := []byte(customerID + "/")
		c := tx.Bucket(vehicleOwnersBucket).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			v, err := getVehicle(tx, string(k[len(prefix):]))
			if err != nil {
				return err
			}
			out = append(out, *v)
		}
		return nil
	})
	return out, err
}

func indexOwners(tx *bolt.Tx, plate string, before, after []string) error {
	b := tx.Bucket(vehicleOwnersBucket)
	for _, id := range before {
		if err := b.Delete(ownerKey(id, plate)); err != nil {
			return err
		}
	}
	for _, id := range after {
		if err := b.Put(ownerKey(id, plate), []byte{}); err != nil {
			return err
		}
	}
	return nil
}

func getVehicle(tx *bolt.Tx, plate string) (*shop.Vehicle, error) {
	data := tx.Bucket(vehiclesBucket).Get([]byte(plate))
	if data == nil {
		return nil, fmt.Errorf("vehicle %s: %w", plate, shop.ErrNotFound)
	}
	var v shop.Vehicle
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decoding vehicle %s: %w", plate, err)
	}
	return &v, nil
}

func putVehicle(tx *bolt.Tx, v *shop.Vehicle) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Bucket(vehiclesBucket).Put([]byte(v.Plate), data)
}
