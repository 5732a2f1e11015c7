package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/lojasmm/washbot/internal/shop"
)

func documentKey(docType, number string) []byte {
	return []byte(docType + ":" + shop.NormalizeCode(number))
}

func (s *BoltStore) CreateCustomer(ctx context.Context, c *shop.Customer) error {
	return s.update(ctx, func(tx *bolt.Tx) error {
		docs := tx.Bucket(customerDocsBucket)
		docKey := documentKey(c.DocumentType, c.DocumentNumber)
		if docs.Get(docKey) != nil {
			return fmt.Errorf("customer %s: %w", docKey, shop.ErrDuplicate)
		}

		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		now := time.Now()
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now

		if err := putCustomer(tx, c); err != nil {
			return err
		}
		if err := docs.Put(docKey, []byte(c.ID)); err != nil {
			return err
		}
		if c.Phone != "" {
			return tx.Bucket(customerPhonesBucket).Put([]byte(c.Phone), []byte(c.ID))
		}
		return nil
	})
}

func (s *BoltStore) UpdateCustomer(ctx context.Context, c *shop.Customer) error {
	return s.update(ctx, func(tx *bolt.Tx) error {
		old, err := getCustomer(tx, c.ID)
		if err != nil {
			return err
		}

		docs := tx.Bucket(customerDocsBucket)
		oldDoc := documentKey(old.DocumentType, old.DocumentNumber)
		newDoc := documentKey(c.DocumentType, c.DocumentNumber)
		if string(oldDoc) != string(newDoc) {
			if owner := docs.Get(newDoc); owner != nil && string(owner) != c.ID {
				return fmt.Errorf("customer %s: %w", newDoc, shop.ErrDuplicate)
			}
			if err := docs.Delete(oldDoc); err != nil {
				return err
			}
			if err := docs.Put(newDoc, []byte(c.ID)); err != nil {
				return err
			}
		}

		phones := tx.Bucket(customerPhonesBucket)
		if old.Phone != c.Phone {
			if old.Phone != "" {
				if err := phones.Delete([]byte(old.Phone)); err != nil {
					return err
				}
			}
			if c.Phone != "" {
				if err := phones.Put([]byte(c.Phone), []byte(c.ID)); err != nil {
					return err
				}
			}
		}

		c.CreatedAt = old.CreatedAt
		c.UpdatedAt = time.Now()
		return putCustomer(tx, c)
	})
}

func (s *BoltStore) GetCustomer(ctx context.Context, id string) (*shop.Customer, error) {
	var c *shop.Customer
	err := s.view(ctx, func(tx *bolt.Tx) error {
		var err error
		c, err = getCustomer(tx, id)
		return err
	})
	return c, err
}

func (s *BoltStore) FindCustomerByDocument(ctx context.Context, docType, number string) (*shop.Customer, error) {
	return s.findCustomerBy(ctx, customerDocsBucket, documentKey(docType, number))
}

func (s *BoltStore) FindCustomerByPhone(ctx context.Context, phone string) (*shop.Customer, error) {
	return s.findCustomerBy(ctx, customerPhonesBucket, []byte(phone))
}

func (s *BoltStore) findCustomerBy(ctx context.Context, index, key []byte) (*shop.Customer, error) {
	var c *shop.Customer
	err := s.view(ctx, func(tx *bolt.Tx) error {
		id := tx.Bucket(index).Get(key)
		if id == nil {
			return fmt.Errorf("customer %s: %w", key, shop.ErrNotFound)
		}
		var err error
		c, err = getCustomer(tx, string(id))
		return err
	})
	return c, err
}

func getCustomer(tx *bolt.Tx, id string) (*shop.Customer, error) {
	v := tx.Bucket(customersBucket).Get([]byte(id))
	if v == nil {
		return nil, fmt.Errorf("customer %s: %w", id, shop.ErrNotFound)
	}
	var c shop.Customer
	if err := json.Unmarshal(v, &c); err != nil {
		return nil, fmt.Errorf("decoding customer %s: %w", id, err)
	}
	return &c, nil
}

func putCustomer(tx *bolt.Tx, c *shop.Customer) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return tx.Bucket(customersBucket).Put([]byte(c.ID), data)
}
