package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	sessionsBucket       = []byte("sessions")
	processedBucket      = []byte("processed")
	customersBucket      = []byte("customers")
	customerDocsBucket   = []byte("customer_docs")
	customerPhonesBucket = []byte("customer_phones")
	vehiclesBucket       = []byte("vehicles")
	vehicleOwnersBucket  = []byte("vehicle_owners")
)

var allBuckets = [][]byte{
	sessionsBucket,
	processedBucket,
	customersBucket,
	customerDocsBucket,
	customerPhonesBucket,
	vehiclesBucket,
	vehicleOwnersBucket,
}

// Session is the conversation state persisted per WhatsApp phone number.
type Session struct {
	ID              string            `json:"id"`
	CustomerID      string            `json:"customer_id,omitempty"`
	CurrentState    string            `json:"current_state"`
	TemporaryData   map[string]string `json:"temporary_data"`
	LastInteraction time.Time         `json:"last_interaction"`
	CreatedAt       time.Time         `json:"created_at"`
}

func (s *Session) IsAuthenticated() bool {
	return s.CustomerID != ""
}

type SessionStore interface {
	GetSession(ctx context.Context, phone string) (*Session, error)
	SaveSession(ctx context.Context, s *Session) error
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ProcessedLog remembers inbound message ids so redeliveries are skipped.
type ProcessedLog interface {
	WasProcessed(ctx context.Context, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, messageID string, at time.Time) error
	PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) view(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

func (s *BoltStore) update(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(fn)
}

func (s *BoltStore) GetSession(ctx context.Context, phone string) (*Session, error) {
	var sess Session
	err := s.view(ctx, func(tx *bolt.Tx) error {
		v := tx.Bucket(sessionsBucket).Get([]byte(phone))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &sess)
	})
	if err != nil {
		return nil, err
	}
	if sess.ID == "" {
		return nil, nil
	}
	if sess.TemporaryData == nil {
		sess.TemporaryData = make(map[string]string)
	}
	return &sess, nil
}

func (s *BoltStore) SaveSession(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		return fmt.Errorf("saving session: empty id")
	}
	return s.update(ctx, func(tx *bolt.Tx) error {
		data, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		return tx.Bucket(sessionsBucket).Put([]byte(sess.ID), data)
	})
}

// DeleteSessionsBefore removes sessions whose last interaction is older than cutoff.
func (s *BoltStore) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	deleted := 0
	err := s.update(ctx, func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var sess Session
			if err := json.Unmarshal(v, &sess); err != nil {
				return err
			}
			if sess.LastInteraction.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		deleted = len(stale)
		return nil
	})
	return deleted, err
}

func (s *BoltStore) WasProcessed(ctx context.Context, messageID string) (bool, error) {
	var seen bool
	err := s.view(ctx, func(tx *bolt.Tx) error {
		seen = tx.Bucket(processedBucket).Get([]byte(messageID)) != nil
		return nil
	})
	return seen, err
}

func (s *BoltStore) MarkProcessed(ctx context.Context, messageID string, at time.Time) error {
	return s.update(ctx, func(tx *bolt.Tx) error {
		ts, err := at.UTC().MarshalText()
		if err != nil {
			return err
		}
		return tx.Bucket(processedBucket).Put([]byte(messageID), ts)
	})
}

func (s *BoltStore) PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	purged := 0
	err := s.update(ctx, func(tx *bolt.Tx) error {
		b := tx.Bucket(processedBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var at time.Time
			if err := at.UnmarshalText(v); err != nil || at.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		purged = len(stale)
		return nil
	})
	return purged, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
