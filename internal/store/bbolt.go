package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("invites")

type BBoltStore struct {
	db *bolt.DB
}

func NewBBoltStore(path string) (*BBoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db at %s: %w", path, err)
	}

	// Reason: bucket must exist before any read/write operations
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating invites bucket: %w", err)
	}

	return &BBoltStore{db: db}, nil
}

func (s *BBoltStore) CreateInvite(_ context.Context, rec Invite) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b.Get([]byte(rec.Token)) != nil {
			return ErrTokenExists
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling invite %s: %w", rec.Token, err)
		}
		if err := b.Put([]byte(rec.Token), data); err != nil {
			return fmt.Errorf("writing invite %s: %w", rec.Token, err)
		}
		return nil
	})
}

func (s *BBoltStore) GetInvite(_ context.Context, token string) (*Invite, error) {
	var record *Invite

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		data := b.Get([]byte(token))
		if data == nil {
			return nil
		}

		var r Invite
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("unmarshaling invite %s: %w", token, err)
		}

		record = &r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// ConsumeInvite flips is_used to true. The check-and-set runs inside a single
// write transaction, so of two concurrent first accesses exactly one gets
// consumed=true; the other sees the already-used record.
func (s *BBoltStore) ConsumeInvite(_ context.Context, token string) (*Invite, bool, error) {
	var (
		record   *Invite
		consumed bool
	)

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		data := b.Get([]byte(token))
		if data == nil {
			return nil
		}

		var r Invite
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("unmarshaling invite %s: %w", token, err)
		}

		if r.IsUsed {
			record = &r
			return nil
		}

		r.IsUsed = true

		updated, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshaling invite %s: %w", token, err)
		}
		if err := b.Put([]byte(token), updated); err != nil {
			return fmt.Errorf("writing is_used for invite %s: %w", token, err)
		}

		record = &r
		consumed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return record, consumed, nil
}

func (s *BBoltStore) AppendBlessing(_ context.Context, token, name, message string, now time.Time) (*Invite, error) {
	var record *Invite

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		data := b.Get([]byte(token))
		if data == nil {
			return nil
		}

		var r Invite
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("unmarshaling invite %s: %w", token, err)
		}

		r.Blessings = append(r.Blessings, Blessing{
			Name:      name,
			Message:   message,
			CreatedAt: now,
		})

		updated, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshaling invite %s: %w", token, err)
		}
		if err := b.Put([]byte(token), updated); err != nil {
			return fmt.Errorf("writing blessing for invite %s: %w", token, err)
		}

		record = &r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (s *BBoltStore) SetMultiDevice(_ context.Context, token string, allow bool) (*Invite, error) {
	var record *Invite

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		data := b.Get([]byte(token))
		if data == nil {
			return nil
		}

		var r Invite
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("unmarshaling invite %s: %w", token, err)
		}

		r.AllowMultipleDevices = allow

		updated, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshaling invite %s: %w", token, err)
		}
		if err := b.Put([]byte(token), updated); err != nil {
			return fmt.Errorf("writing multi-device flag for invite %s: %w", token, err)
		}

		record = &r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (s *BBoltStore) ListInvites(_ context.Context) ([]Invite, error) {
	var result []Invite

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.ForEach(func(k, v []byte) error {
			var r Invite
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("unmarshaling invite %s: %w", string(k), err)
			}
			result = append(result, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Newest-created first for the admin listing.
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (s *BBoltStore) DeleteInvite(_ context.Context, token string) (bool, error) {
	var existed bool

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b.Get([]byte(token)) == nil {
			return nil
		}
		existed = true
		if err := b.Delete([]byte(token)); err != nil {
			return fmt.Errorf("deleting invite %s: %w", token, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	return existed, nil
}

// DeleteAllInvites wipes the bucket. Pre-launch maintenance only, reachable
// through cmd/cleanup rather than the HTTP surface.
func (s *BBoltStore) DeleteAllInvites(_ context.Context) (int, error) {
	var count int

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		count = b.Stats().KeyN
		if err := tx.DeleteBucket(bucketName); err != nil {
			return fmt.Errorf("deleting invites bucket: %w", err)
		}
		if _, err := tx.CreateBucket(bucketName); err != nil {
			return fmt.Errorf("recreating invites bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Seed loads invite records from a map, skipping tokens that already exist.
func (s *BBoltStore) Seed(invites map[string]Invite) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		for token, rec := range invites {
			existing := b.Get([]byte(token))
			if existing != nil {
				log.WithField("token", token).Debug("seed: invite already exists, skipping")
				continue
			}
			rec.Token = token
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = time.Now().UTC()
			}
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshaling seed invite %s: %w", token, err)
			}
			if err := b.Put([]byte(token), data); err != nil {
				return fmt.Errorf("seeding invite %s: %w", token, err)
			}
			log.WithField("token", token).Info("seeded invite")
		}
		return nil
	})
}

func (s *BBoltStore) Close() error {
	return s.db.Close()
}
