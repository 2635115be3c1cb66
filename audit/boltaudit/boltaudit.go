// Package boltaudit persists audit.Records to a bbolt file, one key
// per goal id in a single bucket. It never reads its own bucket back
// into the running system; Open only creates the bucket if missing.
package boltaudit

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/ros2go/actionlib/audit"
)

var bucketName = []byte("goal_audit")

// Sink is a bbolt-backed audit.Sink.
type Sink struct {
	db *bolt.DB
}

var _ audit.Sink = (*Sink)(nil)

// Open opens (creating if necessary) the bbolt file at path and
// ensures the audit bucket exists.
func Open(path string) (*Sink, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("actionlib audit: opening %q: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("actionlib audit: creating bucket: %w", err)
	}
	return &Sink{db: db}, nil
}

// Record writes r under its goal id, overwriting any prior entry for
// that id (a goal only ever finishes once, but a caller retrying
// after a write error should not fail because the key already
// exists).
func (s *Sink) Record(r audit.Record) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("actionlib audit: marshaling record for %q: %w", r.GoalID, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(r.GoalID), payload)
	})
}

// List returns every record in the store, for a report tool to render
// — not for the running system to resume anything from. Order is
// unspecified; callers that care sort by FinishedAt themselves.
func (s *Sink) List() ([]audit.Record, error) {
	var records []audit.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(_, v []byte) error {
			var r audit.Record
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("actionlib audit: listing records: %w", err)
	}
	return records, nil
}

// Close releases the underlying bbolt file.
func (s *Sink) Close() error {
	return s.db.Close()
}
