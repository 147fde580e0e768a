package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"gatewatch/utils"
)

const sessionBucket = "Sessions"

// SessionStorage is a bbolt-backed implementation of fiber.Storage used for
// operator sessions. Entries carry their own expiry; expired entries are
// dropped lazily on read and swept periodically.
type SessionStorage struct {
	db   *bbolt.DB
	done chan struct{}
}

// NewSessionStorage opens (or creates) the session database under dataDir.
func NewSessionStorage(dataDir string) (*SessionStorage, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %v", err)
	}

	dbPath := filepath.Join(dataDir, "sessions.db")
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %v", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sessionBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session bucket: %v", err)
	}

	s := &SessionStorage{
		db:   db,
		done: make(chan struct{}),
	}
	go s.sweepLoop()

	return s, nil
}

// encode prefixes the value with its expiry as unix nanoseconds.
// A zero expiry means the entry never expires.
func encode(val []byte, exp time.Duration) []byte {
	buf := make([]byte, 8+len(val))
	if exp > 0 {
		binary.BigEndian.PutUint64(buf, uint64(time.Now().Add(exp).UnixNano()))
	}
	copy(buf[8:], val)
	return buf
}

func expired(raw []byte) bool {
	if len(raw) < 8 {
		return true
	}
	deadline := binary.BigEndian.Uint64(raw)
	return deadline != 0 && time.Now().UnixNano() > int64(deadline)
}

// Get retrieves a session entry, returning nil for missing or expired keys.
func (s *SessionStorage) Get(key string) ([]byte, error) {
	var val []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(sessionBucket)).Get([]byte(key))
		if raw == nil || expired(raw) {
			return nil
		}
		val = make([]byte, len(raw)-8)
		copy(val, raw[8:])
		return nil
	})
	return val, err
}

// Set stores a session entry with the given lifetime.
func (s *SessionStorage) Set(key string, val []byte, exp time.Duration) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionBucket)).Put([]byte(key), encode(val, exp))
	})
}

// Delete removes a session entry.
func (s *SessionStorage) Delete(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionBucket)).Delete([]byte(key))
	})
}

// Reset drops every session.
func (s *SessionStorage) Reset() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(sessionBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(sessionBucket))
		return err
	})
}

// Close stops the sweeper and closes the database.
func (s *SessionStorage) Close() error {
	close(s.done)
	return s.db.Close()
}

func (s *SessionStorage) sweepLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

// sweep removes expired entries.
func (s *SessionStorage) sweep() {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucket))
		cursor := bucket.Cursor()
		var stale [][]byte
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			if expired(v) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.Log.Warn("Session sweep failed: %v", err)
	}
}
