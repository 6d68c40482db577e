package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	kerrors "github.com/illarion/sous/internal/errors"
	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

// Bucket names
var (
	ConfigBucket  = []byte("config")
	SyncBucket    = []byte("sync")
	ListingBucket = []byte("listing")
)

// Config keys
var (
	ConfigVersion   = []byte("version")
	ConfigCreated   = []byte("created")
	ConfigModified  = []byte("modified")
	ConfigRemoteURL = []byte("remote_url")
)

var lastSyncKey = []byte("last")

const schemaVersion = "1"

// ErrNotInitialized is returned by reads on a database that was never written.
var ErrNotInitialized = errors.New("state database not initialized")

// Storage provides BBolt-based storage for remote state
type Storage struct {
	db      *bolt.DB
	timeout time.Duration
}

// Open opens or creates a state database and takes its exclusive lock.
// If another process holds the lock for longer than timeout, ErrLocked is
// returned. A zero timeout waits forever.
func Open(path string, timeout time.Duration) (*Storage, error) {
	return open(path, &bolt.Options{Timeout: timeout})
}

// OpenReadOnly opens an existing database with a shared lock.
func OpenReadOnly(path string, timeout time.Duration) (*Storage, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return open(path, &bolt.Options{Timeout: timeout, ReadOnly: true})
}

func open(path string, opts *bolt.Options) (*Storage, error) {
	db, err := bolt.Open(path, 0600, opts)
	if errors.Is(err, berrors.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrLocked, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db, timeout: opts.Timeout}, nil
}

// Close closes the database and releases the lock
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.db.Path()
}

// Initialize creates the bucket structure and records the remote URL.
// It is safe to call on an initialized database.
func (s *Storage) Initialize(remoteURL string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, SyncBucket, ListingBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}

		if err := config.Put(ConfigVersion, []byte(schemaVersion)); err != nil {
			return err
		}
		if err := config.Put(ConfigRemoteURL, []byte(remoteURL)); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// RemoteURL returns the URL recorded at initialization
func (s *Storage) RemoteURL() (string, error) {
	var url string
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		url = string(config.Get(ConfigRemoteURL))
		return nil
	})
	return url, err
}

// GetModified retrieves the last modified timestamp
func (s *Storage) GetModified() (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data := config.Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

func touch(tx *bolt.Tx) error {
	modified, _ := time.Now().MarshalBinary()
	return tx.Bucket(ConfigBucket).Put(ConfigModified, modified)
}

// PutSyncRecord stores the record of the latest successful fetch
func (s *Storage) PutSyncRecord(rec SyncRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode sync record: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(SyncBucket)
		if bucket == nil {
			return ErrNotInitialized
		}
		if err := bucket.Put(lastSyncKey, data); err != nil {
			return err
		}
		return touch(tx)
	})
}

// GetSyncRecord returns the latest sync record, or nil if none was stored
func (s *Storage) GetSyncRecord() (*SyncRecord, error) {
	var rec *SyncRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(SyncBucket)
		if bucket == nil {
			return nil
		}
		data := bucket.Get(lastSyncKey)
		if data == nil {
			return nil
		}
		rec = &SyncRecord{}
		return json.Unmarshal(data, rec)
	})
	return rec, err
}

// PutListing replaces the stored listing of an app directory
func (s *Storage) PutListing(appDir string, listing *Listing) error {
	data, err := json.Marshal(listing)
	if err != nil {
		return fmt.Errorf("failed to encode listing: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(ListingBucket)
		if bucket == nil {
			return ErrNotInitialized
		}
		if err := bucket.Put([]byte(appDir), data); err != nil {
			return err
		}
		return touch(tx)
	})
}

// GetListing returns the stored listing of an app directory. A directory
// never recorded yields an empty listing.
func (s *Storage) GetListing(appDir string) (*Listing, error) {
	listing := NewListing()
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(ListingBucket)
		if bucket == nil {
			return nil
		}
		data := bucket.Get([]byte(appDir))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, listing)
	})
	return listing, err
}

// Compact creates a compacted copy of the database, removing unused space.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	if err := bolt.Compact(dst, s.db, 0); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: s.timeout})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
