package links

import (
	"fmt"
	"time"

	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"
)

const (
	bucketName = "links"
)

// BoltCache is a Cache persisted in a BoltDB file, so item names survive restarts.
// Reads are served from memory after the first hit.
type BoltCache struct {
	db  *bbolt.DB
	mem *MemoryCache
}

// NewBoltCache opens (or creates) the cache database
func NewBoltCache(dbPath string) (*BoltCache, error) {
	// Try to open with short timeout
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open link cache (file may be locked by another process): %w", err)
	}

	// Create bucket if not exists
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	log.Info().
		Str("db_path", dbPath).
		Msg("BoltDB link cache initialized")

	return &BoltCache{db: db, mem: NewMemoryCache()}, nil
}

// Get implements Cache
func (c *BoltCache) Get(kind domain.LinkKind, id string) (string, bool) {
	if text, ok := c.mem.Get(kind, id); ok {
		return text, true
	}

	var text string
	var found bool
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		val := b.Get([]byte(makeKey(kind, id)))
		if val == nil {
			return nil
		}
		// val is only valid inside the transaction
		text = string(val)
		found = true
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("link_id", id).Msg("Link cache read failed")
		return "", false
	}
	if found {
		_ = c.mem.Put(kind, id, text)
	}
	return text, found
}

// Put implements Cache
func (c *BoltCache) Put(kind domain.LinkKind, id, text string) error {
	_ = c.mem.Put(kind, id, text)

	err := c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(makeKey(kind, id)), []byte(text))
	})
	if err != nil {
		return fmt.Errorf("failed to store link: %w", err)
	}

	log.Debug().
		Str("kind", kind.String()).
		Str("link_id", id).
		Str("text", text).
		Msg("Link cached")

	return nil
}

// List returns all stored entries keyed by "kind:id"
func (c *BoltCache) List() (map[string]string, error) {
	result := make(map[string]string)

	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.ForEach(func(k, v []byte) error {
			result[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	return result, nil
}

// Close closes the BoltDB database
func (c *BoltCache) Close() error {
	log.Info().Msg("Closing BoltDB link cache")
	return c.db.Close()
}
