package storage

import (
	"bytes"
	"fmt"
	"log"

	"github.com/dgraph-io/badger/v4"
	"github.com/dustin/go-humanize"

	"github.com/engramai/engramlite/pkg/types"
)

// Store wraps a BadgerDB handle as the authoritative, durable key space.
// It never holds derived state — the in-memory graph and secondary indexes
// (internal/graph, internal/index) are rebuilt from it on open.
type Store struct {
	db   *badger.DB
	path string
}

// Options configures how the store opens its backing BadgerDB instance.
type Options struct {
	// Path is the filesystem directory for the database files.
	Path string

	// InMemory opens an ephemeral, non-persistent store (useful for tests).
	InMemory bool
}

// Open opens (creating if necessary) the KV store at opts.Path and ensures
// every column family exists. BadgerDB has no explicit family-creation
// step; the families are realized as key prefixes, so "ensuring every
// family exists" is a no-op beyond validating the options.
func Open(opts Options) (*Store, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, types.InvalidInput("path", "must not be empty for a persistent store")
		}
		badgerOpts = badger.DefaultOptions(opts.Path)
	}
	badgerOpts = badgerOpts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, types.StorageBackend("failed to open backing store", err)
	}
	return &Store{db: db, path: opts.Path}, nil
}

// Close releases the BadgerDB handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return types.StorageBackend("failed to close backing store", err)
	}
	return nil
}

// Put writes a single record under the given family/type/id, outside of any
// batch. Most callers should use Batch for multi-family atomic writes;
// this is retained for single-record convenience (e.g. metadata rows).
func (s *Store) Put(family Family, typ, id string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(family, typ, id), value)
	})
	if err != nil {
		return types.StorageBackend("put failed", err)
	}
	return nil
}

// Get retrieves a single record by family/type/id.
func (s *Store) Get(family Family, typ, id string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(family, typ, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = append([]byte(nil), val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, types.NotFound(string(family), id)
	}
	if err != nil {
		return nil, types.StorageBackend("get failed", err)
	}
	return value, nil
}

// Delete removes a single record by family/type/id, outside of any batch.
func (s *Store) Delete(family Family, typ, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(family, typ, id))
	})
	if err != nil {
		return types.StorageBackend("delete failed", err)
	}
	return nil
}

// ListIDs returns every id stored under family/type, in key order.
func (s *Store) ListIDs(family Family, typ string) ([]string, error) {
	var ids []string
	prefix := recordPrefix(family, typ)
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = false
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			ids = append(ids, string(bytes.TrimPrefix(key, prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, types.StorageBackend("list failed", err)
	}
	return ids, nil
}

// ForEach scans every record under family/type and invokes fn with the raw
// value. fn returning an error stops the scan and the error is surfaced
// (not wrapped) so callers can distinguish "skip, log a warning" handling
// from hard failures when scanning a family tolerant of corrupted records.
func (s *Store) ForEach(family Family, typ string, fn func(id string, value []byte) error) error {
	prefix := recordPrefix(family, typ)
	return s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := string(bytes.TrimPrefix(item.KeyCopy(nil), prefix))
			var value []byte
			if err := item.Value(func(val []byte) error {
				value = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return types.StorageBackend("scan failed", err)
			}
			if err := fn(id, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// RelationshipRows returns the connection ids stored under a relationship
// index view ("out", "in", or "type") for the given value.
func (s *Store) RelationshipRows(view, value string) ([]string, error) {
	var ids []string
	prefix := relationshipPrefix(view, value)
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var connID string
			item := it.Item()
			if err := item.Value(func(val []byte) error {
				connID = string(val)
				return nil
			}); err != nil {
				return err
			}
			ids = append(ids, connID)
		}
		return nil
	})
	if err != nil {
		return nil, types.StorageBackend("relationship scan failed", err)
	}
	return ids, nil
}

// Compact requests range compaction as a best-effort hint.
// BadgerDB's value-log GC is the closest analogue; it is run best-effort
// and errors (including badger.ErrNoRewrite, meaning "nothing to compact")
// are swallowed.
func (s *Store) Compact() error {
	for {
		if err := s.db.RunValueLogGC(0.5); err != nil {
			break
		}
	}
	return nil
}

// FamilyStats summarizes one column family for the Stats operation.
type FamilyStats struct {
	Family        Family
	Count         int
	ApproxBytes   int64
	HumanApproxSize string
}

// Stats returns counts and approximate on-disk size per family.
func (s *Store) Stats() ([]FamilyStats, error) {
	stats := make([]FamilyStats, 0, len(AllFamilies))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, family := range AllFamilies {
			prefix := []byte(fmt.Sprintf("%s:", family))
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.PrefetchValues = false
			iterOpts.Prefix = prefix
			it := txn.NewIterator(iterOpts)
			var count int
			var size int64
			for it.Rewind(); it.Valid(); it.Next() {
				item := it.Item()
				count++
				size += int64(item.KeySize()) + item.ValueSize()
			}
			it.Close()
			stats = append(stats, FamilyStats{
				Family:          family,
				Count:           count,
				ApproxBytes:     size,
				HumanApproxSize: humanize.Bytes(uint64(size)),
			})
		}
		return nil
	})
	if err != nil {
		return nil, types.StorageBackend("stats failed", err)
	}
	return stats, nil
}

// logf mirrors the teacher's plain log.Printf-with-prefix style for
// warnings during startup scans: corrupted records are skipped with a
// warning, missing references are logged and dropped.
func logf(format string, args ...interface{}) {
	log.Printf("storage: "+format, args...)
}
