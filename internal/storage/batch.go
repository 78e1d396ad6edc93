package storage

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/engramai/engramlite/pkg/types"
)

type batchOp struct {
	del   bool
	key   []byte
	value []byte
}

// Batch accumulates puts and deletes across families and commits them in a
// single BadgerDB transaction, so a batch commits atomically or is
// discarded entirely. A Batch is not safe for concurrent use;
// the engine's exclusive write lock serializes access to it.
type Batch struct {
	store *Store
	ops   []batchOp
}

// BeginBatch returns a fresh write handle with no operations queued.
func (s *Store) BeginBatch() *Batch {
	return &Batch{store: s}
}

// PutRecord queues an insert-or-replace of a single authoritative record.
func (b *Batch) PutRecord(family Family, typ, id string, value []byte) {
	b.ops = append(b.ops, batchOp{key: recordKey(family, typ, id), value: value})
}

// DeleteRecord queues the removal of a single authoritative record.
func (b *Batch) DeleteRecord(family Family, typ, id string) {
	b.ops = append(b.ops, batchOp{del: true, key: recordKey(family, typ, id)})
}

// PutRelationshipRow queues an insert of a denormalized relationship index
// row (one of the "out:", "in:", "type:" views). These rows must be
// written in the same atomic batch as the connection record.
func (b *Batch) PutRelationshipRow(view, value, connID string) {
	b.ops = append(b.ops, batchOp{
		key:   relationshipKey(view, value, connID),
		value: []byte(connID),
	})
}

// DeleteRelationshipRow queues the removal of a relationship index row.
func (b *Batch) DeleteRelationshipRow(view, value, connID string) {
	b.ops = append(b.ops, batchOp{del: true, key: relationshipKey(view, value, connID)})
}

// Len reports the number of queued operations.
func (b *Batch) Len() int { return len(b.ops) }

// Commit applies every queued operation atomically: either all of them
// become visible or none do. A discarded (never-committed) Batch has no
// effect on the store.
func (b *Batch) Commit() error {
	if len(b.ops) == 0 {
		return nil
	}
	err := b.store.db.Update(func(txn *badger.Txn) error {
		for _, op := range b.ops {
			if op.del {
				if err := txn.Delete(op.key); err != nil {
					return err
				}
				continue
			}
			if err := txn.Set(op.key, op.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return types.StorageBackend("batch commit failed", err)
	}
	return nil
}
