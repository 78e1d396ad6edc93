package storage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/engramai/engramlite/internal/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PutGetDelete(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put(storage.FamilyEngrams, "engram", "e1", []byte(`{"id":"e1"}`)))

	got, err := s.Get(storage.FamilyEngrams, "engram", "e1")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"e1"}`, string(got))

	require.NoError(t, s.Delete(storage.FamilyEngrams, "engram", "e1"))

	_, err = s.Get(storage.FamilyEngrams, "engram", "e1")
	require.Error(t, err)
}

func TestStore_ListIDs(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put(storage.FamilyEngrams, "engram", "e1", []byte(`{}`)))
	require.NoError(t, s.Put(storage.FamilyEngrams, "engram", "e2", []byte(`{}`)))
	require.NoError(t, s.Put(storage.FamilyConnections, "connection", "c1", []byte(`{}`)))

	ids, err := s.ListIDs(storage.FamilyEngrams, "engram")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"e1", "e2"}, ids)
}

func TestBatch_CommitIsAtomic(t *testing.T) {
	s := openTestStore(t)
	b := s.BeginBatch()
	b.PutRecord(storage.FamilyEngrams, "engram", "e1", []byte(`{}`))
	b.PutRelationshipRow("out", "e1", "c1")
	require.NoError(t, b.Commit())

	rows, err := s.RelationshipRows("out", "e1")
	require.NoError(t, err)
	require.Equal(t, []string{"c1"}, rows)
}

func TestBatch_DiscardedHasNoEffect(t *testing.T) {
	s := openTestStore(t)
	b := s.BeginBatch()
	b.PutRecord(storage.FamilyEngrams, "engram", "never-committed", []byte(`{}`))
	// b.Commit() intentionally not called.

	_, err := s.Get(storage.FamilyEngrams, "engram", "never-committed")
	require.Error(t, err)
}

func TestStore_Stats(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put(storage.FamilyEngrams, "engram", "e1", []byte(`{}`)))

	stats, err := s.Stats()
	require.NoError(t, err)
	require.Len(t, stats, len(storage.AllFamilies))

	var engramStats *storage.FamilyStats
	for i := range stats {
		if stats[i].Family == storage.FamilyEngrams {
			engramStats = &stats[i]
		}
	}
	require.NotNil(t, engramStats)
	require.Equal(t, 1, engramStats.Count)
}
