package decay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr(v uint64) *uint64 { return &v }

func TestAgeBased_SelectsOldestFirstUpToMaxItems(t *testing.T) {
	now := time.Now()
	engrams := []EngramSnapshot{
		{ID: "new", Timestamp: now.Add(-1 * time.Hour)},
		{ID: "old", Timestamp: now.Add(-100 * time.Hour)},
		{ID: "mid", Timestamp: now.Add(-50 * time.Hour)},
	}

	got := AgeBased{MaxAgeSeconds: 10 * 3600, MaxItems: 2}.Select(now, engrams)
	assert.Equal(t, []string{"old", "mid"}, got)
}

func TestImportanceThreshold_SelectsLowestFirst(t *testing.T) {
	engrams := []EngramSnapshot{
		{ID: "a", Importance: 0.1},
		{ID: "b", Importance: 0.05},
		{ID: "c", Importance: 0.9},
	}

	got := ImportanceThreshold{MaxImportance: 0.2}.Select(engrams)
	assert.Equal(t, []string{"b", "a"}, got)
}

func TestAccessFrequency_RequiresBothLowAccessAndIdle(t *testing.T) {
	now := time.Now()
	engrams := []EngramSnapshot{
		{ID: "rarely-idle", AccessCount: 1, LastAccessed: now.Add(-100 * time.Hour)},
		{ID: "rarely-fresh", AccessCount: 1, LastAccessed: now.Add(-1 * time.Hour)},
		{ID: "frequent-idle", AccessCount: 500, LastAccessed: now.Add(-100 * time.Hour)},
	}

	got := AccessFrequency{MaxAccessCount: 5, MinIdleSeconds: 10 * 3600}.Select(now, engrams)
	assert.Equal(t, []string{"rarely-idle"}, got)
}

func TestHybrid_IntersectsAllThreeCriteria(t *testing.T) {
	now := time.Now()
	engrams := []EngramSnapshot{
		{ID: "qualifies", Importance: 0.1, AccessCount: 1, LastAccessed: now.Add(-100 * time.Hour)},
		{ID: "too-important", Importance: 0.9, AccessCount: 1, LastAccessed: now.Add(-100 * time.Hour)},
		{ID: "too-frequent", Importance: 0.1, AccessCount: 500, LastAccessed: now.Add(-100 * time.Hour)},
		{ID: "too-fresh", Importance: 0.1, AccessCount: 1, LastAccessed: now.Add(-1 * time.Hour)},
	}

	got := Hybrid{MaxImportance: 0.2, MaxAccessCount: 5, MinIdleSeconds: 10 * 3600}.Select(now, engrams)
	assert.Equal(t, []string{"qualifies"}, got)
}

func TestTTLExpiration_SelectsOnlyExpired(t *testing.T) {
	now := time.Now()
	engrams := []EngramSnapshot{
		{ID: "no-ttl", LastAccessed: now.Add(-1000 * time.Hour), TTLSeconds: nil},
		{ID: "expired", LastAccessed: now.Add(-10 * time.Second), TTLSeconds: ptr(2)},
		{ID: "not-yet", LastAccessed: now, TTLSeconds: ptr(3600)},
	}

	got := TTLExpiration{}.Select(now, engrams)
	assert.Equal(t, []string{"expired"}, got)
}

func TestForgettingPolicies_RepeatedPassShrinksCandidateSet(t *testing.T) {
	engrams := []EngramSnapshot{
		{ID: "a", Importance: 0.1},
		{ID: "b", Importance: 0.05},
	}
	policy := ImportanceThreshold{MaxImportance: 0.2, MaxItems: 1}

	firstPass := policy.Select(engrams)
	assert.Equal(t, []string{"b"}, firstPass)

	remaining := []EngramSnapshot{engrams[0]} // caller removed "b" after the first pass
	secondPass := policy.Select(remaining)
	assert.Equal(t, []string{"a"}, secondPass)
}
