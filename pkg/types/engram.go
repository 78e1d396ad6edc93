package types

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Engram is the atomic unit of stored knowledge: content plus confidence,
// source, timestamps, importance, access statistics, TTL, and metadata.
type Engram struct {
	ID            string                 `json:"id"`
	Content       string                 `json:"content"`
	Source        string                 `json:"source"`
	Confidence    float64                `json:"confidence"`
	Timestamp     time.Time              `json:"timestamp"`
	Importance    float64                `json:"importance"`
	AccessCount   uint64                 `json:"access_count"`
	LastAccessed  time.Time              `json:"last_accessed"`
	TTLSeconds    *uint64                `json:"ttl_seconds,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// NewEngram constructs an Engram with a fresh UUID and defaulted fields,
// clamping confidence/importance into [0,1] per the invariants.
func NewEngram(content, source string, confidence float64) *Engram {
	now := time.Now().UTC()
	e := &Engram{
		ID:           uuid.NewString(),
		Content:      content,
		Source:       source,
		Confidence:   clamp01(confidence),
		Timestamp:    now,
		Importance:   0.5,
		AccessCount:  0,
		LastAccessed: now,
	}
	return e
}

// Validate checks that content and source are non-empty and that
// confidence and importance fall within [0,1].
func (e *Engram) Validate() error {
	if e.Content == "" {
		return InvalidInput("content", "must not be empty")
	}
	if e.Source == "" {
		return InvalidInput("source", "must not be empty")
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return InvalidInput("confidence", "must be in [0,1]")
	}
	if e.Importance < 0 || e.Importance > 1 {
		return InvalidInput("importance", "must be in [0,1]")
	}
	if e.LastAccessed.Before(e.Timestamp.Add(-time.Microsecond)) {
		return InvalidInput("last_accessed", "must not precede timestamp")
	}
	return nil
}

// Clamp forces Confidence and Importance into [0,1], used defensively
// before every persist so every stored record carries values in range.
func (e *Engram) Clamp() {
	e.Confidence = clamp01(e.Confidence)
	e.Importance = clamp01(e.Importance)
}

// Expired reports whether the engram has outlived its TTL relative to now.
// An engram with no TTL never expires.
func (e *Engram) Expired(now time.Time) bool {
	if e.TTLSeconds == nil {
		return false
	}
	deadline := e.LastAccessed.Add(time.Duration(*e.TTLSeconds) * time.Second)
	return !now.Before(deadline)
}

// CanonicalJSON renders the engram as deterministic JSON: object keys are
// fixed by struct tag order already, but map-valued Metadata needs stable
// key ordering for reproducible hashing/equality checks in tests.
func (e *Engram) CanonicalJSON() ([]byte, error) {
	clone := *e
	clone.Metadata = canonicalizeMap(e.Metadata)
	b, err := json.Marshal(&clone)
	if err != nil {
		return nil, SerializationError("engram marshal failed", err)
	}
	return b, nil
}

// canonicalizeMap returns a copy of m with no semantic reordering needed
// (Go's encoding/json already sorts map keys), retained as a hook point for
// future canonicalization rules (e.g. stripping null values).
func canonicalizeMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// MetadataValueString renders a metadata value to its canonical string form
// (JSON) for indexing.
func MetadataValueString(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// SortedMetadataKeys returns the metadata keys of e in sorted order, used
// by the metadata index when indexing "by key alone".
func (e *Engram) SortedMetadataKeys() []string {
	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
