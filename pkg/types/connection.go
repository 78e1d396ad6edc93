package types

import (
	"time"

	"github.com/google/uuid"
)

// Connection is a typed, weighted directed edge between two engrams.
type Connection struct {
	ID               string                 `json:"id"`
	SourceID         string                 `json:"source_id"`
	TargetID         string                 `json:"target_id"`
	RelationshipType string                 `json:"relationship_type"`
	Weight           float64                `json:"weight"`
	Timestamp        time.Time              `json:"timestamp"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// NewConnection constructs a Connection with a fresh UUID and clamped weight.
func NewConnection(sourceID, targetID, relType string, weight float64) *Connection {
	return &Connection{
		ID:               uuid.NewString(),
		SourceID:         sourceID,
		TargetID:         targetID,
		RelationshipType: relType,
		Weight:           clamp01(weight),
		Timestamp:        time.Now().UTC(),
	}
}

// Validate checks that source/target ids and relationship type are
// non-empty and weight falls within [0,1]. Self-loops are explicitly
// permitted.
func (c *Connection) Validate() error {
	if c.SourceID == "" {
		return InvalidInput("source_id", "must not be empty")
	}
	if c.TargetID == "" {
		return InvalidInput("target_id", "must not be empty")
	}
	if c.RelationshipType == "" {
		return InvalidInput("relationship_type", "must not be empty")
	}
	if c.Weight < 0 || c.Weight > 1 {
		return InvalidInput("weight", "must be in [0,1]")
	}
	return nil
}

// Clamp forces Weight into [0,1].
func (c *Connection) Clamp() {
	c.Weight = clamp01(c.Weight)
}
