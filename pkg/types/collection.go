package types

import "github.com/google/uuid"

// Collection is a named set of engrams.
type Collection struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	EngramIDs   []string               `json:"engram_ids"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewCollection constructs a Collection with a fresh UUID.
func NewCollection(name, description string) *Collection {
	return &Collection{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		EngramIDs:   []string{},
	}
}

// Validate checks that the collection has a name.
func (c *Collection) Validate() error {
	if c.Name == "" {
		return InvalidInput("name", "must not be empty")
	}
	return nil
}

// AddEngram adds id to the collection if not already present, keeping
// membership free of duplicates.
func (c *Collection) AddEngram(id string) {
	for _, existing := range c.EngramIDs {
		if existing == id {
			return
		}
	}
	c.EngramIDs = append(c.EngramIDs, id)
}

// RemoveEngram removes id from the collection's membership, if present.
func (c *Collection) RemoveEngram(id string) {
	out := c.EngramIDs[:0]
	for _, existing := range c.EngramIDs {
		if existing != id {
			out = append(out, existing)
		}
	}
	c.EngramIDs = out
}

// HasEngram reports whether id is a member of the collection.
func (c *Collection) HasEngram(id string) bool {
	for _, existing := range c.EngramIDs {
		if existing == id {
			return true
		}
	}
	return false
}

// Agent is a named actor with capabilities and an advisory set of
// accessible collections. Access control is advisory only — the core
// enforces nothing from it.
type Agent struct {
	ID                   string                 `json:"id"`
	Name                 string                 `json:"name"`
	Description          string                 `json:"description"`
	Capabilities         []string               `json:"capabilities"`
	AccessibleCollections []string              `json:"accessible_collections"`
	Metadata             map[string]interface{} `json:"metadata,omitempty"`
}

// NewAgent constructs an Agent with a fresh UUID.
func NewAgent(name, description string) *Agent {
	return &Agent{
		ID:                    uuid.NewString(),
		Name:                  name,
		Description:           description,
		Capabilities:          []string{},
		AccessibleCollections: []string{},
	}
}

// Validate checks that the agent has a name.
func (a *Agent) Validate() error {
	if a.Name == "" {
		return InvalidInput("name", "must not be empty")
	}
	return nil
}

// GrantAccess adds collectionID to the agent's advisory access set.
func (a *Agent) GrantAccess(collectionID string) {
	for _, existing := range a.AccessibleCollections {
		if existing == collectionID {
			return
		}
	}
	a.AccessibleCollections = append(a.AccessibleCollections, collectionID)
}

// RevokeAccess removes collectionID from the agent's advisory access set.
func (a *Agent) RevokeAccess(collectionID string) {
	out := a.AccessibleCollections[:0]
	for _, existing := range a.AccessibleCollections {
		if existing != collectionID {
			out = append(out, existing)
		}
	}
	a.AccessibleCollections = out
}

// Context is a named set of engrams and agents used by callers to scope
// collaboration.
type Context struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	EngramIDs   []string               `json:"engram_ids"`
	AgentIDs    []string               `json:"agent_ids"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewContext constructs a Context with a fresh UUID.
func NewContext(name, description string) *Context {
	return &Context{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		EngramIDs:   []string{},
		AgentIDs:    []string{},
	}
}

// Validate checks that the context has a name.
func (c *Context) Validate() error {
	if c.Name == "" {
		return InvalidInput("name", "must not be empty")
	}
	return nil
}

// AddAgent adds agentID to the context's participant set if not present.
func (c *Context) AddAgent(agentID string) {
	for _, existing := range c.AgentIDs {
		if existing == agentID {
			return
		}
	}
	c.AgentIDs = append(c.AgentIDs, agentID)
}

// RemoveAgent removes agentID from the context's participant set.
func (c *Context) RemoveAgent(agentID string) {
	out := c.AgentIDs[:0]
	for _, existing := range c.AgentIDs {
		if existing != agentID {
			out = append(out, existing)
		}
	}
	c.AgentIDs = out
}

// AddEngram adds engramID to the context's engram set if not present.
func (c *Context) AddEngram(engramID string) {
	for _, existing := range c.EngramIDs {
		if existing == engramID {
			return
		}
	}
	c.EngramIDs = append(c.EngramIDs, engramID)
}

// RemoveEngram removes engramID from the context's engram set.
func (c *Context) RemoveEngram(engramID string) {
	out := c.EngramIDs[:0]
	for _, existing := range c.EngramIDs {
		if existing != engramID {
			out = append(out, existing)
		}
	}
	c.EngramIDs = out
}
