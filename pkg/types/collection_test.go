package types_test

import (
	"testing"

	"github.com/engramai/engramlite/pkg/types"
)

func TestCollection_AddEngram_Dedupes(t *testing.T) {
	c := types.NewCollection("weather", "")
	c.AddEngram("a")
	c.AddEngram("a")
	c.AddEngram("b")

	if len(c.EngramIDs) != 2 {
		t.Fatalf("EngramIDs = %v, want 2 unique entries", c.EngramIDs)
	}
}

func TestCollection_RemoveEngram(t *testing.T) {
	c := types.NewCollection("weather", "")
	c.AddEngram("a")
	c.AddEngram("b")
	c.RemoveEngram("a")

	if c.HasEngram("a") {
		t.Error("expected a to be removed")
	}
	if !c.HasEngram("b") {
		t.Error("expected b to remain")
	}
}

func TestAgent_GrantRevokeAccess(t *testing.T) {
	a := types.NewAgent("researcher", "")
	a.GrantAccess("col-1")
	a.GrantAccess("col-1")
	if len(a.AccessibleCollections) != 1 {
		t.Fatalf("expected deduped access set, got %v", a.AccessibleCollections)
	}

	a.RevokeAccess("col-1")
	if len(a.AccessibleCollections) != 0 {
		t.Fatalf("expected access revoked, got %v", a.AccessibleCollections)
	}
}

func TestContext_Membership(t *testing.T) {
	c := types.NewContext("investigation", "")
	c.AddAgent("agent-1")
	c.AddEngram("engram-1")

	if len(c.AgentIDs) != 1 || len(c.EngramIDs) != 1 {
		t.Fatalf("expected one agent and one engram, got %+v", c)
	}

	c.RemoveAgent("agent-1")
	c.RemoveEngram("engram-1")
	if len(c.AgentIDs) != 0 || len(c.EngramIDs) != 0 {
		t.Fatalf("expected memberships removed, got %+v", c)
	}
}
