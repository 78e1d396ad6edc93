package engine_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/engramai/engramlite/internal/config"
	"github.com/engramai/engramlite/internal/decay"
	"github.com/engramai/engramlite/internal/engine"
	"github.com/engramai/engramlite/internal/query"
	"github.com/engramai/engramlite/pkg/types"
)

func openTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cfg := config.Default()
	e, err := engine.Open(cfg, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngine_CreateConnectQuery(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	a := types.NewEngram("The sky is blue", "observation", 0.9)
	require.NoError(t, e.PutEngram(ctx, a))

	b := types.NewEngram("Rain forms when water vapor condenses", "science", 0.95)
	require.NoError(t, e.PutEngram(ctx, b))

	conn := types.NewConnection(a.ID, b.ID, "causes", 0.8)
	require.NoError(t, e.AddConnection(conn))

	source := "observation"
	results, err := e.Query(query.EngramQuery{Source: &source})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, a.ID, results[0].Engram.ID)

	minConf := 0.9
	results, err = e.Query(query.EngramQuery{MinConfidence: &minConf})
	require.NoError(t, err)
	require.Len(t, results, 2)

	incoming := e.RelationshipQuery(query.RelationshipQuery{TargetID: &b.ID})
	require.Equal(t, []string{conn.ID}, incoming)
}

func TestEngine_DeleteEngramCascades(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	a := types.NewEngram("a", "src", 0.5)
	b := types.NewEngram("b", "src", 0.5)
	require.NoError(t, e.PutEngram(ctx, a))
	require.NoError(t, e.PutEngram(ctx, b))

	conn := types.NewConnection(a.ID, b.ID, "relates", 0.5)
	require.NoError(t, e.AddConnection(conn))

	cascaded, err := e.DeleteEngram(a.ID)
	require.NoError(t, err)
	require.Equal(t, 1, cascaded)

	_, err = e.GetEngram(a.ID)
	require.Error(t, err)

	_, err = e.GetEngram(b.ID)
	require.NoError(t, err)

	require.Empty(t, e.RelationshipQuery(query.RelationshipQuery{SourceID: &a.ID}))
}

func TestEngine_CollectionExportImportRoundTrip(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	a := types.NewEngram("The sky is blue", "observation", 0.9)
	b := types.NewEngram("Rain forms when water vapor condenses", "science", 0.95)
	require.NoError(t, e.PutEngram(ctx, a))
	require.NoError(t, e.PutEngram(ctx, b))
	conn := types.NewConnection(a.ID, b.ID, "causes", 0.8)
	require.NoError(t, e.AddConnection(conn))

	col := types.NewCollection("Weather", "weather facts")
	require.NoError(t, e.CreateCollection(col))
	require.NoError(t, e.AddToCollection(a.ID, col.ID))
	require.NoError(t, e.AddToCollection(b.ID, col.ID))

	var buf bytes.Buffer
	counts, err := e.Export(&buf, col.ID)
	require.NoError(t, err)
	require.Equal(t, 2, counts.Engrams)
	require.Equal(t, 1, counts.Connections)

	fresh := openTestEngine(t)
	importCounts, err := fresh.Import(&buf)
	require.NoError(t, err)
	require.Equal(t, counts, importCounts)

	restoredA, err := fresh.GetEngram(a.ID)
	require.NoError(t, err)
	require.Equal(t, a.Content, restoredA.Content)
	require.Equal(t, a.Source, restoredA.Source)
	require.Equal(t, a.Confidence, restoredA.Confidence)

	incoming := fresh.RelationshipQuery(query.RelationshipQuery{TargetID: &b.ID})
	require.Equal(t, []string{conn.ID}, incoming)
}

func TestEngine_AgentAccessAndContextMembership(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	eng := types.NewEngram("note", "src", 0.5)
	require.NoError(t, e.PutEngram(ctx, eng))

	col := types.NewCollection("team", "")
	require.NoError(t, e.CreateCollection(col))

	agent := types.NewAgent("assistant", "")
	require.NoError(t, e.CreateAgent(agent))
	require.NoError(t, e.GrantAccess(agent.ID, col.ID))
	require.NoError(t, e.RevokeAccess(agent.ID, col.ID))

	c := types.NewContext("session", "")
	require.NoError(t, e.CreateContext(c))
	require.NoError(t, e.AddEngramToContext(c.ID, eng.ID))
	require.NoError(t, e.AddAgentToContext(c.ID, agent.ID))
	require.NoError(t, e.RemoveAgentFromContext(c.ID, agent.ID))

	cascaded, err := e.DeleteEngram(eng.ID)
	require.NoError(t, err)
	require.Equal(t, 1, cascaded)
}

func TestEngine_RecomputeImportanceAndStats(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	eng := types.NewEngram("note", "src", 0.5)
	require.NoError(t, e.PutEngram(ctx, eng))

	_, err := e.GetEngram(eng.ID)
	require.NoError(t, err)

	require.NoError(t, e.RecomputeImportance(eng.ID, decay.DefaultWeights(), 24*time.Hour))

	stats, err := e.Stats()
	require.NoError(t, err)
	require.NotEmpty(t, stats)

	require.NoError(t, e.Compact())
}
