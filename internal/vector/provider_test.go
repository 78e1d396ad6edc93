package vector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramai/engramlite/pkg/types"
)

type fakeProvider struct {
	vec []float32
	err error
	hit int
}

func (f *fakeProvider) Embed(ctx context.Context, model types.EmbeddingModel, text string) ([]float32, error) {
	f.hit++
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeProvider) EmbedBatch(ctx context.Context, model types.EmbeddingModel, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := f.Embed(ctx, model, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func testModel() types.EmbeddingModel {
	return types.EmbeddingModel{Name: "test-model", Dimensions: 4, Normalized: true, RequiresPrefix: false}
}

func TestService_EmbedUsesProviderAndCaches(t *testing.T) {
	fp := &fakeProvider{vec: []float32{1, 0, 0, 0}}
	svc, err := NewService(fp, ServiceConfig{Model: testModel(), CacheSize: 8, Timeout: time.Second})
	require.NoError(t, err)

	v1 := svc.Embed(context.Background(), "hello", PurposeIndex)
	v2 := svc.Embed(context.Background(), "hello", PurposeIndex)

	assert.Equal(t, []float32{1, 0, 0, 0}, v1)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, fp.hit, "second call should be served from cache")
}

func TestService_FallsBackToDeterministicOnProviderError(t *testing.T) {
	fp := &fakeProvider{err: errors.New("boom")}
	var reported *types.EngramError
	svc, err := NewService(fp, ServiceConfig{Model: testModel(), CacheSize: 8, Timeout: time.Second})
	require.NoError(t, err)
	svc.OnUnavailable(func(e *types.EngramError) { reported = e })

	v := svc.Embed(context.Background(), "hello", PurposeIndex)
	expected := DeterministicEmbed("hello", 4)

	assert.Equal(t, expected, v)
	require.NotNil(t, reported)
	assert.Equal(t, types.KindEmbeddingUnavailable, reported.Kind)
}

func TestService_NoProviderUsesFallbackDirectly(t *testing.T) {
	svc, err := NewService(nil, ServiceConfig{Model: testModel(), CacheSize: 8})
	require.NoError(t, err)

	v := svc.Embed(context.Background(), "hello", PurposeIndex)
	assert.Equal(t, DeterministicEmbed("hello", 4), v)
}

func TestService_EmbedBatch(t *testing.T) {
	fp := &fakeProvider{vec: []float32{0, 1, 0, 0}}
	svc, err := NewService(fp, ServiceConfig{Model: testModel(), CacheSize: 8, Timeout: time.Second})
	require.NoError(t, err)

	vecs := svc.EmbedBatch(context.Background(), []string{"a", "b"}, PurposeQuery)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0, 1, 0, 0}, vecs[0])
	assert.Equal(t, []float32{0, 1, 0, 0}, vecs[1])
}

func TestPrefixFor_AppliesOnlyWhenModelRequiresIt(t *testing.T) {
	withPrefix := types.EmbeddingModel{RequiresPrefix: true}
	withoutPrefix := types.EmbeddingModel{RequiresPrefix: false}

	assert.Equal(t, "passage: ", prefixFor(withPrefix, PurposeIndex))
	assert.Equal(t, "query: ", prefixFor(withPrefix, PurposeQuery))
	assert.Equal(t, "", prefixFor(withoutPrefix, PurposeIndex))
}

func TestService_CircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	fp := &fakeProvider{err: errors.New("boom")}
	svc, err := NewService(fp, ServiceConfig{
		Model:     testModel(),
		CacheSize: 8,
		Timeout:   time.Second,
		CircuitConfig: CircuitBreakerConfig{
			MaxFailures:          2,
			Timeout:              time.Minute,
			HalfOpenMaxSuccesses: 1,
		},
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		svc.Embed(context.Background(), "distinct-text-"+string(rune('a'+i)), PurposeIndex)
	}

	metrics := svc.Metrics()
	assert.GreaterOrEqual(t, metrics.TotalFailures, uint64(2))
	assert.Equal(t, 2, fp.hit, "third call should be rejected by the open breaker")
}
