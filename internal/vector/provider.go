package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/engramai/engramlite/pkg/types"
)

// Purpose distinguishes indexing text from query text so a prefix-requiring
// model can be given the right instruction prefix.
type Purpose int

const (
	PurposeIndex Purpose = iota
	PurposeQuery
)

func prefixFor(model types.EmbeddingModel, purpose Purpose) string {
	if !model.RequiresPrefix {
		return ""
	}
	if purpose == PurposeQuery {
		return "query: "
	}
	return "passage: "
}

// Provider is a remote capability that turns text into a vector for a
// given model. Implementations should not apply the instruction prefix;
// Service does that uniformly before calling Embed/EmbedBatch.
type Provider interface {
	Embed(ctx context.Context, model types.EmbeddingModel, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, model types.EmbeddingModel, texts []string) ([][]float32, error)
}

// ErrCircuitOpen is returned when the breaker is open and rejects a call
// before it ever reaches the provider.
var ErrCircuitOpen = errors.New("vector: embedding circuit breaker is open")

// CircuitBreakerConfig configures the breaker wrapping Provider calls.
type CircuitBreakerConfig struct {
	MaxFailures          uint32
	Timeout              time.Duration
	HalfOpenMaxSuccesses uint32
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.MaxFailures == 0 {
		c.MaxFailures = 3
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HalfOpenMaxSuccesses == 0 {
		c.HalfOpenMaxSuccesses = 2
	}
	return c
}

// CircuitBreakerMetrics tracks lifetime and consecutive call outcomes for
// the embedding provider breaker, surfaced for telemetry.
type CircuitBreakerMetrics struct {
	TotalRequests        uint64
	TotalSuccesses       uint64
	TotalFailures        uint64
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Model         types.EmbeddingModel
	Timeout       time.Duration // per-call timeout before falling back
	CacheSize     int
	RateLimit     rate.Limit // calls/sec allowed to the remote provider; 0 means unlimited
	RateBurst     int
	CircuitConfig CircuitBreakerConfig
}

// Service composes a remote Provider with an LRU cache, a rate limiter,
// and a circuit breaker, falling back to a deterministic hash embedding
// whenever the provider is absent, times out, or the breaker is open.
// Callers never see an error from Embed/EmbedBatch on the fallback path;
// EmbeddingUnavailable is recorded only as telemetry.
type Service struct {
	provider Provider
	cfg      ServiceConfig
	cache    *Cache
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker

	mu      sync.RWMutex
	metrics CircuitBreakerMetrics

	onUnavailable func(*types.EngramError)
}

// NewService builds a Service. provider may be nil, in which case every
// call uses the deterministic fallback directly.
func NewService(provider Provider, cfg ServiceConfig) (*Service, error) {
	cache, err := NewCache(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("vector: building cache: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}

	cc := cfg.CircuitConfig.withDefaults()
	settings := gobreaker.Settings{
		Name:        "embedding-provider",
		MaxRequests: cc.HalfOpenMaxSuccesses,
		Timeout:     cc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cc.MaxFailures
		},
	}

	return &Service{
		provider: provider,
		cfg:      cfg,
		cache:    cache,
		limiter:  limiter,
		breaker:  gobreaker.NewCircuitBreaker(settings),
	}, nil
}

// Model returns the embedding model this service is configured for.
func (s *Service) Model() types.EmbeddingModel {
	return s.cfg.Model
}

// OnUnavailable registers a callback invoked whenever the service falls
// back to the deterministic embedding because the provider errored, timed
// out, or the breaker was open. Intended for surfacing
// EmbeddingUnavailable as telemetry without returning an error to callers.
func (s *Service) OnUnavailable(fn func(*types.EngramError)) {
	s.onUnavailable = fn
}

// Embed returns the (possibly cached, possibly fallback) embedding for
// text under the service's configured model and the given purpose.
func (s *Service) Embed(ctx context.Context, text string, purpose Purpose) []float32 {
	model := s.cfg.Model
	prefixed := prefixFor(model, purpose) + text

	if v, ok := s.cache.Get(model.Name, prefixed); ok {
		return v
	}

	vec, err := s.callProvider(ctx, model, prefixed)
	if err != nil {
		s.reportUnavailable(err)
		vec = DeterministicEmbed(prefixed, model.Dimensions)
	}
	s.cache.Put(model.Name, prefixed, vec)
	return vec
}

// EmbedBatch embeds each text independently, reusing the cache per item.
// Items that individually fail fall back independently; a single slow or
// failing provider call does not fail the whole batch.
func (s *Service) EmbedBatch(ctx context.Context, texts []string, purpose Purpose) [][]float32 {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = s.Embed(ctx, text, purpose)
	}
	return out
}

func (s *Service) callProvider(ctx context.Context, model types.EmbeddingModel, text string) ([]float32, error) {
	if s.provider == nil {
		return nil, errors.New("vector: no embedding provider configured")
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.provider.Embed(ctx, model, text)
	})
	if err != nil {
		s.recordFailure()
		if errors.Is(err, gobreaker.ErrOpenState) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	s.recordSuccess()
	return result.([]float32), nil
}

func (s *Service) reportUnavailable(cause error) {
	if s.onUnavailable == nil {
		return
	}
	s.onUnavailable(types.EmbeddingUnavailable(cause.Error(), cause))
}

func (s *Service) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.TotalRequests++
	s.metrics.TotalSuccesses++
	s.metrics.ConsecutiveSuccesses++
	s.metrics.ConsecutiveFailures = 0
}

func (s *Service) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.TotalRequests++
	s.metrics.TotalFailures++
	s.metrics.ConsecutiveFailures++
	s.metrics.ConsecutiveSuccesses = 0
}

// Metrics returns a snapshot of the breaker's call outcomes.
func (s *Service) Metrics() CircuitBreakerMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

// HTTPProviderConfig configures an HTTPProvider.
type HTTPProviderConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// HTTPProvider calls a remote embeddings endpoint speaking the common
// {"model","input"} -> {"data":[{"embedding":[...]}]} JSON shape.
type HTTPProvider struct {
	cfg    HTTPProviderConfig
	client *http.Client
}

// NewHTTPProvider builds an HTTPProvider with a bounded HTTP client.
func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPProvider{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed requests a single embedding from the remote endpoint.
func (p *HTTPProvider) Embed(ctx context.Context, model types.EmbeddingModel, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, model, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, errors.New("vector: provider returned no embeddings")
	}
	return vecs[0], nil
}

// EmbedBatch requests embeddings for every text in one round trip.
func (p *HTTPProvider) EmbedBatch(ctx context.Context, model types.EmbeddingModel, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: model.Name, Input: texts})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vector: embedding provider returned %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		out[i] = d.Embedding
	}
	return out, nil
}
