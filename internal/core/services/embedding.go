package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
	"github.com/custodia-labs/docchat/internal/metrics"
)

// Ensure EmbeddingGateway implements the interface.
var _ driven.EmbeddingService = (*EmbeddingGateway)(nil)

// Gateway defaults applied when settings leave a field at zero.
const (
	DefaultEmbeddingBatchSize   = 64
	DefaultEmbeddingConcurrency = 4
	DefaultEmbeddingTimeout     = 30 * time.Second
)

// EmbeddingGatewayConfig configures batching, concurrency and limits.
type EmbeddingGatewayConfig struct {
	// BatchSize is the maximum number of texts per provider call.
	BatchSize int

	// Concurrency bounds the number of provider calls in flight.
	Concurrency int

	// RequestsPerSecond limits provider calls. Zero disables limiting.
	RequestsPerSecond float64

	// Timeout bounds each provider call.
	Timeout time.Duration
}

// EmbeddingGatewayConfigFrom builds a gateway config from settings.
func EmbeddingGatewayConfigFrom(emb domain.EmbeddingSettings, timeouts domain.TimeoutSettings) EmbeddingGatewayConfig {
	return EmbeddingGatewayConfig{
		BatchSize:         emb.BatchSize,
		Concurrency:       emb.Concurrency,
		RequestsPerSecond: emb.RequestsPerSecond,
		Timeout:           timeouts.Embedding,
	}
}

// EmbeddingGateway wraps an embedding provider. It splits batches, runs
// sub-batches concurrently while keeping input order, applies a per-call
// timeout and a rate limit, and rejects malformed provider output.
//
// Every failure wraps domain.ErrEmbeddingFailure. There is no partial
// result and no placeholder vector.
type EmbeddingGateway struct {
	provider driven.EmbeddingService
	cfg      EmbeddingGatewayConfig
	limiter  *rate.Limiter
}

// NewEmbeddingGateway wraps provider with cfg, filling zero fields with defaults.
func NewEmbeddingGateway(provider driven.EmbeddingService, cfg EmbeddingGatewayConfig) *EmbeddingGateway {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultEmbeddingBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultEmbeddingConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultEmbeddingTimeout
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &EmbeddingGateway{
		provider: provider,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, cfg.Concurrency),
	}
}

// Embed generates the embedding of a single text.
func (g *EmbeddingGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per text in input order.
func (g *EmbeddingGateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Concurrency)

	for start := 0; start < len(texts); start += g.cfg.BatchSize {
		end := min(start+g.cfg.BatchSize, len(texts))
		eg.Go(func() error {
			vectors, err := g.call(egCtx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch [%d:%d]: %w", start, end, err)
			}
			copy(out[start:end], vectors)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		metrics.EmbeddingsFailedTotal.Add(1)
		logger.Warn("Embedding failed for %d texts: %v", len(texts), err)
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, err)
	}

	if err := checkUniformDimension(out, g.provider.Dimensions()); err != nil {
		metrics.EmbeddingsFailedTotal.Add(1)
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, err)
	}

	metrics.EmbeddingsGeneratedTotal.Add(int64(len(out)))
	return out, nil
}

// call performs one rate limited, time bounded provider request.
func (g *EmbeddingGateway) call(ctx context.Context, texts []string) ([][]float32, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	vectors, err := g.provider.EmbedBatch(callCtx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("provider returned an empty vector at %d", i)
		}
	}
	return vectors, nil
}

// checkUniformDimension requires every vector to have the same length,
// and that length to equal want when want is known.
func checkUniformDimension(vectors [][]float32, want int) error {
	if want <= 0 {
		want = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != want {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), want)
		}
	}
	return nil
}

// Dimensions returns the provider's embedding size.
func (g *EmbeddingGateway) Dimensions() int {
	return g.provider.Dimensions()
}

// ModelName returns the provider's model name.
func (g *EmbeddingGateway) ModelName() string {
	return g.provider.ModelName()
}

// Ping checks the provider within the call timeout.
func (g *EmbeddingGateway) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()
	return g.provider.Ping(ctx)
}

// Close releases the provider.
func (g *EmbeddingGateway) Close() error {
	return g.provider.Close()
}
