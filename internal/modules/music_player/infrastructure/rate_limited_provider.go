package infrastructure

import (
	"context"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
	"golang.org/x/time/rate"
)

// limiterPruneThreshold is the number of tracked requesters above which
// idle limiters are dropped.
const limiterPruneThreshold = 1024

// RateLimitedProvider throttles searches per requester. A search that cannot
// get a token before ctx ends yields an empty result.
type RateLimitedProvider struct {
	provider ports.TrackProvider
	limit    rate.Limit
	burst    int

	mu       sync.Mutex
	limiters map[snowflake.ID]*rate.Limiter
}

// NewRateLimitedProvider wraps provider with a per-requester token bucket.
func NewRateLimitedProvider(provider ports.TrackProvider, perSecond float64, burst int) *RateLimitedProvider {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedProvider{
		provider: provider,
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[snowflake.ID]*rate.Limiter),
	}
}

// Search waits for the requester's limiter and delegates.
func (p *RateLimitedProvider) Search(
	ctx context.Context,
	query *domain.SearchQuery,
	requester domain.Requester,
) domain.SearchResult {
	if err := p.limiter(requester.ID).Wait(ctx); err != nil {
		slog.Warn("search rate limited", "requester", requester.ID, "error", err)
		return domain.EmptySearchResult()
	}
	return p.provider.Search(ctx, query, requester)
}

func (p *RateLimitedProvider) limiter(id snowflake.ID) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if limiter, ok := p.limiters[id]; ok {
		return limiter
	}

	if len(p.limiters) >= limiterPruneThreshold {
		for key, limiter := range p.limiters {
			if limiter.Tokens() >= float64(p.burst) {
				delete(p.limiters, key)
			}
		}
	}

	limiter := rate.NewLimiter(p.limit, p.burst)
	p.limiters[id] = limiter
	return limiter
}

// rateLimitedFactory is a SinkFactory whose provider is throttled.
type rateLimitedFactory struct {
	ports.SinkFactory
	provider *RateLimitedProvider
}

// WithSearchLimit wraps factory so that its provider is throttled per
// requester. A non-positive rate disables throttling.
func WithSearchLimit(factory ports.SinkFactory, perSecond float64, burst int) ports.SinkFactory {
	if perSecond <= 0 {
		return factory
	}
	return &rateLimitedFactory{
		SinkFactory: factory,
		provider:    NewRateLimitedProvider(factory.Provider(), perSecond, burst),
	}
}

func (f *rateLimitedFactory) Provider() ports.TrackProvider {
	return f.provider
}

// Ensure RateLimitedProvider implements ports.TrackProvider.
var _ ports.TrackProvider = (*RateLimitedProvider)(nil)
