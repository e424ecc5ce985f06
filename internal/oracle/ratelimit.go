package oracle

import (
	"context"

	"github.com/Harshitk-cp/verity/internal/domain"
	"golang.org/x/time/rate"
)

// RateLimited wraps a source oracle with a token-bucket limiter, bounding the
// aggregate query rate across all interrogation workers. Waiting respects the
// caller's context, so a per-query timeout or the global deadline cuts the
// wait short.
type RateLimited struct {
	inner   domain.SourceOracle
	limiter *rate.Limiter
}

func NewRateLimited(inner domain.SourceOracle, rps float64, burst int) *RateLimited {
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Query implements domain.SourceOracle.
func (o *RateLimited) Query(ctx context.Context, text string) ([]domain.EvidenceItem, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return o.inner.Query(ctx, text)
}
