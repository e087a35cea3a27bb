package gateway

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/OPSDECK/opsdeck/internal/models"
)

// limiterPool holds one token bucket per instance, rebuilt whenever the
// instance's rate policy changes.
type limiterPool struct {
	mu       sync.Mutex
	limiters map[string]*instanceLimiter
}

type instanceLimiter struct {
	limiter *rate.Limiter
	policy  models.RateLimitConfig
}

func newLimiterPool() *limiterPool {
	return &limiterPool{limiters: make(map[string]*instanceLimiter)}
}

// allow reports whether a call against the instance conforms to its rate
// policy right now. A zero requests_per_minute disables enforcement.
func (p *limiterPool) allow(inst models.SystemInstance) bool {
	policy := inst.RateLimit
	if policy.RequestsPerMinute <= 0 {
		return true
	}

	p.mu.Lock()
	entry, ok := p.limiters[inst.InstanceID]
	if !ok || entry.policy != policy {
		burst := policy.BurstSize
		if burst <= 0 {
			burst = 1
		}
		entry = &instanceLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(policy.RequestsPerMinute)/60.0), burst),
			policy:  policy,
		}
		p.limiters[inst.InstanceID] = entry
	}
	p.mu.Unlock()

	return entry.limiter.Allow()
}
