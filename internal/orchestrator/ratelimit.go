package orchestrator

import "golang.org/x/time/rate"

// RateGate throttles request admission independently of the store's
// pool-saturation gate: a token-bucket limiter that rejects a request
// outright, rather than queuing it, once its burst is exhausted.
type RateGate struct {
	limiter *rate.Limiter
}

// NewRateGate builds a gate allowing up to ratePerSecond sustained
// requests with the given burst capacity.
func NewRateGate(ratePerSecond float64, burst int) *RateGate {
	return &RateGate{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Allow reports whether a request may proceed now, without blocking.
func (g *RateGate) Allow() bool {
	if g == nil {
		return true
	}
	return g.limiter.Allow()
}
