package http

import "golang.org/x/time/rate"

// inboundLimiter bounds how many frames a single connection may send.
type inboundLimiter struct {
	limiter *rate.Limiter
}

// newInboundLimiter returns a limiter allowing perSecond frames with the
// given burst. perSecond <= 0 disables limiting.
func newInboundLimiter(perSecond float64, burst int) *inboundLimiter {
	if perSecond <= 0 {
		return &inboundLimiter{}
	}
	if burst < 1 {
		burst = 1
	}
	return &inboundLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (l *inboundLimiter) allow() bool {
	if l == nil || l.limiter == nil {
		return true
	}
	return l.limiter.Allow()
}
