package labs

import (
	"math"
	"math/rand"
	"time"
)

// BackoffPolicy computes the sleep before poll attempt n (0-based).
// Implementations must be safe for concurrent use unless documented
// otherwise.
type BackoffPolicy interface {
	Delay(attempt int) time.Duration
}

// ExponentialBackoff doubles the base interval every 10 attempts (capped
// at 16x), clamps the result at Cap, and adds uniform jitter in
// [0, Jitter). Jitter keeps many concurrent jobs from polling in
// lockstep.
type ExponentialBackoff struct {
	Base   time.Duration
	Cap    time.Duration
	Jitter time.Duration // max random addition, 0 disables
	Rand   *rand.Rand    // optional deterministic source for tests
}

// Delay implements BackoffPolicy.
func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	exp := math.Min(float64(attempt/10), 4)
	d := time.Duration(float64(b.Base) * math.Pow(2, exp))
	if b.Cap > 0 && d > b.Cap {
		d = b.Cap
	}
	if b.Jitter > 0 {
		r := rand.Float64()
		if b.Rand != nil {
			r = b.Rand.Float64()
		}
		d += time.Duration(r * float64(b.Jitter))
	}
	return d
}

// FixedBackoff sleeps the same interval before every attempt.
type FixedBackoff struct {
	Interval time.Duration
}

// Delay implements BackoffPolicy.
func (b FixedBackoff) Delay(int) time.Duration { return b.Interval }
