package session

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig spaces out confirmed retries.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Delay is the pause before the next attempt once failed attempts have failed.
// Jittered delays land in [0.5, 1.5) of the base delay and never exceed MaxDelay.
func (b BackoffConfig) Delay(failed int, rng *rand.Rand) time.Duration {
	if b.InitialDelay <= 0 {
		return 0
	}
	if failed < 1 {
		failed = 1
	}
	mult := math.Max(b.Multiplier, 1.0)
	delay := float64(b.InitialDelay) * math.Pow(mult, float64(failed-1))
	if b.MaxDelay > 0 {
		delay = math.Min(delay, float64(b.MaxDelay))
	}
	if b.Jitter && rng != nil {
		delay *= 0.5 + rng.Float64()
		if b.MaxDelay > 0 {
			delay = math.Min(delay, float64(b.MaxDelay))
		}
	}
	return time.Duration(delay)
}
