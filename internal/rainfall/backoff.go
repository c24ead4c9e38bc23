package rainfall

import (
	"math"
	"time"
)

// BackoffConfig controls exponential backoff between subscription restarts.
type BackoffConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Delay returns the wait before restart number attempt (0-based).
func (b BackoffConfig) Delay(attempt int) time.Duration {
	initial := b.InitialInterval
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	if attempt < 0 {
		attempt = 0
	}

	delay := time.Duration(float64(initial) * math.Pow(2, float64(attempt)))
	if b.MaxInterval > 0 && (delay > b.MaxInterval || delay <= 0) {
		delay = b.MaxInterval
	}
	return delay
}
