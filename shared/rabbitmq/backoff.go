package rabbitmq

import "time"

const (
	defaultBaseDelay = 500 * time.Millisecond
	defaultMaxDelay  = 30 * time.Second
)

// backoffDelay returns base * 2^attempt capped at max, for attempt >= 1.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = defaultBaseDelay
	}
	if max <= 0 {
		max = defaultMaxDelay
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	return delay
}
