package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/code-payments/code-idl/pkg/retry/backoff"
)

// Strategy decides whether an action should run again after attempts runs
// ending in err. Strategies may sleep.
type Strategy func(attempts uint, err error) bool

// Limit stops after maxAttempts runs, the first one included.
func Limit(maxAttempts uint) Strategy {
	return func(attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// RetriableErrors only retries errors matching one of retriableErrors,
// wrapped or not.
func RetriableErrors(retriableErrors ...error) Strategy {
	return func(_ uint, err error) bool {
		for _, e := range retriableErrors {
			if errors.Is(err, e) {
				return true
			}
		}
		return false
	}
}

// BackoffWithJitter sleeps before the next run. The delay from strategy is
// capped at maxBackoff, then moved by up to jitter (a fraction) either way.
// A jitter of 0 sleeps exactly the capped delay.
func BackoffWithJitter(strategy backoff.Strategy, maxBackoff time.Duration, jitter float64) Strategy {
	return func(attempts uint, _ error) bool {
		delay := strategy(attempts)
		if delay > maxBackoff {
			delay = maxBackoff
		}
		if jitter > 0 {
			delay = time.Duration(float64(delay) * (1 + jitter*(2*rand.Float64()-1)))
		}
		sleeperImpl.Sleep(delay)
		return true
	}
}

// ContextAlive stops retrying once ctx is done.
func ContextAlive(ctx context.Context) Strategy {
	return func(uint, error) bool {
		return ctx.Err() == nil
	}
}

type sleeper interface {
	Sleep(time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

var sleeperImpl sleeper = realSleeper{}
