package retry

import (
	"context"
)

// Action is a function to be performed in a retriable manner.
type Action func() error

// Retrier retries the provided action.
type Retrier interface {
	Retry(ctx context.Context, action Action) (uint, error)
}

type retrier struct {
	strategies []Strategy
}

// NewRetrier returns a Retrier that will retry actions based off of the
// provided strategies. If no strategies are provided, the retrier acts
// as a tight-loop, retrying until no error is returned from the action
// or the context is done.
func NewRetrier(strategies ...Strategy) Retrier {
	return &retrier{
		strategies: strategies,
	}
}

// Retry runs action under the retrier's strategies. Retrying stops as soon as
// ctx is done, ahead of any delaying strategy.
func (r *retrier) Retry(ctx context.Context, action Action) (uint, error) {
	strategies := make([]Strategy, 0, len(r.strategies)+1)
	strategies = append(strategies, ContextAlive(ctx))
	strategies = append(strategies, r.strategies...)
	return Retry(action, strategies...)
}

// Retry runs action until it succeeds or a strategy declines another attempt,
// returning the number of attempts made. Strategies run in order after every
// failure, so sleeping strategies belong last.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	for i := uint(1); ; i++ {
		err := action()
		if err == nil {
			return i, nil
		}

		for _, s := range strategies {
			if shouldRetry := s(i, err); !shouldRetry {
				return i, err
			}
		}
	}
}
