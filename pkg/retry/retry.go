// Package retry runs actions repeatedly under a set of composable strategies.
package retry

// Action is a function to be performed in a retriable manner.
type Action func() error

// Retrier retries actions under a fixed set of strategies.
type Retrier interface {
	Retry(action Action) (uint, error)
}

type retrier []Strategy

// NewRetrier binds strategies for reuse. Without strategies, actions are
// retried in a tight loop until they succeed.
func NewRetrier(strategies ...Strategy) Retrier {
	return retrier(strategies)
}

func (r retrier) Retry(action Action) (uint, error) {
	return Retry(action, r...)
}

// Retry runs action until it succeeds or a strategy declines another
// attempt. It returns the number of attempts made along with the last error.
//
// Strategies run in order and stop at the first that declines, so delaying
// strategies belong last.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	for attempts := uint(1); ; attempts++ {
		err := action()
		if err == nil {
			return attempts, nil
		}
		if !allow(strategies, attempts, err) {
			return attempts, err
		}
	}
}

// Loop runs action forever until a strategy declines to continue after an
// error. Successful runs reset the attempt count seen by the strategies.
func Loop(action Action, strategies ...Strategy) error {
	var attempts uint
	for {
		err := action()
		if err == nil {
			attempts = 0
			continue
		}

		attempts++
		if !allow(strategies, attempts, err) {
			return err
		}
	}
}

func allow(strategies []Strategy, attempts uint, err error) bool {
	for _, strategy := range strategies {
		if !strategy(attempts, err) {
			return false
		}
	}
	return true
}
