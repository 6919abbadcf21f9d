package util

import (
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// CircuitState represents the state of the circuit breaker
type CircuitState string

const (
	CircuitStateClosed   CircuitState = "CLOSED"
	CircuitStateOpen     CircuitState = "OPEN"
	CircuitStateHalfOpen CircuitState = "HALF_OPEN"
)

func (s CircuitState) String() string {
	return string(s)
}

// CircuitBreakerSettings tunes when the breaker opens and how long it stays open.
type CircuitBreakerSettings struct {
	Name             string
	FailureThreshold uint32
	ResetTimeout     time.Duration
	HalfOpenRequests uint32
	CountInterval    time.Duration
	// IsFailure decides which errors count against the breaker. Nil counts every error.
	IsFailure func(err error) bool
}

// CircuitBreaker guards calls to an unreliable upstream.
type CircuitBreaker struct {
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// CircuitBreakerStatus represents the circuit breaker status
type CircuitBreakerStatus struct {
	State               CircuitState
	ConsecutiveFailures uint32
	TotalFailures       uint32
}

func NewCircuitBreaker(settings CircuitBreakerSettings, logger *zap.Logger) *CircuitBreaker {
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}

	st := gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.HalfOpenRequests,
		Interval:    settings.CountInterval,
		Timeout:     settings.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("Circuit Breaker: State transition",
				zap.String("name", name),
				zap.String("from", toCircuitState(from).String()),
				zap.String("to", toCircuitState(to).String()),
			)
		},
	}
	if settings.IsFailure != nil {
		isFailure := settings.IsFailure
		st.IsSuccessful = func(err error) bool {
			return err == nil || !isFailure(err)
		}
	}

	return &CircuitBreaker{
		cb:     gobreaker.NewCircuitBreaker(st),
		logger: logger,
	}
}

// Execute runs fn unless the circuit is open. gobreaker.ErrOpenState and
// gobreaker.ErrTooManyRequests are returned untouched when the call is refused.
func (c *CircuitBreaker) Execute(fn func() (string, error)) (string, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return "", err
	}
	text, _ := result.(string)
	return text, nil
}

// IsRejection reports whether err came from the breaker refusing the call.
func IsRejection(err error) bool {
	return err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests
}

func (c *CircuitBreaker) GetStatus() CircuitBreakerStatus {
	counts := c.cb.Counts()
	return CircuitBreakerStatus{
		State:               toCircuitState(c.cb.State()),
		ConsecutiveFailures: counts.ConsecutiveFailures,
		TotalFailures:       counts.TotalFailures,
	}
}

func toCircuitState(s gobreaker.State) CircuitState {
	switch s {
	case gobreaker.StateOpen:
		return CircuitStateOpen
	case gobreaker.StateHalfOpen:
		return CircuitStateHalfOpen
	default:
		return CircuitStateClosed
	}
}
