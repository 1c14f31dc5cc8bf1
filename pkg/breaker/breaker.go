package breaker

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

type State int

const (
	StateClosed State = iota + 1
	StateOpen
	StateHalfOpen
)

var ErrOpen = errors.New("breaker is open")

// Breaker is a minimal circuit breaker: Allow before the call, then
// Success or Failure with the outcome.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	maxFailures int
	openSince   time.Time
	openTimeout time.Duration
}

func New(maxFailures int, openTimeout time.Duration) *Breaker {
	return &Breaker{
		state:       StateClosed,
		maxFailures: maxFailures,
		openTimeout: openTimeout,
	}
}

func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if time.Since(b.openSince) > b.openTimeout {
			slog.Warn("Breaker: Open -> Half-Open")
			b.state = StateHalfOpen
			return nil
		}
		return ErrOpen

	case StateHalfOpen:
		return ErrOpen
	}
	return nil
}

func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		slog.Info("Breaker: Half-Open -> Closed")
		b.state = StateClosed
		b.failures = 0

	case StateClosed:
		b.failures = 0
	}
}

func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		slog.Error("Breaker: Half-Open -> Open (test failed)")
		b.state = StateOpen
		b.openSince = time.Now()

	case StateClosed:
		b.failures++

		if b.failures >= b.maxFailures {
			slog.Error("Breaker: Closed -> Open (threshold reached)")
			b.state = StateOpen
			b.openSince = time.Now()
		}
	}
}
