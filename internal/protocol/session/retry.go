package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryState is one state of the bounded retry machine.
type RetryState int

const (
	StateAttempting RetryState = iota
	StateAwaitingConfirmation
	StateSucceeded
	StateExhausted
	StateDeclined
	StateAborted
)

func (s RetryState) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	case StateDeclined:
		return "declined"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the machine stops in s.
func (s RetryState) Terminal() bool {
	return s == StateSucceeded || s == StateExhausted || s == StateDeclined || s == StateAborted
}

var ErrNoConfirmer = errors.New("session: retry confirmer not configured")

// Confirmer asks whether another attempt should be made. Implementations block on user
// input and should return promptly once ctx is done.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysRetry confirms every retry without prompting.
var AlwaysRetry = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

// Operation performs exactly one request/response exchange.
type Operation func(ctx context.Context) error

// RetryResult is the terminal outcome of Retrier.Run.
type RetryResult struct {
	State    RetryState
	Attempts int
	Err      error
}

// Retrier runs an Operation up to MaxAttempts times.
//
// The context is the cancellation token: it is checked before every attempt, before every
// confirmation prompt, and after every prompt returns. Cancellation moves the machine to
// StateAborted without running another attempt.
type Retrier struct {
	MaxAttempts int
	Backoff     BackoffConfig
	Confirm     Confirmer
	// Notify observes every state transition; nil disables.
	Notify func(name string, state RetryState, attempt int)

	rng *rand.Rand
}

// NewRetrier builds a Retrier from cfg.
func NewRetrier(cfg Config, confirm Confirmer) *Retrier {
	cfg = cfg.WithDefaults()
	return &Retrier{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     cfg.Backoff,
		Confirm:     confirm,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run drives the machine to a terminal state.
func (r *Retrier) Run(ctx context.Context, name string, op Operation) RetryResult {
	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	state := StateAttempting
	attempt := 0
	var lastErr error

	for !state.Terminal() {
		switch state {
		case StateAttempting:
			if ctx.Err() != nil {
				state = StateAborted
				break
			}
			attempt++
			r.notify(name, state, attempt)
			lastErr = op(ctx)
			switch {
			case lastErr == nil:
				state = StateSucceeded
			case ctx.Err() != nil:
				state = StateAborted
			case attempt >= maxAttempts:
				state = StateExhausted
			default:
				state = StateAwaitingConfirmation
			}
			log.Debug().
				Str("operation", name).
				Int("attempt", attempt).
				Str("next", state.String()).
				AnErr("err", lastErr).
				Msg("session.retry attempt finished")

		case StateAwaitingConfirmation:
			r.notify(name, state, attempt)
			if r.Confirm == nil {
				lastErr = errors.Join(lastErr, ErrNoConfirmer)
				state = StateDeclined
				break
			}
			ok, err := r.Confirm.Confirm(ctx, fmt.Sprintf("Retry %s?", name))
			switch {
			case ctx.Err() != nil:
				state = StateAborted
			case err != nil:
				lastErr = errors.Join(lastErr, err)
				state = StateDeclined
			case !ok:
				state = StateDeclined
			default:
				if !r.wait(ctx, attempt) {
					state = StateAborted
				} else {
					state = StateAttempting
				}
			}
		}
	}

	r.notify(name, state, attempt)
	if state == StateAborted && lastErr == nil {
		lastErr = ctx.Err()
	}
	return RetryResult{State: state, Attempts: attempt, Err: lastErr}
}

func (r *Retrier) wait(ctx context.Context, attempt int) bool {
	delay := r.Backoff.Delay(attempt, r.rng)
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (r *Retrier) notify(name string, state RetryState, attempt int) {
	if r.Notify != nil {
		r.Notify(name, state, attempt)
	}
}
