package session

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/danmuck/netbank/internal/testutil/testlog"
)

func TestBackoffDelayNoJitter(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
	}
	cases := map[int]time.Duration{
		0: 250 * time.Millisecond,
		1: 250 * time.Millisecond,
		2: 500 * time.Millisecond,
		3: time.Second,
		6: 5 * time.Second,
	}
	for failed, want := range cases {
		if got := cfg.Delay(failed, nil); got != want {
			t.Fatalf("failed=%d got=%v want=%v", failed, got, want)
		}
	}
	if got := (BackoffConfig{}).Delay(3, nil); got != 0 {
		t.Fatalf("zero config should not wait: %v", got)
	}
}

func TestBackoffDelayJitterBounded(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     300 * time.Millisecond,
		Jitter:       true,
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		got := cfg.Delay(2, rng)
		if got < 100*time.Millisecond || got > 300*time.Millisecond {
			t.Fatalf("jittered delay out of range: %v", got)
		}
	}
}

func TestConfigWithDefaults(t *testing.T) {
	testlog.Start(t)
	cfg := Config{}.WithDefaults()
	if cfg.MaxAttempts != 3 {
		t.Fatalf("unexpected max attempts: %d", cfg.MaxAttempts)
	}
	if cfg.ConnectTimeout != 5*time.Second {
		t.Fatalf("unexpected connect timeout: %v", cfg.ConnectTimeout)
	}
	if ServerConfig().ReadTimeout != 0 {
		t.Fatalf("server config should not set an idle read deadline")
	}
}

func newTestRetrier(max int, confirm Confirmer) *Retrier {
	return &Retrier{MaxAttempts: max, Confirm: confirm}
}

func TestRetrierSucceedsFirstAttempt(t *testing.T) {
	testlog.Start(t)
	calls := 0
	res := newTestRetrier(3, AlwaysRetry).Run(context.Background(), "deposit", func(context.Context) error {
		calls++
		return nil
	})
	if res.State != StateSucceeded || res.Attempts != 1 || calls != 1 || res.Err != nil {
		t.Fatalf("unexpected result: %+v calls=%d", res, calls)
	}
}

func TestRetrierExhaustsAfterMaxAttempts(t *testing.T) {
	testlog.Start(t)
	boom := errors.New("boom")
	prompts := 0
	confirm := ConfirmFunc(func(context.Context, string) (bool, error) {
		prompts++
		return true, nil
	})
	res := newTestRetrier(3, confirm).Run(context.Background(), "withdraw", func(context.Context) error {
		return boom
	})
	if res.State != StateExhausted || res.Attempts != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !errors.Is(res.Err, boom) {
		t.Fatalf("expected last error to be boom, got %v", res.Err)
	}
	if prompts != 2 {
		t.Fatalf("expected 2 prompts between 3 attempts, got %d", prompts)
	}
}

func TestRetrierDeclined(t *testing.T) {
	testlog.Start(t)
	decline := ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })
	res := newTestRetrier(3, decline).Run(context.Background(), "login", func(context.Context) error {
		return errors.New("refused")
	})
	if res.State != StateDeclined || res.Attempts != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRetrierAbortsOnShutdownBetweenAttempts(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	confirm := ConfirmFunc(func(context.Context, string) (bool, error) {
		cancel()
		return true, nil
	})
	calls := 0
	res := newTestRetrier(5, confirm).Run(ctx, "upload", func(context.Context) error {
		calls++
		return errors.New("unavailable")
	})
	if res.State != StateAborted {
		t.Fatalf("expected aborted, got %+v", res)
	}
	if calls != 1 {
		t.Fatalf("no attempt may start after shutdown, calls=%d", calls)
	}
}

func TestRetrierAbortsBeforeFirstAttempt(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := newTestRetrier(3, AlwaysRetry).Run(ctx, "balance", func(context.Context) error {
		t.Fatalf("operation must not run")
		return nil
	})
	if res.State != StateAborted || res.Attempts != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", res.Err)
	}
}

func TestRetrierMissingConfirmerDeclines(t *testing.T) {
	testlog.Start(t)
	res := newTestRetrier(3, nil).Run(context.Background(), "logout", func(context.Context) error {
		return errors.New("down")
	})
	if res.State != StateDeclined || !errors.Is(res.Err, ErrNoConfirmer) {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRetrierNotifiesTransitions(t *testing.T) {
	testlog.Start(t)
	var seen []RetryState
	r := newTestRetrier(2, AlwaysRetry)
	r.Notify = func(_ string, s RetryState, _ int) { seen = append(seen, s) }
	attempts := 0
	r.Run(context.Background(), "interest", func(context.Context) error {
		attempts++
		if attempts == 1 {
			return errors.New("first fails")
		}
		return nil
	})
	want := []RetryState{StateAttempting, StateAwaitingConfirmation, StateAttempting, StateSucceeded}
	if len(seen) != len(want) {
		t.Fatalf("unexpected transitions: %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transition %d: got=%s want=%s", i, seen[i], want[i])
		}
	}
}
