// Package ledger holds the in-memory account table served by the finance server.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/danmuck/netbank/internal/pool"
	"github.com/rs/zerolog/log"
)

// InterestFactor is applied to every strictly positive balance on accrual.
const InterestFactor = 1.01

var (
	ErrInvalidAccount = errors.New("ledger: invalid account id")
	ErrInvalidWorkers = errors.New("ledger: invalid worker count")
)

// Account is one independently locked balance. Balance is only touched under mu.
type Account struct {
	id     int
	active atomic.Bool

	mu      sync.Mutex
	balance float64
}

func (a *Account) ID() int {
	return a.id
}

func (a *Account) Active() bool {
	return a.active.Load()
}

// Deposit adds amount and returns the new balance.
func (a *Account) Deposit(amount float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance += amount
	return a.balance
}

// Withdraw removes amount when the balance covers it. The balance is returned either way.
func (a *Account) Withdraw(amount float64) (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.balance < amount {
		return a.balance, false
	}
	a.balance -= amount
	return a.balance, true
}

func (a *Account) Balance() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

func (a *Account) accrue(factor float64) {
	a.mu.Lock()
	if a.balance > 0 {
		a.balance *= factor
	}
	a.mu.Unlock()
}

// Store is a fixed table of accounts with ids 0 through maxID inclusive.
//
// Every slot is allocated up front; first use of an id claims the slot with a
// single compare-and-swap so concurrent first references cannot both initialize it.
type Store struct {
	accounts []*Account
}

func NewStore(maxID int) *Store {
	if maxID < 0 {
		maxID = 0
	}
	accounts := make([]*Account, maxID+1)
	for i := range accounts {
		accounts[i] = &Account{id: i}
	}
	return &Store{accounts: accounts}
}

func (s *Store) MaxID() int {
	return len(s.accounts) - 1
}

// Account returns the account for id, activating it on first use.
func (s *Store) Account(id int) (*Account, error) {
	a, err := s.slot(id)
	if err != nil {
		return nil, err
	}
	if a.active.CompareAndSwap(false, true) {
		log.Debug().Int("account", id).Msg("account activated")
	}
	return a, nil
}

// Lookup returns the account for id only if it was already activated.
func (s *Store) Lookup(id int) (*Account, bool) {
	a, err := s.slot(id)
	if err != nil || !a.active.Load() {
		return nil, false
	}
	return a, true
}

func (s *Store) slot(id int) (*Account, error) {
	if id < 0 || id >= len(s.accounts) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAccount, id)
	}
	return s.accounts[id], nil
}

// EarnInterest fans one accrual task per slot across a scoped pool of workers and
// returns after every task finished. Inactive accounts are skipped. The pool never
// outnumbers the slots; the worker count actually used is returned.
func (s *Store) EarnInterest(workers int) (int, error) {
	if workers < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidWorkers, workers)
	}
	workers = min(workers, len(s.accounts))
	tasks := make([]pool.Task, 0, len(s.accounts))
	for _, a := range s.accounts {
		a := a // per-iteration copy; go directive is 1.21 (pre-loopvar semantics)
		tasks = append(tasks, func() {
			if a.active.Load() {
				a.accrue(InterestFactor)
			}
		})
	}
	return workers, pool.RunAll("ledger.interest", workers, tasks)
}

// AccountSnapshot is one active account as seen by the admin surface.
type AccountSnapshot struct {
	ID      int     `json:"id"`
	Balance float64 `json:"balance"`
}

// Snapshot lists active accounts in id order. Each balance is read under its own lock.
func (s *Store) Snapshot() []AccountSnapshot {
	var out []AccountSnapshot
	for _, a := range s.accounts {
		if a.active.Load() {
			out = append(out, AccountSnapshot{ID: a.id, Balance: a.Balance()})
		}
	}
	return out
}
