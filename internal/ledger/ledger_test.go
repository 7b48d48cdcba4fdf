package ledger

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/netbank/internal/protocol"
	"github.com/danmuck/netbank/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func deposit(id int, amount float64) protocol.Request {
	return protocol.Request{Kind: protocol.KindDeposit, SubjectID: id, Amount: amount}
}

func withdraw(id int, amount float64) protocol.Request {
	return protocol.Request{Kind: protocol.KindWithdraw, SubjectID: id, Amount: amount}
}

func balance(id int) protocol.Request {
	return protocol.Request{Kind: protocol.KindBalance, SubjectID: id}
}

func TestDepositThenOverdraw(t *testing.T) {
	testlog.Start(t)
	h := NewHandler(NewStore(100), 4)

	_, ok := h.Store().Lookup(7)
	require.False(t, ok)

	resp := h.Serve("127.0.0.1:1", deposit(7, 50))
	require.Equal(t, protocol.Response{OK: true, Balance: 50, Message: MsgDeposit}, resp)

	resp = h.Serve("127.0.0.1:1", withdraw(7, 80))
	require.False(t, resp.OK)
	require.Equal(t, MsgInsufficientFunds, resp.Message)

	resp = h.Serve("127.0.0.1:1", balance(7))
	require.Equal(t, protocol.Response{OK: true, Balance: 50, Message: MsgBalance}, resp)
}

func TestWithdrawBoundary(t *testing.T) {
	testlog.Start(t)
	h := NewHandler(NewStore(10), 2)

	h.Serve("", deposit(3, 25))
	resp := h.Serve("", withdraw(3, 25))
	require.True(t, resp.OK)
	require.Equal(t, MsgWithdraw, resp.Message)
	require.Zero(t, resp.Balance)

	resp = h.Serve("", withdraw(3, 0.01))
	require.False(t, resp.OK)

	acct, ok := h.Store().Lookup(3)
	require.True(t, ok)
	require.Zero(t, acct.Balance())
}

func TestBalanceIsIdempotent(t *testing.T) {
	testlog.Start(t)
	h := NewHandler(NewStore(10), 2)
	h.Serve("", deposit(1, 12.5))

	first := h.Serve("", balance(1))
	second := h.Serve("", balance(1))
	require.Equal(t, first, second)
}

func TestInvalidAccountID(t *testing.T) {
	testlog.Start(t)
	h := NewHandler(NewStore(5), 2)

	for _, id := range []int{-1, 6, 1000} {
		resp := h.Serve("", deposit(id, 1))
		require.Equal(t, protocol.Failure(MsgInvalidAccount), resp, "id %d", id)
	}
	resp := h.Serve("", deposit(5, 1))
	require.True(t, resp.OK)
}

func TestUnsupportedKind(t *testing.T) {
	testlog.Start(t)
	h := NewHandler(NewStore(5), 2)

	resp := h.Serve("", protocol.Request{Kind: protocol.KindUploadFile, Name: "a.txt"})
	require.Equal(t, protocol.Unsupported(), resp)
}

func TestConcurrentDepositsSum(t *testing.T) {
	testlog.Start(t)
	h := NewHandler(NewStore(10), 4)

	const (
		m      = 200
		amount = 2.5
	)
	var wg sync.WaitGroup
	for i := 0; i < m; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Serve("", deposit(4, amount))
		}()
	}
	wg.Wait()

	resp := h.Serve("", balance(4))
	require.Equal(t, float64(m)*amount, resp.Balance)
}

func TestConcurrentFirstUseActivatesOnce(t *testing.T) {
	testlog.Start(t)
	s := NewStore(3)

	var wg sync.WaitGroup
	accounts := make([]*Account, 32)
	for i := range accounts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := s.Account(2)
			require.NoError(t, err)
			a.Deposit(1)
			accounts[i] = a
		}(i)
	}
	wg.Wait()

	for _, a := range accounts {
		require.Same(t, accounts[0], a)
	}
	require.Equal(t, float64(32), accounts[0].Balance())
}

func TestEarnInterest(t *testing.T) {
	testlog.Start(t)
	h := NewHandler(NewStore(20), 4)

	for id := 1; id <= 10; id++ {
		h.Serve("", deposit(id, float64(id*100)))
	}
	h.Serve("", balance(11))

	resp := h.Serve("", protocol.Request{Kind: protocol.KindEarnInterest, Amount: 3})
	require.Equal(t, protocol.Response{OK: true, Message: MsgInterest}, resp)

	for id := 1; id <= 10; id++ {
		a, ok := h.Store().Lookup(id)
		require.True(t, ok)
		require.InDelta(t, float64(id*100)*InterestFactor, a.Balance(), 1e-9)
	}
	zero, ok := h.Store().Lookup(11)
	require.True(t, ok)
	require.Zero(t, zero.Balance())

	_, ok = h.Store().Lookup(12)
	require.False(t, ok)
}

func TestEarnInterestInvalidWorkers(t *testing.T) {
	testlog.Start(t)
	h := NewHandler(NewStore(2), 0)

	resp := h.Serve("", protocol.Request{Kind: protocol.KindEarnInterest})
	require.False(t, resp.OK)
	require.Contains(t, resp.Message, msgInterestFailed)
}

func TestEarnInterestCapsWorkersAtSlots(t *testing.T) {
	testlog.Start(t)
	s := NewStore(3)
	a, err := s.Account(2)
	require.NoError(t, err)
	a.Deposit(100)

	used, err := s.EarnInterest(2_000_000)
	require.NoError(t, err)
	require.Equal(t, 4, used)
	require.InDelta(t, 100*InterestFactor, a.Balance(), 1e-9)

	h := NewHandler(s, 2)
	start := time.Now()
	resp := h.Serve("", protocol.Request{Kind: protocol.KindEarnInterest, SubjectID: 2, Amount: 2e6})
	require.Equal(t, protocol.Response{OK: true, Message: MsgInterest}, resp)
	require.Less(t, time.Since(start), time.Second)
	require.InDelta(t, 100*InterestFactor*InterestFactor, a.Balance(), 1e-9)
}

func TestEarnInterestRejectsNonFiniteOverride(t *testing.T) {
	testlog.Start(t)
	h := NewHandler(NewStore(3), 2)
	a, err := h.Store().Account(1)
	require.NoError(t, err)
	a.Deposit(100)

	for _, amount := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		resp := h.Serve("", protocol.Request{Kind: protocol.KindEarnInterest, SubjectID: 1, Amount: amount})
		require.False(t, resp.OK, "amount %v", amount)
		require.Contains(t, resp.Message, msgInterestFailed)
	}
	require.Equal(t, 100.0, a.Balance())
}

func TestEarnInterestChecksSubject(t *testing.T) {
	testlog.Start(t)
	h := NewHandler(NewStore(3), 2)
	a, err := h.Store().Account(1)
	require.NoError(t, err)
	a.Deposit(100)

	for _, id := range []int{-1, 4} {
		resp := h.Serve("", protocol.Request{Kind: protocol.KindEarnInterest, SubjectID: id})
		require.Equal(t, protocol.Failure(MsgInvalidAccount), resp)
	}
	require.Equal(t, 100.0, a.Balance())

	resp := h.Serve("", protocol.Request{Kind: protocol.KindEarnInterest, SubjectID: 3})
	require.True(t, resp.OK)
	_, ok := h.Store().Lookup(3)
	require.True(t, ok, "caller's account is activated before accruing")
}

func TestInterestRacesDeposits(t *testing.T) {
	testlog.Start(t)
	s := NewStore(1)
	a, err := s.Account(0)
	require.NoError(t, err)
	a.Deposit(100)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := s.EarnInterest(2)
		require.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		a.Deposit(100)
	}()
	wg.Wait()

	// either order is a valid serialization
	got := a.Balance()
	require.True(t,
		math.Abs(got-(100*InterestFactor+100)) < 1e-9 || math.Abs(got-200*InterestFactor) < 1e-9,
		"balance %v", got)
}

func TestSnapshot(t *testing.T) {
	testlog.Start(t)
	s := NewStore(5)
	a, _ := s.Account(4)
	a.Deposit(3)
	b, _ := s.Account(1)
	b.Deposit(9)

	require.Equal(t, []AccountSnapshot{{ID: 1, Balance: 9}, {ID: 4, Balance: 3}}, s.Snapshot())
}
