package ledger

import (
	"fmt"
	"math"

	"github.com/danmuck/netbank/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	MsgInvalidAccount    = "Invalid account ID"
	MsgDeposit           = "Deposit successful"
	MsgWithdraw          = "Withdrawal successful"
	MsgInsufficientFunds = "Insufficient funds"
	MsgBalance           = "View balance successful"
	MsgInterest          = "Interest accrual successful"
	msgInterestFailed    = "Interest accrual failed: "
)

// Handler answers finance requests against a Store.
type Handler struct {
	store   *Store
	workers int
	log     zerolog.Logger
}

// NewHandler uses workers for interest fan-out unless a request overrides it.
func NewHandler(store *Store, workers int) *Handler {
	return &Handler{
		store:   store,
		workers: workers,
		log:     log.Logger.With().Str("component", "ledger").Logger(),
	}
}

func (h *Handler) Store() *Store {
	return h.store
}

func (h *Handler) Serve(_ string, req protocol.Request) protocol.Response {
	switch req.Kind {
	case protocol.KindEarnInterest:
		return h.earnInterest(req)
	case protocol.KindDeposit, protocol.KindWithdraw, protocol.KindBalance:
	default:
		return protocol.Unsupported()
	}

	acct, err := h.store.Account(req.SubjectID)
	if err != nil {
		return protocol.Failure(MsgInvalidAccount)
	}

	switch req.Kind {
	case protocol.KindDeposit:
		return protocol.Response{OK: true, Balance: acct.Deposit(req.Amount), Message: MsgDeposit}
	case protocol.KindWithdraw:
		balance, ok := acct.Withdraw(req.Amount)
		if !ok {
			return protocol.Failure(MsgInsufficientFunds)
		}
		return protocol.Response{OK: true, Balance: balance, Message: MsgWithdraw}
	default:
		return protocol.Response{OK: true, Balance: acct.Balance(), Message: MsgBalance}
	}
}

func (h *Handler) earnInterest(req protocol.Request) protocol.Response {
	if _, err := h.store.Account(req.SubjectID); err != nil {
		return protocol.Failure(MsgInvalidAccount)
	}
	workers, err := h.interestWorkers(req.Amount)
	if err == nil {
		workers, err = h.store.EarnInterest(workers)
	}
	if err != nil {
		h.log.Warn().Err(err).Float64("requested", req.Amount).Msg("interest accrual failed")
		return protocol.Failure(msgInterestFailed + err.Error())
	}
	h.log.Info().Int("workers", workers).Int("subject", req.SubjectID).Msg("interest accrued")
	return protocol.Response{OK: true, Message: MsgInterest}
}

// interestWorkers resolves the amount override. Overrides above the slot count are
// capped before conversion so no float reaches int out of range.
func (h *Handler) interestWorkers(amount float64) (int, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidWorkers, amount)
	}
	if amount <= 0 {
		return h.workers, nil
	}
	return int(math.Min(amount, float64(h.store.MaxID()+1))), nil
}
