package payout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/onchainpaykit/paykit/app/models"
	"github.com/onchainpaykit/paykit/app/repository"
)

// ErrInvalidState rejects transitions the state machine does not allow,
// most importantly retrying a completed payout.
var ErrInvalidState = errors.New("payout is not in a retryable state")

// Executor performs the actual transfer for a pending payout and returns
// the transaction reference on success.
type Executor interface {
	Execute(ctx context.Context, p *models.Payout) (txHash string, err error)
}

// Ledger drives payouts through pending -> completed | failed, with
// failed -> pending on retry. Transitions for one payout id are mutually
// exclusive; unrelated payouts never contend on a shared lock.
type Ledger struct {
	repo     repository.PayoutRepository
	executor Executor

	mu    sync.Mutex
	locks map[string]*payoutLock
}

// payoutLock is one id's mutex plus the number of holders and waiters;
// the entry is reclaimed when the last one releases it.
type payoutLock struct {
	mu   sync.Mutex
	refs int
}

// NewLedger creates a ledger over the given repository and executor.
func NewLedger(repo repository.PayoutRepository, executor Executor) *Ledger {
	return &Ledger{
		repo:     repo,
		executor: executor,
		locks:    make(map[string]*payoutLock),
	}
}

// Create validates the amount, records a pending payout, and runs one
// execution attempt. A malformed or non-positive amount fails before any
// record exists. Once the record exists, execution failures are written
// onto it instead of only being returned.
func (l *Ledger) Create(ctx context.Context, merchantID, amount, destination, description string) (*models.Payout, error) {
	micro, err := ParseAmountMicro(amount)
	if err != nil {
		return nil, err
	}

	p := &models.Payout{
		ID:          uuid.NewString(),
		MerchantID:  merchantID,
		Amount:      amount,
		AmountMicro: micro,
		Destination: destination,
		Description: description,
		Status:      models.PayoutStatusPending,
	}
	if err := l.repo.Create(p); err != nil {
		return nil, err
	}

	unlock := l.lock(p.ID)
	defer unlock()
	l.execute(ctx, p)
	return p, nil
}

// GetByID loads one payout.
func (l *Ledger) GetByID(id string) (*models.Payout, error) {
	return l.repo.GetByID(id)
}

// GetByMerchant loads a merchant's payouts, newest first.
func (l *Ledger) GetByMerchant(merchantID string, offset, limit int) ([]models.Payout, error) {
	return l.repo.GetByMerchantID(merchantID, offset, limit)
}

// Retry moves a failed payout back to pending, increments its retry
// count, and runs another execution attempt. Completed payouts are
// terminal and pending payouts already have an owner, so both fail with
// ErrInvalidState. Concurrent retries on one id serialize on the per-id
// lock and the repository's conditional update, so a single failure can
// never produce two completions.
func (l *Ledger) Retry(ctx context.Context, id string) (*models.Payout, error) {
	unlock := l.lock(id)
	defer unlock()

	p, err := l.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PayoutStatusFailed {
		return nil, ErrInvalidState
	}

	p.Status = models.PayoutStatusPending
	p.RetryCount++
	p.LastError = ""
	ok, err := l.repo.UpdateIfStatus(p, models.PayoutStatusFailed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}

	l.execute(ctx, p)
	return p, nil
}

// execute runs one attempt and records the resulting transition. The
// caller must hold the per-id lock.
func (l *Ledger) execute(ctx context.Context, p *models.Payout) {
	txHash, err := l.executor.Execute(ctx, p)
	if err != nil {
		p.Status = models.PayoutStatusFailed
		p.LastError = err.Error()
		if _, uerr := l.repo.UpdateIfStatus(p, models.PayoutStatusPending); uerr != nil {
			log.Errorf("payout %s: failed to record failure: %v", p.ID, uerr)
		}
		return
	}

	now := time.Now()
	p.Status = models.PayoutStatusCompleted
	p.TxHash = txHash
	p.CompletedAt = &now
	if _, uerr := l.repo.UpdateIfStatus(p, models.PayoutStatusPending); uerr != nil {
		log.Errorf("payout %s: failed to record completion: %v", p.ID, uerr)
	}
}

func (l *Ledger) lock(id string) func() {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &payoutLock{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
