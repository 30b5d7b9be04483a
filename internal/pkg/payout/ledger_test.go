package payout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onchainpaykit/paykit/app/models"
)

// memPayoutRepo is an in-memory PayoutRepository for ledger tests.
type memPayoutRepo struct {
	mu      sync.Mutex
	payouts map[string]models.Payout
	created int
}

func newMemPayoutRepo() *memPayoutRepo {
	return &memPayoutRepo{payouts: make(map[string]models.Payout)}
}

func (r *memPayoutRepo) Create(p *models.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payouts[p.ID] = *p
	r.created++
	return nil
}

func (r *memPayoutRepo) GetByID(id string) (*models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payouts[id]
	if !ok {
		return nil, errors.New("payout not found")
	}
	cp := p
	return &cp, nil
}

func (r *memPayoutRepo) GetByMerchantID(merchantID string, offset, limit int) ([]models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payout
	for _, p := range r.payouts {
		if p.MerchantID == merchantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPayoutRepo) Update(p *models.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payouts[p.ID] = *p
	return nil
}

func (r *memPayoutRepo) UpdateIfStatus(p *models.Payout, expectedStatus string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.payouts[p.ID]
	if !ok || cur.Status != expectedStatus {
		return false, nil
	}
	r.payouts[p.ID] = *p
	return true, nil
}

// scriptedExecutor returns its queued results in order.
type scriptedExecutor struct {
	mu      sync.Mutex
	results []executorResult
	calls   int
}

type executorResult struct {
	txHash string
	err    error
}

func (e *scriptedExecutor) Execute(ctx context.Context, p *models.Payout) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if len(e.results) == 0 {
		return "", errors.New("no scripted result")
	}
	res := e.results[0]
	e.results = e.results[1:]
	return res.txHash, res.err
}

func TestCreateRejectsInvalidAmountBeforePersisting(t *testing.T) {
	repo := newMemPayoutRepo()
	exec := &scriptedExecutor{}
	ledger := NewLedger(repo, exec)

	for _, amount := range []string{"", "0", "-5", "1.2345678", "nope"} {
		_, err := ledger.Create(context.Background(), "m1", amount, "0xdest", "")
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %q", amount)
	}
	assert.Equal(t, 0, repo.created, "no record may exist for a rejected amount")
	assert.Equal(t, 0, exec.calls)
}

func TestCreateCompletesOnSuccess(t *testing.T) {
	repo := newMemPayoutRepo()
	exec := &scriptedExecutor{results: []executorResult{{txHash: "0xabc"}}}
	ledger := NewLedger(repo, exec)

	p, err := ledger.Create(context.Background(), "m1", "5.00", "0xdest", "weekly payout")
	require.NoError(t, err)

	stored, err := repo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusCompleted, stored.Status)
	assert.Equal(t, "0xabc", stored.TxHash)
	assert.Equal(t, "5.00", stored.Amount)
	assert.Equal(t, uint64(5_000_000), stored.AmountMicro)
	require.NotNil(t, stored.CompletedAt)
	assert.Empty(t, stored.LastError)
}

func TestCreateRecordsFailure(t *testing.T) {
	repo := newMemPayoutRepo()
	exec := &scriptedExecutor{results: []executorResult{{err: errors.New("insufficient balance")}}}
	ledger := NewLedger(repo, exec)

	p, err := ledger.Create(context.Background(), "m1", "5.00", "0xdest", "")
	require.NoError(t, err, "an execution failure is recorded, not returned")

	stored, err := repo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusFailed, stored.Status)
	assert.Equal(t, "insufficient balance", stored.LastError)
	assert.Empty(t, stored.TxHash)
	assert.Nil(t, stored.CompletedAt)
}

func TestRetryFailedPayout(t *testing.T) {
	repo := newMemPayoutRepo()
	exec := &scriptedExecutor{results: []executorResult{
		{err: errors.New("rpc timeout")},
		{txHash: "0xdef"},
	}}
	ledger := NewLedger(repo, exec)

	p, err := ledger.Create(context.Background(), "m1", "2.50", "0xdest", "")
	require.NoError(t, err)

	retried, err := ledger.Retry(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, retried.RetryCount)

	stored, err := repo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusCompleted, stored.Status)
	assert.Equal(t, "0xdef", stored.TxHash)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Empty(t, stored.LastError, "retry clears the previous error")
}

func TestRetryCompletedPayoutIsInvalid(t *testing.T) {
	repo := newMemPayoutRepo()
	exec := &scriptedExecutor{results: []executorResult{{txHash: "0xabc"}}}
	ledger := NewLedger(repo, exec)

	p, err := ledger.Create(context.Background(), "m1", "1.00", "0xdest", "")
	require.NoError(t, err)

	_, err = ledger.Retry(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrInvalidState, "completed payouts are terminal")

	stored, err := repo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusCompleted, stored.Status)
	assert.Equal(t, "0xabc", stored.TxHash)
	assert.Equal(t, 0, stored.RetryCount)
}

func TestRetryFailuresAccumulate(t *testing.T) {
	repo := newMemPayoutRepo()
	exec := &scriptedExecutor{results: []executorResult{
		{err: errors.New("attempt 1")},
		{err: errors.New("attempt 2")},
		{err: errors.New("attempt 3")},
	}}
	ledger := NewLedger(repo, exec)

	p, err := ledger.Create(context.Background(), "m1", "1.00", "0xdest", "")
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		_, err = ledger.Retry(context.Background(), p.ID)
		require.NoError(t, err)
	}

	stored, err := repo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusFailed, stored.Status)
	assert.Equal(t, 2, stored.RetryCount)
	assert.Equal(t, "attempt 3", stored.LastError)
}

func TestLockTableDoesNotLeak(t *testing.T) {
	repo := newMemPayoutRepo()
	exec := &scriptedExecutor{results: []executorResult{
		{txHash: "0x1"}, {err: errors.New("boom")}, {txHash: "0x2"},
	}}
	ledger := NewLedger(repo, exec)

	p1, err := ledger.Create(context.Background(), "m1", "1.00", "0xdest", "")
	require.NoError(t, err)
	p2, err := ledger.Create(context.Background(), "m1", "2.00", "0xdest", "")
	require.NoError(t, err)
	_, err = ledger.Retry(context.Background(), p2.ID)
	require.NoError(t, err)
	_ = p1

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	assert.Empty(t, ledger.locks, "per-id lock entries must be reclaimed after release")
}

func TestConcurrentRetriesProduceOneCompletion(t *testing.T) {
	repo := newMemPayoutRepo()
	exec := &scriptedExecutor{results: []executorResult{
		{err: errors.New("first attempt fails")},
		{txHash: "0xonce"},
	}}
	ledger := NewLedger(repo, exec)

	p, err := ledger.Create(context.Background(), "m1", "1.00", "0xdest", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var invalid int32
	var mu sync.Mutex
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Retry(context.Background(), p.ID); errors.Is(err, ErrInvalidState) {
				mu.Lock()
				invalid++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	stored, err := repo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusCompleted, stored.Status)
	assert.Equal(t, "0xonce", stored.TxHash)
	assert.Equal(t, 1, stored.RetryCount, "exactly one retry wins")
	assert.Equal(t, int32(7), invalid, "the losers see an invalid state")
}
