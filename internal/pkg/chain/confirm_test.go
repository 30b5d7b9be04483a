package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
)

type fakeReceiptSource struct {
	receipts map[common.Hash]*types.Receipt
	closed   bool
}

func (f *fakeReceiptSource) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	r, ok := f.receipts[txHash]
	if !ok {
		return nil, errors.New("not found")
	}
	return r, nil
}

func (f *fakeReceiptSource) Close() { f.closed = true }

func newFakeConfirmer(src *fakeReceiptSource) *Confirmer {
	c := NewConfirmer("http://localhost:8545")
	c.dial = func(ctx context.Context, url string) (receiptSource, error) {
		return src, nil
	}
	return c
}

func TestWaitForTransactionConfirmed(t *testing.T) {
	tx := common.HexToHash("0x01")
	src := &fakeReceiptSource{receipts: map[common.Hash]*types.Receipt{
		tx: {Status: types.ReceiptStatusSuccessful},
	}}

	err := newFakeConfirmer(src).WaitForTransaction(context.Background(), tx)
	assert.NoError(t, err)
	assert.True(t, src.closed, "client must be closed after the wait")
}

func TestWaitForTransactionReverted(t *testing.T) {
	tx := common.HexToHash("0x02")
	src := &fakeReceiptSource{receipts: map[common.Hash]*types.Receipt{
		tx: {Status: types.ReceiptStatusFailed},
	}}

	err := newFakeConfirmer(src).WaitForTransaction(context.Background(), tx)
	assert.ErrorIs(t, err, ErrTransactionReverted)
}

func TestWaitForTransactionContextCancelled(t *testing.T) {
	src := &fakeReceiptSource{receipts: map[common.Hash]*types.Receipt{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newFakeConfirmer(src).WaitForTransaction(ctx, common.HexToHash("0x03"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitForTransactionDialError(t *testing.T) {
	c := NewConfirmer("http://localhost:8545")
	c.dial = func(ctx context.Context, url string) (receiptSource, error) {
		return nil, errors.New("connection refused")
	}

	err := c.WaitForTransaction(context.Background(), common.HexToHash("0x04"))
	assert.Error(t, err)
}
