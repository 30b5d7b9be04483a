package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Confirmation polling is bounded: after maxConfirmAttempts at
// confirmInterval the wait fails explicitly instead of retrying forever.
const (
	maxConfirmAttempts = 60
	confirmInterval    = 5 * time.Second
)

// ErrConfirmationTimeout is returned when a transaction was not confirmed
// within the attempt cap.
var ErrConfirmationTimeout = errors.New("transaction not confirmed within attempt cap")

// ErrTransactionReverted is returned when the receipt reports failure.
var ErrTransactionReverted = errors.New("transaction reverted")

// Confirmer waits for on-chain confirmation of submitted transactions.
type Confirmer struct {
	rpcURL string
	dial   func(ctx context.Context, url string) (receiptSource, error)
}

type receiptSource interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

// NewConfirmer creates a confirmer against the given RPC endpoint.
func NewConfirmer(rpcURL string) *Confirmer {
	return &Confirmer{
		rpcURL: rpcURL,
		dial: func(ctx context.Context, url string) (receiptSource, error) {
			return ethclient.DialContext(ctx, url)
		},
	}
}

// WaitForTransaction polls for the receipt of txHash until it confirms,
// the attempt cap is reached, or ctx is done. It never leaves the caller
// without an owner: every exit path is an explicit success or error.
func (c *Confirmer) WaitForTransaction(ctx context.Context, txHash common.Hash) error {
	client, err := c.dial(ctx, c.rpcURL)
	if err != nil {
		return fmt.Errorf("dial rpc: %w", err)
	}
	defer client.Close()

	for attempt := 0; attempt < maxConfirmAttempts; attempt++ {
		receipt, err := client.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				return nil
			}
			return ErrTransactionReverted
		}
		// Not found yet; keep polling up to the cap.

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(confirmInterval):
		}
	}

	return ErrConfirmationTimeout
}
