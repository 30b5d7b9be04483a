package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/onchainpaykit/paykit/app/models"
)

// Receipt polling against the bundler is bounded the same way on-chain
// confirmation is; a payout whose receipt never appears fails explicitly.
const (
	receiptAttempts = 30
	receiptInterval = 2 * time.Second
)

// Default user-operation gas parameters for a plain token transfer.
var (
	defaultCallGasLimit         = big.NewInt(200_000)
	defaultVerificationGasLimit = big.NewInt(150_000)
	defaultPreVerificationGas   = big.NewInt(50_000)
	defaultMaxFeePerGas         = big.NewInt(2_000_000_000)
	defaultMaxPriorityFeePerGas = big.NewInt(1_000_000_000)
)

// PayoutExecutor executes payouts as ERC-4337 user operations: submit to
// the bundler, wait for the bundler's receipt, then confirm the carrying
// transaction on chain. It satisfies the payout ledger's Executor
// contract.
type PayoutExecutor struct {
	bundler   *BundlerClient
	confirmer *Confirmer
	sender    common.Address
}

// NewPayoutExecutor creates an executor submitting through bundlerURL on
// behalf of sender. rpcURL may be empty, in which case the bundler's
// receipt alone counts as confirmation.
func NewPayoutExecutor(bundlerURL string, entryPoint, sender common.Address, rpcURL string) *PayoutExecutor {
	e := &PayoutExecutor{
		bundler: NewBundlerClient(bundlerURL, entryPoint),
		sender:  sender,
	}
	if rpcURL != "" {
		e.confirmer = NewConfirmer(rpcURL)
	}
	return e
}

// Execute submits a transfer of the payout amount to its destination and
// returns the confirmed transaction hash.
func (e *PayoutExecutor) Execute(ctx context.Context, p *models.Payout) (string, error) {
	amount := new(big.Int).SetUint64(p.AmountMicro)
	op := &UserOperation{
		Sender:               e.sender,
		Nonce:                big.NewInt(0),
		InitCode:             []byte{},
		CallData:             transferCallData(common.HexToAddress(p.Destination), amount),
		CallGasLimit:         defaultCallGasLimit,
		VerificationGasLimit: defaultVerificationGasLimit,
		PreVerificationGas:   defaultPreVerificationGas,
		MaxFeePerGas:         defaultMaxFeePerGas,
		MaxPriorityFeePerGas: defaultMaxPriorityFeePerGas,
		PaymasterAndData:     []byte{},
		Signature:            []byte{},
	}

	userOpHash, err := e.bundler.SubmitUserOp(ctx, op)
	if err != nil {
		return "", fmt.Errorf("submit user operation: %w", err)
	}

	txHash, err := e.awaitReceipt(ctx, userOpHash)
	if err != nil {
		return "", err
	}

	if e.confirmer != nil {
		if err := e.confirmer.WaitForTransaction(ctx, txHash); err != nil {
			return "", err
		}
	}
	return txHash.Hex(), nil
}

// awaitReceipt polls the bundler until the user operation lands in a
// transaction or the attempt cap is reached.
func (e *PayoutExecutor) awaitReceipt(ctx context.Context, userOpHash common.Hash) (common.Hash, error) {
	for attempt := 0; attempt < receiptAttempts; attempt++ {
		txHash, err := e.bundler.GetUserOpReceipt(ctx, userOpHash)
		if err != nil {
			return common.Hash{}, fmt.Errorf("user operation receipt: %w", err)
		}
		if txHash != (common.Hash{}) {
			return txHash, nil
		}

		select {
		case <-ctx.Done():
			return common.Hash{}, ctx.Err()
		case <-time.After(receiptInterval):
		}
	}
	return common.Hash{}, ErrConfirmationTimeout
}

// transferCallData ABI-encodes transfer(address,uint256).
func transferCallData(to common.Address, amount *big.Int) []byte {
	selector := crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]

	data := make([]byte, 0, 4+64)
	data = append(data, selector...)

	var addr [32]byte
	copy(addr[12:], to.Bytes())
	data = append(data, addr[:]...)

	var amt [32]byte
	amount.FillBytes(amt[:])
	data = append(data, amt[:]...)
	return data
}
