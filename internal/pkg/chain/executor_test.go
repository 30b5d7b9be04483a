package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onchainpaykit/paykit/app/models"
)

const (
	testUserOpHash = "0x1111111111111111111111111111111111111111111111111111111111111111"
	testTxHash     = "0x2222222222222222222222222222222222222222222222222222222222222222"
)

// fakeBundler answers the two user-operation RPC methods.
type fakeBundler struct {
	mu         sync.Mutex
	submits    int
	receiptErr bool
	lastParams []json.RawMessage
}

func (f *fakeBundler) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		switch req.Method {
		case "eth_sendUserOperation":
			f.submits++
			f.lastParams = req.Params
			json.NewEncoder(w).Encode(map[string]any{"result": testUserOpHash})
		case "eth_getUserOperationReceipt":
			if f.receiptErr {
				json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": -32000, "message": "internal"}})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{"receipt": map[string]any{"transactionHash": testTxHash}},
			})
		default:
			http.Error(w, "unknown method "+req.Method, http.StatusBadRequest)
		}
	}
}

func testPayout() *models.Payout {
	return &models.Payout{
		ID:          "p1",
		MerchantID:  "m1",
		Amount:      "5.00",
		AmountMicro: 5_000_000,
		Destination: "0x3333333333333333333333333333333333333333",
		Status:      models.PayoutStatusPending,
	}
}

func TestPayoutExecutorSubmitsAndConfirms(t *testing.T) {
	fb := &fakeBundler{}
	srv := httptest.NewServer(fb.handler())
	defer srv.Close()

	e := NewPayoutExecutor(srv.URL,
		common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"),
		common.HexToAddress("0x4444444444444444444444444444444444444444"),
		"http://localhost:8545")
	e.confirmer.dial = func(ctx context.Context, url string) (receiptSource, error) {
		return &fakeReceiptSource{receipts: map[common.Hash]*types.Receipt{
			common.HexToHash(testTxHash): {Status: types.ReceiptStatusSuccessful},
		}}, nil
	}

	txHash, err := e.Execute(context.Background(), testPayout())
	require.NoError(t, err)
	assert.Equal(t, testTxHash, txHash)
	assert.Equal(t, 1, fb.submits)
}

func TestPayoutExecutorRevertedTransaction(t *testing.T) {
	fb := &fakeBundler{}
	srv := httptest.NewServer(fb.handler())
	defer srv.Close()

	e := NewPayoutExecutor(srv.URL,
		common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"),
		common.HexToAddress("0x4444444444444444444444444444444444444444"),
		"http://localhost:8545")
	e.confirmer.dial = func(ctx context.Context, url string) (receiptSource, error) {
		return &fakeReceiptSource{receipts: map[common.Hash]*types.Receipt{
			common.HexToHash(testTxHash): {Status: types.ReceiptStatusFailed},
		}}, nil
	}

	_, err := e.Execute(context.Background(), testPayout())
	assert.ErrorIs(t, err, ErrTransactionReverted)
}

func TestPayoutExecutorWithoutRPCSkipsConfirmation(t *testing.T) {
	fb := &fakeBundler{}
	srv := httptest.NewServer(fb.handler())
	defer srv.Close()

	e := NewPayoutExecutor(srv.URL,
		common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"),
		common.HexToAddress("0x4444444444444444444444444444444444444444"),
		"")
	require.Nil(t, e.confirmer)

	txHash, err := e.Execute(context.Background(), testPayout())
	require.NoError(t, err)
	assert.Equal(t, testTxHash, txHash)
}

func TestPayoutExecutorBundlerError(t *testing.T) {
	fb := &fakeBundler{receiptErr: true}
	srv := httptest.NewServer(fb.handler())
	defer srv.Close()

	e := NewPayoutExecutor(srv.URL,
		common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"),
		common.HexToAddress("0x4444444444444444444444444444444444444444"),
		"")

	_, err := e.Execute(context.Background(), testPayout())
	assert.Error(t, err)
}

func TestTransferCallDataLayout(t *testing.T) {
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")
	data := transferCallData(to, common.Big1)

	require.Len(t, data, 68)
	// transfer(address,uint256) selector.
	assert.Equal(t, "a9059cbb", hex.EncodeToString(data[:4]))
	assert.Equal(t, to.Bytes(), data[16:36])
	assert.Equal(t, byte(1), data[67])
}
