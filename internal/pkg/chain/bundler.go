package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrBundlerNotConfigured is returned when no bundler URL is set.
var ErrBundlerNotConfigured = errors.New("bundler URL not configured")

// UserOperation is an ERC-4337 operation handed to the bundler for
// smart-account execution.
type UserOperation struct {
	Sender               common.Address
	Nonce                *big.Int
	InitCode             []byte
	CallData             []byte
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	PaymasterAndData     []byte
	Signature            []byte
}

// BundlerClient submits user operations over JSON-RPC.
type BundlerClient struct {
	url        string
	entryPoint common.Address
	http       *http.Client
}

// NewBundlerClient creates a client for the given bundler endpoint.
func NewBundlerClient(url string, entryPoint common.Address) *BundlerClient {
	return &BundlerClient{
		url:        url,
		entryPoint: entryPoint,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// SubmitUserOp sends the operation to the bundler and returns the user
// operation hash.
func (c *BundlerClient) SubmitUserOp(ctx context.Context, op *UserOperation) (common.Hash, error) {
	if c.url == "" {
		return common.Hash{}, ErrBundlerNotConfigured
	}

	params := map[string]string{
		"sender":               op.Sender.Hex(),
		"nonce":                hexutil.EncodeBig(op.Nonce),
		"initCode":             hexutil.Encode(op.InitCode),
		"callData":             hexutil.Encode(op.CallData),
		"callGasLimit":         hexutil.EncodeBig(op.CallGasLimit),
		"verificationGasLimit": hexutil.EncodeBig(op.VerificationGasLimit),
		"preVerificationGas":   hexutil.EncodeBig(op.PreVerificationGas),
		"maxFeePerGas":         hexutil.EncodeBig(op.MaxFeePerGas),
		"maxPriorityFeePerGas": hexutil.EncodeBig(op.MaxPriorityFeePerGas),
		"paymasterAndData":     hexutil.Encode(op.PaymasterAndData),
		"signature":            hexutil.Encode(op.Signature),
	}

	var result string
	if err := c.call(ctx, "eth_sendUserOperation", []any{params, c.entryPoint.Hex()}, &result); err != nil {
		return common.Hash{}, err
	}
	return common.HexToHash(result), nil
}

// GetUserOpReceipt looks up the transaction hash for a submitted user
// operation. Returns the zero hash when the bundler has no receipt yet.
func (c *BundlerClient) GetUserOpReceipt(ctx context.Context, userOpHash common.Hash) (common.Hash, error) {
	if c.url == "" {
		return common.Hash{}, ErrBundlerNotConfigured
	}

	var result struct {
		Receipt struct {
			TransactionHash string `json:"transactionHash"`
		} `json:"receipt"`
	}
	if err := c.call(ctx, "eth_getUserOperationReceipt", []any{userOpHash.Hex()}, &result); err != nil {
		return common.Hash{}, err
	}
	if result.Receipt.TransactionHash == "" {
		return common.Hash{}, nil
	}
	return common.HexToHash(result.Receipt.TransactionHash), nil
}

func (c *BundlerClient) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bundler error: %s", resp.Status)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return err
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("bundler error: %s", rpcResp.Error.Message)
	}
	if rpcResp.Result == nil {
		return nil
	}
	return json.Unmarshal(rpcResp.Result, out)
}
