package intent

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// EmptySignature is the sentinel returned to callers when no signing key
// is configured. Intent creation never fails just because the signer is
// missing; the hash alone is still a valid, lower-trust deliverable.
const EmptySignature = "0x"

// ErrSigningKeyUnavailable is returned when no server signing key is
// configured. Callers degrade to EmptySignature instead of failing.
var ErrSigningKeyUnavailable = errors.New("server signing key not configured")

// Domain describes the EIP-712 domain the server signs under.
type Domain struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	ChainID           int64  `json:"chainId"`
	VerifyingContract string `json:"verifyingContract"`
}

// Signer produces server authorization signatures over payment intents.
// The key never leaves this struct and is never logged.
type Signer struct {
	key               *ecdsa.PrivateKey
	name              string
	version           string
	chainID           int64
	verifyingContract common.Address
}

// NewSigner creates a Signer scoped to one deployment. key may be nil, in
// which case every sign call returns ErrSigningKeyUnavailable.
func NewSigner(key *ecdsa.PrivateKey, name, version string, chainID int64, verifyingContract common.Address) *Signer {
	return &Signer{
		key:               key,
		name:              name,
		version:           version,
		chainID:           chainID,
		verifyingContract: verifyingContract,
	}
}

// Domain returns the signing domain for echoing in responses.
func (s *Signer) Domain() Domain {
	return Domain{
		Name:              s.name,
		Version:           s.version,
		ChainID:           s.chainID,
		VerifyingContract: s.verifyingContract.Hex(),
	}
}

// Address returns the signer's account address, or the zero address when
// no key is configured.
func (s *Signer) Address() common.Address {
	if s.key == nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// SignTypedData signs the intent as an EIP-712 typed message bound to the
// configured domain. The result is a 65-byte signature hex string.
func (s *Signer) SignTypedData(pi *Intent) (string, error) {
	if s.key == nil {
		return "", ErrSigningKeyUnavailable
	}

	typedData, err := s.buildTypedData(pi)
	if err != nil {
		return "", err
	}

	digest, err := typedDataDigest(typedData)
	if err != nil {
		return "", err
	}

	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return "", err
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

func (s *Signer) buildTypedData(pi *Intent) (apitypes.TypedData, error) {
	if pi.Amount == nil {
		return apitypes.TypedData{}, ErrNilAmount
	}

	ref := Bytes32FromString(pi.Reference)
	nonce := Bytes32FromString(pi.ID)

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"PaymentIntent": {
				{Name: "merchant", Type: "address"},
				{Name: "amount", Type: "uint256"},
				{Name: "expiresAt", Type: "uint256"},
				{Name: "ref", Type: "bytes32"},
				{Name: "payer", Type: "address"},
				{Name: "nonce", Type: "bytes32"},
			},
		},
		PrimaryType: "PaymentIntent",
		Domain: apitypes.TypedDataDomain{
			Name:              s.name,
			Version:           s.version,
			ChainId:           math.NewHexOrDecimal256(s.chainID),
			VerifyingContract: s.verifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"merchant":  pi.Merchant.Hex(),
			"amount":    (*math.HexOrDecimal256)(new(big.Int).Set(pi.Amount)),
			"expiresAt": (*math.HexOrDecimal256)(big.NewInt(pi.ExpiresAt.Unix())),
			"ref":       hexutil.Encode(ref[:]),
			"payer":     pi.Payer.Hex(),
			"nonce":     hexutil.Encode(nonce[:]),
		},
	}, nil
}

// SignDigest signs a raw 32-byte digest under the EIP-191 personal-sign
// prefix. Fallback path for verifiers that do not support typed data.
func (s *Signer) SignDigest(digest [32]byte) (string, error) {
	if s.key == nil {
		return "", ErrSigningKeyUnavailable
	}

	prefixed := crypto.Keccak256(
		[]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(digest))),
		digest[:],
	)
	sig, err := crypto.Sign(prefixed, s.key)
	if err != nil {
		return "", err
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

func typedDataDigest(td apitypes.TypedData) ([]byte, error) {
	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return nil, err
	}
	messageHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256([]byte{0x19, 0x01}, domainSeparator, messageHash), nil
}
