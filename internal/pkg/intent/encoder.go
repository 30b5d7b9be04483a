package intent

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// intentTypeSignature is the human-readable type string the encoding is
// versioned by. Changing the field order or types changes the tag, so an
// old encoding can never collide with a new one. This layout is a wire
// format shared with the on-chain verifier and is frozen.
const intentTypeSignature = "PaymentIntent(address merchant,uint256 amount,uint256 expiresAt,bytes32 ref,address payer,bytes32 nonce)"

// EncodedLen is the fixed size of a canonical encoding:
// tag(32) + merchant(20) + amount(32) + expiresAt(32) + ref(32) + payer(20) + nonce(32).
const EncodedLen = 200

var (
	ErrNilAmount      = errors.New("intent amount is nil")
	ErrNegativeAmount = errors.New("intent amount is negative")
	ErrAmountOverflow = errors.New("intent amount exceeds 256 bits")
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Intent carries the fields that feed the canonical encoding. Merchant and
// Payer are chain addresses; Payer is the zero address when no payer hint
// was given. Amount is in the token's smallest unit.
type Intent struct {
	ID         string
	MerchantID string
	Merchant   common.Address
	Amount     *big.Int
	Reference  string
	Payer      common.Address
	ExpiresAt  time.Time
}

// TypeTag returns keccak256 of the intent type signature string.
func TypeTag() [32]byte {
	return keccak256([]byte(intentTypeSignature))
}

// Bytes32FromString binds a string to exactly 32 bytes: strings of at most
// 32 bytes are right-padded with zeros, longer strings are replaced by
// their keccak256 hash. Truncation is never used, so two long strings with
// a shared prefix cannot collide.
func Bytes32FromString(s string) [32]byte {
	b := []byte(s)
	if len(b) > 32 {
		return keccak256(b)
	}
	var out [32]byte
	copy(out[:], b)
	return out
}

// Encode produces the canonical byte encoding of an intent. It is a pure
// function of the intent's fields; the on-chain verifier recomputes the
// identical layout and both sides must agree bit for bit.
func Encode(pi *Intent) ([]byte, error) {
	if pi.Amount == nil {
		return nil, ErrNilAmount
	}
	if pi.Amount.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	if pi.Amount.Cmp(maxUint256) > 0 {
		return nil, ErrAmountOverflow
	}

	buf := make([]byte, 0, EncodedLen)

	tag := TypeTag()
	buf = append(buf, tag[:]...)
	buf = append(buf, pi.Merchant.Bytes()...)

	var amount [32]byte
	pi.Amount.FillBytes(amount[:])
	buf = append(buf, amount[:]...)

	var expiry [32]byte
	big.NewInt(pi.ExpiresAt.Unix()).FillBytes(expiry[:])
	buf = append(buf, expiry[:]...)

	ref := Bytes32FromString(pi.Reference)
	buf = append(buf, ref[:]...)
	buf = append(buf, pi.Payer.Bytes()...)

	nonce := Bytes32FromString(pi.ID)
	buf = append(buf, nonce[:]...)

	return buf, nil
}

// Hash returns the keccak256 content hash of the canonical encoding.
func Hash(pi *Intent) ([32]byte, error) {
	enc, err := Encode(pi)
	if err != nil {
		return [32]byte{}, err
	}
	return keccak256(enc), nil
}

func keccak256(data []byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out [32]byte
	h.Sum(out[:0])
	return out
}
