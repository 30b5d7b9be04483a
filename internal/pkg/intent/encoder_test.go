package intent

import (
	"bytes"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func testIntent() *Intent {
	return &Intent{
		ID:         "11111111-2222-3333-4444-555555555555",
		MerchantID: "m_1",
		Merchant:   common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Amount:     big.NewInt(5_000_000),
		Reference:  "ORDER-1",
		Payer:      common.Address{},
		ExpiresAt:  time.Unix(1_900_000_000, 0),
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	pi := testIntent()

	h1, err := Hash(pi)
	if err != nil {
		t.Fatalf("unexpected hash error: %v", err)
	}
	h2, err := Hash(pi)
	if err != nil {
		t.Fatalf("unexpected hash error: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hashing the same intent twice produced different digests")
	}
}

func TestEncodeLength(t *testing.T) {
	enc, err := Encode(testIntent())
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	if len(enc) != EncodedLen {
		t.Fatalf("encoded length = %d, want %d", len(enc), EncodedLen)
	}
}

func TestHashChangesWithEveryField(t *testing.T) {
	base, err := Hash(testIntent())
	if err != nil {
		t.Fatalf("unexpected hash error: %v", err)
	}

	mutations := map[string]func(*Intent){
		"id":        func(pi *Intent) { pi.ID = "different-id" },
		"merchant":  func(pi *Intent) { pi.Merchant = common.HexToAddress("0x2222222222222222222222222222222222222222") },
		"amount":    func(pi *Intent) { pi.Amount = big.NewInt(5_000_001) },
		"reference": func(pi *Intent) { pi.Reference = "ORDER-2" },
		"payer":     func(pi *Intent) { pi.Payer = common.HexToAddress("0x3333333333333333333333333333333333333333") },
		"expiresAt": func(pi *Intent) { pi.ExpiresAt = pi.ExpiresAt.Add(time.Second) },
	}

	for name, mutate := range mutations {
		pi := testIntent()
		mutate(pi)
		h, err := Hash(pi)
		if err != nil {
			t.Fatalf("%s: unexpected hash error: %v", name, err)
		}
		if h == base {
			t.Fatalf("changing %s did not change the digest", name)
		}
	}
}

func TestBytes32Boundaries(t *testing.T) {
	// Empty string encodes as 32 zero bytes.
	empty := Bytes32FromString("")
	if empty != [32]byte{} {
		t.Fatalf("empty string should encode to 32 zero bytes")
	}

	// Exactly 32 bytes is padding-free.
	s32 := strings.Repeat("a", 32)
	got32 := Bytes32FromString(s32)
	if !bytes.Equal(got32[:], []byte(s32)) {
		t.Fatalf("32-byte string should pass through unmodified")
	}

	// 33 bytes must be hashed, not truncated.
	s33 := strings.Repeat("a", 33)
	got33 := Bytes32FromString(s33)
	if bytes.Equal(got33[:], []byte(s33)[:32]) {
		t.Fatalf("33-byte string must be hashed, not truncated")
	}
	if got33 != keccak256([]byte(s33)) {
		t.Fatalf("33-byte string should encode as its keccak256 hash")
	}

	// Short strings right-pad with zeros.
	short := Bytes32FromString("abc")
	want := [32]byte{'a', 'b', 'c'}
	if short != want {
		t.Fatalf("short string should right-pad with zeros, got %x", short)
	}
}

func TestBoundaryLengthsProduceDistinctDigests(t *testing.T) {
	digests := make(map[[32]byte]int)
	for _, n := range []int{0, 32, 33} {
		pi := testIntent()
		pi.Reference = strings.Repeat("r", n)
		h, err := Hash(pi)
		if err != nil {
			t.Fatalf("len=%d: unexpected hash error: %v", n, err)
		}
		if prev, dup := digests[h]; dup {
			t.Fatalf("reference lengths %d and %d collided", prev, n)
		}
		digests[h] = n
	}
}

func TestEncodeRejectsBadAmounts(t *testing.T) {
	pi := testIntent()
	pi.Amount = nil
	if _, err := Encode(pi); err != ErrNilAmount {
		t.Fatalf("expected ErrNilAmount, got %v", err)
	}

	pi = testIntent()
	pi.Amount = big.NewInt(-1)
	if _, err := Encode(pi); err != ErrNegativeAmount {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}

	pi = testIntent()
	pi.Amount = new(big.Int).Lsh(big.NewInt(1), 256)
	if _, err := Encode(pi); err != ErrAmountOverflow {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
}

func TestAbsentPayerEncodesAsZeroAddress(t *testing.T) {
	pi := testIntent()
	enc, err := Encode(pi)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	// Payer occupies the 20 bytes before the trailing 32-byte nonce.
	payer := enc[EncodedLen-52 : EncodedLen-32]
	if !bytes.Equal(payer, make([]byte, 20)) {
		t.Fatalf("absent payer should encode as the zero address, got %x", payer)
	}
}

func TestTypeTagBindsLayout(t *testing.T) {
	tag := TypeTag()
	if tag == [32]byte{} {
		t.Fatalf("type tag must not be zero")
	}
	enc, err := Encode(testIntent())
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	if !bytes.Equal(enc[:32], tag[:]) {
		t.Fatalf("encoding must start with the type tag")
	}
}
