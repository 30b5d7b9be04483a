package webhookauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// SignaturePrefix identifies the MAC algorithm in signature tags.
const SignaturePrefix = "sha256="

// ReplayWindow is how far an inbound request's timestamp may deviate from
// the current time before it is rejected as a replay.
const ReplayWindow = 300 * time.Second

// Verification failures. All three surface to the caller as one vague
// authentication error; the distinction exists for internal logging only.
var (
	ErrMissingCredentials = errors.New("missing signature or timestamp")
	ErrStaleTimestamp     = errors.New("timestamp outside replay window")
	ErrSignatureMismatch  = errors.New("signature mismatch")
)

// Sign computes the HMAC-SHA256 tag of payload under secret, prefixed with
// the algorithm identifier.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the tag for payload and compares it to signature in
// constant time.
func Verify(payload []byte, signature, secret string) bool {
	expected := Sign(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignTimestamped binds the tag to a point in time by signing
// "<unix>.<payload>". A captured request cannot be replayed outside the
// window because the timestamp is part of the signed bytes.
func SignTimestamped(payload []byte, ts time.Time, secret string) string {
	return Sign(timestampedPayload(payload, ts.Unix()), secret)
}

// VerifyRequest checks an inbound signed request: both headers must be
// present, the timestamp must be within the replay window of now, and the
// tag must match the timestamp-bound payload.
func VerifyRequest(payload []byte, signature, timestamp string, now time.Time, secret string) error {
	if signature == "" || timestamp == "" {
		return ErrMissingCredentials
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrStaleTimestamp
	}

	drift := now.Unix() - ts
	if drift < 0 {
		drift = -drift
	}
	if time.Duration(drift)*time.Second > ReplayWindow {
		return ErrStaleTimestamp
	}

	expected := Sign(timestampedPayload(payload, ts), secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

func timestampedPayload(payload []byte, unix int64) []byte {
	return []byte(fmt.Sprintf("%d.%s", unix, payload))
}
