package payout

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/onchainpaykit/paykit/app/models"
)

// SimulatedExecutor completes every payout with a random transaction
// reference. Used until the vault contract integration is wired to a
// live bundler.
type SimulatedExecutor struct{}

func (SimulatedExecutor) Execute(ctx context.Context, p *models.Payout) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(buf), nil
}
