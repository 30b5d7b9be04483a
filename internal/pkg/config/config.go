package config

import (
	"crypto/ecdsa"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/onchainpaykit/paykit/internal/pkg/env"
)

// Signing domain constants. Signatures produced under one
// chainId/verifyingContract pair are never valid for another.
const (
	DomainName    = "OnchainPayKit"
	DomainVersion = "1"
)

// Config holds all process-wide payment settings. It is assembled once at
// startup and never mutated afterwards.
type Config struct {
	ChainID           int64
	VerifyingContract common.Address

	// SignerKey is nil when SERVER_SIGNER_PK is not configured. Intent
	// creation still works without it, responses just carry the empty
	// signature sentinel.
	SignerKey *ecdsa.PrivateKey

	WebhookSecret string

	// BundlerURL switches payout execution from the simulated executor to
	// real user-operation submission when set.
	BundlerURL string
	EntryPoint common.Address
	RPCURL     string

	IntentTTL time.Duration

	GeneralRateWindow time.Duration
	GeneralRateMax    int
	StrictRateWindow  time.Duration
	StrictRateMax     int
}

var (
	cfg  *Config
	once sync.Once
)

// Setup parses the environment into the global Config. Safe to call more
// than once; only the first call takes effect.
func Setup() {
	once.Do(func() {
		cfg = load()
	})
}

// Get returns the global Config, loading it on first use.
func Get() *Config {
	Setup()
	return cfg
}

func load() *Config {
	c := &Config{
		ChainID:           parseInt64(env.GetEnv("CHAIN_ID", "84532")),
		VerifyingContract: common.HexToAddress(env.GetEnv("PAYMENT_ROUTER_ADDRESS", "0x0000000000000000000000000000000000000000")),
		WebhookSecret:     env.GetEnv("WEBHOOK_HMAC_SECRET", ""),
		BundlerURL:        env.GetEnv("RELAYER_BUNDLER_URL", ""),
		EntryPoint:        common.HexToAddress(env.GetEnv("ENTRYPOINT_ADDRESS", "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")),
		RPCURL:            env.GetEnv("RPC_URL", ""),
		IntentTTL:         15 * time.Minute,
		GeneralRateWindow: 15 * time.Minute,
		GeneralRateMax:    parseInt(env.GetEnv("RATE_LIMIT_GENERAL_MAX", "100")),
		StrictRateWindow:  15 * time.Minute,
		StrictRateMax:     parseInt(env.GetEnv("RATE_LIMIT_STRICT_MAX", "20")),
	}

	if pk := env.GetEnv("SERVER_SIGNER_PK", ""); pk != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(pk, "0x"))
		if err != nil {
			// A present but malformed key is a deployment mistake; refuse
			// to start rather than silently serving unsigned intents.
			panic(fmt.Sprintf("invalid SERVER_SIGNER_PK: %v", err))
		}
		c.SignerKey = key
	}

	return c
}

func parseInt64(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
