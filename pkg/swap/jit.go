package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solramp/pkg/chain"
	"solramp/pkg/client"
	"solramp/pkg/types"
)

// RouteBuilder builds and relays fee-coverage swaps
type RouteBuilder interface {
	BuildWhirlpoolsSwap(ctx context.Context, user, sourceMint string, amount uint64) (*client.WhirlpoolsSwap, error)
	SendWhirlpoolsSwap(ctx context.Context, signedTxBase64, messageToken string) (string, error)
}

// CoverRequest describes the SOL a wallet is missing before a swap
type CoverRequest struct {
	Input *types.Token
	// ProbeAmount is the main swap's input amount, used to price the input token
	ProbeAmount      uint64
	RequiredLamports uint64
}

// FeeCoverer converts part of the input token into SOL for fees and
// returns the signature of that conversion
type FeeCoverer interface {
	Cover(ctx context.Context, signer Signer, req CoverRequest) (string, error)
}

type JitConfig struct {
	PacingDelay    time.Duration
	SlippageBuffer float64
	Commitment     rpc.CommitmentType
}

// JitSwapper covers fee shortfalls with a relayer-paid whirlpools swap
type JitSwapper struct {
	routes RouteBuilder
	client chain.RPC
	cfg    JitConfig
	sleep  func(ctx context.Context, d time.Duration) error
	logger logrus.FieldLogger
}

func NewJitSwapper(routes RouteBuilder, client chain.RPC, cfg JitConfig) *JitSwapper {
	if cfg.SlippageBuffer < 1 {
		cfg.SlippageBuffer = 1.02
	}
	return &JitSwapper{
		routes: routes,
		client: client,
		cfg:    cfg,
		sleep:  sleepContext,
		logger: logrus.WithField("component", "jit_swap"),
	}
}

// SizeFeeSwap returns floor((requiredLamports + rentExempt) × ratio × buffer),
// the input token amount to swap, in its smallest unit
func SizeFeeSwap(requiredLamports, rentExempt uint64, ratio, buffer float64) uint64 {
	amount := decimal.NewFromUint64(requiredLamports).
		Add(decimal.NewFromUint64(rentExempt)).
		Mul(decimal.NewFromFloat(ratio)).
		Mul(decimal.NewFromFloat(buffer)).
		Floor()
	if amount.IsNegative() {
		return 0
	}
	return uint64(amount.IntPart())
}

func (j *JitSwapper) Cover(ctx context.Context, signer Signer, req CoverRequest) (string, error) {
	if req.Input == nil {
		return "", errors.New("input token is required")
	}
	if req.Input.IsNative() {
		return "", ErrNativeFeeGap
	}

	owner := signer.PublicKey().String()

	probe, err := j.routes.BuildWhirlpoolsSwap(ctx, owner, req.Input.Address, req.ProbeAmount)
	if err != nil {
		return "", fmt.Errorf("failed to price %s: %w", req.Input.Symbol, err)
	}
	ratio, err := probe.Quote.PriceRatio()
	if err != nil {
		return "", err
	}

	rent, err := j.client.GetMinimumBalanceForRentExemption(ctx, 0, j.cfg.Commitment)
	if err != nil {
		return "", fmt.Errorf("failed to get rent exemption: %w", err)
	}

	amount := SizeFeeSwap(req.RequiredLamports, rent, ratio, j.cfg.SlippageBuffer)
	if amount == 0 {
		return "", fmt.Errorf("computed fee swap amount is zero")
	}

	log := j.logger.WithFields(logrus.Fields{
		"token":    req.Input.Symbol,
		"amount":   amount,
		"required": req.RequiredLamports,
		"rent":     rent,
	})
	log.Info("swapping tokens for SOL to cover transaction fees")

	// pace the relayer calls
	if err := j.sleep(ctx, j.cfg.PacingDelay); err != nil {
		return "", err
	}

	built, err := j.routes.BuildWhirlpoolsSwap(ctx, owner, req.Input.Address, amount)
	if err != nil {
		return "", err
	}

	tx, err := chain.DecodeTransaction(built.Transaction)
	if err != nil {
		return "", err
	}
	if err := signer.SignTransaction(ctx, tx); err != nil {
		return "", err
	}
	signed, err := chain.EncodeTransaction(tx)
	if err != nil {
		return "", err
	}

	sig, err := j.routes.SendWhirlpoolsSwap(ctx, signed, built.MessageToken)
	if err != nil {
		return "", err
	}

	log.WithField("signature", sig).Info("acquired SOL for transaction fees")
	return sig, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
