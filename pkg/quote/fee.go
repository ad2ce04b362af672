package quote

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solramp/pkg/client"
	"solramp/pkg/types"
)

// FeeConfig holds the fee estimation constants
type FeeConfig struct {
	BufferMultiplier  float64
	MinNative         float64
	SignatureLamports uint64
	BaseLamports      uint64
}

// FeeEstimate is the expected network fee of a swap in native units
type FeeEstimate struct {
	Lamports uint64          `json:"lamports"`
	Native   decimal.Decimal `json:"native"`
	// Floor is set when the estimate is the configured minimum
	Floor bool `json:"floor"`
}

type FeeEstimator struct {
	agg    Aggregator
	cfg    FeeConfig
	logger logrus.FieldLogger
}

func NewFeeEstimator(agg Aggregator, cfg FeeConfig) *FeeEstimator {
	if cfg.BufferMultiplier < 1 {
		cfg.BufferMultiplier = 1.2
	}
	return &FeeEstimator{
		agg:    agg,
		cfg:    cfg,
		logger: logrus.WithField("component", "fee_estimator"),
	}
}

// Floor returns the minimum estimate
func (e *FeeEstimator) Floor() FeeEstimate {
	native := decimal.NewFromFloat(e.cfg.MinNative)
	return FeeEstimate{
		Lamports: uint64(native.Shift(types.NativeDecimals).Ceil().IntPart()),
		Native:   native,
		Floor:    true,
	}
}

// Estimate simulates building the swap and computes
// (priorityFee + signatureFee + baseFee) × buffer, never below the floor.
// It never fails: any upstream problem yields the floor.
func (e *FeeEstimator) Estimate(ctx context.Context, raw *client.QuoteResponse, user string) FeeEstimate {
	if raw == nil || user == "" {
		return e.Floor()
	}

	resp, err := e.agg.BuildSwap(ctx, raw, user, client.PriorityFeeAuto)
	if err != nil {
		e.logger.WithError(err).Debug("fee simulation failed, using floor")
		return e.Floor()
	}
	if resp.PrioritizationFeeLamports == nil {
		return e.Floor()
	}

	return e.FromPriorityFee(*resp.PrioritizationFeeLamports)
}

// FromPriorityFee applies the formula to a known prioritization fee
func (e *FeeEstimator) FromPriorityFee(priorityLamports uint64) FeeEstimate {
	total := decimal.NewFromUint64(priorityLamports).
		Add(decimal.NewFromUint64(e.cfg.SignatureLamports)).
		Add(decimal.NewFromUint64(e.cfg.BaseLamports)).
		Mul(decimal.NewFromFloat(e.cfg.BufferMultiplier))

	native := total.Shift(-types.NativeDecimals)
	floor := e.Floor()
	if native.LessThan(floor.Native) {
		return floor
	}

	return FeeEstimate{
		Lamports: uint64(total.Ceil().IntPart()),
		Native:   native,
	}
}
