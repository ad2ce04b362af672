// Package quote fetches aggregator quotes for a swap intent and estimates
// the network fee of executing them.
package quote

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solramp/pkg/client"
	"solramp/pkg/metrics"
	"solramp/pkg/parser"
	"solramp/pkg/types"
)

var (
	ErrInvalidAmount = errors.New("amount must be a positive number")
	ErrMissingToken  = errors.New("select both tokens")
	ErrSameToken     = errors.New("input and output token must differ")
	ErrStale         = errors.New("quote superseded by a newer request")
)

// Aggregator is the quote/swap-build API
type Aggregator interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amount *big.Int) (*client.QuoteResponse, error)
	BuildSwap(ctx context.Context, quote *client.QuoteResponse, userPublicKey string, priorityFee interface{}) (*client.SwapResponse, error)
}

// Quote is an aggregator route for one intent together with its fee estimate
type Quote struct {
	Intent         types.SwapIntent
	Raw            *client.QuoteResponse
	InAmount       *big.Int
	OutAmount      *big.Int
	OutputAmount   decimal.Decimal
	PriceImpactPct string
	Fee            FeeEstimate
	Generation     uint64
	FetchedAt      time.Time
}

type Service struct {
	agg    Aggregator
	fees   *FeeEstimator
	user   string
	logger logrus.FieldLogger
}

// NewService creates a quote service. user is the public key used to
// simulate the swap for fee estimation; when empty the fee floor is used.
func NewService(agg Aggregator, fees *FeeEstimator, user string) *Service {
	return &Service{
		agg:    agg,
		fees:   fees,
		user:   user,
		logger: logrus.WithField("component", "quote"),
	}
}

// ValidateIntent checks everything GetQuote checks before calling out and
// returns the input amount in base units
func ValidateIntent(from, to *types.Token, amount string) (*big.Int, error) {
	if from == nil || to == nil {
		return nil, ErrMissingToken
	}
	if from.Equal(to) {
		return nil, ErrSameToken
	}

	value, err := parser.ParseAmount(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}

	base := parser.ToBaseUnits(value, from.Decimals)
	if base.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}

	return base, nil
}

// GetQuote requests a route for amount of from into to. Invalid input is
// rejected without calling the aggregator.
func (s *Service) GetQuote(ctx context.Context, from, to *types.Token, amount string) (*Quote, error) {
	base, err := ValidateIntent(from, to, amount)
	if err != nil {
		metrics.QuoteResult("invalid")
		return nil, err
	}

	start := time.Now()
	raw, err := s.agg.GetQuote(ctx, from.Address, to.Address, base)
	metrics.ObserveQuote(time.Since(start))
	if err != nil {
		metrics.QuoteResult("error")
		return nil, err
	}

	out, err := raw.OutAmountInt()
	if err != nil {
		metrics.QuoteResult("error")
		return nil, err
	}

	q := &Quote{
		Intent:         types.SwapIntent{From: from, To: to, Amount: amount},
		Raw:            raw,
		InAmount:       base,
		OutAmount:      out,
		OutputAmount:   parser.FromBaseUnits(out, to.Decimals),
		PriceImpactPct: raw.PriceImpactPct,
		FetchedAt:      time.Now(),
	}

	if s.fees != nil {
		q.Fee = s.fees.Estimate(ctx, raw, s.user)
	}

	metrics.QuoteResult("ok")
	s.logger.WithFields(logrus.Fields{
		"from":   from.Symbol,
		"to":     to.Symbol,
		"amount": amount,
		"out":    q.OutputAmount.String(),
		"fee":    q.Fee.Native.String(),
	}).Debug("quote received")

	return q, nil
}
