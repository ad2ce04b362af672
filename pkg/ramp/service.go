// Package ramp initiates fiat on-ramp (NGN → USDC) and off-ramp
// (USDC → NGN) transactions.
package ramp

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/dustin/go-humanize"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solramp/pkg/client"
	"solramp/pkg/metrics"
	"solramp/pkg/parser"
	"solramp/pkg/types"
)

var (
	ErrBelowMinimum   = errors.New("amount below minimum")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidEmail   = errors.New("a valid email is required")
	ErrInvalidAddress = errors.New("a valid wallet address is required")
)

// Backend is the ramp provider API
type Backend interface {
	Initiate(ctx context.Context, payload client.RampPayload) (string, error)
	ExchangeRates(ctx context.Context) (*client.RateResponse, error)
}

type Config struct {
	MinUSD          float64
	FallbackNGNRate float64
}

// Preview is what the user pays and receives for a ramp request
type Preview struct {
	Type      types.RampType  `json:"type"`
	USDC      decimal.Decimal `json:"usdc"`
	NGN       decimal.Decimal `json:"ngn"`
	Rate      float64         `json:"rate"`
	Fallback  bool            `json:"fallback_rate"`
	Submitted decimal.Decimal `json:"submitted_amount"`
}

// Initiation is a started ramp transaction
type Initiation struct {
	Preview
	Link string `json:"link"`
}

type Service struct {
	backend Backend
	cfg     Config
	logger  logrus.FieldLogger
}

func NewService(backend Backend, cfg Config) *Service {
	return &Service{
		backend: backend,
		cfg:     cfg,
		logger:  logrus.WithField("component", "ramp"),
	}
}

// Rates returns the current NGN rates. A failed lookup or a missing rate is
// replaced by the configured fallback and flagged.
func (s *Service) Rates(ctx context.Context) types.ExchangeRates {
	rates := types.ExchangeRates{
		OnrampNGN:  s.cfg.FallbackNGNRate,
		OfframpNGN: s.cfg.FallbackNGNRate,
	}

	resp, err := s.backend.ExchangeRates(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("exchange rate unavailable, using fallback")
		rates.Fallback = true
		return rates
	}

	if r := resp.Data.Onramp.RateInNGN; r > 0 {
		rates.OnrampNGN = r
	} else {
		rates.Fallback = true
	}
	if r := resp.Data.Offramp.RateInNGN; r > 0 {
		rates.OfframpNGN = r
	} else {
		rates.Fallback = true
	}

	return rates
}

// Convert returns usdc × rate rounded to kobo
func Convert(usdc decimal.Decimal, rate float64) decimal.Decimal {
	return usdc.Mul(decimal.NewFromFloat(rate)).Round(2)
}

// FormatNGN renders an NGN amount with thousands separators
func FormatNGN(amount decimal.Decimal) string {
	return "₦" + humanize.FormatFloat("#,###.##", amount.InexactFloat64())
}

func (s *Service) checkAmount(amount string) (decimal.Decimal, error) {
	usdc, err := parser.ParseAmount(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}

	floor := decimal.NewFromFloat(s.cfg.MinUSD)
	if usdc.LessThan(floor) {
		return decimal.Zero, fmt.Errorf("%w: Your transaction minimum limit is $%s", ErrBelowMinimum, humanize.Commaf(s.cfg.MinUSD))
	}

	return usdc, nil
}

// Preview validates the amount and computes the conversion without
// initiating anything
func (s *Service) Preview(ctx context.Context, rampType types.RampType, amount string) (*Preview, error) {
	usdc, err := s.checkAmount(amount)
	if err != nil {
		return nil, err
	}

	rates := s.Rates(ctx)
	rate := rates.OnrampNGN
	if rampType == types.RampOff {
		rate = rates.OfframpNGN
	}

	p := &Preview{
		Type:     rampType,
		USDC:     usdc,
		NGN:      Convert(usdc, rate),
		Rate:     rate,
		Fallback: rates.Fallback,
	}

	// on-ramp is priced in naira, off-ramp in USDC
	p.Submitted = p.USDC
	if rampType == types.RampOn {
		p.Submitted = p.NGN
	}

	return p, nil
}

// Initiate validates req, submits it and returns the payment link. Nothing
// is sent to the backend when validation fails.
func (s *Service) Initiate(ctx context.Context, req types.RampRequest) (*Initiation, error) {
	if req.Type != types.RampOn && req.Type != types.RampOff {
		return nil, fmt.Errorf("unknown ramp type %q", req.Type)
	}
	if _, err := s.checkAmount(req.Amount); err != nil {
		metrics.RampRequest(string(req.Type), "rejected")
		return nil, err
	}
	if _, err := solana.PublicKeyFromBase58(req.Address); err != nil {
		metrics.RampRequest(string(req.Type), "rejected")
		return nil, ErrInvalidAddress
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		metrics.RampRequest(string(req.Type), "rejected")
		return nil, ErrInvalidEmail
	}

	preview, err := s.Preview(ctx, req.Type, req.Amount)
	if err != nil {
		return nil, err
	}

	link, err := s.backend.Initiate(ctx, client.RampPayload{
		Amount:  preview.Submitted.InexactFloat64(),
		Address: req.Address,
		Email:   req.Email,
		Type:    string(req.Type),
	})
	if err != nil {
		metrics.RampRequest(string(req.Type), "error")
		return nil, err
	}

	metrics.RampRequest(string(req.Type), "ok")
	s.logger.WithFields(logrus.Fields{
		"type":   req.Type,
		"amount": preview.Submitted.String(),
	}).Info("ramp transaction initiated")

	return &Initiation{Preview: *preview, Link: link}, nil
}
