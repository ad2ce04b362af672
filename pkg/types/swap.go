package types

import (
	"errors"
	"strings"
	"time"
)

// NativeMint is the wrapped SOL mint the aggregator uses for the native currency
const NativeMint = "So11111111111111111111111111111111111111112"

// NativeDecimals is the precision of the native currency (lamports)
const NativeDecimals = 9

// Token is a directory entry, compared by address
type Token struct {
	Address  string   `json:"address"`
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name"`
	Decimals uint8    `json:"decimals"`
	LogoURI  string   `json:"logoURI,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Equal reports whether both tokens refer to the same mint
func (t *Token) Equal(other *Token) bool {
	if t == nil || other == nil {
		return false
	}
	return t.Address == other.Address
}

// IsNative reports whether the token is the native currency
func (t *Token) IsNative() bool {
	return t != nil && t.Address == NativeMint
}

// NativeToken returns the directory-independent descriptor of SOL
func NativeToken() *Token {
	return &Token{
		Address:  NativeMint,
		Symbol:   "SOL",
		Name:     "Wrapped SOL",
		Decimals: NativeDecimals,
	}
}

// SwapCommand represents a user's swap command before token resolution
type SwapCommand struct {
	Amount      string
	SourceToken string
	DestToken   string
}

// SwapIntent is the (from, to, amount) tuple entered by the user
type SwapIntent struct {
	From   *Token
	To     *Token
	Amount string
}

var (
	ErrIntentMissingToken = errors.New("both tokens must be selected")
	ErrIntentSameToken    = errors.New("input and output token must differ")
)

// Validate checks the token selection; amount parsing is left to the quote service
func (i SwapIntent) Validate() error {
	if i.From == nil || i.To == nil {
		return ErrIntentMissingToken
	}
	if i.From.Equal(i.To) {
		return ErrIntentSameToken
	}
	return nil
}

// Stage is a step of the swap submission pipeline
type Stage int

const (
	StageIdle Stage = iota
	StageFeeCheck
	StageJitSwap
	StageBuildTransaction
	StageSponsor
	StageSign
	StageBroadcast
	StageConfirm
	StageDone
	StageFailed
)

var stageNames = map[Stage]string{
	StageIdle:             "idle",
	StageFeeCheck:         "fee_check",
	StageJitSwap:          "jit_swap",
	StageBuildTransaction: "build_transaction",
	StageSponsor:          "sponsor",
	StageSign:             "sign",
	StageBroadcast:        "broadcast",
	StageConfirm:          "confirm",
	StageDone:             "done",
	StageFailed:           "failed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no transition leaves the stage
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Event is a stage transition published by the pipeline
type Event struct {
	AttemptID string
	Stage     Stage
	Message   string
	Signature string
	Err       error
	At        time.Time
}

// RampType selects the direction of a fiat ramp transaction
type RampType string

const (
	RampOn  RampType = "onramp"
	RampOff RampType = "offramp"
)

// ParseRampType accepts "onramp"/"offramp" in any case
func ParseRampType(s string) (RampType, error) {
	switch RampType(strings.ToLower(strings.TrimSpace(s))) {
	case RampOn:
		return RampOn, nil
	case RampOff:
		return RampOff, nil
	default:
		return "", errors.New("ramp type must be onramp or offramp")
	}
}

// RampRequest is what the user submits to start a fiat ramp
type RampRequest struct {
	Type    RampType
	Amount  string
	Address string
	Email   string
}

// ExchangeRates holds the NGN conversion rate per USDC for both directions
type ExchangeRates struct {
	OnrampNGN  float64
	OfframpNGN float64
	Fallback   bool
}
