package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/carlmjohnson/requests"
)

// PriorityFeeAuto asks the aggregator to pick a prioritization fee
const PriorityFeeAuto = "auto"

// JupiterClient talks to the quote/swap aggregator API
type JupiterClient struct {
	baseURL     string
	slippageBps int
	feeAccount  string
	httpClient  *http.Client
}

// NewJupiterClient creates an aggregator client. A nil httpClient uses a
// client with DefaultTimeout.
func NewJupiterClient(baseURL string, slippageBps int, feeAccount string, httpClient *http.Client) *JupiterClient {
	return &JupiterClient{
		baseURL:     baseURL,
		slippageBps: slippageBps,
		feeAccount:  feeAccount,
		httpClient:  defaultHTTPClient(httpClient),
	}
}

type QuoteResponse struct {
	InputMint            string      `json:"inputMint"`
	InAmount             string      `json:"inAmount"`
	OutputMint           string      `json:"outputMint"`
	OutAmount            string      `json:"outAmount"`
	OtherAmountThreshold string      `json:"otherAmountThreshold"`
	SwapMode             string      `json:"swapMode"`
	SlippageBps          int         `json:"slippageBps"`
	PlatformFee          interface{} `json:"platformFee"`
	PriceImpactPct       string      `json:"priceImpactPct"`
	RoutePlan            []RoutePlan `json:"routePlan"`
	ContextSlot          uint64      `json:"contextSlot"`
	TimeTaken            float64     `json:"timeTaken"`

	// Raw is the payload exactly as received; the route is opaque to us
	// and is sent back verbatim when building the swap.
	Raw json.RawMessage `json:"-"`
}

type RoutePlan struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  int      `json:"percent"`
}

type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount"`
	FeeMint    string `json:"feeMint"`
}

func (q *QuoteResponse) UnmarshalJSON(data []byte) error {
	type alias QuoteResponse
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*q = QuoteResponse(a)
	q.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (q QuoteResponse) MarshalJSON() ([]byte, error) {
	if len(q.Raw) > 0 {
		return q.Raw, nil
	}
	type alias QuoteResponse
	return json.Marshal(alias(q))
}

// OutAmountInt parses outAmount as an integer in the output token's smallest unit
func (q *QuoteResponse) OutAmountInt() (*big.Int, error) {
	out, ok := new(big.Int).SetString(q.OutAmount, 10)
	if !ok || out.Sign() < 0 {
		return nil, fmt.Errorf("failed to parse out amount: %q", q.OutAmount)
	}
	return out, nil
}

// InAmountInt parses inAmount as an integer in the input token's smallest unit
func (q *QuoteResponse) InAmountInt() (*big.Int, error) {
	in, ok := new(big.Int).SetString(q.InAmount, 10)
	if !ok || in.Sign() < 0 {
		return nil, fmt.Errorf("failed to parse in amount: %q", q.InAmount)
	}
	return in, nil
}

type SwapRequest struct {
	QuoteResponse             QuoteResponse `json:"quoteResponse"`
	UserPublicKey             string        `json:"userPublicKey"`
	WrapAndUnwrapSol          bool          `json:"wrapAndUnwrapSol"`
	FeeAccount                string        `json:"feeAccount,omitempty"`
	PrioritizationFeeLamports interface{}   `json:"prioritizationFeeLamports,omitempty"`
	DynamicComputeUnitLimit   bool          `json:"dynamicComputeUnitLimit,omitempty"`
}

type SwapResponse struct {
	SwapTransaction           string      `json:"swapTransaction"`
	LastValidBlockHeight      uint64      `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports *uint64     `json:"prioritizationFeeLamports,omitempty"`
	ComputeUnitLimit          uint64      `json:"computeUnitLimit,omitempty"`
	SimulationError           interface{} `json:"simulationError,omitempty"`
}

// GetQuote requests a route for amount (smallest unit of inputMint)
func (c *JupiterClient) GetQuote(ctx context.Context, inputMint, outputMint string, amount *big.Int) (*QuoteResponse, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("quote amount must be positive")
	}

	var resp QuoteResponse
	b := requests.URL(joinURL(c.baseURL, "quote")).
		Client(c.httpClient).
		Param("inputMint", inputMint).
		Param("outputMint", outputMint).
		Param("amount", amount.String()).
		Param("slippageBps", strconv.Itoa(c.slippageBps))

	if err := fetch(ctx, "aggregator", b, &resp); err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	if resp.OutAmount == "" {
		return nil, fmt.Errorf("empty quote response")
	}

	return &resp, nil
}

// BuildSwap asks the aggregator for a serialized transaction executing quote
// for userPublicKey. priorityFee is either nil, PriorityFeeAuto or a lamport amount.
func (c *JupiterClient) BuildSwap(ctx context.Context, quote *QuoteResponse, userPublicKey string, priorityFee interface{}) (*SwapResponse, error) {
	if quote == nil {
		return nil, fmt.Errorf("quote is required")
	}

	req := SwapRequest{
		QuoteResponse:             *quote,
		UserPublicKey:             userPublicKey,
		WrapAndUnwrapSol:          true,
		FeeAccount:                c.feeAccount,
		PrioritizationFeeLamports: priorityFee,
		DynamicComputeUnitLimit:   priorityFee != nil,
	}

	var resp SwapResponse
	b := requests.URL(joinURL(c.baseURL, "swap")).
		Client(c.httpClient).
		Method(http.MethodPost).
		BodyJSON(req)

	if err := fetch(ctx, "aggregator", b, &resp); err != nil {
		return nil, fmt.Errorf("failed to build swap transaction: %w", err)
	}

	if resp.SwapTransaction == "" {
		return nil, fmt.Errorf("aggregator returned no swap transaction")
	}

	return &resp, nil
}
