package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/carlmjohnson/requests"
)

// OctaneClient builds and relays the small token→SOL swaps used to top up
// fee balances. The relayer pays the fee of these swaps itself.
type OctaneClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOctaneClient(baseURL string, httpClient *http.Client) *OctaneClient {
	return &OctaneClient{baseURL: baseURL, httpClient: defaultHTTPClient(httpClient)}
}

type WhirlpoolsQuote struct {
	EstimatedAmountIn  string `json:"estimatedAmountIn"`
	EstimatedAmountOut string `json:"estimatedAmountOut"`
}

type WhirlpoolsSwap struct {
	Transaction  string          `json:"transaction"`
	MessageToken string          `json:"messageToken"`
	Quote        WhirlpoolsQuote `json:"quote"`
}

// PriceRatio returns estimatedAmountIn / estimatedAmountOut, i.e. input
// token units per lamport
func (q WhirlpoolsQuote) PriceRatio() (float64, error) {
	in, err := strconv.ParseFloat(q.EstimatedAmountIn, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid estimatedAmountIn %q: %w", q.EstimatedAmountIn, err)
	}
	out, err := strconv.ParseFloat(q.EstimatedAmountOut, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid estimatedAmountOut %q: %w", q.EstimatedAmountOut, err)
	}
	if out <= 0 {
		return 0, fmt.Errorf("estimatedAmountOut must be positive")
	}
	return in / out, nil
}

type buildWhirlpoolsSwapRequest struct {
	User       string `json:"user"`
	SourceMint string `json:"sourceMint"`
	Amount     uint64 `json:"amount"`
}

type sendWhirlpoolsSwapRequest struct {
	Transaction  string `json:"transaction"`
	MessageToken string `json:"messageToken"`
}

type sendWhirlpoolsSwapResponse struct {
	Signature string `json:"signature"`
}

// BuildWhirlpoolsSwap builds a swap of amount (smallest unit of sourceMint) into SOL for user
func (c *OctaneClient) BuildWhirlpoolsSwap(ctx context.Context, user, sourceMint string, amount uint64) (*WhirlpoolsSwap, error) {
	var resp WhirlpoolsSwap
	b := requests.URL(joinURL(c.baseURL, "api/buildWhirlpoolsSwap")).
		Client(c.httpClient).
		Method(http.MethodPost).
		BodyJSON(buildWhirlpoolsSwapRequest{User: user, SourceMint: sourceMint, Amount: amount})

	if err := fetch(ctx, "octane", b, &resp); err != nil {
		return nil, fmt.Errorf("failed to build fee swap: %w", err)
	}
	if resp.Transaction == "" {
		return nil, fmt.Errorf("octane returned no transaction")
	}

	return &resp, nil
}

// SendWhirlpoolsSwap relays a user-signed fee swap and returns its signature
func (c *OctaneClient) SendWhirlpoolsSwap(ctx context.Context, signedTxBase64, messageToken string) (string, error) {
	var resp sendWhirlpoolsSwapResponse
	b := requests.URL(joinURL(c.baseURL, "api/sendWhirlpoolsSwap")).
		Client(c.httpClient).
		Method(http.MethodPost).
		BodyJSON(sendWhirlpoolsSwapRequest{Transaction: signedTxBase64, MessageToken: messageToken})

	if err := fetch(ctx, "octane", b, &resp); err != nil {
		return "", fmt.Errorf("failed to send fee swap: %w", err)
	}
	if resp.Signature == "" {
		return "", fmt.Errorf("octane returned no signature")
	}

	return resp.Signature, nil
}
