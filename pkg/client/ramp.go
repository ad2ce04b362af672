package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/carlmjohnson/requests"
)

// RampClient talks to the fiat on/off-ramp backend
type RampClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRampClient(baseURL string, httpClient *http.Client) *RampClient {
	return &RampClient{baseURL: baseURL, httpClient: defaultHTTPClient(httpClient)}
}

type RampPayload struct {
	Amount  float64 `json:"amount"`
	Address string  `json:"address"`
	Email   string  `json:"email"`
	Type    string  `json:"type"`
}

type rampResponse struct {
	Data struct {
		Link string `json:"link"`
	} `json:"data"`
	Link string `json:"link"`
}

type RateResponse struct {
	Data struct {
		Onramp struct {
			RateInNGN float64 `json:"rate_in_ngn"`
		} `json:"onramp"`
		Offramp struct {
			RateInNGN float64 `json:"rate_in_ngn"`
		} `json:"offramp"`
	} `json:"data"`
}

// Initiate starts a ramp transaction and returns the payment link the user must open
func (c *RampClient) Initiate(ctx context.Context, payload RampPayload) (string, error) {
	var resp rampResponse
	b := requests.URL(joinURL(c.baseURL, "api/scalex")).
		Client(c.httpClient).
		Method(http.MethodPost).
		BodyJSON(payload)

	if err := fetch(ctx, "ramp", b, &resp); err != nil {
		return "", fmt.Errorf("failed to initiate %s: %w", payload.Type, err)
	}

	link := resp.Data.Link
	if link == "" {
		link = resp.Link
	}
	if link == "" {
		return "", fmt.Errorf("ramp backend returned no link")
	}

	return link, nil
}

// ExchangeRates returns the current NGN rates per USDC
func (c *RampClient) ExchangeRates(ctx context.Context) (*RateResponse, error) {
	var resp RateResponse
	b := requests.URL(joinURL(c.baseURL, "api/exchangeRate")).Client(c.httpClient)

	if err := fetch(ctx, "ramp", b, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch exchange rate: %w", err)
	}

	return &resp, nil
}
