package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/carlmjohnson/requests"
)

// SponsorClient submits transactions to the backend that pays their fees
type SponsorClient struct {
	url        string
	httpClient *http.Client
}

func NewSponsorClient(url string, httpClient *http.Client) *SponsorClient {
	return &SponsorClient{url: url, httpClient: defaultHTTPClient(httpClient)}
}

type sponsorPayload struct {
	Transaction string `json:"transaction"`
}

// Sponsor sends a base64 transaction and returns the co-signed base64 transaction
func (c *SponsorClient) Sponsor(ctx context.Context, txBase64 string) (string, error) {
	var resp sponsorPayload
	b := requests.URL(c.url).
		Client(c.httpClient).
		Method(http.MethodPost).
		BodyJSON(sponsorPayload{Transaction: txBase64})

	if err := fetch(ctx, "sponsor", b, &resp); err != nil {
		return "", fmt.Errorf("failed to sponsor transaction: %w", err)
	}
	if resp.Transaction == "" {
		return "", fmt.Errorf("sponsor returned an empty transaction")
	}

	return resp.Transaction, nil
}
