package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/carlmjohnson/requests"

	"solramp/pkg/types"
)

// TokenListClient downloads the verified token list
type TokenListClient struct {
	url        string
	httpClient *http.Client
}

func NewTokenListClient(url string, httpClient *http.Client) *TokenListClient {
	return &TokenListClient{url: url, httpClient: defaultHTTPClient(httpClient)}
}

// FetchTokens returns every token of the list
func (c *TokenListClient) FetchTokens(ctx context.Context) ([]types.Token, error) {
	var tokens []types.Token
	b := requests.URL(c.url).Client(c.httpClient)

	if err := fetch(ctx, "token list", b, &tokens); err != nil {
		return nil, fmt.Errorf("failed to fetch tokens: %w", err)
	}

	return tokens, nil
}
