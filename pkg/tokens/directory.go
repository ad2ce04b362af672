// Package tokens implements the token directory: a cached, searchable,
// paginated view of the verified token list.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"solramp/pkg/cache"
	"solramp/pkg/metrics"
	"solramp/pkg/types"
)

var (
	ErrDirectoryUnavailable = errors.New("token directory unavailable")
	ErrTokenNotFound        = errors.New("token not found")
	ErrInvalidPage          = errors.New("page must not be negative")
)

const defaultCacheKey = "tokens:verified"

// Source downloads the full token list
type Source interface {
	FetchTokens(ctx context.Context) ([]types.Token, error)
}

type Options struct {
	TTL             time.Duration
	PageSize        int
	InitialPageSize int
	CacheKey        string
}

// Page is one slice of the filtered directory
type Page struct {
	Items    []types.Token `json:"items"`
	Page     int           `json:"page"`
	NextPage int           `json:"next_page,omitempty"`
	HasMore  bool          `json:"has_more"`
	Total    int           `json:"total"`
}

type Directory struct {
	source Source
	store  cache.Store
	opts   Options
	logger logrus.FieldLogger

	// serializes remote loads so concurrent misses fetch once
	loadMu sync.Mutex
}

func NewDirectory(source Source, store cache.Store, opts Options) *Directory {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.InitialPageSize <= 0 {
		opts.InitialPageSize = 30
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.CacheKey == "" {
		opts.CacheKey = defaultCacheKey
	}

	return &Directory{
		source: source,
		store:  store,
		opts:   opts,
		logger: logrus.WithField("component", "tokens"),
	}
}

// List returns page p of the tokens matching filter. Every whitespace
// separated term of filter must appear, case-insensitively, in the token's
// name or symbol. Page 0 holds InitialPageSize items and every later page
// PageSize items.
func (d *Directory) List(ctx context.Context, filter string, page int) (*Page, error) {
	if page < 0 {
		return nil, ErrInvalidPage
	}

	all, err := d.load(ctx)
	if err != nil {
		return nil, err
	}

	matched := Filter(all, filter)
	start, end := d.bounds(page)

	result := &Page{
		Page:  page,
		Total: len(matched),
		Items: []types.Token{},
	}
	if start < len(matched) {
		result.Items = matched[start:min(end, len(matched))]
	}
	result.HasMore = end < len(matched)
	if result.HasMore {
		result.NextPage = page + 1
	}

	return result, nil
}

func (d *Directory) bounds(page int) (int, int) {
	if page == 0 {
		return 0, d.opts.InitialPageSize
	}
	start := d.opts.InitialPageSize + (page-1)*d.opts.PageSize
	return start, start + d.opts.PageSize
}

// Filter keeps the tokens whose name or symbol contains every term of filter
func Filter(all []types.Token, filter string) []types.Token {
	terms := strings.Fields(strings.ToLower(filter))
	if len(terms) == 0 {
		return all
	}

	return lo.Filter(all, func(t types.Token, _ int) bool {
		name := strings.ToLower(t.Name)
		symbol := strings.ToLower(t.Symbol)
		return lo.EveryBy(terms, func(term string) bool {
			return strings.Contains(name, term) || strings.Contains(symbol, term)
		})
	})
}

// Lookup finds a token by mint address
func (d *Directory) Lookup(ctx context.Context, address string) (*types.Token, error) {
	all, err := d.load(ctx)
	if err != nil {
		return nil, err
	}

	token, ok := lo.Find(all, func(t types.Token) bool { return t.Address == address })
	if !ok {
		if address == types.NativeMint {
			return types.NativeToken(), nil
		}
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, address)
	}

	return &token, nil
}

// FindBySymbol resolves a ticker, case-insensitively. SOL always resolves to
// the native mint; on duplicate tickers the first listed token wins.
func (d *Directory) FindBySymbol(ctx context.Context, symbol string) (*types.Token, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "SOL" || symbol == "WSOL" {
		return d.Lookup(ctx, types.NativeMint)
	}

	all, err := d.load(ctx)
	if err != nil {
		return nil, err
	}

	token, ok := lo.Find(all, func(t types.Token) bool { return strings.ToUpper(t.Symbol) == symbol })
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, symbol)
	}

	return &token, nil
}

// Resolve accepts either a mint address or a ticker
func (d *Directory) Resolve(ctx context.Context, symbolOrAddress string) (*types.Token, error) {
	if _, err := solana.PublicKeyFromBase58(symbolOrAddress); err == nil && len(symbolOrAddress) >= 32 {
		return d.Lookup(ctx, symbolOrAddress)
	}
	return d.FindBySymbol(ctx, symbolOrAddress)
}

// Invalidate drops the cached snapshot so the next call refetches
func (d *Directory) Invalidate(ctx context.Context) error {
	if err := d.store.Delete(ctx, d.opts.CacheKey); err != nil {
		return fmt.Errorf("failed to invalidate token cache: %w", err)
	}
	return nil
}

func (d *Directory) cached(ctx context.Context) ([]types.Token, bool) {
	var tokens []types.Token
	ok, err := d.store.Get(ctx, d.opts.CacheKey, &tokens)
	if err != nil {
		d.logger.WithError(err).Warn("token cache read failed, fetching remote list")
		return nil, false
	}
	return tokens, ok
}

func (d *Directory) load(ctx context.Context) ([]types.Token, error) {
	if tokens, ok := d.cached(ctx); ok {
		metrics.DirectoryFetch("cache", "ok")
		return tokens, nil
	}

	d.loadMu.Lock()
	defer d.loadMu.Unlock()

	// another caller may have filled the cache while we waited
	if tokens, ok := d.cached(ctx); ok {
		metrics.DirectoryFetch("cache", "ok")
		return tokens, nil
	}

	start := time.Now()
	fetched, err := d.source.FetchTokens(ctx)
	if err != nil {
		metrics.DirectoryFetch("remote", "error")
		return nil, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}

	tokens := lo.UniqBy(
		lo.Filter(fetched, func(t types.Token, _ int) bool { return t.Address != "" }),
		func(t types.Token) string { return t.Address },
	)

	if err := d.store.Set(ctx, d.opts.CacheKey, tokens, d.opts.TTL); err != nil {
		d.logger.WithError(err).Warn("failed to cache token list")
	}

	metrics.DirectoryFetch("remote", "ok")
	d.logger.WithFields(logrus.Fields{
		"count":    len(tokens),
		"duration": time.Since(start).String(),
	}).Debug("token list fetched")

	return tokens, nil
}
