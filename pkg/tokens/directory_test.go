package tokens

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solramp/pkg/cache"
	"solramp/pkg/types"
)

const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

type fakeSource struct {
	tokens []types.Token
	err    error
	calls  atomic.Int32
}

func (f *fakeSource) FetchTokens(context.Context) ([]types.Token, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens, nil
}

func numberedTokens(n int) []types.Token {
	out := make([]types.Token, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.Token{
			Address:  fmt.Sprintf("mint%03d", i),
			Symbol:   fmt.Sprintf("TK%d", i),
			Name:     fmt.Sprintf("Token %d", i),
			Decimals: 6,
		})
	}
	return out
}

func newTestDirectory(src Source) *Directory {
	return NewDirectory(src, cache.NewMemory(time.Minute), Options{
		TTL:             time.Minute,
		PageSize:        10,
		InitialPageSize: 30,
	})
}

func TestDirectory_Pagination(t *testing.T) {
	d := newTestDirectory(&fakeSource{tokens: numberedTokens(45)})
	ctx := context.Background()

	tests := []struct {
		page      int
		wantLen   int
		wantFirst string
		hasMore   bool
	}{
		{0, 30, "mint000", true},
		{1, 10, "mint030", true},
		{2, 5, "mint040", false},
		{3, 0, "", false},
	}

	for _, tt := range tests {
		p, err := d.List(ctx, "", tt.page)
		require.NoError(t, err)
		require.Len(t, p.Items, tt.wantLen, "page %d", tt.page)
		require.Equal(t, tt.hasMore, p.HasMore, "page %d", tt.page)
		require.Equal(t, 45, p.Total)
		if tt.wantLen > 0 {
			require.Equal(t, tt.wantFirst, p.Items[0].Address)
		}
		if tt.hasMore {
			require.Equal(t, tt.page+1, p.NextPage)
		}
	}

	_, err := d.List(ctx, "", -1)
	require.ErrorIs(t, err, ErrInvalidPage)
}

func TestDirectory_PaginatesFilteredSet(t *testing.T) {
	all := numberedTokens(40)
	for i := range all {
		if i%2 == 0 {
			all[i].Name = fmt.Sprintf("Even Coin %d", i)
		}
	}
	d := newTestDirectory(&fakeSource{tokens: all})

	first, err := d.List(context.Background(), "even", 0)
	require.NoError(t, err)
	require.Equal(t, 20, first.Total)
	require.Len(t, first.Items, 20)
	require.False(t, first.HasMore)
	for _, tok := range first.Items {
		require.Contains(t, tok.Name, "Even")
	}
}

func TestFilter(t *testing.T) {
	list := []types.Token{
		{Address: usdcMint, Symbol: "USDC", Name: "USD Coin"},
		{Address: "usdt", Symbol: "USDT", Name: "USDT"},
		{Address: types.NativeMint, Symbol: "SOL", Name: "Wrapped SOL"},
		{Address: "bonk", Symbol: "Bonk", Name: "Bonk"},
	}

	tests := []struct {
		filter string
		want   []string
	}{
		{"", []string{usdcMint, "usdt", types.NativeMint, "bonk"}},
		{"usd", []string{usdcMint, "usdt"}},
		{"USD coin", []string{usdcMint}},
		{"  coin   usd ", []string{usdcMint}},
		{"usd tether", nil},
		{"sol", []string{types.NativeMint}},
		{"BONK", []string{"bonk"}},
	}

	for _, tt := range tests {
		got := Filter(list, tt.filter)
		var addrs []string
		for _, tok := range got {
			addrs = append(addrs, tok.Address)
		}
		require.Equal(t, tt.want, addrs, "filter %q", tt.filter)
	}
}

func TestDirectory_CachesWithinWindow(t *testing.T) {
	src := &fakeSource{tokens: numberedTokens(5)}
	d := newTestDirectory(src)
	ctx := context.Background()

	first, err := d.List(ctx, "token", 0)
	require.NoError(t, err)
	second, err := d.List(ctx, "token", 0)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, int32(1), src.calls.Load())

	require.NoError(t, d.Invalidate(ctx))
	_, err = d.List(ctx, "", 0)
	require.NoError(t, err)
	require.Equal(t, int32(2), src.calls.Load())
}

func TestDirectory_ConcurrentMissesFetchOnce(t *testing.T) {
	src := &fakeSource{tokens: numberedTokens(5)}
	d := newTestDirectory(src)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.List(context.Background(), "", 0)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, int32(1), src.calls.Load())
}

func TestDirectory_RefetchesAfterTTL(t *testing.T) {
	src := &fakeSource{tokens: numberedTokens(3)}
	d := NewDirectory(src, cache.NewMemory(time.Millisecond), Options{TTL: 20 * time.Millisecond})

	_, err := d.List(context.Background(), "", 0)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = d.List(context.Background(), "", 0)
	require.NoError(t, err)

	require.Equal(t, int32(2), src.calls.Load())
}

func TestDirectory_Unavailable(t *testing.T) {
	cause := errors.New("connection refused")
	src := &fakeSource{err: cause}
	d := newTestDirectory(src)

	_, err := d.List(context.Background(), "", 0)
	require.ErrorIs(t, err, ErrDirectoryUnavailable)
	require.ErrorIs(t, err, cause)
	require.Equal(t, int32(1), src.calls.Load())

	// failures are not cached
	_, err = d.List(context.Background(), "", 0)
	require.ErrorIs(t, err, ErrDirectoryUnavailable)
	require.Equal(t, int32(2), src.calls.Load())
}

func TestDirectory_Resolve(t *testing.T) {
	src := &fakeSource{tokens: []types.Token{
		{Address: usdcMint, Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		{Address: "fakeusdc", Symbol: "USDC", Name: "Imposter", Decimals: 6},
		{Address: "", Symbol: "BROKEN"},
	}}
	d := newTestDirectory(src)
	ctx := context.Background()

	tok, err := d.FindBySymbol(ctx, "usdc")
	require.NoError(t, err)
	require.Equal(t, usdcMint, tok.Address)

	sol, err := d.FindBySymbol(ctx, "SOL")
	require.NoError(t, err)
	require.True(t, sol.IsNative())
	require.Equal(t, uint8(9), sol.Decimals)

	byAddr, err := d.Resolve(ctx, usdcMint)
	require.NoError(t, err)
	require.Equal(t, "USDC", byAddr.Symbol)

	bySymbol, err := d.Resolve(ctx, "USDC")
	require.NoError(t, err)
	require.Equal(t, usdcMint, bySymbol.Address)

	_, err = d.FindBySymbol(ctx, "BROKEN")
	require.ErrorIs(t, err, ErrTokenNotFound)

	_, err = d.Lookup(ctx, "nope")
	require.ErrorIs(t, err, ErrTokenNotFound)
}
