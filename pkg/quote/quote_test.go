package quote

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"solramp/pkg/client"
	"solramp/pkg/types"
)

var (
	sol  = types.NativeToken()
	usdc = &types.Token{Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Symbol: "USDC", Decimals: 6}
)

type fakeAggregator struct {
	mu          sync.Mutex
	quoteCalls  int
	swapCalls   int
	amounts     []string
	outAmount   string
	quoteErr    error
	priorityFee *uint64
	swapErr     error
}

func (f *fakeAggregator) GetQuote(_ context.Context, inputMint, outputMint string, amount *big.Int) (*client.QuoteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quoteCalls++
	f.amounts = append(f.amounts, amount.String())
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return &client.QuoteResponse{
		InputMint:  inputMint,
		OutputMint: outputMint,
		InAmount:   amount.String(),
		OutAmount:  f.outAmount,
	}, nil
}

func (f *fakeAggregator) BuildSwap(context.Context, *client.QuoteResponse, string, interface{}) (*client.SwapResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swapCalls++
	if f.swapErr != nil {
		return nil, f.swapErr
	}
	return &client.SwapResponse{SwapTransaction: "AA==", PrioritizationFeeLamports: f.priorityFee}, nil
}

func (f *fakeAggregator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quoteCalls
}

func defaultFees(agg Aggregator) *FeeEstimator {
	return NewFeeEstimator(agg, FeeConfig{
		BufferMultiplier:  1.2,
		MinNative:         0.001,
		SignatureLamports: 5000,
		BaseLamports:      5000,
	})
}

func TestGetQuote_SolToUSDC(t *testing.T) {
	agg := &fakeAggregator{outAmount: "9998099"}
	svc := NewService(agg, defaultFees(agg), "")

	q, err := svc.GetQuote(context.Background(), sol, usdc, "1")
	require.NoError(t, err)
	require.Equal(t, "9.998099", q.OutputAmount.String())
	require.Equal(t, "1000000000", q.InAmount.String())
	require.Equal(t, []string{"1000000000"}, agg.amounts)
	require.True(t, q.Fee.Floor)
}

func TestGetQuote_RejectsWithoutCall(t *testing.T) {
	tests := []struct {
		name    string
		from    *types.Token
		to      *types.Token
		amount  string
		wantErr error
	}{
		{"empty amount", sol, usdc, "", ErrInvalidAmount},
		{"non-numeric", sol, usdc, "abc", ErrInvalidAmount},
		{"zero", sol, usdc, "0", ErrInvalidAmount},
		{"negative", sol, usdc, "-2", ErrInvalidAmount},
		{"below precision", usdc, sol, "0.0000001", ErrInvalidAmount},
		{"missing from", nil, usdc, "1", ErrMissingToken},
		{"missing to", sol, nil, "1", ErrMissingToken},
		{"same token", usdc, usdc, "1", ErrSameToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := &fakeAggregator{outAmount: "1"}
			svc := NewService(agg, defaultFees(agg), "user")

			_, err := svc.GetQuote(context.Background(), tt.from, tt.to, tt.amount)
			require.ErrorIs(t, err, tt.wantErr)
			require.Zero(t, agg.calls())
			require.Zero(t, agg.swapCalls)
		})
	}
}

func TestGetQuote_UpstreamError(t *testing.T) {
	upstream := &client.UpstreamError{Service: "aggregator", StatusCode: 503}
	agg := &fakeAggregator{quoteErr: upstream}
	svc := NewService(agg, defaultFees(agg), "user")

	_, err := svc.GetQuote(context.Background(), sol, usdc, "1")
	var upstreamErr *client.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	require.Zero(t, agg.swapCalls)
}

func TestGetQuote_BadOutAmount(t *testing.T) {
	agg := &fakeAggregator{outAmount: "lots"}
	svc := NewService(agg, nil, "")

	_, err := svc.GetQuote(context.Background(), sol, usdc, "1")
	require.Error(t, err)
}

func TestFeeEstimator(t *testing.T) {
	fee := func(v uint64) *uint64 { return &v }

	tests := []struct {
		name       string
		user       string
		priority   *uint64
		swapErr    error
		wantNative string
		wantFloor  bool
	}{
		{"no user", "", fee(5_000_000), nil, "0.001", true},
		{"simulation fails", "user", nil, errors.New("boom"), "0.001", true},
		{"field missing", "user", nil, nil, "0.001", true},
		{"small fee floored", "user", fee(0), nil, "0.001", true},
		{"buffered", "user", fee(1_000_000), nil, "0.001212", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := &fakeAggregator{priorityFee: tt.priority, swapErr: tt.swapErr}
			est := defaultFees(agg).Estimate(context.Background(), &client.QuoteResponse{OutAmount: "1"}, tt.user)
			require.Equal(t, tt.wantNative, est.Native.String())
			require.Equal(t, tt.wantFloor, est.Floor)
		})
	}
}

func TestFeeEstimator_NeverBelowFloor(t *testing.T) {
	est := defaultFees(&fakeAggregator{})
	floor := decimal.NewFromFloat(0.001)

	for _, p := range []uint64{0, 1, 100, 10_000, 800_000, 823_333, 5_000_000, 1 << 40} {
		got := est.FromPriorityFee(p)
		require.True(t, got.Native.GreaterThanOrEqual(floor), "priority %d gave %s", p, got.Native)
		require.GreaterOrEqual(t, got.Lamports, uint64(1_000_000))
	}

	require.Equal(t, uint64(1_212_000), est.FromPriorityFee(1_000_000).Lamports)
}

func TestTracker_DebounceIssuesOneCall(t *testing.T) {
	agg := &fakeAggregator{outAmount: "9998099"}
	svc := NewService(agg, nil, "")

	updates := make(chan Update, 10)
	tr := NewTracker(svc, 30*time.Millisecond, func(u Update) { updates <- u })
	defer tr.Close()

	var last uint64
	for _, amount := range []string{"1", "1.2", "1.5", "1.50", "2"} {
		last = tr.Request(context.Background(), types.SwapIntent{From: sol, To: usdc, Amount: amount})
	}

	select {
	case u := <-updates:
		require.NoError(t, u.Err)
		require.Equal(t, last, u.Generation)
		require.Equal(t, "2", u.Quote.Intent.Amount)
	case <-time.After(2 * time.Second):
		t.Fatal("no quote applied")
	}

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 1, agg.calls())
	require.Equal(t, []string{"2000000000"}, agg.amounts)
	require.Equal(t, last, tr.Current().Generation)
}

func TestTracker_InvalidInputClears(t *testing.T) {
	agg := &fakeAggregator{outAmount: "9998099"}
	svc := NewService(agg, nil, "")

	updates := make(chan Update, 10)
	tr := NewTracker(svc, 10*time.Millisecond, func(u Update) { updates <- u })
	defer tr.Close()

	tr.Request(context.Background(), types.SwapIntent{From: sol, To: usdc, Amount: "1"})
	u := <-updates
	require.NoError(t, u.Err)
	require.NotNil(t, tr.Current())

	for _, amount := range []string{"", "abc"} {
		tr.Request(context.Background(), types.SwapIntent{From: sol, To: usdc, Amount: amount})
		u = <-updates
		require.ErrorIs(t, u.Err, ErrInvalidAmount)
		require.Nil(t, u.Quote)
		require.Nil(t, tr.Current())
	}

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, 1, agg.calls())
}

func TestTracker_InvalidInputCancelsPending(t *testing.T) {
	agg := &fakeAggregator{outAmount: "1"}
	tr := NewTracker(NewService(agg, nil, ""), 20*time.Millisecond, nil)
	defer tr.Close()

	tr.Request(context.Background(), types.SwapIntent{From: sol, To: usdc, Amount: "1"})
	tr.Request(context.Background(), types.SwapIntent{From: sol, To: usdc, Amount: "abc"})

	time.Sleep(60 * time.Millisecond)
	require.Zero(t, agg.calls())
	require.Nil(t, tr.Current())
}

func TestTracker_ApplyDropsStale(t *testing.T) {
	tr := NewTracker(NewService(&fakeAggregator{}, nil, ""), time.Hour, nil)
	defer tr.Close()

	first := tr.Request(context.Background(), types.SwapIntent{From: sol, To: usdc, Amount: "1"})
	second := tr.Request(context.Background(), types.SwapIntent{From: sol, To: usdc, Amount: "2"})
	require.Equal(t, first+1, second)

	newer := &Quote{OutputAmount: decimal.NewFromInt(2)}
	require.NoError(t, tr.Apply(second, newer, nil))

	older := &Quote{OutputAmount: decimal.NewFromInt(1)}
	require.ErrorIs(t, tr.Apply(first, older, nil), ErrStale)
	require.Same(t, newer, tr.Current())
	require.Equal(t, second, tr.Current().Generation)
}
