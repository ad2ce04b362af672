package swap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"

	"solramp/pkg/chain"
	"solramp/pkg/chain/chaintest"
	"solramp/pkg/client"
	"solramp/pkg/types"
	"solramp/pkg/wallet"
)

type fakeRoutes struct {
	steps    *[]string
	amounts  []uint64
	tx       string
	buildErr error
	sent     string
	token    string
	sendErr  error
}

func (f *fakeRoutes) BuildWhirlpoolsSwap(_ context.Context, _ string, _ string, amount uint64) (*client.WhirlpoolsSwap, error) {
	*f.steps = append(*f.steps, "build")
	f.amounts = append(f.amounts, amount)
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return &client.WhirlpoolsSwap{
		Transaction:  f.tx,
		MessageToken: "msg-token",
		Quote:        client.WhirlpoolsQuote{EstimatedAmountIn: "500", EstimatedAmountOut: "250"},
	}, nil
}

func (f *fakeRoutes) SendWhirlpoolsSwap(_ context.Context, signed, token string) (string, error) {
	*f.steps = append(*f.steps, "send")
	f.sent = signed
	f.token = token
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return "feesig", nil
}

func TestSizeFeeSwap(t *testing.T) {
	tests := []struct {
		required, rent uint64
		ratio, buffer  float64
		want           uint64
	}{
		{600_000, 890_880, 2, 1.02, 3_041_395},
		{1_000_000, 0, 0.5, 1.02, 510_000},
		{0, 0, 3, 1.02, 0},
		{10, 0, 0.01, 1.02, 0},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, SizeFeeSwap(tt.required, tt.rent, tt.ratio, tt.buffer))
	}
}

func newTestJit(t *testing.T) (*JitSwapper, *fakeRoutes, *wallet.Keypair, *[]string) {
	t.Helper()

	user := wallet.NewKeypair(solana.NewWallet().PrivateKey)
	relayer := solana.NewWallet().PublicKey()

	steps := &[]string{}
	routes := &fakeRoutes{steps: steps, tx: encodedTransfer(t, relayer, user.PublicKey())}

	fake := chaintest.New()
	fake.RentExempt = 890_880

	j := NewJitSwapper(routes, fake, JitConfig{
		PacingDelay:    time.Second,
		SlippageBuffer: 1.02,
		Commitment:     rpc.CommitmentConfirmed,
	})
	j.sleep = func(_ context.Context, d time.Duration) error {
		require.Equal(t, time.Second, d)
		*steps = append(*steps, "sleep")
		return nil
	}

	return j, routes, user, steps
}

func TestJitSwapper_Cover(t *testing.T) {
	j, routes, user, steps := newTestJit(t)

	sig, err := j.Cover(context.Background(), user, CoverRequest{
		Input:            usdc,
		ProbeAmount:      1_000_000,
		RequiredLamports: 600_000,
	})
	require.NoError(t, err)
	require.Equal(t, "feesig", sig)

	require.Equal(t, []string{"build", "sleep", "build", "send"}, *steps)
	require.Equal(t, []uint64{1_000_000, 3_041_395}, routes.amounts)
	require.Equal(t, "msg-token", routes.token)

	signed, err := chain.DecodeTransaction(routes.sent)
	require.NoError(t, err)
	require.Len(t, signed.Signatures, 2)
	require.NotEqual(t, solana.Signature{}, signed.Signatures[1])
}

func TestJitSwapper_NativeInputFailsFast(t *testing.T) {
	j, _, user, steps := newTestJit(t)

	_, err := j.Cover(context.Background(), user, CoverRequest{Input: types.NativeToken(), RequiredLamports: 1})
	require.ErrorIs(t, err, ErrNativeFeeGap)
	require.Empty(t, *steps)
}

func TestJitSwapper_Errors(t *testing.T) {
	j, routes, user, steps := newTestJit(t)
	routes.buildErr = errors.New("no whirlpool for mint")

	_, err := j.Cover(context.Background(), user, CoverRequest{Input: usdc, ProbeAmount: 1, RequiredLamports: 1})
	require.ErrorContains(t, err, "no whirlpool")
	require.Equal(t, []string{"build"}, *steps)

	j, routes, user, _ = newTestJit(t)
	routes.sendErr = &client.UpstreamError{Service: "octane", StatusCode: 500}
	_, err = j.Cover(context.Background(), user, CoverRequest{Input: usdc, ProbeAmount: 1, RequiredLamports: 1})
	var upstreamErr *client.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
