package balance

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"

	"solramp/pkg/chain/chaintest"
	"solramp/pkg/types"
)

var usdc = &types.Token{
	Address:  "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	Symbol:   "USDC",
	Decimals: 6,
}

func TestReader_NativeBalance(t *testing.T) {
	fake := chaintest.New()
	owner := solana.NewWallet().PublicKey()
	fake.SetBalance(owner, 1_500_000_000)

	r := NewReader(fake, rpc.CommitmentConfirmed)
	lamports, err := r.NativeBalance(context.Background(), owner)
	require.NoError(t, err)
	require.Equal(t, uint64(1_500_000_000), lamports)

	sol, err := r.TokenBalance(context.Background(), owner, types.NativeToken())
	require.NoError(t, err)
	require.Equal(t, "1.5", sol.UI.String())

	fake.BalanceErr = errors.New("rpc down")
	_, err = r.NativeBalance(context.Background(), owner)
	require.ErrorContains(t, err, "rpc down")
}

func TestReader_TokenBalance(t *testing.T) {
	fake := chaintest.New()
	owner := solana.NewWallet().PublicKey()
	mint := solana.MustPublicKeyFromBase58(usdc.Address)
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	fake.TokenAccounts[ata] = "9998099"

	r := NewReader(fake, rpc.CommitmentConfirmed)
	amount, err := r.TokenBalance(context.Background(), owner, usdc)
	require.NoError(t, err)
	require.Equal(t, "9998099", amount.Amount.String())
	require.Equal(t, "9.998099", amount.UI.String())

	// no account yet
	other := solana.NewWallet().PublicKey()
	amount, err = r.TokenBalance(context.Background(), other, usdc)
	require.NoError(t, err)
	require.Zero(t, amount.Amount.Sign())
}

func TestReader_Balances(t *testing.T) {
	fake := chaintest.New()
	owner := solana.NewWallet().PublicKey()
	fake.SetBalance(owner, 2_000_000_000)

	r := NewReader(fake, rpc.CommitmentConfirmed)
	balances, err := r.Balances(context.Background(), owner, []*types.Token{types.NativeToken(), usdc})
	require.NoError(t, err)
	require.Len(t, balances, 2)
	require.Equal(t, "2", balances[types.NativeMint].UI.String())
	require.Zero(t, balances[usdc.Address].Amount.Sign())

	_, err = r.Balances(context.Background(), owner, []*types.Token{{Address: "not-a-key", Symbol: "BAD"}})
	require.Error(t, err)
}

func TestReader_RefreshNotifies(t *testing.T) {
	fake := chaintest.New()
	owner := solana.NewWallet().PublicKey()
	fake.SetBalance(owner, 42)

	r := NewReader(fake, rpc.CommitmentConfirmed)

	var got []uint64
	unsubscribe := r.OnNative(func(o solana.PublicKey, lamports uint64) {
		require.Equal(t, owner, o)
		got = append(got, lamports)
	})

	_, err := r.Refresh(context.Background(), owner)
	require.NoError(t, err)

	fake.SetBalance(owner, 43)
	_, err = r.Refresh(context.Background(), owner)
	require.NoError(t, err)

	unsubscribe()
	_, err = r.Refresh(context.Background(), owner)
	require.NoError(t, err)

	require.Equal(t, []uint64{42, 43}, got)
}
