package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/require"
)

func transferTx(t *testing.T, payer, from solana.PublicKey) *solana.Transaction {
	t.Helper()
	to := solana.NewWallet().PublicKey()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(10, from, to).Build()},
		solana.Hash{1},
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)
	return tx
}

func TestFromBase58(t *testing.T) {
	w := solana.NewWallet()

	kp, err := FromBase58(" " + w.PrivateKey.String() + "\n")
	require.NoError(t, err)
	require.Equal(t, w.PublicKey(), kp.PublicKey())

	_, err = FromBase58("")
	require.Error(t, err)
	_, err = FromBase58("not-base58-0OIl")
	require.Error(t, err)
}

func TestKeypair_PartialSignKeepsSponsorSlot(t *testing.T) {
	sponsor := solana.NewWallet()
	user := NewKeypair(solana.NewWallet().PrivateKey)

	// sponsor pays the fee and signs first
	tx := transferTx(t, sponsor.PublicKey(), user.PublicKey())
	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(sponsor.PublicKey()) {
			return &sponsor.PrivateKey
		}
		return nil
	})
	require.NoError(t, err)
	sponsorSig := tx.Signatures[0]

	require.NoError(t, user.SignTransaction(context.Background(), tx))
	require.Len(t, tx.Signatures, 2)
	require.Equal(t, sponsorSig, tx.Signatures[0])
	require.NotEqual(t, solana.Signature{}, tx.Signatures[1])
	require.NoError(t, tx.VerifySignatures())
}

func TestKeypair_NotSigner(t *testing.T) {
	user := NewKeypair(solana.NewWallet().PrivateKey)
	other := solana.NewWallet().PublicKey()

	tx := transferTx(t, other, other)
	require.ErrorIs(t, user.SignTransaction(context.Background(), tx), ErrNotSigner)
}

func TestPrompting(t *testing.T) {
	user := NewKeypair(solana.NewWallet().PrivateKey)

	declined := &Prompting{Signer: user, Approve: func(context.Context, *solana.Transaction) (bool, error) { return false, nil }}
	tx := transferTx(t, user.PublicKey(), user.PublicKey())
	require.ErrorIs(t, declined.SignTransaction(context.Background(), tx), ErrDeclined)

	broken := &Prompting{Signer: user, Approve: func(context.Context, *solana.Transaction) (bool, error) {
		return false, errors.New("stdin closed")
	}}
	require.ErrorIs(t, broken.SignTransaction(context.Background(), tx), ErrDeclined)

	approved := &Prompting{Signer: user, Approve: func(context.Context, *solana.Transaction) (bool, error) { return true, nil }}
	require.NoError(t, approved.SignTransaction(context.Background(), tx))
	require.NoError(t, tx.VerifySignatures())
}
