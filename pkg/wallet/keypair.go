// Package wallet provides signing identities for swap transactions.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrDeclined  = errors.New("signing request declined")
	ErrNotSigner = errors.New("wallet is not a required signer of the transaction")
)

// Keypair signs with a locally held private key
type Keypair struct {
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
}

// FromBase58 loads a keypair from a base58 encoded private key
func FromBase58(encoded string) (*Keypair, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("private key not configured")
	}

	privateKey, err := solana.PrivateKeyFromBase58(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &Keypair{
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
	}, nil
}

func NewKeypair(privateKey solana.PrivateKey) *Keypair {
	return &Keypair{privateKey: privateKey, publicKey: privateKey.PublicKey()}
}

func (k *Keypair) PublicKey() solana.PublicKey {
	return k.publicKey
}

// SignTransaction adds this wallet's signature and leaves every other
// signature slot untouched, so a sponsor's co-signature survives.
func (k *Keypair) SignTransaction(_ context.Context, tx *solana.Transaction) error {
	if !tx.Message.IsSigner(k.publicKey) {
		return ErrNotSigner
	}

	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(k.publicKey) {
			return &k.privateKey
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}

	return nil
}

// Signer is the interface Prompting wraps
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// ApproveFunc asks the wallet owner whether to sign
type ApproveFunc func(ctx context.Context, tx *solana.Transaction) (bool, error)

// Prompting asks for approval before delegating to the wrapped signer
type Prompting struct {
	Signer
	Approve ApproveFunc
}

func (p *Prompting) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	if p.Approve != nil {
		ok, err := p.Approve(ctx, tx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDeclined, err)
		}
		if !ok {
			return ErrDeclined
		}
	}
	return p.Signer.SignTransaction(ctx, tx)
}
