package chain

import (
	"context"
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// DecodeTransaction parses a base64 wire transaction
func DecodeTransaction(b64 string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize transaction: %w", err)
	}

	return tx, nil
}

// EncodeTransaction serializes tx to base64 wire format
func EncodeTransaction(tx *solana.Transaction) (string, error) {
	if len(tx.Signatures) == 0 {
		// unsigned slots travel as zero signatures
		tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Broadcast submits a signed transaction without preflight simulation and
// lets the node retry delivery up to maxRetries times
func Broadcast(ctx context.Context, client RPC, tx *solana.Transaction, maxRetries uint) (solana.Signature, error) {
	opts := rpc.TransactionOpts{
		SkipPreflight: true,
		MaxRetries:    &maxRetries,
	}

	sig, err := client.SendTransactionWithOpts(ctx, tx, opts)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return sig, nil
}
