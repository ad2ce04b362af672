package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"
)

var (
	ErrConfirmationTimeout = errors.New("transaction was not confirmed in time")
	ErrTransactionFailed   = errors.New("transaction failed on chain")
)

// Confirmer polls signature statuses until a transaction reaches the
// configured commitment
type Confirmer struct {
	client       RPC
	commitment   rpc.CommitmentType
	timeout      time.Duration
	pollInterval time.Duration
	logger       logrus.FieldLogger
}

func NewConfirmer(client RPC, commitment rpc.CommitmentType, timeout, pollInterval time.Duration) *Confirmer {
	return &Confirmer{
		client:       client,
		commitment:   commitment,
		timeout:      timeout,
		pollInterval: pollInterval,
		logger:       logrus.WithField("component", "confirmer"),
	}
}

// Wait blocks until sig is confirmed. It returns ErrTransactionFailed when the
// transaction landed with an error and ErrConfirmationTimeout when the timeout
// elapses or the chain moves past lastValidBlockHeight (zero disables that check).
func (c *Confirmer) Wait(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		done, err := c.poll(waitCtx, sig, lastValidBlockHeight)
		if done || err != nil {
			return err
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %s after %s", ErrConfirmationTimeout, sig, c.timeout)
		case <-ticker.C:
		}
	}
}

func (c *Confirmer) poll(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) (bool, error) {
	status, err := Status(ctx, c.client, sig, false)
	if err != nil {
		// transient, keep polling until the deadline
		c.logger.WithError(err).WithField("signature", sig.String()).Debug("signature status lookup failed")
		return false, nil
	}

	if status != nil {
		if status.Err != nil {
			return true, fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
		}
		if reached(status.ConfirmationStatus, c.commitment) {
			return true, nil
		}
	}

	if lastValidBlockHeight == 0 {
		return false, nil
	}

	height, err := c.client.GetBlockHeight(ctx, c.commitment)
	if err != nil {
		c.logger.WithError(err).Debug("block height lookup failed")
		return false, nil
	}
	if height > lastValidBlockHeight {
		return true, fmt.Errorf("%w: blockhash expired at height %d", ErrConfirmationTimeout, lastValidBlockHeight)
	}

	return false, nil
}

// Status returns the status of sig or nil when the node does not know it
func Status(ctx context.Context, client RPC, sig solana.Signature, searchHistory bool) (*rpc.SignatureStatusesResult, error) {
	res, err := client.GetSignatureStatuses(ctx, searchHistory, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to get signature status: %w", err)
	}
	if res == nil || len(res.Value) == 0 {
		return nil, nil
	}
	return res.Value[0], nil
}

func reached(status rpc.ConfirmationStatusType, commitment rpc.CommitmentType) bool {
	switch commitment {
	case rpc.CommitmentFinalized:
		return status == rpc.ConfirmationStatusFinalized
	case rpc.CommitmentProcessed:
		return status != ""
	default:
		return status == rpc.ConfirmationStatusConfirmed || status == rpc.ConfirmationStatusFinalized
	}
}
