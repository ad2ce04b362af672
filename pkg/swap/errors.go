package swap

import (
	"errors"
	"fmt"

	"solramp/pkg/chain"
	"solramp/pkg/client"
	"solramp/pkg/types"
	"solramp/pkg/wallet"
)

var (
	ErrMissingDependencies = errors.New("missing dependencies")
	ErrInProgress          = errors.New("a swap is already in progress")
	ErrNativeFeeGap        = errors.New("cannot cover fee with native token")
	ErrFeeCoverageDisabled = errors.New("not enough SOL for network fees and fee coverage is not configured")
	ErrUserDeclined        = wallet.ErrDeclined
)

// Kind classifies why a submission failed
type Kind string

const (
	KindPreconditionMissing Kind = "precondition-missing"
	KindUpstreamUnavailable Kind = "upstream-unavailable"
	KindUserDeclined        Kind = "user-declined"
	KindFeeCoverage         Kind = "insufficient-funds-for-fee-after-jit"
	KindConfirmationTimeout Kind = "confirmation-timeout"
	KindOnChainFailure      Kind = "on-chain-failure"
)

// StageError is the failure of one pipeline stage
type StageError struct {
	Stage types.Stage
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind carried by err, or "" when err is not a StageError
func KindOf(err error) Kind {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind
	}
	return ""
}

// Reason turns a pipeline error into a short message for the user
func Reason(err error) string {
	var upstreamErr *client.UpstreamError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInProgress):
		return "A swap is already in progress"
	case errors.Is(err, ErrMissingDependencies):
		return "Connect a wallet and get a quote before swapping"
	case errors.Is(err, ErrNativeFeeGap):
		return "Cannot cover fee with native token: add SOL to pay network fees"
	case errors.Is(err, ErrFeeCoverageDisabled):
		return "Not enough SOL to pay network fees"
	case errors.Is(err, ErrUserDeclined):
		return "Transaction was declined"
	case errors.Is(err, chain.ErrConfirmationTimeout):
		return "Transaction was sent but not confirmed in time, check it with the signature"
	case errors.Is(err, chain.ErrTransactionFailed):
		return "Transaction failed on chain"
	case errors.As(err, &upstreamErr):
		if upstreamErr.Message != "" {
			return fmt.Sprintf("%s unavailable: %s", upstreamErr.Service, upstreamErr.Message)
		}
		return fmt.Sprintf("%s unavailable (status %d)", upstreamErr.Service, upstreamErr.StatusCode)
	}

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		if stageErr.Kind == KindFeeCoverage {
			return fmt.Sprintf("Failed to acquire SOL for fees: %v", stageErr.Err)
		}
		return fmt.Sprintf("%s failed: %v", stageErr.Stage, stageErr.Err)
	}

	return err.Error()
}
