// Package swap runs a quoted swap through fee check, optional fee coverage,
// transaction build, sponsorship, signing, broadcast and confirmation,
// publishing an event for every stage it enters.
package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"solramp/pkg/chain"
	"solramp/pkg/client"
	"solramp/pkg/metrics"
	"solramp/pkg/parser"
	"solramp/pkg/quote"
	"solramp/pkg/types"
)

// Signer is the wallet that authorizes the swap
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

type SwapBuilder interface {
	BuildSwap(ctx context.Context, quote *client.QuoteResponse, userPublicKey string, priorityFee interface{}) (*client.SwapResponse, error)
}

type Sponsor interface {
	Sponsor(ctx context.Context, txBase64 string) (string, error)
}

type BalanceReader interface {
	NativeBalance(ctx context.Context, owner solana.PublicKey) (uint64, error)
	Refresh(ctx context.Context, owner solana.PublicKey) (uint64, error)
}

type Confirmer interface {
	Wait(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) error
}

// Deps wires the pipeline. Sponsor and FeeCoverer are optional: without a
// sponsor the built transaction is signed as is, without a fee coverer a
// fee shortfall fails the submission.
type Deps struct {
	RPC        chain.RPC
	Aggregator SwapBuilder
	Sponsor    Sponsor
	Balances   BalanceReader
	Confirmer  Confirmer
	FeeCoverer FeeCoverer
	Signer     Signer
	Bus        *Bus

	MaxRetries  uint
	PriorityFee interface{}
}

// Result describes one submission attempt. Signature is set as soon as the
// transaction has been broadcast, even when confirmation fails.
type Result struct {
	AttemptID    string        `json:"attempt_id"`
	Signature    string        `json:"signature,omitempty"`
	JitSignature string        `json:"jit_signature,omitempty"`
	Stages       []types.Stage `json:"stages"`
}

type Pipeline struct {
	deps   Deps
	guard  Guard
	logger logrus.FieldLogger
}

func NewPipeline(deps Deps) *Pipeline {
	if deps.Bus == nil {
		deps.Bus = NewBus()
	}
	return &Pipeline{
		deps:   deps,
		logger: logrus.WithField("component", "pipeline"),
	}
}

// Bus returns the bus stage events are published on
func (p *Pipeline) Bus() *Bus {
	return p.deps.Bus
}

// InProgress reports whether a submission is running
func (p *Pipeline) InProgress() bool {
	return p.guard.Busy()
}

// Submit executes q. A second call while one is running returns
// ErrInProgress without touching the network. Failures are returned as
// *StageError together with the partial Result.
func (p *Pipeline) Submit(ctx context.Context, q *quote.Quote) (*Result, error) {
	if !p.guard.TryAcquire() {
		return nil, ErrInProgress
	}
	defer p.guard.Release()

	a := &attempt{
		Pipeline: p,
		result:   &Result{AttemptID: uuid.NewString()},
		started:  time.Now(),
	}
	a.log = p.logger.WithField("attempt", a.result.AttemptID)

	err := a.run(ctx, q)
	if err != nil {
		metrics.ObservePipeline("failed", time.Since(a.started))
		return a.result, err
	}

	metrics.ObservePipeline("done", time.Since(a.started))
	return a.result, nil
}

type attempt struct {
	*Pipeline
	result  *Result
	started time.Time
	log     logrus.FieldLogger
}

func (a *attempt) emit(stage types.Stage, msg string) {
	a.result.Stages = append(a.result.Stages, stage)
	metrics.StageTransition(stage.String())
	a.log.WithField("stage", stage.String()).Debug(msg)

	a.deps.Bus.Publish(types.Event{
		AttemptID: a.result.AttemptID,
		Stage:     stage,
		Message:   msg,
		Signature: a.result.Signature,
		At:        time.Now(),
	})
}

func (a *attempt) fail(stage types.Stage, kind Kind, err error) error {
	stageErr := &StageError{Stage: stage, Kind: kind, Err: err}

	a.result.Stages = append(a.result.Stages, types.StageFailed)
	metrics.StageTransition(types.StageFailed.String())
	metrics.PipelineFailure(string(kind))
	a.log.WithError(err).WithFields(logrus.Fields{
		"stage": stage.String(),
		"kind":  string(kind),
	}).Warn("swap failed")

	a.deps.Bus.Publish(types.Event{
		AttemptID: a.result.AttemptID,
		Stage:     types.StageFailed,
		Message:   Reason(stageErr),
		Signature: a.result.Signature,
		Err:       stageErr,
		At:        time.Now(),
	})

	return stageErr
}

func (a *attempt) missing(q *quote.Quote) []string {
	var missing []string
	if q == nil || q.Raw == nil {
		missing = append(missing, "quote")
	}
	if a.deps.Signer == nil {
		missing = append(missing, "signer")
	}
	if a.deps.RPC == nil {
		missing = append(missing, "rpc")
	}
	if a.deps.Aggregator == nil {
		missing = append(missing, "aggregator")
	}
	if a.deps.Balances == nil {
		missing = append(missing, "balance reader")
	}
	if a.deps.Confirmer == nil {
		missing = append(missing, "confirmer")
	}
	return missing
}

func (a *attempt) run(ctx context.Context, q *quote.Quote) error {
	if missing := a.missing(q); len(missing) > 0 {
		return a.fail(types.StageIdle, KindPreconditionMissing, fmt.Errorf("%w: %v", ErrMissingDependencies, missing))
	}

	owner := a.deps.Signer.PublicKey()

	if err := a.checkFee(ctx, owner, q); err != nil {
		return err
	}

	// BuildTransaction
	a.emit(types.StageBuildTransaction, "Building swap transaction")
	built, err := a.deps.Aggregator.BuildSwap(ctx, q.Raw, owner.String(), a.deps.PriorityFee)
	if err != nil {
		return a.fail(types.StageBuildTransaction, KindUpstreamUnavailable, err)
	}

	// Sponsor
	txBase64 := built.SwapTransaction
	if a.deps.Sponsor != nil {
		a.emit(types.StageSponsor, "Requesting fee sponsorship")
		txBase64, err = a.deps.Sponsor.Sponsor(ctx, built.SwapTransaction)
		if err != nil {
			return a.fail(types.StageSponsor, KindUpstreamUnavailable, err)
		}
	} else {
		a.emit(types.StageSponsor, "No sponsor configured, wallet pays the fee")
	}

	tx, err := chain.DecodeTransaction(txBase64)
	if err != nil {
		return a.fail(types.StageSponsor, KindUpstreamUnavailable, err)
	}

	// Sign
	a.emit(types.StageSign, "Waiting for signature")
	if err := a.deps.Signer.SignTransaction(ctx, tx); err != nil {
		return a.fail(types.StageSign, KindUserDeclined, err)
	}

	// Broadcast
	a.emit(types.StageBroadcast, "Sending transaction")
	sig, err := chain.Broadcast(ctx, a.deps.RPC, tx, a.deps.MaxRetries)
	if err != nil {
		return a.fail(types.StageBroadcast, KindUpstreamUnavailable, err)
	}
	a.result.Signature = sig.String()
	a.log = a.log.WithField("signature", a.result.Signature)

	// Confirm
	a.emit(types.StageConfirm, "Confirming transaction")
	if err := a.deps.Confirmer.Wait(ctx, sig, built.LastValidBlockHeight); err != nil {
		kind := KindConfirmationTimeout
		if errors.Is(err, chain.ErrTransactionFailed) {
			kind = KindOnChainFailure
		}
		return a.fail(types.StageConfirm, kind, err)
	}

	if _, err := a.deps.Balances.Refresh(ctx, owner); err != nil {
		a.log.WithError(err).Warn("balance refresh after swap failed")
	}

	a.emit(types.StageDone, "Swap successful")
	return nil
}

// checkFee runs FeeCheck and, when the wallet is short, JitSwap
func (a *attempt) checkFee(ctx context.Context, owner solana.PublicKey, q *quote.Quote) error {
	a.emit(types.StageFeeCheck, "Checking SOL balance for network fees")

	balance, err := a.deps.Balances.NativeBalance(ctx, owner)
	if err != nil {
		return a.fail(types.StageFeeCheck, KindUpstreamUnavailable, err)
	}

	required := q.Fee.Lamports
	if balance >= required {
		return nil
	}
	shortfall := required - balance

	if q.Intent.From.IsNative() {
		return a.fail(types.StageFeeCheck, KindFeeCoverage, fmt.Errorf("%w: short %s SOL",
			ErrNativeFeeGap, parser.FromBaseUnits(bigFromUint(shortfall), types.NativeDecimals)))
	}
	if a.deps.FeeCoverer == nil {
		return a.fail(types.StageFeeCheck, KindFeeCoverage, ErrFeeCoverageDisabled)
	}

	a.emit(types.StageJitSwap, fmt.Sprintf("Swapping %s for SOL to cover transaction fees", q.Intent.From.Symbol))

	probe := uint64(0)
	if q.InAmount != nil && q.InAmount.IsUint64() {
		probe = q.InAmount.Uint64()
	}

	sig, err := a.deps.FeeCoverer.Cover(ctx, a.deps.Signer, CoverRequest{
		Input:            q.Intent.From,
		ProbeAmount:      probe,
		RequiredLamports: shortfall,
	})
	if err != nil {
		return a.fail(types.StageJitSwap, KindFeeCoverage, err)
	}
	a.result.JitSignature = sig

	if _, err := a.deps.Balances.Refresh(ctx, owner); err != nil {
		a.log.WithError(err).Warn("balance refresh after fee swap failed")
	}

	return nil
}

func bigFromUint(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}
