// Package chaintest provides an in-memory chain.RPC for tests.
package chaintest

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// FakeRPC answers RPC calls from its fields. Statuses are handed out in
// order, the last one repeating.
type FakeRPC struct {
	mu sync.Mutex

	Balances      map[solana.PublicKey]uint64
	TokenAccounts map[solana.PublicKey]string
	TokenDecimals uint8
	RentExempt    uint64
	Statuses      []*rpc.SignatureStatusesResult
	BlockHeight   uint64
	Signature     solana.Signature

	BalanceErr error
	SendErr    error
	StatusErr  error

	Sent         []*solana.Transaction
	SendOpts     []rpc.TransactionOpts
	BalanceCalls int
	StatusCalls  int
}

func New() *FakeRPC {
	return &FakeRPC{
		Balances:      map[solana.PublicKey]uint64{},
		TokenAccounts: map[solana.PublicKey]string{},
		Signature:     solana.Signature{1, 2, 3},
	}
}

func (f *FakeRPC) SetBalance(owner solana.PublicKey, lamports uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Balances[owner] = lamports
}

func (f *FakeRPC) SentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sent)
}

func (f *FakeRPC) GetBalance(_ context.Context, account solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BalanceCalls++
	if f.BalanceErr != nil {
		return nil, f.BalanceErr
	}
	return &rpc.GetBalanceResult{Value: f.Balances[account]}, nil
}

func (f *FakeRPC) GetTokenAccountBalance(_ context.Context, account solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	amount, ok := f.TokenAccounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetTokenAccountBalanceResult{
		Value: &rpc.UiTokenAmount{Amount: amount, Decimals: f.TokenDecimals},
	}, nil
}

func (f *FakeRPC) GetMinimumBalanceForRentExemption(context.Context, uint64, rpc.CommitmentType) (uint64, error) {
	return f.RentExempt, nil
}

func (f *FakeRPC) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return solana.Signature{}, f.SendErr
	}
	f.Sent = append(f.Sent, tx)
	f.SendOpts = append(f.SendOpts, opts)
	return f.Signature, nil
}

func (f *FakeRPC) GetSignatureStatuses(_ context.Context, _ bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StatusCalls++
	if f.StatusErr != nil {
		return nil, f.StatusErr
	}

	var status *rpc.SignatureStatusesResult
	if len(f.Statuses) > 0 {
		idx := f.StatusCalls - 1
		if idx >= len(f.Statuses) {
			idx = len(f.Statuses) - 1
		}
		status = f.Statuses[idx]
	}

	out := &rpc.GetSignatureStatusesResult{}
	for range sigs {
		out.Value = append(out.Value, status)
	}
	return out, nil
}

func (f *FakeRPC) GetBlockHeight(context.Context, rpc.CommitmentType) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.BlockHeight, nil
}
