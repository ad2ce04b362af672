// Package balance reads native and SPL token balances for a wallet.
package balance

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solramp/pkg/chain"
	"solramp/pkg/parser"
	"solramp/pkg/types"
)

// maxConcurrentReads bounds the RPC fan-out of Balances
const maxConcurrentReads = 4

// TokenAmount is a balance in both base units and display units
type TokenAmount struct {
	Mint     string          `json:"mint"`
	Symbol   string          `json:"symbol,omitempty"`
	Amount   *big.Int        `json:"amount"`
	Decimals uint8           `json:"decimals"`
	UI       decimal.Decimal `json:"ui_amount"`
}

// NativeListener is called with the fresh lamport balance after a refresh
type NativeListener func(owner solana.PublicKey, lamports uint64)

type Reader struct {
	client     chain.RPC
	commitment rpc.CommitmentType
	logger     logrus.FieldLogger

	mu        sync.Mutex
	nextID    int
	listeners map[int]NativeListener
}

func NewReader(client chain.RPC, commitment rpc.CommitmentType) *Reader {
	return &Reader{
		client:     client,
		commitment: commitment,
		logger:     logrus.WithField("component", "balance"),
		listeners:  map[int]NativeListener{},
	}
}

// NativeBalance returns the owner's balance in lamports
func (r *Reader) NativeBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	res, err := r.client.GetBalance(ctx, owner, r.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return res.Value, nil
}

// TokenBalance reads the owner's associated token account for token. A
// missing account is a zero balance. The native token is read from the
// wallet's lamport balance.
func (r *Reader) TokenBalance(ctx context.Context, owner solana.PublicKey, token *types.Token) (*TokenAmount, error) {
	if token == nil {
		return nil, errors.New("token is required")
	}

	if token.IsNative() {
		lamports, err := r.NativeBalance(ctx, owner)
		if err != nil {
			return nil, err
		}
		return newTokenAmount(token, new(big.Int).SetUint64(lamports)), nil
	}

	mint, err := solana.PublicKeyFromBase58(token.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid token mint %s: %w", token.Address, err)
	}

	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive associated token address: %w", err)
	}

	res, err := r.client.GetTokenAccountBalance(ctx, ata, r.commitment)
	if err != nil {
		if isMissingAccount(err) {
			return newTokenAmount(token, big.NewInt(0)), nil
		}
		return nil, fmt.Errorf("failed to get %s balance: %w", token.Symbol, err)
	}

	if res == nil || res.Value == nil || res.Value.Amount == "" {
		return newTokenAmount(token, big.NewInt(0)), nil
	}

	amount, ok := new(big.Int).SetString(res.Value.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("failed to parse %s balance %q", token.Symbol, res.Value.Amount)
	}

	return newTokenAmount(token, amount), nil
}

// Balances reads every token concurrently, keyed by mint address
func (r *Reader) Balances(ctx context.Context, owner solana.PublicKey, tokens []*types.Token) (map[string]*TokenAmount, error) {
	results := make([]*TokenAmount, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, token := range tokens {
		g.Go(func() error {
			amount, err := r.TokenBalance(gctx, owner, token)
			if err != nil {
				return err
			}
			results[i] = amount
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return lo.SliceToMap(results, func(a *TokenAmount) (string, *TokenAmount) {
		return a.Mint, a
	}), nil
}

// Refresh re-reads the native balance and notifies listeners
func (r *Reader) Refresh(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	lamports, err := r.NativeBalance(ctx, owner)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	listeners := lo.Values(r.listeners)
	r.mu.Unlock()

	for _, l := range listeners {
		l(owner, lamports)
	}

	r.logger.WithFields(logrus.Fields{
		"owner":    owner.String(),
		"lamports": lamports,
	}).Debug("native balance refreshed")

	return lamports, nil
}

// OnNative registers l for refresh notifications and returns a function that removes it
func (r *Reader) OnNative(l NativeListener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.listeners[id] = l

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

func newTokenAmount(token *types.Token, amount *big.Int) *TokenAmount {
	return &TokenAmount{
		Mint:     token.Address,
		Symbol:   token.Symbol,
		Amount:   amount,
		Decimals: token.Decimals,
		UI:       parser.FromBaseUnits(amount, token.Decimals),
	}
}

func isMissingAccount(err error) bool {
	if errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	return strings.Contains(err.Error(), "could not find account")
}
