package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"

	"solramp/config"
	"solramp/pkg/balance"
	"solramp/pkg/cache"
	"solramp/pkg/chain"
	"solramp/pkg/client"
	"solramp/pkg/logger"
	"solramp/pkg/metrics"
	"solramp/pkg/parser"
	"solramp/pkg/quote"
	"solramp/pkg/ramp"
	"solramp/pkg/swap"
	"solramp/pkg/tokens"
	"solramp/pkg/types"
	"solramp/pkg/wallet"
)

var errNoWallet = errors.New("no wallet configured: set wallet.private_key or SOLRAMP_WALLET_PRIVATE_KEY")

// app holds the services a command needs, built from configuration
type app struct {
	cfg        *config.Config
	log        *logrus.Logger
	commitment rpc.CommitmentType

	rpc       *rpc.Client
	jupiter   *client.JupiterClient
	directory *tokens.Directory
	fees      *quote.FeeEstimator
	balances  *balance.Reader
	keypair   *wallet.Keypair

	closers []io.Closer
	metrics *metrics.Server
}

type appOptions struct {
	// serveMetrics starts the /metrics endpoint when metrics.addr is set
	serveMetrics bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, logCloser, err := logger.Init(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		log:        log,
		commitment: chain.ParseCommitment(cfg.RPC.Commitment),
		closers:    []io.Closer{logCloser},
	}

	metrics.Register(log)
	if opts.serveMetrics && cfg.Metrics.Addr != "" {
		a.metrics = metrics.Serve(cfg.Metrics.Addr, log.WithField("component", "metrics"))
	}

	store, err := a.cacheStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Wallet.PrivateKey != "" {
		a.keypair, err = wallet.FromBase58(cfg.Wallet.PrivateKey)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.rpc = chain.NewClient(cfg.RPC.URL)
	a.jupiter = client.NewJupiterClient(cfg.Aggregator.BaseURL, cfg.Aggregator.SlippageBps, cfg.Aggregator.FeeAccount, nil)
	a.directory = tokens.NewDirectory(client.NewTokenListClient(cfg.Tokens.URL, nil), store, tokens.Options{
		TTL:             cfg.Tokens.CacheTTL,
		PageSize:        cfg.Tokens.PageSize,
		InitialPageSize: cfg.Tokens.InitialPageSize,
	})
	a.fees = quote.NewFeeEstimator(a.jupiter, quote.FeeConfig{
		BufferMultiplier:  cfg.Fee.BufferMultiplier,
		MinNative:         cfg.Fee.MinNative,
		SignatureLamports: cfg.Fee.SignatureLamports,
		BaseLamports:      cfg.Fee.BaseLamports,
	})
	a.balances = balance.NewReader(a.rpc, a.commitment)

	return a, nil
}

func (a *app) cacheStore(ctx context.Context) (cache.Store, error) {
	switch a.cfg.Tokens.Cache {
	case "file":
		return cache.NewFile(a.cfg.Tokens.CachePath)
	case "redis":
		r, err := cache.DialRedis(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r)
		return r, nil
	default:
		return cache.NewMemory(time.Minute), nil
	}
}

// Close stops the metrics server and releases the cache and log file
func (a *app) Close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metrics.Stop(ctx); err != nil {
			a.log.WithError(err).Warn("failed to stop metrics server")
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

func (a *app) wallet() (*wallet.Keypair, error) {
	if a.keypair == nil {
		return nil, errNoWallet
	}
	return a.keypair, nil
}

// quoteService simulates swaps as the configured wallet when there is one
func (a *app) quoteService() *quote.Service {
	user := ""
	if a.keypair != nil {
		user = a.keypair.PublicKey().String()
	}
	return quote.NewService(a.jupiter, a.fees, user)
}

func (a *app) pipeline(signer swap.Signer, bus *swap.Bus) *swap.Pipeline {
	deps := swap.Deps{
		RPC:         a.rpc,
		Aggregator:  a.jupiter,
		Balances:    a.balances,
		Confirmer:   chain.NewConfirmer(a.rpc, a.commitment, a.cfg.Confirm.Timeout, a.cfg.Confirm.PollInterval),
		Signer:      signer,
		Bus:         bus,
		MaxRetries:  a.cfg.RPC.MaxRetries,
		PriorityFee: client.PriorityFeeAuto,
	}
	if a.cfg.Sponsor.URL != "" {
		deps.Sponsor = client.NewSponsorClient(a.cfg.Sponsor.URL, nil)
	}
	if a.cfg.Octane.URL != "" {
		deps.FeeCoverer = swap.NewJitSwapper(client.NewOctaneClient(a.cfg.Octane.URL, nil), a.rpc, swap.JitConfig{
			PacingDelay:    a.cfg.JIT.PacingDelay,
			SlippageBuffer: a.cfg.JIT.SlippageBuffer,
			Commitment:     a.commitment,
		})
	}
	return swap.NewPipeline(deps)
}

func (a *app) rampService() (*ramp.Service, error) {
	if a.cfg.Ramp.BaseURL == "" {
		return nil, fmt.Errorf("ramp.base_url is not configured")
	}
	return ramp.NewService(client.NewRampClient(a.cfg.Ramp.BaseURL, nil), ramp.Config{
		MinUSD:          a.cfg.Ramp.MinUSD,
		FallbackNGNRate: a.cfg.Ramp.FallbackNGNRate,
	}), nil
}

// resolveIntent turns "1 SOL to USDC" into a swap intent using the token directory
func (a *app) resolveIntent(ctx context.Context, args []string) (types.SwapIntent, error) {
	command, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		return types.SwapIntent{}, err
	}

	from, err := a.directory.Resolve(ctx, command.SourceToken)
	if err != nil {
		return types.SwapIntent{}, fmt.Errorf("source token %s: %w", command.SourceToken, err)
	}
	to, err := a.directory.Resolve(ctx, command.DestToken)
	if err != nil {
		return types.SwapIntent{}, fmt.Errorf("destination token %s: %w", command.DestToken, err)
	}

	return types.SwapIntent{From: from, To: to, Amount: command.Amount}, nil
}
