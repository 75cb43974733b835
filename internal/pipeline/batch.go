package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/polyinsider/scout/internal/store"
)

// Source loads a wallet's trades and optional summary.
type Source interface {
	Load(ctx context.Context, wallet string) ([]store.Trade, *store.WalletSummary, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, wallet string) ([]store.Trade, *store.WalletSummary, error)

// Load calls f.
func (f SourceFunc) Load(ctx context.Context, wallet string) ([]store.Trade, *store.WalletSummary, error) {
	return f(ctx, wallet)
}

// Result pairs a wallet with its report or the error that prevented it.
type Result struct {
	Wallet string
	Report Report
	Err    error
}

// BatchOptions are shared by every wallet of a batch.
type BatchOptions struct {
	// Workers bounds concurrent loads and runs; below 1 means 1.
	Workers int

	AsOf      time.Time
	BaseRates map[string]float64
}

type job struct {
	idx    int
	wallet string
}

// Batch analyzes wallets with at most opts.Workers concurrent loads and runs.
// Results are returned in input order. A failed load is reported in its
// Result and does not stop the batch; cancelling ctx marks the remaining
// wallets with ctx.Err().
func (p *Pipeline) Batch(ctx context.Context, wallets []string, src Source, opts BatchOptions) []Result {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(wallets))
	jobs := make(chan job)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.idx] = p.runOne(ctx, j.wallet, src, opts)
			}
		}()
	}

	sent := 0
dispatch:
	for i, w := range wallets {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- job{idx: i, wallet: w}:
			sent++
		}
	}
	close(jobs)
	wg.Wait()

	for i := sent; i < len(wallets); i++ {
		results[i] = Result{Wallet: wallets[i], Err: ctx.Err()}
	}
	return results
}

func (p *Pipeline) runOne(ctx context.Context, wallet string, src Source, opts BatchOptions) Result {
	if err := ctx.Err(); err != nil {
		return Result{Wallet: wallet, Err: err}
	}
	trades, summary, err := src.Load(ctx, wallet)
	if err != nil {
		return Result{Wallet: wallet, Err: fmt.Errorf("load %s: %w", wallet, err)}
	}
	return Result{Wallet: wallet, Report: p.Run(Input{
		Wallet:    wallet,
		Trades:    trades,
		Summary:   summary,
		AsOf:      opts.AsOf,
		BaseRates: opts.BaseRates,
	})}
}
