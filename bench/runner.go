// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package bench

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/wooyang2018/svp-loadgen/client"
	"github.com/wooyang2018/svp-loadgen/core"
	"github.com/wooyang2018/svp-loadgen/logger"
)

type Stage uint8

const (
	StageStart Stage = iota
	StageSnapshotFetched
	StageBatchSigned
	StageDispatched
	StageConverged
	StageReported
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageSnapshotFetched:
		return "snapshot_fetched"
	case StageBatchSigned:
		return "batch_signed"
	case StageDispatched:
		return "dispatched"
	case StageConverged:
		return "converged"
	case StageReported:
		return "reported"
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// Ledger is the query side of the accountant used by the runner
type Ledger interface {
	BalanceGetter
	GetLastID(ctx context.Context) ([]byte, error)
}

// Runner drives one benchmark run through its stages in order.
// Any error ends the run.
type Runner struct {
	config     Config
	ledger     Ledger
	factory    *Factory
	dispatcher *Dispatcher
	out        io.Writer

	runID string
	stage Stage
}

// NewRunner creates a runner on top of an existing ledger connection
func NewRunner(config Config, ledger Ledger, out io.Writer) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	dispatcher := NewDispatcher(config.ServerAddr).SetRateLimit(config.SendRate)
	return &Runner{
		config:     config,
		ledger:     ledger,
		factory:    NewFactory(),
		dispatcher: dispatcher,
		out:        out,
		runID:      uuid.NewString(),
	}, nil
}

// Dial binds the primary client on config.ClientAddr and creates a runner on it.
// The returned close function releases the client.
func Dial(config Config, out io.Writer) (*Runner, func() error, error) {
	if err := config.Validate(); err != nil {
		return nil, nil, err
	}
	c, err := client.Dial(config.ClientAddr, config.ServerAddr)
	if err != nil {
		return nil, nil, err
	}
	r, err := NewRunner(config, c, out)
	if err != nil {
		c.Close()
		return nil, nil, err
	}
	return r, c.Close, nil
}

func (r *Runner) SetFactory(f *Factory) *Runner {
	r.factory = f
	return r
}

func (r *Runner) SetDispatcher(d *Dispatcher) *Runner {
	r.dispatcher = d
	return r
}

func (r *Runner) Stage() Stage {
	return r.stage
}

func (r *Runner) RunID() string {
	return r.runID
}

// Run funds the batch from mint, signs it, submits it, waits for the mint
// balance to settle and writes the report.
func (r *Runner) Run(ctx context.Context, mint *core.Mint) (*Report, error) {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}
	report, err := r.run(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("run %s failed after %s, %w", r.runID, r.stage, err)
	}
	return report, nil
}

func (r *Runner) run(ctx context.Context, mint *core.Mint) (*Report, error) {
	r.setStage(StageStart)
	sender, err := mint.PrivateKey()
	if err != nil {
		return nil, err
	}
	account := sender.PublicKey()

	lastID, err := r.ledger.GetLastID(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot get last id, %w", err)
	}
	initial, err := sampleBalance(ctx, r.ledger, account)
	if err != nil {
		return nil, fmt.Errorf("cannot get mint balance, %w", err)
	}
	logger.I().Infow("mint initial balance", "run", r.runID, "balance", initial)
	r.setStage(StageSnapshotFetched)

	start := time.Now()
	txs, err := r.factory.GenerateBatch(ctx, r.config.TxCount, sender, lastID)
	if err != nil {
		return nil, err
	}
	signing := Measure(int64(len(txs)), start, time.Now())
	logger.I().Infow("signed transactions", "run", r.runID,
		"count", signing.Count, "elapsed", signing.Elapsed, "rate", signing.Rate())
	r.setStage(StageBatchSigned)

	start = time.Now()
	if err := r.dispatcher.SubmitAll(ctx, txs, r.config.Workers); err != nil {
		return nil, err
	}
	r.setStage(StageDispatched)

	final, err := WaitForConvergence(ctx, r.config.PollInterval, r.ledger, account)
	if err != nil {
		return nil, err
	}
	transfer := Measure(initial-final, start, time.Now())
	logger.I().Infow("mint final balance", "run", r.runID, "balance", final)
	r.setStage(StageConverged)

	report := &Report{
		RunID:          r.runID,
		Workers:        r.config.Workers,
		Signing:        signing,
		Transfer:       transfer,
		InitialBalance: initial,
		FinalBalance:   final,
	}
	if err := report.Write(r.out, r.config.Output); err != nil {
		return nil, err
	}
	r.setStage(StageReported)
	return report, nil
}

func (r *Runner) setStage(stage Stage) {
	r.stage = stage
	logger.I().Infow("run stage", "run", r.runID, "stage", stage)
}
