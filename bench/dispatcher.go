// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package bench

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wooyang2018/svp-loadgen/client"
	"github.com/wooyang2018/svp-loadgen/core"
	"github.com/wooyang2018/svp-loadgen/logger"
	"github.com/wooyang2018/svp-loadgen/protocol"
)

// Submitter sends transactions at most once and never waits for an
// acknowledgment. Settlement can only be observed through the balance,
// see WaitForConvergence.
type Submitter interface {
	TransferSigned(ctx context.Context, tx *core.Transaction) error
	Close() error
}

// Dialer opens a new endpoint owned by a single worker
type Dialer func() (Submitter, error)

// UDPDialer binds every endpoint to an ephemeral local port and targets server
func UDPDialer(server string) Dialer {
	return func() (Submitter, error) {
		c, err := client.Dial(protocol.AnyAddr, server)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Dispatcher submits a batch concurrently, one chunk and one endpoint per worker.
type Dispatcher struct {
	dial  Dialer
	limit rate.Limit
}

func NewDispatcher(server string) *Dispatcher {
	return &Dispatcher{
		dial:  UDPDialer(server),
		limit: rate.Inf,
	}
}

func (d *Dispatcher) SetDialer(dial Dialer) *Dispatcher {
	d.dial = dial
	return d
}

// SetRateLimit caps each worker at txPerSec sends per second; zero or less means unlimited
func (d *Dispatcher) SetRateLimit(txPerSec float64) *Dispatcher {
	if txPerSec <= 0 {
		d.limit = rate.Inf
	} else {
		d.limit = rate.Limit(txPerSec)
	}
	return d
}

// SubmitAll partitions txs into workers chunks and sends each chunk in order
// from its own endpoint. It returns once every worker is done; the first
// send error aborts its worker and is returned. Nothing is retried.
func (d *Dispatcher) SubmitAll(ctx context.Context, txs []*core.Transaction, workers int) error {
	chunks, err := Partition(len(txs), workers)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, trs := i, txs[chunk.Start:chunk.End]
		g.Go(func() error {
			return d.submitChunk(gctx, i, trs)
		})
	}
	return g.Wait()
}

func (d *Dispatcher) submitChunk(ctx context.Context, worker int, trs []*core.Transaction) error {
	logger.I().Infow("transferring 1 unit per transaction", "worker", worker, "count", len(trs))
	sub, err := d.dial()
	if err != nil {
		return fmt.Errorf("worker %d cannot open endpoint, %w", worker, err)
	}
	defer sub.Close()

	var limiter *rate.Limiter
	if d.limit != rate.Inf {
		limiter = rate.NewLimiter(d.limit, 1)
	}
	for _, tx := range trs {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if err := sub.TransferSigned(ctx, tx); err != nil {
			return fmt.Errorf("worker %d transfer failed, %w", worker, err)
		}
	}
	return nil
}
