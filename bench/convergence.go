// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package bench

import (
	"context"
	"errors"
	"time"

	"github.com/wooyang2018/svp-loadgen/core"
	"github.com/wooyang2018/svp-loadgen/logger"
)

var ErrNoBalance = errors.New("server reports no balance")

type BalanceGetter interface {
	GetBalance(ctx context.Context, account *core.PublicKey) (int64, bool, error)
}

// WaitForConvergence polls the balance of account every interval and returns
// it once two consecutive samples are equal. Equal samples are taken to mean
// every submitted transfer has been applied; a balance that stalls mid-flight
// ends the wait early. Without a deadline on ctx the wait is unbounded.
func WaitForConvergence(
	ctx context.Context, interval time.Duration, getter BalanceGetter, account *core.PublicKey,
) (int64, error) {
	prev, err := sampleBalance(ctx, getter, account)
	if err != nil {
		return 0, err
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for polls := 1; ; polls++ {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-timer.C:
		}
		val, err := sampleBalance(ctx, getter, account)
		if err != nil {
			return 0, err
		}
		logger.I().Debugw("polled balance", "poll", polls, "prev", prev, "balance", val)
		if val == prev {
			return val, nil
		}
		prev = val
		timer.Reset(interval)
	}
}

func sampleBalance(ctx context.Context, getter BalanceGetter, account *core.PublicKey) (int64, error) {
	val, found, err := getter.GetBalance(ctx, account)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrNoBalance
	}
	return val, nil
}
