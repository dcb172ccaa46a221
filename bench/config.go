// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package bench

import (
	"fmt"
	"time"

	"github.com/wooyang2018/svp-loadgen/protocol"
)

type Config struct {
	// accountant address, host:port or udp multiaddr
	ServerAddr string

	// local address of the primary client used for queries
	ClientAddr string

	// number of dispatch workers, each with its own endpoint
	Workers int

	// number of transactions to sign and submit
	TxCount int

	// delay between two balance samples while waiting for convergence
	PollInterval time.Duration

	// per worker send rate in tx per second, unlimited if zero
	SendRate float64

	// upper bound for the whole run, unbounded if zero
	Timeout time.Duration

	// report format: text, json or yaml
	Output string

	Debug bool
}

var DefaultConfig = Config{
	ServerAddr:   "127.0.0.1:8000",
	ClientAddr:   "127.0.0.1:8001",
	Workers:      4,
	TxCount:      1000000,
	PollInterval: 20 * time.Millisecond,
	Output:       OutputText,
}

// Validate rejects configurations the run cannot start with
func (c Config) Validate() error {
	if c.Workers < 1 {
		return ErrInvalidWorkers
	}
	if c.TxCount < 0 {
		return ErrNegativeCount
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.SendRate < 0 {
		return fmt.Errorf("send rate must not be negative, got %f", c.SendRate)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("unknown output format %q", c.Output)
	}
	if _, err := protocol.ParseAddr(c.ServerAddr); err != nil {
		return fmt.Errorf("invalid server address, %w", err)
	}
	if _, err := protocol.ParseAddr(c.ClientAddr); err != nil {
		return fmt.Errorf("invalid client address, %w", err)
	}
	return nil
}
