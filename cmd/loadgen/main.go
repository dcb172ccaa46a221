// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wooyang2018/svp-loadgen/bench"
	"github.com/wooyang2018/svp-loadgen/core"
	"github.com/wooyang2018/svp-loadgen/logger"
)

const (
	FlagServer       = "server"
	FlagClient       = "client"
	FlagThreads      = "threads"
	FlagTxs          = "txs"
	FlagPollInterval = "poll-interval"
	FlagRate         = "rate"
	FlagTimeout      = "timeout"
	FlagOutput       = "output"
	FlagDebug        = "debug"
)

var config = bench.DefaultConfig

var rootCmd = &cobra.Command{
	Use:   "loadgen",
	Short: "sign a batch of transfers, flood an accountant with them and measure tps",
	Long: `Reads a mint record from stdin, signs a batch of single unit transfers from
the mint to random recipients, submits them over udp from several workers and
polls the mint balance until it settles.

Example:
  accountant mint 1000000 > mint.json
  accountant serve < mint.json &
  loadgen -t 4 < mint.json`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Setup(config.Debug); err != nil {
			return err
		}
		defer logger.I().Sync()

		mint, err := core.ReadMint(os.Stdin)
		if err != nil {
			return err
		}
		runner, closeFn, err := bench.Dial(config, os.Stdout)
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if _, err := runner.Run(ctx, mint); err != nil {
			logger.I().Errorw("benchmark failed", "error", err)
			return err
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&config.ServerAddr,
		FlagServer, "s", config.ServerAddr, "accountant address, host:port or udp multiaddr")

	rootCmd.Flags().StringVarP(&config.ClientAddr,
		FlagClient, "c", config.ClientAddr, "local address of the query client")

	rootCmd.Flags().IntVarP(&config.Workers,
		FlagThreads, "t", config.Workers, "number of dispatch workers")

	rootCmd.Flags().IntVarP(&config.TxCount,
		FlagTxs, "n", config.TxCount, "number of transactions to sign and submit")

	rootCmd.Flags().DurationVar(&config.PollInterval,
		FlagPollInterval, config.PollInterval, "delay between balance samples")

	rootCmd.Flags().Float64Var(&config.SendRate,
		FlagRate, config.SendRate, "per worker send rate in tx per second, 0 for unlimited")

	rootCmd.Flags().DurationVar(&config.Timeout,
		FlagTimeout, config.Timeout, "upper bound for the whole run, 0 waits forever")

	rootCmd.Flags().StringVarP(&config.Output,
		FlagOutput, "o", config.Output, "report format: text, json or yaml")

	rootCmd.Flags().BoolVar(&config.Debug,
		FlagDebug, false, "debug mode")
}
