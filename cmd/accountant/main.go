// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wooyang2018/svp-loadgen/accountant"
	"github.com/wooyang2018/svp-loadgen/core"
	"github.com/wooyang2018/svp-loadgen/logger"
)

const (
	FlagAddr    = "addr"
	FlagAPIAddr = "api-addr"
	FlagDataDir = "datadir"
	FlagDebug   = "debug"
)

var (
	addr    = "127.0.0.1:8000"
	apiAddr string
	datadir string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:          "accountant",
	Short:        "reference ledger for the load generator",
	SilenceUsage: true,
}

var mintCmd = &cobra.Command{
	Use:   "mint <tokens>",
	Short: "write a new mint record to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokens, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid tokens %s, %w", args[0], err)
		}
		if tokens < 0 {
			return core.ErrNegativeTokens
		}
		return core.NewMint(tokens).Write(os.Stdout)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the ledger funded by the mint record read from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Setup(debug); err != nil {
			return err
		}
		defer logger.I().Sync()

		mint, err := core.ReadMint(os.Stdin)
		if err != nil {
			return err
		}
		store, err := accountant.NewStore(datadir)
		if err != nil {
			return fmt.Errorf("cannot open store, %w", err)
		}
		defer store.Close()
		acc, err := accountant.New(store, mint)
		if err != nil {
			return err
		}
		srv, err := accountant.Listen(addr, acc)
		if err != nil {
			return err
		}
		defer srv.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.Serve(gctx) })
		if apiAddr != "" {
			g.Go(func() error { return accountant.ServeAPI(gctx, apiAddr, acc) })
		}
		return g.Wait()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	serveCmd.Flags().StringVarP(&addr,
		FlagAddr, "a", addr, "udp listen address, host:port or udp multiaddr")

	serveCmd.Flags().StringVar(&apiAddr,
		FlagAPIAddr, "", "http inspection api address, disabled if empty")

	serveCmd.Flags().StringVarP(&datadir,
		FlagDataDir, "d", "", "balance store directory, in memory if empty")

	serveCmd.Flags().BoolVar(&debug,
		FlagDebug, false, "debug mode")

	rootCmd.AddCommand(mintCmd, serveCmd)
}
