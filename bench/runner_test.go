// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/wooyang2018/svp-loadgen/accountant"
	"github.com/wooyang2018/svp-loadgen/core"
	"github.com/wooyang2018/svp-loadgen/logger"
)

func setupTestAccountant(t *testing.T, mint *core.Mint) string {
	store, err := accountant.NewStore("")
	require.NoError(t, err)
	acc, err := accountant.New(store, mint)
	require.NoError(t, err)
	srv, err := accountant.Listen("127.0.0.1:0", acc)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx)
	t.Cleanup(func() {
		cancel()
		store.Close()
	})
	return srv.Addr().String()
}

func newTestConfig(server string, txCount, workers int) Config {
	config := DefaultConfig
	config.ServerAddr = server
	config.ClientAddr = "127.0.0.1:0"
	config.TxCount = txCount
	config.Workers = workers
	config.Timeout = 30 * time.Second
	config.Output = OutputJSON
	return config
}

func TestRunnerScenarios(t *testing.T) {
	logger.Set(zaptest.NewLogger(t).Sugar())
	t.Cleanup(func() { logger.Set(zap.NewNop().Sugar()) })

	tests := []struct {
		name    string
		tokens  int64
		txCount int
		workers int
	}{
		{"four workers", 400, 400, 4},
		{"remainder", 1000, 250, 3},
		{"single worker", 300, 300, 1},
		{"empty batch", 50, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asrt := assert.New(t)
			mint := core.NewMint(tt.tokens)
			server := setupTestAccountant(t, mint)

			out := bytes.NewBuffer(nil)
			runner, closeFn, err := Dial(newTestConfig(server, tt.txCount, tt.workers), out)
			require.NoError(t, err)
			defer closeFn()
			runner.SetFactory(NewFactory().SetWorkers(2))

			report, err := runner.Run(context.Background(), mint)
			require.NoError(t, err)
			asrt.Equal(StageReported, runner.Stage())

			asrt.EqualValues(tt.tokens, report.InitialBalance)
			asrt.EqualValues(tt.tokens-int64(tt.txCount), report.FinalBalance)
			asrt.EqualValues(tt.txCount, report.Successful())
			asrt.EqualValues(tt.txCount, report.Signing.Count)
			asrt.Equal(runner.RunID(), report.RunID)

			var view reportView
			asrt.NoError(json.Unmarshal(out.Bytes(), &view))
			asrt.EqualValues(tt.txCount, view.Successful)
		})
	}
}

func TestRunnerUnknownMint(t *testing.T) {
	server := setupTestAccountant(t, core.NewMint(10))

	runner, closeFn, err := Dial(newTestConfig(server, 10, 2), bytes.NewBuffer(nil))
	require.NoError(t, err)
	defer closeFn()

	// the server does not know this mint's account
	_, err = runner.Run(context.Background(), core.NewMint(10))
	assert.ErrorIs(t, err, ErrNoBalance)
	assert.Equal(t, StageStart, runner.Stage())
}

type staticLedger struct {
	lastID  []byte
	balance int64
}

func (l *staticLedger) GetLastID(ctx context.Context) ([]byte, error) {
	return l.lastID, nil
}

func (l *staticLedger) GetBalance(ctx context.Context, account *core.PublicKey) (int64, bool, error) {
	return l.balance, true, nil
}

func TestRunnerDispatchFailure(t *testing.T) {
	ledger := &staticLedger{lastID: make([]byte, core.HashLength), balance: 10}
	runner, err := NewRunner(newTestConfig("127.0.0.1:8000", 4, 2), ledger, bytes.NewBuffer(nil))
	require.NoError(t, err)

	rd := &recordingDialer{failAt: 1}
	runner.SetDispatcher(NewDispatcher("127.0.0.1:8000").SetDialer(rd.dial))

	_, err = runner.Run(context.Background(), core.NewMint(10))
	assert.ErrorIs(t, err, errSend)
	assert.Equal(t, StageBatchSigned, runner.Stage())
}

func TestRunnerInvalidConfig(t *testing.T) {
	config := newTestConfig("127.0.0.1:8000", 10, 0)
	_, _, err := Dial(config, bytes.NewBuffer(nil))
	assert.ErrorIs(t, err, ErrInvalidWorkers)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		valid  bool
	}{
		{"default", func(c *Config) {}, true},
		{"multiaddr", func(c *Config) { c.ServerAddr = "/ip4/127.0.0.1/udp/8000" }, true},
		{"no workers", func(c *Config) { c.Workers = 0 }, false},
		{"negative txs", func(c *Config) { c.TxCount = -1 }, false},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, false},
		{"negative rate", func(c *Config) { c.SendRate = -1 }, false},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, false},
		{"bad output", func(c *Config) { c.Output = "xml" }, false},
		{"bad server", func(c *Config) { c.ServerAddr = "localhost" }, false},
		{"bad client", func(c *Config) { c.ClientAddr = "/ip4/1.2.3.4/tcp/1" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig
			tt.modify(&config)
			if tt.valid {
				assert.NoError(t, config.Validate())
			} else {
				assert.Error(t, config.Validate())
			}
		})
	}
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "snapshot_fetched", StageSnapshotFetched.String())
	assert.Equal(t, "stage(42)", Stage(42).String())
}
