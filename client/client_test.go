// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wooyang2018/svp-loadgen/accountant"
	"github.com/wooyang2018/svp-loadgen/core"
)

func setupTestServer(t *testing.T, tokens int64) (*accountant.Server, *core.Mint) {
	store, err := accountant.NewStore("")
	require.NoError(t, err)
	mint := core.NewMint(tokens)
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
	return srv, mint
}

func TestClient(t *testing.T) {
	asrt := assert.New(t)
	srv, mint := setupTestServer(t, 10)

	c, err := Dial("127.0.0.1:0", srv.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lastID, err := c.GetLastID(ctx)
	asrt.NoError(err)
	asrt.Equal(mint.Seed(), lastID)

	priv, _ := mint.PrivateKey()
	balance, found, err := c.GetBalance(ctx, priv.PublicKey())
	asrt.NoError(err)
	asrt.True(found)
	asrt.EqualValues(10, balance)

	dest := core.GenerateKey(nil).PublicKey()
	tx, err := core.NewTransfer(priv, dest, 4, lastID)
	require.NoError(t, err)
	asrt.NoError(c.TransferSigned(ctx, tx))

	balance, found, err = c.GetBalance(ctx, dest)
	asrt.NoError(err)
	asrt.True(found)
	asrt.EqualValues(4, balance)

	_, found, err = c.GetBalance(ctx, core.GenerateKey(nil).PublicKey())
	asrt.NoError(err)
	asrt.False(found)
}

func TestClientQueryHonoursContext(t *testing.T) {
	// nothing listens behind this socket, so no response will ever come
	silent, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer silent.Close()

	c, err := Dial("127.0.0.1:0", silent.LocalAddr().String())
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = c.GetLastID(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	ctx, cancel = context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, _, err = c.GetBalance(ctx, core.GenerateKey(nil).PublicKey())
	assert.ErrorIs(t, err, context.Canceled)

	assert.ErrorIs(t, c.TransferSigned(ctx, nil), context.Canceled)
}

func TestDialInvalidAddr(t *testing.T) {
	_, err := Dial("not-an-addr", "127.0.0.1:8000")
	assert.Error(t, err)
	_, err = Dial("127.0.0.1:0", "/ip4/127.0.0.1/tcp/8000")
	assert.Error(t, err)
}
