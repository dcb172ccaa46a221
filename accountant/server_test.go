// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package accountant

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wooyang2018/svp-loadgen/core"
	"github.com/wooyang2018/svp-loadgen/protocol"
)

func roundTrip(t *testing.T, conn net.PacketConn, server net.Addr, req *protocol.Request) *protocol.Response {
	b, err := req.Marshal()
	require.NoError(t, err)
	_, err = conn.WriteTo(b, server)
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, protocol.MaxPacketSize)
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)
	resp := new(protocol.Response)
	require.NoError(t, resp.Unmarshal(buf[:n]))
	return resp
}

func TestServer(t *testing.T) {
	asrt := assert.New(t)
	acc, mint := newTestAccountant(t, 3)
	srv, err := Listen("127.0.0.1:0", acc)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	resp := roundTrip(t, conn, srv.Addr(), protocol.NewLastIDRequest())
	asrt.Equal(mint.Seed(), resp.LastID)

	priv, _ := mint.PrivateKey()
	tx, _ := core.NewTransfer(priv, core.GenerateKey(nil).PublicKey(), 1, resp.LastID)
	b, _ := protocol.NewTransactionRequest(tx).Marshal()
	conn.WriteTo(b, srv.Addr())
	conn.WriteTo([]byte{0xff, 0xff}, srv.Addr())

	// requests are served in arrival order, so the transfer is applied first
	resp = roundTrip(t, conn, srv.Addr(), protocol.NewBalanceRequest(priv.PublicKey()))
	asrt.True(resp.Balance.Found)
	asrt.EqualValues(2, resp.Balance.Value)

	resp = roundTrip(t, conn, srv.Addr(), protocol.NewBalanceRequest(core.GenerateKey(nil).PublicKey()))
	asrt.False(resp.Balance.Found)

	cancel()
	select {
	case err := <-done:
		asrt.NoError(err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
