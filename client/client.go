// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/wooyang2018/svp-loadgen/core"
	"github.com/wooyang2018/svp-loadgen/logger"
	"github.com/wooyang2018/svp-loadgen/protocol"
)

var ErrNoLastID = errors.New("server has no last id")

// Client talks to an accountant over a datagram endpoint it owns.
// Transfers are fire-and-forget: the accountant never acknowledges them.
type Client struct {
	conn   net.PacketConn
	server net.Addr

	// serializes query round trips on the shared endpoint
	mtxQuery sync.Mutex
	buf      []byte
}

func New(conn net.PacketConn, server net.Addr) *Client {
	return &Client{
		conn:   conn,
		server: server,
		buf:    make([]byte, protocol.MaxPacketSize),
	}
}

// Dial binds a udp endpoint on local and targets server.
func Dial(local, server string) (*Client, error) {
	laddr, err := protocol.ParseAddr(local)
	if err != nil {
		return nil, err
	}
	raddr, err := protocol.ParseAddr(server)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("cannot bind %s, %w", local, err)
	}
	return New(conn, raddr), nil
}

func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// TransferSigned sends a signed transaction without waiting for any reply.
func (c *Client) TransferSigned(ctx context.Context, tx *core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.send(protocol.NewTransactionRequest(tx))
}

func (c *Client) GetLastID(ctx context.Context) ([]byte, error) {
	resp, err := c.query(ctx, protocol.NewLastIDRequest(), func(resp *protocol.Response) bool {
		return resp.LastID != nil
	})
	if err != nil {
		return nil, err
	}
	if len(resp.LastID) == 0 {
		return nil, ErrNoLastID
	}
	return resp.LastID, nil
}

// GetBalance returns the balance of account; found is false if the
// accountant does not know the account.
func (c *Client) GetBalance(ctx context.Context, account *core.PublicKey) (int64, bool, error) {
	resp, err := c.query(ctx, protocol.NewBalanceRequest(account), func(resp *protocol.Response) bool {
		return resp.Balance != nil && resp.Balance.Account.Equal(account)
	})
	if err != nil {
		return 0, false, err
	}
	return resp.Balance.Value, resp.Balance.Found, nil
}

func (c *Client) send(req *protocol.Request) error {
	b, err := req.Marshal()
	if err != nil {
		return err
	}
	if _, err := c.conn.WriteTo(b, c.server); err != nil {
		return fmt.Errorf("cannot send %s, %w", req.Kind(), err)
	}
	return nil
}

func (c *Client) query(
	ctx context.Context, req *protocol.Request, match func(*protocol.Response) bool,
) (*protocol.Response, error) {
	c.mtxQuery.Lock()
	defer c.mtxQuery.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
		return nil, err
	}
	// unblock the read once ctx is done
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Unix(1, 0))
		close(fired)
	})
	defer func() {
		if !stop() {
			<-fired
		}
	}()

	if err := c.send(req); err != nil {
		return nil, err
	}
	for {
		n, from, err := c.conn.ReadFrom(c.buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("cannot receive %s response, %w", req.Kind(), err)
		}
		resp := new(protocol.Response)
		if err := resp.Unmarshal(c.buf[:n]); err != nil {
			logger.I().Debugw("dropped malformed response", "from", from, "error", err)
			continue
		}
		if match(resp) {
			return resp, nil
		}
	}
}
