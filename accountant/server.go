// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package accountant

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/wooyang2018/svp-loadgen/logger"
	"github.com/wooyang2018/svp-loadgen/protocol"
)

// socket receive buffer, large enough to absorb a burst from several senders
const readBufferSize = 8 << 20

// Server answers accountant requests arriving on a udp socket.
// Transactions are applied without reply; queries are answered to the sender.
type Server struct {
	acc  *Accountant
	conn *net.UDPConn
}

func Listen(addr string, acc *Accountant) (*Server, error) {
	laddr, err := protocol.ParseAddr(addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("cannot bind %s, %w", addr, err)
	}
	if err := conn.SetReadBuffer(readBufferSize); err != nil {
		logger.I().Warnw("cannot enlarge read buffer", "error", err)
	}
	return &Server{acc: acc, conn: conn}, nil
}

func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *Server) Close() error {
	return s.conn.Close()
}

// Serve processes requests one at a time until ctx is done or the socket is closed.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	logger.I().Infow("accountant serving", "addr", s.Addr(), "last id", fmt.Sprintf("%x", s.acc.LastID()))
	buf := make([]byte, protocol.MaxPacketSize)
	for {
		n, from, err := s.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.handle(buf[:n], from)
	}
}

func (s *Server) handle(b []byte, from net.Addr) {
	req := new(protocol.Request)
	if err := req.Unmarshal(b); err != nil {
		logger.I().Debugw("dropped malformed request", "from", from, "error", err)
		return
	}
	var resp *protocol.Response
	switch req.Kind() {
	case protocol.KindTransaction:
		if err := s.acc.ProcessTransaction(req.Transaction()); err != nil {
			logger.I().Debugw("rejected transaction", "from", from, "error", err)
		}
		return
	case protocol.KindGetBalance:
		balance, found, err := s.acc.Balance(req.Account())
		if err != nil {
			logger.I().Errorf("get balance failed, %+v", err)
			return
		}
		resp = &protocol.Response{Balance: &protocol.Balance{
			Account: req.Account(),
			Value:   balance,
			Found:   found,
		}}
	case protocol.KindGetLastID:
		resp = &protocol.Response{LastID: append([]byte{}, s.acc.LastID()...)}
	}
	b, err := resp.Marshal()
	if err != nil {
		logger.I().Errorf("encode response failed, %+v", err)
		return
	}
	if _, err := s.conn.WriteTo(b, from); err != nil {
		logger.I().Warnw("send response failed", "to", from, "error", err)
	}
}
