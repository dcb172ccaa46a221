// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package protocol

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
)

var ErrNotUDP = errors.New("not a udp address")

// AnyAddr binds an ephemeral port on all interfaces
const AnyAddr = "0.0.0.0:0"

// ParseAddr resolves host:port or a udp multiaddr such as /ip4/127.0.0.1/udp/8000
func ParseAddr(s string) (*net.UDPAddr, error) {
	if strings.HasPrefix(s, "/") {
		maddr, err := multiaddr.NewMultiaddr(s)
		if err != nil {
			return nil, fmt.Errorf("invalid multiaddr %s, %w", s, err)
		}
		addr, err := manet.ToNetAddr(maddr)
		if err != nil {
			return nil, fmt.Errorf("invalid multiaddr %s, %w", s, err)
		}
		udpAddr, ok := addr.(*net.UDPAddr)
		if !ok {
			return nil, fmt.Errorf("%s, %w", s, ErrNotUDP)
		}
		return udpAddr, nil
	}
	addr, err := net.ResolveUDPAddr("udp", s)
	if err != nil {
		return nil, fmt.Errorf("invalid address %s, %w", s, err)
	}
	return addr, nil
}
