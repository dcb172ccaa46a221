// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddr(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		want    string
		wantErr bool
	}{
		{"host port", "127.0.0.1:8000", "127.0.0.1:8000", false},
		{"any", AnyAddr, "0.0.0.0:0", false},
		{"udp multiaddr", "/ip4/127.0.0.1/udp/8001", "127.0.0.1:8001", false},
		{"tcp multiaddr", "/ip4/127.0.0.1/tcp/8001", "", true},
		{"bad multiaddr", "/ip4/nope", "", true},
		{"missing port", "127.0.0.1", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ParseAddr(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, addr.String())
		})
	}
}
