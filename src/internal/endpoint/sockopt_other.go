//go:build !linux

package endpoint

import (
	"syscall"

	"github.com/multihome/mhroute/src/internal/log"
)

type socketOptions struct {
	device      string
	mark        uint32
	clearV6Only bool
}

func (opts socketOptions) control() func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		if opts.device != "" || opts.mark != 0 {
			log.Warnf("Device pinning and socket marks are only supported on Linux, binding %s without them", address)
		}
		return nil
	}
}
