//go:build linux

package endpoint

import (
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/multihome/mhroute/src/internal/log"
)

// socketOptions are applied to the socket between creation and bind.
type socketOptions struct {
	device      string
	mark        uint32
	clearV6Only bool
}

// control returns a net.ListenConfig control function applying opts. Option
// failures are logged and the bind goes ahead; only a failure to reach the
// descriptor aborts it.
func (opts socketOptions) control() func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		return c.Control(func(fd uintptr) {
			if opts.device != "" {
				if err := unix.SetsockoptString(int(fd), unix.SOL_SOCKET, unix.SO_BINDTODEVICE, opts.device); err != nil {
					log.Warnf("SO_BINDTODEVICE %s on %s failed: %v", opts.device, address, err)
				}
			}
			if opts.mark != 0 {
				if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_MARK, int(opts.mark)); err != nil {
					log.Warnf("SO_MARK %d on %s failed: %v", opts.mark, address, err)
				}
			}
			if opts.clearV6Only {
				if err := unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0); err != nil {
					log.Warnf("IPV6_V6ONLY=0 on %s failed: %v", address, err)
				}
			}
		})
	}
}
