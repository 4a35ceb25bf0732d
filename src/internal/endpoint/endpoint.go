package endpoint

import (
	"fmt"
	"net"

	"github.com/multihome/mhroute/src/internal/networking"
)

// Endpoint is a bound UDP socket. The caller owns it and must Close it.
type Endpoint struct {
	Conn      *net.UDPConn
	Family    networking.Family
	Interface string
	// Device is set when the socket is pinned with SO_BINDTODEVICE.
	Device string
	// Mark is the SO_MARK value, 0 when unset.
	Mark uint32
	// Table is the policy routing table, 0 when none was installed.
	Table int
}

// LocalAddr returns the address the socket is bound to.
func (e *Endpoint) LocalAddr() *net.UDPAddr {
	if e.Conn == nil {
		return nil
	}
	addr, _ := e.Conn.LocalAddr().(*net.UDPAddr)
	return addr
}

func (e *Endpoint) Close() error {
	if e.Conn == nil {
		return nil
	}
	return e.Conn.Close()
}

func (e *Endpoint) String() string {
	return fmt.Sprintf("%s %s via %s (device=%q mark=%d table=%d)",
		e.Family, e.LocalAddr(), e.Interface, e.Device, e.Mark, e.Table)
}
