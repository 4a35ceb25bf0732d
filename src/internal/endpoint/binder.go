package endpoint

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strconv"

	"github.com/multihome/mhroute/src/internal/errors"
	"github.com/multihome/mhroute/src/internal/log"
	"github.com/multihome/mhroute/src/internal/networking"
)

// ErrNoInterface is returned when no interface can serve a requested bind.
var ErrNoInterface = errors.New(errors.ErrCodeBind, "no interface available for bind")

// BindOptions select the socket options applied before bind.
type BindOptions struct {
	BindToDevice bool
	SetMark      bool
	DualStack    bool
}

// Binder opens UDP endpoints on the interface chosen for a requested
// address.
type Binder struct {
	catalog  networking.Catalog
	selector *networking.InterfaceSelector
	session  *networking.Session
	policy   networking.PriorityPolicy
	opts     BindOptions
}

// NewBinder creates a binder. A nil session disables policy routing.
func NewBinder(catalog networking.Catalog, session *networking.Session, policy networking.PriorityPolicy, opts BindOptions) *Binder {
	return &Binder{
		catalog:  catalog,
		selector: networking.NewInterfaceSelector(catalog),
		session:  session,
		policy:   policy,
		opts:     opts,
	}
}

// BindIPv4 selects the interface for requested.IP, installs its routing
// table and binds to the interface's own address with the requested port.
// A failed bind returns an error and no endpoint.
func (b *Binder) BindIPv4(ctx context.Context, requested *net.UDPAddr) (*Endpoint, error) {
	target, port := net.IPv4zero, 0
	if requested != nil {
		if requested.IP != nil {
			target = requested.IP
		}
		port = requested.Port
	}

	sel, err := b.selector.SelectIPv4(target, b.policy)
	if err != nil {
		if stderrors.Is(err, networking.ErrNoInterfaceFound) {
			return nil, errors.Wrap(errors.ErrCodeBind, ErrNoInterface.Message, err)
		}
		return nil, err
	}

	ep := &Endpoint{
		Family:    networking.FamilyIPv4,
		Interface: sel.Interface,
	}

	if b.session != nil {
		table, err := b.session.Install(sel.Interface, sel.Address, sel.Netmask, port)
		switch {
		case err == nil:
			ep.Table = table.Number
		case stderrors.Is(err, networking.ErrNoTable):
			log.Debugf("Binding on %s without policy routing", sel.Interface)
		case b.session.Strict():
			return nil, errors.NewBindError(fmt.Sprintf("policy routing for %s failed", sel.Interface), err)
		default:
			log.Warnf("Policy routing for %s failed, binding anyway: %v", sel.Interface, err)
		}
	}

	opts := socketOptions{}
	if b.opts.BindToDevice {
		opts.device = sel.Interface
	}
	if b.opts.SetMark && ep.Table != 0 {
		opts.mark = uint32(ep.Table)
	}

	address := net.JoinHostPort(sel.Address.String(), strconv.Itoa(port))
	conn, err := listen(ctx, "udp4", address, opts)
	if err != nil {
		return nil, errors.NewBindError(fmt.Sprintf("failed to bind %s on %s", address, sel.Interface), err)
	}

	ep.Conn = conn
	ep.Device = opts.device
	ep.Mark = opts.mark
	log.Infof("Bound %s", ep)
	return ep, nil
}

// BindIPv6 binds to the requested IPv6 address. With DualStack the socket
// also accepts IPv4-mapped traffic. Link-local addresses without a zone get
// the zone of the interface owning them.
func (b *Binder) BindIPv6(ctx context.Context, requested *net.UDPAddr) (*Endpoint, error) {
	addr := &net.UDPAddr{IP: net.IPv6unspecified}
	if requested != nil {
		addr = &net.UDPAddr{IP: requested.IP, Port: requested.Port, Zone: requested.Zone}
		if addr.IP == nil {
			addr.IP = net.IPv6unspecified
		}
	}

	entries, err := b.catalog.ListInterfaces()
	if err != nil {
		return nil, err
	}
	owner := ownerOf(entries, addr.IP)

	if addr.IP.IsLinkLocalUnicast() && addr.Zone == "" {
		scope, err := networking.ResolveScope(b.catalog, addr.IP)
		if err != nil {
			return nil, err
		}
		if zone, err := networking.ZoneForScope(b.catalog, scope); err == nil && zone != "" {
			addr.Zone = zone
		} else if owner != "" {
			addr.Zone = owner
		}
	}

	ep := &Endpoint{
		Family:    networking.FamilyIPv6,
		Interface: owner,
	}
	if ep.Interface == "" {
		ep.Interface = addr.Zone
	}

	opts := socketOptions{clearV6Only: b.opts.DualStack}
	conn, err := listen(ctx, "udp6", addr.String(), opts)
	if err != nil {
		return nil, errors.NewBindError(fmt.Sprintf("failed to bind %s", addr), err)
	}

	ep.Conn = conn
	log.Infof("Bound %s", ep)
	return ep, nil
}

// BindAllInterfaces binds one endpoint per up, non-loopback address of the
// wanted families. Failing addresses are logged and skipped; only a failed
// interface enumeration is returned as an error.
func (b *Binder) BindAllInterfaces(ctx context.Context, want4, want6 bool, port int) ([]*Endpoint, error) {
	entries, err := b.catalog.ListInterfaces()
	if err != nil {
		return nil, err
	}

	var endpoints []*Endpoint
	for _, entry := range entries {
		if entry.Loopback || !entry.Up {
			continue
		}

		var (
			ep  *Endpoint
			err error
		)
		switch {
		case entry.Family == networking.FamilyIPv4 && want4:
			ep, err = b.BindIPv4(ctx, &net.UDPAddr{IP: entry.Address, Port: port})
		case entry.Family == networking.FamilyIPv6 && want6:
			addr := &net.UDPAddr{IP: entry.Address, Port: port}
			if entry.Address.IsLinkLocalUnicast() {
				addr.Zone = entry.Name
			}
			ep, err = b.BindIPv6(ctx, addr)
		default:
			continue
		}

		if err != nil {
			log.Warnf("Skipping %s %s: %v", entry.Name, entry.Address, err)
			continue
		}
		endpoints = append(endpoints, ep)
	}

	log.Infof("Bound %d endpoint(s)", len(endpoints))
	return endpoints, nil
}

func listen(ctx context.Context, network, address string, opts socketOptions) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: opts.control()}
	pc, err := lc.ListenPacket(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}

func ownerOf(entries []networking.InterfaceInfo, ip net.IP) string {
	for _, entry := range entries {
		if entry.Address.Equal(ip) {
			return entry.Name
		}
	}
	return ""
}
