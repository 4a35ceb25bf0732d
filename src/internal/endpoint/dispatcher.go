package endpoint

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/multihome/mhroute/src/internal/errors"
	"github.com/multihome/mhroute/src/internal/log"
	"github.com/multihome/mhroute/src/internal/networking"
	"github.com/multihome/mhroute/src/internal/utils"
)

// PeerTarget is the destination of one datagram.
type PeerTarget struct {
	// Host is an IP literal (IPv6 may carry a %zone) or a host name.
	Host string
	Port int
	// MapIPv4 sends to an IPv4 peer from an IPv6 endpoint through its
	// ::ffff:a.b.c.d form.
	MapIPv4 bool
	// ScopeID overrides the scope of a link-local IPv6 peer.
	ScopeID uint32
}

// ParsePeer parses host:port into a target.
func ParsePeer(hostport string) (PeerTarget, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return PeerTarget{}, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return PeerTarget{}, fmt.Errorf("invalid port in %q", hostport)
	}
	return PeerTarget{Host: host, Port: port}, nil
}

// Dispatcher sends datagrams from bound endpoints.
type Dispatcher struct {
	catalog  networking.Catalog
	resolver Resolver
}

// NewDispatcher creates a dispatcher. A nil resolver limits peers to IP
// literals.
func NewDispatcher(catalog networking.Catalog, resolver Resolver) *Dispatcher {
	return &Dispatcher{catalog: catalog, resolver: resolver}
}

// SendDatagram sends payload from ep to peer. The peer address family
// follows the endpoint family. Failures are not retried.
func (d *Dispatcher) SendDatagram(ctx context.Context, ep *Endpoint, peer PeerTarget, payload []byte) (int, error) {
	if ep == nil || ep.Conn == nil {
		return 0, errors.NewSendError("endpoint is not bound", nil)
	}

	addr, err := d.PeerAddr(ctx, ep, peer)
	if err != nil {
		return 0, errors.NewSendError(fmt.Sprintf("cannot address peer %s", peer.Host), err)
	}

	// A zero deadline clears whatever an earlier send left on the conn.
	deadline, _ := ctx.Deadline()
	if err := ep.Conn.SetWriteDeadline(deadline); err != nil {
		return 0, errors.NewSendError("failed to set write deadline", err)
	}

	n, err := ep.Conn.WriteToUDP(payload, addr)
	if err != nil {
		return n, errors.NewSendError(fmt.Sprintf("failed to send to %s", addr), err)
	}
	log.Debugf("Sent %d byte(s) from %s to %s", n, ep.LocalAddr(), addr)
	return n, nil
}

// PeerAddr builds the socket address for peer as seen from ep.
func (d *Dispatcher) PeerAddr(ctx context.Context, ep *Endpoint, peer PeerTarget) (*net.UDPAddr, error) {
	host, zone := splitZone(peer.Host)
	ip := net.ParseIP(host)

	switch ep.Family {
	case networking.FamilyIPv4:
		if ip == nil {
			resolved, err := d.lookup(ctx, host, networking.FamilyIPv4)
			if err != nil {
				return nil, err
			}
			ip = resolved
		}
		if !utils.IsIPv4(ip) {
			return nil, fmt.Errorf("%s is not an IPv4 address", ip)
		}
		return &net.UDPAddr{IP: ip.To4(), Port: peer.Port}, nil

	case networking.FamilyIPv6:
		// Only a dotted literal or an A record needs mapping; a ::ffff:
		// literal is already an IPv6 address.
		bareIPv4 := ip != nil && isDottedIPv4(host)
		if ip == nil {
			family := networking.FamilyIPv6
			if peer.MapIPv4 {
				family = networking.FamilyIPv4
			}
			resolved, err := d.lookup(ctx, host, family)
			if err != nil {
				return nil, err
			}
			ip = resolved
			bareIPv4 = family == networking.FamilyIPv4
		}

		if bareIPv4 {
			if !peer.MapIPv4 {
				return nil, fmt.Errorf("IPv4 peer %s needs IPv4 mapping on an IPv6 endpoint", ip)
			}
			return &net.UDPAddr{IP: utils.MapIPv4(ip), Port: peer.Port}, nil
		}

		addr := &net.UDPAddr{IP: ip, Port: peer.Port, Zone: zone}
		if ip.IsLinkLocalUnicast() && addr.Zone == "" {
			zone, err := d.peerZone(ep, ip, peer.ScopeID)
			if err != nil {
				return nil, err
			}
			addr.Zone = zone
		}
		return addr, nil

	default:
		return nil, fmt.Errorf("unsupported endpoint family %s", ep.Family)
	}
}

// peerZone picks the zone of a link-local peer: the explicit scope, then
// the scope of a local interface owning the address, then the endpoint's
// own zone.
func (d *Dispatcher) peerZone(ep *Endpoint, ip net.IP, scope uint32) (string, error) {
	if scope == 0 {
		resolved, err := networking.ResolveScope(d.catalog, ip)
		if err != nil {
			return "", err
		}
		scope = resolved
	}

	if scope != 0 {
		name, err := networking.ZoneForScope(d.catalog, scope)
		if err != nil {
			return "", err
		}
		if name != "" {
			return name, nil
		}
		return strconv.FormatUint(uint64(scope), 10), nil
	}

	if local := ep.LocalAddr(); local != nil {
		return local.Zone, nil
	}
	return "", nil
}

func (d *Dispatcher) lookup(ctx context.Context, host string, family networking.Family) (net.IP, error) {
	if d.resolver == nil {
		return nil, fmt.Errorf("%s is not an IP address and no resolver is configured", host)
	}
	return d.resolver.Lookup(ctx, host, family)
}

// Addressable reports whether a datagram from an endpoint of the given
// family can reach peer without a lookup deciding otherwise. Host names
// are always considered addressable.
func Addressable(family networking.Family, peer PeerTarget) bool {
	host, _ := splitZone(peer.Host)
	if net.ParseIP(host) == nil {
		return true
	}
	switch family {
	case networking.FamilyIPv4:
		return utils.IsIPv4(net.ParseIP(host))
	case networking.FamilyIPv6:
		return !isDottedIPv4(host) || peer.MapIPv4
	default:
		return false
	}
}

func isDottedIPv4(host string) bool {
	return !strings.Contains(host, ":") && net.ParseIP(host) != nil
}

func splitZone(host string) (string, string) {
	if i := strings.LastIndexByte(host, '%'); i >= 0 {
		return host[:i], host[i+1:]
	}
	return host, ""
}
