package networking

import (
	"encoding/binary"
	"net"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/multihome/mhroute/src/internal/config"
	"github.com/multihome/mhroute/src/internal/log"
)

// GatewayInferrer returns the next hop for an interface's default route given
// the interface name and its network address.
type GatewayInferrer func(iface string, network net.IP) net.IP

// HeuristicGateway assumes the gateway is the first host of the network: the
// network address with the low bit of its last octet set (192.168.1.0 gives
// 192.168.1.1).
func HeuristicGateway(_ string, network net.IP) net.IP {
	ip4 := network.To4()
	if ip4 == nil {
		return nil
	}
	v := binary.BigEndian.Uint32(ip4) | 0x00000001
	gw := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(gw, v)
	return gw
}

// DiscoveredGateway looks up the gateway of the device's default route in the
// main table and falls back to HeuristicGateway when there is none.
func DiscoveredGateway(iface string, network net.IP) net.IP {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		log.Debugf("Gateway discovery for %s: %v, using heuristic", iface, err)
		return HeuristicGateway(iface, network)
	}

	filter := &netlink.Route{
		LinkIndex: link.Attrs().Index,
		Table:     unix.RT_TABLE_MAIN,
	}
	routes, err := netlink.RouteListFiltered(netlink.FAMILY_V4, filter, netlink.RT_FILTER_OIF|netlink.RT_FILTER_TABLE)
	if err != nil {
		log.Debugf("Gateway discovery for %s: %v, using heuristic", iface, err)
		return HeuristicGateway(iface, network)
	}

	for _, route := range routes {
		if isDefaultRoute(route) && route.Gw != nil {
			log.Debugf("Discovered gateway %s for %s", route.Gw, iface)
			return route.Gw.To4()
		}
	}

	log.Debugf("No default route via %s in the main table, using heuristic", iface)
	return HeuristicGateway(iface, network)
}

func isDefaultRoute(route netlink.Route) bool {
	if route.Dst == nil {
		return true
	}
	ones, _ := route.Dst.Mask.Size()
	return ones == 0
}

// GatewayInferrerFor returns the inferrer selected by the routing.gateway
// setting.
func GatewayInferrerFor(mode string) GatewayInferrer {
	if mode == config.GatewayDiscover {
		return DiscoveredGateway
	}
	return HeuristicGateway
}
