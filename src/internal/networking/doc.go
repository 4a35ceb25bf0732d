// Package networking implements interface discovery, source interface
// selection and per-interface policy routing for mhroute.
//
// # Architecture
//
//   - Catalog: snapshots (interface, address) pairs from netlink
//   - InterfaceSelector: subnet containment first, then the priority policy
//   - ResolveScope: maps an IPv6 address to the scope id of its interface
//   - TableNumberer: derives a table number from an interface name
//   - RouteController: performs rule, route and mark operations
//   - Session: installs routing tables and tears them down once
//   - Component: checks that an installed rule or route is still present
//
// # Policy routing
//
// For an interface with table number N the session installs:
//
//	iptables -t mangle -A MHROUTE_MARK -o eth0 -p udp -s 192.168.1.5 -j MARK --set-mark N
//	ip rule add fwmark N table N
//	ip route add 192.168.1.0/24 dev eth0 scope link src 192.168.1.5 table N
//	ip route add default via 192.168.1.1 dev eth0 table N
//
// Rules and routes go through netlink, marks through go-iptables in a chain
// jumped to from mangle/OUTPUT.
//
// # Example Usage
//
//	catalog := networking.NewNetlinkCatalog()
//	selector := networking.NewInterfaceSelector(catalog)
//	res, err := selector.SelectIPv4(dst, networking.PriorityPolicy{"eth0": 2, "wlan0": 1})
//
//	ctrl, err := networking.NewNetlinkRouteController(cfg.Routing)
//	session := networking.NewSession(ctrl, networking.DefaultTableNumberer(), networking.SessionOptions{})
//	defer session.TeardownAll()
//	session.Install(res.Interface, res.Address, res.Netmask, 0)
package networking
