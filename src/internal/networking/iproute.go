package networking

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/multihome/mhroute/src/internal/log"
)

type IpRoute struct {
	*netlink.Route
	device string
}

func (r *IpRoute) String() string {
	to := "default"
	if r.Dst != nil {
		if ones, _ := r.Dst.Mask.Size(); ones > 0 {
			to = r.Dst.String()
		}
	}

	via := ""
	if r.Gw != nil {
		via = " via " + r.Gw.String()
	}

	return fmt.Sprintf("table %d: %s%s dev %s (idx=%d)", r.Table, to, via, r.device, r.LinkIndex)
}

// Command returns the equivalent ip(8) invocation.
func (r *IpRoute) Command(action string) string {
	if r.Gw != nil {
		return fmt.Sprintf("ip route %s default via %s dev %s table %d", action, r.Gw, r.device, r.Table)
	}
	cmd := fmt.Sprintf("ip route %s %s dev %s scope link table %d", action, r.Dst, r.device, r.Table)
	if r.Src != nil {
		cmd = fmt.Sprintf("ip route %s %s dev %s scope link src %s table %d", action, r.Dst, r.device, r.Src, r.Table)
	}
	return cmd
}

// BuildSubnetRoute builds the on-link route for the interface's own subnet.
func BuildSubnetRoute(device string, linkIndex int, subnet *net.IPNet, src net.IP, table int) *IpRoute {
	return &IpRoute{
		Route: &netlink.Route{
			Family:    netlink.FAMILY_V4,
			LinkIndex: linkIndex,
			Dst:       subnet,
			Src:       src,
			Scope:     netlink.SCOPE_LINK,
			Table:     table,
		},
		device: device,
	}
}

// BuildDefaultRoute builds the default route of a table via gw.
func BuildDefaultRoute(device string, linkIndex int, gw net.IP, table int) *IpRoute {
	return &IpRoute{
		Route: &netlink.Route{
			Family:    netlink.FAMILY_V4,
			LinkIndex: linkIndex,
			Dst: &net.IPNet{
				IP:   net.IPv4zero.To4(),
				Mask: net.CIDRMask(0, 32),
			},
			Gw:    gw,
			Table: table,
		},
		device: device,
	}
}

func (ipr *IpRoute) Add() error {
	log.Debugf("Adding IP route [%v]", ipr)
	if err := netlink.RouteAdd(ipr.Route); err != nil {
		log.Warnf("Failed to add IP route [%v]: %v", ipr, err)
		return err
	}

	return nil
}

func (ipr *IpRoute) IsExists() (bool, error) {
	filtered, err := netlink.RouteListFiltered(ipr.Family, ipr.Route, netlink.RT_FILTER_TABLE|netlink.RT_FILTER_OIF|netlink.RT_FILTER_DST)
	if err != nil {
		log.Warnf("Checking if IP route exists [%v] is failed: %v", ipr, err)
		return false, err
	}

	log.Debugf("Checking if IP route exists [%v]: %v", ipr, len(filtered) > 0)
	return len(filtered) > 0, nil
}

func (ipr *IpRoute) AddIfNotExists() (bool, error) {
	if exists, err := ipr.IsExists(); err != nil {
		return false, err
	} else if exists {
		return false, nil
	}
	if err := ipr.Add(); err != nil {
		return false, err
	}
	return true, nil
}

// DelIpRouteTable removes every route of table. Deletions continue past
// individual failures; the first error is returned.
func DelIpRouteTable(table int) error {
	log.Debugf("Deleting IP route table [%d]", table)
	routes, err := netlink.RouteListFiltered(netlink.FAMILY_ALL, &netlink.Route{Table: table}, netlink.RT_FILTER_TABLE)
	if err != nil {
		return err
	}

	var firstErr error
	for _, route := range routes {
		if route.Table == unix.RT_TABLE_MAIN || route.Table == unix.RT_TABLE_LOCAL {
			continue
		}
		if err := netlink.RouteDel(&route); err != nil {
			log.Warnf("Failed to delete route %v from table %d: %v", route, table, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
