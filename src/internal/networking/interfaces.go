package networking

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"github.com/multihome/mhroute/src/internal/errors"
	"github.com/multihome/mhroute/src/internal/utils"
)

// Family is the address family of a catalog entry.
type Family int

const (
	FamilyIPv4 Family = 4
	FamilyIPv6 Family = 6
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// InterfaceInfo is one (interface, address) pair of a catalog snapshot.
type InterfaceInfo struct {
	Name     string
	Family   Family
	Address  net.IP
	Netmask  net.IPMask
	ScopeID  uint32
	Index    int
	Up       bool
	Loopback bool
}

func (i InterfaceInfo) String() string {
	switch i.Family {
	case FamilyIPv4:
		ones, _ := i.Netmask.Size()
		return fmt.Sprintf("%s %s/%d up=%v", i.Name, i.Address, ones, i.Up)
	default:
		return fmt.Sprintf("%s %s scope=%d up=%v", i.Name, i.Address, i.ScopeID, i.Up)
	}
}

// Catalog lists the host's interface addresses. Every call returns a fresh
// snapshot.
type Catalog interface {
	ListInterfaces() ([]InterfaceInfo, error)
}

// NetlinkCatalog reads interfaces and addresses from the kernel.
type NetlinkCatalog struct{}

func NewNetlinkCatalog() *NetlinkCatalog {
	return &NetlinkCatalog{}
}

func (c *NetlinkCatalog) ListInterfaces() ([]InterfaceInfo, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, errors.NewEnumerationError("failed to list links", err)
	}

	var infos []InterfaceInfo
	for _, link := range links {
		attrs := link.Attrs()
		addrs, err := netlink.AddrList(link, netlink.FAMILY_ALL)
		if err != nil {
			return nil, errors.NewEnumerationError(
				fmt.Sprintf("failed to list addresses of %s", attrs.Name), err)
		}

		for _, addr := range addrs {
			if info, ok := infoFromAddr(attrs, addr); ok {
				infos = append(infos, info)
			}
		}
	}

	return infos, nil
}

func infoFromAddr(attrs *netlink.LinkAttrs, addr netlink.Addr) (InterfaceInfo, bool) {
	if addr.IPNet == nil {
		return InterfaceInfo{}, false
	}

	info := InterfaceInfo{
		Name:     attrs.Name,
		Index:    attrs.Index,
		Up:       attrs.Flags&net.FlagUp != 0,
		Loopback: attrs.Flags&net.FlagLoopback != 0,
	}

	if ip4 := addr.IP.To4(); ip4 != nil {
		info.Family = FamilyIPv4
		info.Address = ip4
		info.Netmask = addr.Mask
		if len(info.Netmask) == net.IPv6len {
			info.Netmask = info.Netmask[12:]
		}
		return info, true
	}

	info.Family = FamilyIPv6
	info.Address = addr.IP.To16()
	if addr.IP.IsLinkLocalUnicast() {
		info.ScopeID = uint32(attrs.Index)
	}
	return info, true
}

// StaticCatalog serves a fixed list of entries. The list is copied on every
// call so callers cannot alter it.
type StaticCatalog struct {
	Entries []InterfaceInfo
	Err     error
}

func NewStaticCatalog(entries ...InterfaceInfo) *StaticCatalog {
	return &StaticCatalog{Entries: entries}
}

func (c *StaticCatalog) ListInterfaces() ([]InterfaceInfo, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	out := make([]InterfaceInfo, len(c.Entries))
	copy(out, c.Entries)
	return out, nil
}

// IPv4Entry builds an up IPv4 catalog entry from dotted strings. Address and
// netmask stay nil when either string is not IPv4.
func IPv4Entry(name, addr, mask string) InterfaceInfo {
	entry := InterfaceInfo{Name: name, Family: FamilyIPv4, Up: true}
	if ipnet, err := utils.IPv4ToNetmask(addr, mask); err == nil {
		entry.Address = ipnet.IP
		entry.Netmask = ipnet.Mask
	}
	return entry
}

// IPv6Entry builds an up IPv6 catalog entry.
func IPv6Entry(name, addr string, scope uint32) InterfaceInfo {
	return InterfaceInfo{
		Name:    name,
		Family:  FamilyIPv6,
		Address: net.ParseIP(addr),
		ScopeID: scope,
		Index:   int(scope),
		Up:      true,
	}
}
