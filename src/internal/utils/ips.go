package utils

import (
	"fmt"
	"math/bits"
	"net"
)

// IPv4ToNetmask parses a dotted address and a dotted netmask into an IPNet
// keeping the host part of the address.
func IPv4ToNetmask(ipStr, maskStr string) (*net.IPNet, error) {
	ip := net.ParseIP(ipStr)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("invalid IPv4 address: %s", ipStr)
	}

	mask := net.ParseIP(maskStr)
	if mask == nil || mask.To4() == nil {
		return nil, fmt.Errorf("invalid IPv4 mask: %s", maskStr)
	}

	return &net.IPNet{
		IP:   ip.To4(),
		Mask: net.IPMask(mask.To4()),
	}, nil
}

// IsIPv4 reports whether ip is an IPv4 address (plain or IPv4-mapped).
func IsIPv4(ip net.IP) bool {
	return ip != nil && ip.To4() != nil
}

// NetworkAddress returns ip & mask as a 4-byte address. It returns nil when
// ip is not IPv4 or mask is not a 4-byte mask.
func NetworkAddress(ip net.IP, mask net.IPMask) net.IP {
	ip4 := ip.To4()
	if ip4 == nil || len(mask) != net.IPv4len {
		return nil
	}
	return ip4.Mask(mask)
}

// PrefixLength counts the set bits of mask. Non-canonical masks are counted
// the same way; net.IPMask.Size would reject them.
func PrefixLength(mask net.IPMask) int {
	n := 0
	for _, b := range mask {
		n += bits.OnesCount8(b)
	}
	return n
}

// SameSubnet reports whether a and b share the network part under mask.
func SameSubnet(a, b net.IP, mask net.IPMask) bool {
	na := NetworkAddress(a, mask)
	nb := NetworkAddress(b, mask)
	return na != nil && nb != nil && na.Equal(nb)
}

// MapIPv4 returns the 16-byte ::ffff:a.b.c.d form of an IPv4 address, or nil.
func MapIPv4(ip net.IP) net.IP {
	ip4 := ip.To4()
	if ip4 == nil {
		return nil
	}
	mapped := make(net.IP, net.IPv6len)
	mapped[10] = 0xff
	mapped[11] = 0xff
	copy(mapped[12:], ip4)
	return mapped
}
