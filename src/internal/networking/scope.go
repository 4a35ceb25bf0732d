package networking

import (
	"bytes"
	"net"
)

// ResolveScope returns the scope id of the up IPv6 entry whose address equals
// addr byte for byte. An unknown address resolves to 0 without error; only
// enumeration failures are reported.
func ResolveScope(catalog Catalog, addr net.IP) (uint32, error) {
	owner, err := OwnerOf(catalog, addr)
	if err != nil || owner == nil {
		return 0, err
	}
	return owner.ScopeID, nil
}

// OwnerOf returns the up IPv6 entry holding addr, or nil when no local
// interface owns it.
func OwnerOf(catalog Catalog, addr net.IP) (*InterfaceInfo, error) {
	entries, err := catalog.ListInterfaces()
	if err != nil {
		return nil, err
	}

	want := addr.To16()
	if want == nil {
		return nil, nil
	}

	for i := range entries {
		entry := entries[i]
		if !entry.Up || entry.Family != FamilyIPv6 {
			continue
		}
		if bytes.Equal(entry.Address.To16(), want) {
			return &entry, nil
		}
	}
	return nil, nil
}

// ZoneForScope maps a scope id back to the name of the interface it belongs
// to, for use as a net.UDPAddr zone. It returns "" when no entry matches.
func ZoneForScope(catalog Catalog, scope uint32) (string, error) {
	if scope == 0 {
		return "", nil
	}

	entries, err := catalog.ListInterfaces()
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.Index == int(scope) || (entry.Family == FamilyIPv6 && entry.ScopeID == scope) {
			return entry.Name, nil
		}
	}
	return "", nil
}
