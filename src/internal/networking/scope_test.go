package networking

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveScope(t *testing.T) {
	down := IPv6Entry("wlan0", "fe80::9", 4)
	down.Up = false
	catalog := NewStaticCatalog(
		IPv4Entry("eth0", "192.168.1.5", "255.255.255.0"),
		IPv6Entry("eth0", "fe80::1", 3),
		IPv6Entry("eth0", "2001:db8::5", 0),
		down,
	)

	tests := []struct {
		name string
		addr string
		want uint32
	}{
		{"link-local match", "fe80::1", 3},
		{"unknown address", "fe80::2", 0},
		{"global address", "2001:db8::5", 0},
		{"down interface ignored", "fe80::9", 0},
		{"ipv4 address", "192.168.1.5", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := ResolveScope(catalog, net.ParseIP(tt.addr))
			require.NoError(t, err)
			assert.Equal(t, tt.want, scope)
		})
	}
}

func TestOwnerOf(t *testing.T) {
	catalog := NewStaticCatalog(
		IPv4Entry("eth0", "192.168.1.5", "255.255.255.0"),
		IPv6Entry("wlan0", "2001:db8::5", 0),
	)

	owner, err := OwnerOf(catalog, net.ParseIP("2001:db8::5"))
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, "wlan0", owner.Name)

	owner, err = OwnerOf(catalog, net.ParseIP("2001:db8::6"))
	require.NoError(t, err)
	assert.Nil(t, owner)
}

func TestZoneForScope(t *testing.T) {
	catalog := NewStaticCatalog(
		IPv4Entry("eth0", "192.168.1.5", "255.255.255.0"),
		IPv6Entry("wlan0", "fe80::1", 7),
	)

	zone, err := ZoneForScope(catalog, 7)
	require.NoError(t, err)
	assert.Equal(t, "wlan0", zone)

	zone, err = ZoneForScope(catalog, 0)
	require.NoError(t, err)
	assert.Empty(t, zone)

	zone, err = ZoneForScope(catalog, 99)
	require.NoError(t, err)
	assert.Empty(t, zone)
}
