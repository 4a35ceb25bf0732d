// Package utils provides IP address helpers shared by the networking and
// endpoint packages: netmask parsing, network address and prefix length
// computation, subnet comparison and IPv4-mapped IPv6 construction.
package utils
