package endpoint

import (
	"context"
	"fmt"
	"net"

	"github.com/multihome/mhroute/src/internal/networking"
)

// stubController succeeds every operation except the ones in fail.
type stubController struct {
	ops  []string
	fail map[string]bool
}

var _ networking.RouteController = (*stubController)(nil)

func (c *stubController) do(op string) networking.CommandResult {
	c.ops = append(c.ops, op)
	if c.fail[op] {
		return networking.CommandResult{Op: op, Message: op, Err: fmt.Errorf("%s refused", op)}
	}
	return networking.CommandResult{Op: op, OK: true, Message: op}
}

func (c *stubController) FlushTable(int) networking.CommandResult {
	return c.do(networking.OpFlushTable)
}

func (c *stubController) AddMarkRule(networking.MarkSpec) networking.CommandResult {
	return c.do(networking.OpAddMarkRule)
}

func (c *stubController) DelMarkRule(networking.MarkSpec) networking.CommandResult {
	return c.do(networking.OpDelMarkRule)
}

func (c *stubController) AddTableRule(uint32, int) networking.CommandResult {
	return c.do(networking.OpAddTableRule)
}

func (c *stubController) DelTableRule(uint32, int) networking.CommandResult {
	return c.do(networking.OpDelTableRule)
}

func (c *stubController) AddSubnetRoute(int, string, *net.IPNet, net.IP) networking.CommandResult {
	return c.do(networking.OpAddSubnetRoute)
}

func (c *stubController) AddDefaultRoute(int, string, net.IP) networking.CommandResult {
	return c.do(networking.OpAddDefaultRoute)
}

func (c *stubController) FlushMarkRules() networking.CommandResult {
	return c.do(networking.OpFlushMarkRules)
}

// staticResolver answers from fixed per-family tables.
type staticResolver struct {
	v4 map[string]net.IP
	v6 map[string]net.IP
}

func (r *staticResolver) Lookup(_ context.Context, host string, family networking.Family) (net.IP, error) {
	table := r.v4
	if family == networking.FamilyIPv6 {
		table = r.v6
	}
	if ip, ok := table[host]; ok {
		return ip, nil
	}
	return nil, fmt.Errorf("%s: not found", host)
}

func loopbackEntry(name string) networking.InterfaceInfo {
	entry := networking.IPv4Entry(name, "127.0.0.1", "255.0.0.0")
	entry.Loopback = name == "lo"
	return entry
}
