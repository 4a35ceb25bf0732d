package service

import (
	"fmt"
	"net"

	"github.com/multihome/mhroute/src/internal/networking"
)

// countingController succeeds every operation and counts them by name.
type countingController struct {
	calls map[string]int
}

var _ networking.RouteController = (*countingController)(nil)

func newCountingController() *countingController {
	return &countingController{calls: make(map[string]int)}
}

func (c *countingController) ok(op string) networking.CommandResult {
	c.calls[op]++
	return networking.CommandResult{Op: op, OK: true, Message: op}
}

func (c *countingController) FlushTable(int) networking.CommandResult {
	return c.ok(networking.OpFlushTable)
}

func (c *countingController) AddMarkRule(networking.MarkSpec) networking.CommandResult {
	return c.ok(networking.OpAddMarkRule)
}

func (c *countingController) DelMarkRule(networking.MarkSpec) networking.CommandResult {
	return c.ok(networking.OpDelMarkRule)
}

func (c *countingController) AddTableRule(uint32, int) networking.CommandResult {
	return c.ok(networking.OpAddTableRule)
}

func (c *countingController) DelTableRule(uint32, int) networking.CommandResult {
	return c.ok(networking.OpDelTableRule)
}

func (c *countingController) AddSubnetRoute(int, string, *net.IPNet, net.IP) networking.CommandResult {
	return c.ok(networking.OpAddSubnetRoute)
}

func (c *countingController) AddDefaultRoute(int, string, net.IP) networking.CommandResult {
	return c.ok(networking.OpAddDefaultRoute)
}

func (c *countingController) FlushMarkRules() networking.CommandResult {
	return c.ok(networking.OpFlushMarkRules)
}

// checkingController reports every table as a single present mark rule.
type checkingController struct {
	*countingController
}

var _ networking.ComponentBuilder = (*checkingController)(nil)

func (c *checkingController) Components(t networking.RoutingTable) []networking.Component {
	return []networking.Component{presentComponent{table: t.Number}}
}

type presentComponent struct {
	table int
}

func (presentComponent) Kind() networking.KernelObjectKind { return networking.KindMarkRule }
func (presentComponent) IsExists() (bool, error)           { return true, nil }
func (c presentComponent) Command() string                 { return fmt.Sprintf("mark table %d", c.table) }
