package networking

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"github.com/multihome/mhroute/src/internal/config"
)

const (
	OpFlushTable      = "flush_table"
	OpAddMarkRule     = "add_mark_rule"
	OpDelMarkRule     = "del_mark_rule"
	OpAddTableRule    = "add_table_rule"
	OpDelTableRule    = "del_table_rule"
	OpAddSubnetRoute  = "add_subnet_route"
	OpAddDefaultRoute = "add_default_route"
	OpFlushMarkRules  = "flush_mark_rules"
)

// CommandResult is the outcome of one kernel operation. Message holds the
// equivalent command line.
type CommandResult struct {
	Op      string `json:"op"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (r CommandResult) String() string {
	if r.OK {
		return fmt.Sprintf("%s: %s", r.Op, r.Message)
	}
	return fmt.Sprintf("%s: %s: %v", r.Op, r.Message, r.Err)
}

func result(op, message string, err error) CommandResult {
	return CommandResult{Op: op, OK: err == nil, Message: message, Err: err}
}

// RouteController performs the kernel operations of policy routing. Each
// method reports its outcome instead of returning an error so callers can
// decide whether a failure is fatal.
type RouteController interface {
	FlushTable(table int) CommandResult
	AddMarkRule(spec MarkSpec) CommandResult
	DelMarkRule(spec MarkSpec) CommandResult
	AddTableRule(mark uint32, table int) CommandResult
	DelTableRule(mark uint32, table int) CommandResult
	AddSubnetRoute(table int, device string, subnet *net.IPNet, src net.IP) CommandResult
	AddDefaultRoute(table int, device string, gw net.IP) CommandResult
	FlushMarkRules() CommandResult
}

// NetlinkRouteController applies rules and routes over netlink and marks
// through iptables.
type NetlinkRouteController struct {
	marks            *MarkRules
	rulePriorityBase int
}

var _ RouteController = (*NetlinkRouteController)(nil)

// NewNetlinkRouteController creates a controller from the routing settings.
func NewNetlinkRouteController(cfg *config.RoutingConfig) (*NetlinkRouteController, error) {
	marks, err := NewMarkRules(cfg.MarkChain, cfg.MarkRule, cfg.RestrictPort)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize iptables: %w", err)
	}
	return &NetlinkRouteController{
		marks:            marks,
		rulePriorityBase: cfg.RulePriorityBase,
	}, nil
}

func (c *NetlinkRouteController) rule(mark uint32, table int) *IpRule {
	return BuildRule(mark, table, c.rulePriorityBase+table)
}

func (c *NetlinkRouteController) FlushTable(table int) CommandResult {
	return result(OpFlushTable, fmt.Sprintf("ip route flush table %d", table), DelIpRouteTable(table))
}

func (c *NetlinkRouteController) AddMarkRule(spec MarkSpec) CommandResult {
	return result(OpAddMarkRule, c.marks.Command("-A", spec), c.marks.Add(spec))
}

func (c *NetlinkRouteController) DelMarkRule(spec MarkSpec) CommandResult {
	return result(OpDelMarkRule, c.marks.Command("-D", spec), c.marks.Del(spec))
}

func (c *NetlinkRouteController) AddTableRule(mark uint32, table int) CommandResult {
	rule := c.rule(mark, table)
	_, err := rule.AddIfNotExists()
	return result(OpAddTableRule, rule.Command("add"), err)
}

func (c *NetlinkRouteController) DelTableRule(mark uint32, table int) CommandResult {
	rule := c.rule(mark, table)
	_, err := rule.DelIfExists()
	return result(OpDelTableRule, rule.Command("del"), err)
}

func (c *NetlinkRouteController) AddSubnetRoute(table int, device string, subnet *net.IPNet, src net.IP) CommandResult {
	link, err := netlink.LinkByName(device)
	if err != nil {
		route := BuildSubnetRoute(device, 0, subnet, src, table)
		return result(OpAddSubnetRoute, route.Command("add"), err)
	}
	route := BuildSubnetRoute(device, link.Attrs().Index, subnet, src, table)
	_, err = route.AddIfNotExists()
	return result(OpAddSubnetRoute, route.Command("add"), err)
}

func (c *NetlinkRouteController) AddDefaultRoute(table int, device string, gw net.IP) CommandResult {
	link, err := netlink.LinkByName(device)
	if err != nil {
		route := BuildDefaultRoute(device, 0, gw, table)
		return result(OpAddDefaultRoute, route.Command("add"), err)
	}
	route := BuildDefaultRoute(device, link.Attrs().Index, gw, table)
	_, err = route.AddIfNotExists()
	return result(OpAddDefaultRoute, route.Command("add"), err)
}

func (c *NetlinkRouteController) FlushMarkRules() CommandResult {
	return result(OpFlushMarkRules, "iptables -t "+mangleTable+" -F "+c.marks.chain, c.marks.Flush())
}
