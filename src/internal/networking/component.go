package networking

import (
	"github.com/vishvananda/netlink"
)

// Component is one kernel object of an installed routing table whose
// presence can be checked.
type Component interface {
	Kind() KernelObjectKind
	IsExists() (bool, error)
	// Command returns the CLI command that creates the object.
	Command() string
}

// ComponentBuilder builds the components an installed table consists of.
type ComponentBuilder interface {
	Components(t RoutingTable) []Component
}

// ComponentStatus is the result of checking one component.
type ComponentStatus struct {
	Table     int              `json:"table"`
	Interface string           `json:"interface"`
	Kind      KernelObjectKind `json:"kind"`
	Command   string           `json:"command"`
	Exists    bool             `json:"exists"`
	Error     string           `json:"error,omitempty"`
}

// CheckComponents reports the presence of every object of t.
func CheckComponents(t RoutingTable, builder ComponentBuilder) []ComponentStatus {
	components := builder.Components(t)
	statuses := make([]ComponentStatus, 0, len(components))
	for _, c := range components {
		status := ComponentStatus{
			Table:     t.Number,
			Interface: t.Interface,
			Kind:      c.Kind(),
			Command:   c.Command(),
		}
		exists, err := c.IsExists()
		status.Exists = exists
		if err != nil {
			status.Error = err.Error()
		}
		statuses = append(statuses, status)
	}
	return statuses
}

type markRuleComponent struct {
	marks *MarkRules
	spec  MarkSpec
}

func (c *markRuleComponent) Kind() KernelObjectKind  { return KindMarkRule }
func (c *markRuleComponent) IsExists() (bool, error) { return c.marks.Exists(c.spec) }
func (c *markRuleComponent) Command() string         { return c.marks.Command("-A", c.spec) }

type tableRuleComponent struct {
	rule *IpRule
}

func (c *tableRuleComponent) Kind() KernelObjectKind  { return KindTableRule }
func (c *tableRuleComponent) IsExists() (bool, error) { return c.rule.IsExists() }
func (c *tableRuleComponent) Command() string         { return c.rule.Command("add") }

type routeComponent struct {
	kind  KernelObjectKind
	route *IpRoute
}

func (c *routeComponent) Kind() KernelObjectKind  { return c.kind }
func (c *routeComponent) IsExists() (bool, error) { return c.route.IsExists() }
func (c *routeComponent) Command() string         { return c.route.Command("add") }

var _ ComponentBuilder = (*NetlinkRouteController)(nil)

// Components returns the mark rule, the table rule and the routes of t in
// installation order. Routes are left out when t has no subnet or gateway.
func (c *NetlinkRouteController) Components(t RoutingTable) []Component {
	components := []Component{
		&markRuleComponent{marks: c.marks, spec: t.markSpec()},
		&tableRuleComponent{rule: c.rule(t.Mark, t.Number)},
	}

	linkIndex := 0
	if link, err := netlink.LinkByName(t.Interface); err == nil {
		linkIndex = link.Attrs().Index
	}

	if t.Subnet != nil {
		components = append(components, &routeComponent{
			kind:  KindSubnetRoute,
			route: BuildSubnetRoute(t.Interface, linkIndex, t.Subnet, t.LocalAddr, t.Number),
		})
	}
	if t.Gateway != nil {
		components = append(components, &routeComponent{
			kind:  KindDefaultRoute,
			route: BuildDefaultRoute(t.Interface, linkIndex, t.Gateway, t.Number),
		})
	}
	return components
}
