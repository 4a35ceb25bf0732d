package networking

import (
	"fmt"
	"net"

	"github.com/multihome/mhroute/src/internal/errors"
	"github.com/multihome/mhroute/src/internal/log"
	"github.com/multihome/mhroute/src/internal/utils"
)

// ErrNoTable is returned by Install for interfaces without a table number.
// Callers carry on without policy routing for that interface.
var ErrNoTable = errors.New(errors.ErrCodeRouting, "interface has no routing table number")

// KernelObjectKind names a kernel object created for a routing table.
type KernelObjectKind string

const (
	KindMarkRule     KernelObjectKind = "mark_rule"
	KindTableRule    KernelObjectKind = "table_rule"
	KindSubnetRoute  KernelObjectKind = "subnet_route"
	KindDefaultRoute KernelObjectKind = "default_route"
)

// KernelObject is one rule or route installed for a table.
type KernelObject struct {
	Kind    KernelObjectKind `json:"kind"`
	Command string           `json:"command"`
}

// RoutingTable is the policy routing state installed for one interface.
// Mark always equals Number.
type RoutingTable struct {
	Number    int
	Interface string
	Mark      uint32
	LocalAddr net.IP
	Port      int
	Subnet    *net.IPNet
	Gateway   net.IP
	Objects   []KernelObject
	Results   []CommandResult
}

func (t *RoutingTable) markSpec() MarkSpec {
	return MarkSpec{
		Device:    t.Interface,
		LocalAddr: t.LocalAddr,
		Mark:      t.Mark,
		Table:     t.Number,
		Port:      t.Port,
	}
}

func (t *RoutingTable) has(kind KernelObjectKind) bool {
	for _, o := range t.Objects {
		if o.Kind == kind {
			return true
		}
	}
	return false
}

// SessionOptions tune how tables are installed.
type SessionOptions struct {
	// Strict aborts an install at the first failed step and removes what
	// was created for that table.
	Strict bool
	// Gateway infers default route next hops. HeuristicGateway when nil.
	Gateway GatewayInferrer
}

// Session tracks the routing tables installed by this process so they can
// be torn down exactly once. It is not safe for concurrent use.
type Session struct {
	ctrl     RouteController
	numberer *TableNumberer
	opts     SessionOptions
	tables   []*RoutingTable
}

func NewSession(ctrl RouteController, numberer *TableNumberer, opts SessionOptions) *Session {
	if opts.Gateway == nil {
		opts.Gateway = HeuristicGateway
	}
	if numberer == nil {
		numberer = DefaultTableNumberer()
	}
	return &Session{
		ctrl:     ctrl,
		numberer: numberer,
		opts:     opts,
	}
}

// Strict reports whether failed installs are rolled back and reported.
func (s *Session) Strict() bool {
	return s.opts.Strict
}

// Numberer returns the table numberer of the session.
func (s *Session) Numberer() *TableNumberer {
	return s.numberer
}

// Install creates the policy routing table for iface:
//
//  1. flush table N
//  2. mark UDP from localAddr leaving iface with N
//  3. ip rule fwmark N -> table N
//  4. on-link route for the interface subnet
//  5. default route via the inferred gateway
//
// Steps run even when earlier ones failed unless the session is strict.
// Installing an interface that is already tracked returns its table.
func (s *Session) Install(iface string, localAddr net.IP, netmask net.IPMask, port int) (*RoutingTable, error) {
	for _, t := range s.tables {
		if t.Interface == iface {
			log.Debugf("Routing table %d for %s is already installed", t.Number, iface)
			return t, nil
		}
	}

	number, ok := s.numberer.TableNumber(iface)
	if !ok {
		log.Debugf("Interface %s has no routing table number, skipping policy routing", iface)
		return nil, ErrNoTable
	}

	network := utils.NetworkAddress(localAddr, netmask)
	if network == nil {
		return nil, errors.NewRoutingError(
			fmt.Sprintf("cannot route %s: %s/%s is not an IPv4 address and mask", iface, localAddr, net.IP(netmask)), nil)
	}

	table := &RoutingTable{
		Number:    number,
		Interface: iface,
		Mark:      uint32(number),
		LocalAddr: localAddr.To4(),
		Port:      port,
		Subnet: &net.IPNet{
			IP:   network,
			Mask: net.CIDRMask(utils.PrefixLength(netmask), 32),
		},
		Gateway: s.opts.Gateway(iface, network),
	}

	log.Infof("Installing routing table %d for %s (%s, subnet %s, gateway %s)",
		number, iface, table.LocalAddr, table.Subnet, table.Gateway)

	steps := []struct {
		kind KernelObjectKind
		run  func() CommandResult
	}{
		{"", func() CommandResult { return s.ctrl.FlushTable(number) }},
		{KindMarkRule, func() CommandResult { return s.ctrl.AddMarkRule(table.markSpec()) }},
		{KindTableRule, func() CommandResult { return s.ctrl.AddTableRule(table.Mark, number) }},
		{KindSubnetRoute, func() CommandResult { return s.ctrl.AddSubnetRoute(number, iface, table.Subnet, table.LocalAddr) }},
		{KindDefaultRoute, func() CommandResult { return s.ctrl.AddDefaultRoute(number, iface, table.Gateway) }},
	}

	for _, step := range steps {
		res := step.run()
		table.Results = append(table.Results, res)

		if res.OK {
			if step.kind != "" {
				table.Objects = append(table.Objects, KernelObject{Kind: step.kind, Command: res.Message})
			}
			log.Debugf("[table %d] %s", number, res.Message)
			continue
		}

		log.Warnf("[table %d] %s failed: %v", number, res.Message, res.Err)
		if s.opts.Strict {
			s.rollback(table)
			return nil, errors.NewRoutingError(
				fmt.Sprintf("failed to install routing table %d for %s", number, iface), res.Err)
		}
	}

	s.tables = append(s.tables, table)
	return table, nil
}

// rollback removes the objects a failed strict install created.
func (s *Session) rollback(table *RoutingTable) {
	log.Warnf("Rolling back routing table %d for %s", table.Number, table.Interface)

	var results []CommandResult
	if table.has(KindSubnetRoute) || table.has(KindDefaultRoute) {
		results = append(results, s.ctrl.FlushTable(table.Number))
	}
	if table.has(KindTableRule) {
		results = append(results, s.ctrl.DelTableRule(table.Mark, table.Number))
	}
	if table.has(KindMarkRule) {
		results = append(results, s.ctrl.DelMarkRule(table.markSpec()))
	}
	logFailures(table.Number, results)
}

// TeardownAll removes every tracked table and then the mark rules, and
// forgets the tables. Failures are logged and do not stop the teardown.
// It returns the number of tables torn down; with nothing tracked it does
// nothing.
func (s *Session) TeardownAll() int {
	if len(s.tables) == 0 {
		return 0
	}

	for _, t := range s.tables {
		log.Infof("Removing routing table %d for %s", t.Number, t.Interface)
		logFailures(t.Number, []CommandResult{
			s.ctrl.FlushTable(t.Number),
			s.ctrl.DelTableRule(t.Mark, t.Number),
		})
	}

	if res := s.ctrl.FlushMarkRules(); !res.OK {
		log.Warnf("%s failed: %v", res.Message, res.Err)
	}

	count := len(s.tables)
	s.tables = nil
	return count
}

// Undo removes the tables derived from names whether or not this session
// installed them, then the mark rules. It is used to clean up after a
// process that exited without tearing down.
func (s *Session) Undo(names []string) []CommandResult {
	var results []CommandResult
	seen := make(map[int]bool)

	for _, name := range names {
		number, ok := s.numberer.TableNumber(name)
		if !ok || seen[number] {
			continue
		}
		seen[number] = true

		log.Infof("Removing routing table %d for %s", number, name)
		results = append(results,
			s.ctrl.FlushTable(number),
			s.ctrl.DelTableRule(uint32(number), number),
		)
	}
	results = append(results, s.ctrl.FlushMarkRules())

	kept := s.tables[:0]
	for _, t := range s.tables {
		if !seen[t.Number] {
			kept = append(kept, t)
		}
	}
	s.tables = kept

	for _, res := range results {
		if !res.OK {
			log.Warnf("%s failed: %v", res.Message, res.Err)
		}
	}
	return results
}

// Tables returns a copy of the tracked tables.
func (s *Session) Tables() []RoutingTable {
	out := make([]RoutingTable, 0, len(s.tables))
	for _, t := range s.tables {
		c := *t
		c.Objects = append([]KernelObject(nil), t.Objects...)
		c.Results = append([]CommandResult(nil), t.Results...)
		out = append(out, c)
	}
	return out
}

func logFailures(table int, results []CommandResult) {
	for _, res := range results {
		if !res.OK {
			log.Warnf("[table %d] %s failed: %v", table, res.Message, res.Err)
		}
	}
}
