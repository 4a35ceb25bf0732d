package networking

import (
	"fmt"
	"net"
	"strings"
)

// recordedCall is one RouteController invocation.
type recordedCall struct {
	Op     string
	Table  int
	Mark   uint32
	Device string
	Subnet string
	Src    string
	Gw     string
	Spec   MarkSpec
}

// RecordingController records invocations and fails the operations listed in
// failOps.
type RecordingController struct {
	Calls   []recordedCall
	failOps map[string]error
}

var _ RouteController = (*RecordingController)(nil)

func NewRecordingController() *RecordingController {
	return &RecordingController{failOps: make(map[string]error)}
}

func (c *RecordingController) Fail(op string, err error) {
	c.failOps[op] = err
}

func (c *RecordingController) Ops() []string {
	ops := make([]string, len(c.Calls))
	for i, call := range c.Calls {
		ops[i] = call.Op
	}
	return ops
}

func (c *RecordingController) record(call recordedCall) CommandResult {
	c.Calls = append(c.Calls, call)
	return result(call.Op, fmt.Sprintf("%s table=%d", call.Op, call.Table), c.failOps[call.Op])
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}

func (c *RecordingController) FlushTable(table int) CommandResult {
	return c.record(recordedCall{Op: OpFlushTable, Table: table})
}

func (c *RecordingController) AddMarkRule(spec MarkSpec) CommandResult {
	return c.record(recordedCall{Op: OpAddMarkRule, Table: spec.Table, Mark: spec.Mark, Device: spec.Device, Spec: spec})
}

func (c *RecordingController) DelMarkRule(spec MarkSpec) CommandResult {
	return c.record(recordedCall{Op: OpDelMarkRule, Table: spec.Table, Mark: spec.Mark, Device: spec.Device, Spec: spec})
}

func (c *RecordingController) AddTableRule(mark uint32, table int) CommandResult {
	return c.record(recordedCall{Op: OpAddTableRule, Table: table, Mark: mark})
}

func (c *RecordingController) DelTableRule(mark uint32, table int) CommandResult {
	return c.record(recordedCall{Op: OpDelTableRule, Table: table, Mark: mark})
}

func (c *RecordingController) AddSubnetRoute(table int, device string, subnet *net.IPNet, src net.IP) CommandResult {
	return c.record(recordedCall{Op: OpAddSubnetRoute, Table: table, Device: device, Subnet: subnet.String(), Src: ipString(src)})
}

func (c *RecordingController) AddDefaultRoute(table int, device string, gw net.IP) CommandResult {
	return c.record(recordedCall{Op: OpAddDefaultRoute, Table: table, Device: device, Gw: ipString(gw)})
}

func (c *RecordingController) FlushMarkRules() CommandResult {
	return c.record(recordedCall{Op: OpFlushMarkRules})
}

// fakeIPTables keeps chains and rules in memory.
type fakeIPTables struct {
	chains map[string][]string
}

var _ iptablesRunner = (*fakeIPTables)(nil)

func newFakeIPTables() *fakeIPTables {
	return &fakeIPTables{chains: map[string][]string{"mangle/OUTPUT": nil}}
}

func (f *fakeIPTables) key(table, chain string) string {
	return table + "/" + chain
}

func (f *fakeIPTables) ChainExists(table, chain string) (bool, error) {
	_, ok := f.chains[f.key(table, chain)]
	return ok, nil
}

func (f *fakeIPTables) NewChain(table, chain string) error {
	if _, ok := f.chains[f.key(table, chain)]; ok {
		return fmt.Errorf("chain %s already exists", chain)
	}
	f.chains[f.key(table, chain)] = nil
	return nil
}

func (f *fakeIPTables) ClearChain(table, chain string) error {
	f.chains[f.key(table, chain)] = nil
	return nil
}

func (f *fakeIPTables) DeleteChain(table, chain string) error {
	k := f.key(table, chain)
	if len(f.chains[k]) > 0 {
		return fmt.Errorf("chain %s is not empty", chain)
	}
	delete(f.chains, k)
	return nil
}

func (f *fakeIPTables) Exists(table, chain string, rulespec ...string) (bool, error) {
	rule := strings.Join(rulespec, " ")
	for _, r := range f.chains[f.key(table, chain)] {
		if r == rule {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeIPTables) Insert(table, chain string, pos int, rulespec ...string) error {
	k := f.key(table, chain)
	rules := f.chains[k]
	idx := pos - 1
	if idx > len(rules) {
		idx = len(rules)
	}
	rules = append(rules[:idx], append([]string{strings.Join(rulespec, " ")}, rules[idx:]...)...)
	f.chains[k] = rules
	return nil
}

func (f *fakeIPTables) AppendUnique(table, chain string, rulespec ...string) error {
	if exists, _ := f.Exists(table, chain, rulespec...); exists {
		return nil
	}
	k := f.key(table, chain)
	f.chains[k] = append(f.chains[k], strings.Join(rulespec, " "))
	return nil
}

func (f *fakeIPTables) Delete(table, chain string, rulespec ...string) error {
	if exists, _ := f.Exists(table, chain, rulespec...); !exists {
		return fmt.Errorf("rule does not exist")
	}
	return f.DeleteIfExists(table, chain, rulespec...)
}

func (f *fakeIPTables) DeleteIfExists(table, chain string, rulespec ...string) error {
	k := f.key(table, chain)
	if _, ok := f.chains[k]; !ok {
		return nil
	}
	rule := strings.Join(rulespec, " ")
	kept := f.chains[k][:0]
	for _, r := range f.chains[k] {
		if r != rule {
			kept = append(kept, r)
		}
	}
	f.chains[k] = kept
	return nil
}
