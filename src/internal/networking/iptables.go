package networking

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/coreos/go-iptables/iptables"
	"github.com/valyala/fasttemplate"

	"github.com/multihome/mhroute/src/internal/config"
	"github.com/multihome/mhroute/src/internal/log"
)

const (
	mangleTable = "mangle"
	outputChain = "OUTPUT"
)

// MarkSpec describes the traffic one mark rule tags: UDP leaving Device from
// LocalAddr (and Port when port restriction is on).
type MarkSpec struct {
	Device    string
	LocalAddr net.IP
	Mark      uint32
	Table     int
	Port      int
}

// iptablesRunner is the subset of *iptables.IPTables used for mark rules.
type iptablesRunner interface {
	ChainExists(table, chain string) (bool, error)
	NewChain(table, chain string) error
	ClearChain(table, chain string) error
	DeleteChain(table, chain string) error
	Exists(table, chain string, rulespec ...string) (bool, error)
	Insert(table, chain string, pos int, rulespec ...string) error
	AppendUnique(table, chain string, rulespec ...string) error
	Delete(table, chain string, rulespec ...string) error
	DeleteIfExists(table, chain string, rulespec ...string) error
}

var _ iptablesRunner = (*iptables.IPTables)(nil)

// MarkRules manages the mangle chain holding one MARK rule per routed
// interface. The chain is jumped to from OUTPUT so locally originated
// datagrams are marked before the routing decision.
type MarkRules struct {
	ipt          iptablesRunner
	chain        string
	ruleTemplate string
	restrictPort bool
}

// NewMarkRules creates mark rule management for the IPv4 mangle table.
func NewMarkRules(chain, ruleTemplate string, restrictPort bool) (*MarkRules, error) {
	ipt, err := iptables.NewWithProtocol(iptables.ProtocolIPv4)
	if err != nil {
		return nil, err
	}
	return newMarkRules(ipt, chain, ruleTemplate, restrictPort), nil
}

func newMarkRules(ipt iptablesRunner, chain, ruleTemplate string, restrictPort bool) *MarkRules {
	return &MarkRules{
		ipt:          ipt,
		chain:        chain,
		ruleTemplate: ruleTemplate,
		restrictPort: restrictPort,
	}
}

// Rule renders the rule specification for spec.
func (m *MarkRules) Rule(spec MarkSpec) ([]string, error) {
	template := m.template(spec)
	rendered, err := processRulePart(template, spec)
	if err != nil {
		return nil, err
	}
	return strings.Fields(rendered), nil
}

func (m *MarkRules) template(spec MarkSpec) string {
	template := m.ruleTemplate
	if m.restrictPort && spec.Port > 0 && !strings.Contains(template, "{{"+config.MARK_TMPL_PORT+"}}") {
		template = insertBeforeTarget(template, "--sport {{"+config.MARK_TMPL_PORT+"}}")
	}
	return template
}

// Command returns the iptables(8) invocation for action ("-A" or "-D").
// A template that does not render is shown as is.
func (m *MarkRules) Command(action string, spec MarkSpec) string {
	rule, err := m.Rule(spec)
	if err != nil {
		rule = strings.Fields(m.template(spec))
	}
	return "iptables -t " + mangleTable + " " + action + " " + m.chain + " " + strings.Join(rule, " ")
}

// EnsureChain creates the chain and the OUTPUT jump when missing.
func (m *MarkRules) EnsureChain() error {
	exists, err := m.ipt.ChainExists(mangleTable, m.chain)
	if err != nil {
		return err
	}
	if !exists {
		log.Debugf("Creating iptables chain %s/%s", mangleTable, m.chain)
		if err := m.ipt.NewChain(mangleTable, m.chain); err != nil {
			return err
		}
	}

	jump := []string{"-j", m.chain}
	if exists, err := m.ipt.Exists(mangleTable, outputChain, jump...); err != nil {
		return err
	} else if !exists {
		log.Debugf("Linking %s/%s from %s", mangleTable, m.chain, outputChain)
		if err := m.ipt.Insert(mangleTable, outputChain, 1, jump...); err != nil {
			return err
		}
	}
	return nil
}

// Add appends the rule for spec unless it is already present.
func (m *MarkRules) Add(spec MarkSpec) error {
	rule, err := m.Rule(spec)
	if err != nil {
		return err
	}
	if err := m.EnsureChain(); err != nil {
		return err
	}
	log.Infof("Adding iptables rule [%s]", strings.Join(rule, " "))
	return m.ipt.AppendUnique(mangleTable, m.chain, rule...)
}

// Exists reports whether the rule for spec is in the chain. A missing chain
// means the rule is absent.
func (m *MarkRules) Exists(spec MarkSpec) (bool, error) {
	rule, err := m.Rule(spec)
	if err != nil {
		return false, err
	}
	chainExists, err := m.ipt.ChainExists(mangleTable, m.chain)
	if err != nil || !chainExists {
		return false, err
	}
	return m.ipt.Exists(mangleTable, m.chain, rule...)
}

// Del removes the rule for spec if present.
func (m *MarkRules) Del(spec MarkSpec) error {
	rule, err := m.Rule(spec)
	if err != nil {
		return err
	}
	log.Infof("Deleting iptables rule [%s]", strings.Join(rule, " "))
	return m.ipt.DeleteIfExists(mangleTable, m.chain, rule...)
}

// Flush empties the chain, unlinks it from OUTPUT and deletes it. A missing
// chain is not an error.
func (m *MarkRules) Flush() error {
	exists, err := m.ipt.ChainExists(mangleTable, m.chain)
	if err != nil {
		return err
	}
	if !exists {
		log.Debugf("Chain %s/%s does not exist, nothing to flush", mangleTable, m.chain)
		return nil
	}

	if err := m.ipt.ClearChain(mangleTable, m.chain); err != nil {
		return err
	}
	if err := m.ipt.DeleteIfExists(mangleTable, outputChain, "-j", m.chain); err != nil {
		return err
	}
	return m.ipt.DeleteChain(mangleTable, m.chain)
}

func processRulePart(template string, spec MarkSpec) (string, error) {
	if !strings.Contains(template, "{{") {
		return template, nil
	}

	t, err := fasttemplate.NewTemplate(template, "{{", "}}")
	if err != nil {
		return "", fmt.Errorf("invalid mark rule template %q: %w", template, err)
	}

	localAddr := ""
	if spec.LocalAddr != nil {
		localAddr = spec.LocalAddr.String()
	}

	return t.ExecuteString(map[string]interface{}{
		config.MARK_TMPL_DEVICE:     spec.Device,
		config.MARK_TMPL_LOCAL_ADDR: localAddr,
		config.MARK_TMPL_FWMARK:     strconv.FormatUint(uint64(spec.Mark), 10),
		config.MARK_TMPL_TABLE:      strconv.Itoa(spec.Table),
		config.MARK_TMPL_PORT:       strconv.Itoa(spec.Port),
	}), nil
}

// insertBeforeTarget places extra before the "-j" target of a rule, or at the
// end when the rule has no target.
func insertBeforeTarget(rule, extra string) string {
	fields := strings.Fields(rule)
	for i, f := range fields {
		if f == "-j" || f == "--jump" {
			out := append([]string{}, fields[:i]...)
			out = append(out, extra)
			out = append(out, fields[i:]...)
			return strings.Join(out, " ")
		}
	}
	return strings.Join(append(fields, extra), " ")
}
