package networking

import (
	"net"

	"github.com/multihome/mhroute/src/internal/errors"
	"github.com/multihome/mhroute/src/internal/log"
	"github.com/multihome/mhroute/src/internal/utils"
)

const (
	colorGreen = "\033[32m"
	colorReset = "\033[0m"
)

// ErrNoInterfaceFound is returned when neither a subnet match nor a policy
// candidate exists for a destination.
var ErrNoInterfaceFound = errors.New(errors.ErrCodeSelection, "no interface found")

// PriorityPolicy maps interface names to a rank. Higher ranks win; names that
// are missing or ranked <= 0 are never chosen by priority.
type PriorityPolicy map[string]int

// MatchKind tells how a selection was made.
type MatchKind string

const (
	MatchSubnet   MatchKind = "subnet"
	MatchPriority MatchKind = "priority"
	MatchScope    MatchKind = "scope"
)

// SelectionResult is the local side chosen for a destination.
type SelectionResult struct {
	Interface string
	Address   net.IP
	Netmask   net.IPMask
	ScopeID   uint32
	Matched   MatchKind
}

// InterfaceSelector chooses the local interface traffic to a destination
// should originate from.
//
// An interface whose subnet contains the destination always wins. Otherwise
// the highest ranked interface of the policy is used, with its own address
// standing in for the destination.
type InterfaceSelector struct {
	catalog Catalog
}

// NewInterfaceSelector creates a selector reading a fresh snapshot from
// catalog on every call.
func NewInterfaceSelector(catalog Catalog) *InterfaceSelector {
	return &InterfaceSelector{catalog: catalog}
}

// SelectIPv4 picks the local IPv4 interface for target.
//
// Only up IPv4 entries are considered, in catalog order. Loopback entries are
// not filtered. Among policy candidates a strictly greater rank replaces the
// current choice, so ties keep the first entry seen.
func (s *InterfaceSelector) SelectIPv4(target net.IP, policy PriorityPolicy) (*SelectionResult, error) {
	entries, err := s.catalog.ListInterfaces()
	if err != nil {
		return nil, err
	}

	var best *InterfaceInfo
	bestPriority := 0

	for i := range entries {
		entry := &entries[i]
		if !entry.Up || entry.Family != FamilyIPv4 {
			continue
		}

		if utils.SameSubnet(target, entry.Address, entry.Netmask) {
			log.Debugf(" %s %s (%s) contains %s", colorGreen+"->"+colorReset, entry.Name, entry.Address, target)
			return &SelectionResult{
				Interface: entry.Name,
				Address:   entry.Address,
				Netmask:   entry.Netmask,
				Matched:   MatchSubnet,
			}, nil
		}

		if priority, ok := policy[entry.Name]; ok && priority > bestPriority {
			best = entry
			bestPriority = priority
		}
	}

	if best == nil {
		log.Debugf("No interface for %s: no subnet match and no policy candidate", target)
		return nil, ErrNoInterfaceFound
	}

	log.Debugf(" %s %s (%s) by priority %d for %s",
		colorGreen+"->"+colorReset, best.Name, best.Address, bestPriority, target)
	return &SelectionResult{
		Interface: best.Name,
		Address:   best.Address,
		Netmask:   best.Netmask,
		Matched:   MatchPriority,
	}, nil
}

// SelectIPv6 returns the scope id of the interface owning target, or 0.
func (s *InterfaceSelector) SelectIPv6(target net.IP) (uint32, error) {
	return ResolveScope(s.catalog, target)
}
