package networking

import (
	"fmt"

	"github.com/vishvananda/netlink"

	"github.com/multihome/mhroute/src/internal/log"
)

type IpRule struct {
	*netlink.Rule
}

func (r *IpRule) String() string {
	return fmt.Sprintf("rule %d: fwmark=%d -> table %d", r.Priority, r.Mark, r.Table)
}

// Command returns the equivalent ip(8) invocation.
func (r *IpRule) Command(action string) string {
	return fmt.Sprintf("ip rule %s fwmark %d table %d priority %d", action, r.Mark, r.Table, r.Priority)
}

// BuildRule builds an IPv4 rule sending packets marked with fwmark to table.
func BuildRule(fwmark uint32, table int, priority int) *IpRule {
	ipr := netlink.NewRule()

	ipr.Table = table
	ipr.Mark = fwmark
	ipr.Priority = priority
	ipr.Family = netlink.FAMILY_V4
	return &IpRule{ipr}
}

func (ipr *IpRule) Add() error {
	log.Debugf("Adding IP rule [%v]", ipr)
	if err := netlink.RuleAdd(ipr.Rule); err != nil {
		log.Warnf("Failed to add IP rule [%v]: %v", ipr, err)
		return err
	}

	return nil
}

func (ipr *IpRule) AddIfNotExists() (bool, error) {
	if exists, err := ipr.IsExists(); err != nil {
		return false, err
	} else if exists {
		return false, nil
	}
	if err := ipr.Add(); err != nil {
		return false, err
	}
	return true, nil
}

func (ipr *IpRule) IsExists() (bool, error) {
	filtered, err := netlink.RuleListFiltered(ipr.Family, ipr.Rule, netlink.RT_FILTER_TABLE|netlink.RT_FILTER_MARK|netlink.RT_FILTER_PRIORITY)
	if err != nil {
		log.Warnf("Checking if IP rule exists [%v] is failed: %v", ipr, err)
		return false, err
	}

	log.Debugf("Checking if IP rule exists [%v]: %v", ipr, len(filtered) > 0)
	return len(filtered) > 0, nil
}

func (ipr *IpRule) Del() error {
	log.Debugf("Deleting IP rule [%v]", ipr)
	if err := netlink.RuleDel(ipr.Rule); err != nil {
		log.Warnf("Failed to delete IP rule [%v]: %v", ipr, err)
		return err
	}

	return nil
}

func (ipr *IpRule) DelIfExists() (bool, error) {
	if exists, err := ipr.IsExists(); err != nil {
		return false, err
	} else if !exists {
		return false, nil
	}
	if err := ipr.Del(); err != nil {
		return false, err
	}
	return true, nil
}
