package config

import (
	"path/filepath"
	"time"
)

type Config struct {
	// General holds general configuration.
	General *GeneralConfig `toml:"general" json:"general"`
	// Selection holds the interface priority policy.
	Selection *SelectionConfig `toml:"selection" json:"selection"`
	// Routing holds policy routing settings.
	Routing *RoutingConfig `toml:"routing" json:"routing"`
	// Endpoint holds socket options for bound endpoints.
	Endpoint *EndpointConfig `toml:"endpoint" json:"endpoint"`
	// Resolver holds peer name resolution settings.
	Resolver *ResolverConfig `toml:"resolver" json:"resolver"`
	// API holds status API settings.
	API *APIConfig `toml:"api" json:"api"`

	_absConfigFilePath string
}

type GeneralConfig struct {
	// Verbose enables debug logging.
	Verbose bool `toml:"verbose" json:"verbose"`
}

type SelectionConfig struct {
	// Priorities maps an interface name to its rank. Higher wins. Used only when the destination matches no local subnet.
	Priorities map[string]int `toml:"priorities" json:"priorities" validate:"dive,keys,required,endkeys,min=1"`
}

type RoutingConfig struct {
	// Enabled installs a policy routing table for every bound IPv4 endpoint (default: true).
	Enabled bool `toml:"enabled" json:"enabled"`
	// Strict aborts and rolls back a table installation at the first failed step instead of continuing (default: false).
	Strict bool `toml:"strict" json:"strict"`
	// Gateway selects how the default route gateway of a table is chosen: "heuristic" (network address with last octet 1) or "discover" (main table default route, heuristic fallback).
	Gateway string `toml:"gateway" json:"gateway" validate:"oneof=heuristic discover"`
	// MarkChain is the mangle chain holding the firewall mark rules (default: MHROUTE_MARK).
	MarkChain string `toml:"mark_chain" json:"mark_chain" validate:"required,chain_name"`
	// RulePriorityBase is added to the table number to get the ip rule priority (default: 1000).
	RulePriorityBase int `toml:"rule_priority_base" json:"rule_priority_base" validate:"min=1,max=32000"`
	// RestrictPort limits the mark rule to the bound source port.
	RestrictPort bool `toml:"restrict_port" json:"restrict_port"`
	// MarkRule is the iptables rule specification for marking. Available variables: {{device}}, {{local_addr}}, {{fwmark}}, {{table}}, {{port}}.
	MarkRule string `toml:"mark_rule" json:"mark_rule" validate:"required,mark_rule"`
	// TableBases maps interface name prefixes to the first table number of their range, checked in order.
	TableBases []*TableBase `toml:"table_base" json:"table_base" validate:"dive"`
}

type TableBase struct {
	// Prefix is matched against the start of the interface name.
	Prefix string `toml:"prefix" json:"prefix" validate:"required,alpha"`
	// Base is the table number of the interface with suffix 0.
	Base int `toml:"base" json:"base" validate:"min=1,max=243"`
}

type EndpointConfig struct {
	// BindToDevice pins every endpoint to its interface with SO_BINDTODEVICE (needs CAP_NET_RAW).
	BindToDevice bool `toml:"bind_to_device" json:"bind_to_device"`
	// SetMark sets SO_MARK to the interface table number (needs CAP_NET_ADMIN).
	SetMark bool `toml:"set_mark" json:"set_mark"`
	// DualStack clears IPV6_V6ONLY on IPv6 endpoints so IPv4-mapped peers are reachable.
	DualStack bool `toml:"dual_stack" json:"dual_stack"`
	// Port is the local port of endpoints opened for every interface (0 = ephemeral).
	Port int `toml:"port" json:"port" validate:"min=0,max=65535"`
}

type ResolverConfig struct {
	// Nameserver is the DNS server used for peer names, as ip or ip:port. Empty uses /etc/resolv.conf.
	Nameserver string `toml:"nameserver" json:"nameserver" validate:"nameserver_or_empty"`
	// TimeoutMs is the per-query timeout in milliseconds (default: 3000).
	TimeoutMs int `toml:"timeout_ms" json:"timeout_ms" validate:"min=1"`
}

type APIConfig struct {
	// Listen is the host:port of the status API (default: 127.0.0.1:8089).
	Listen string `toml:"listen" json:"listen" validate:"required,hostport"`
}

func (c *Config) GetConfigDir() string {
	return filepath.Dir(c._absConfigFilePath)
}

func (c *Config) GetConfigPath() string {
	return c._absConfigFilePath
}

// PriorityPolicy returns the selection priorities, never nil.
func (c *Config) PriorityPolicy() map[string]int {
	if c.Selection == nil || c.Selection.Priorities == nil {
		return map[string]int{}
	}
	return c.Selection.Priorities
}

// Timeout returns the resolver timeout as a duration.
func (r *ResolverConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMs) * time.Millisecond
}
