package api

import (
	"github.com/multihome/mhroute/src/internal/networking"
	"github.com/multihome/mhroute/src/internal/service"
)

// DataResponse wraps successful responses with a "data" field.
type DataResponse struct {
	Data interface{} `json:"data"`
}

// InterfacesResponse returns the interface catalog.
type InterfacesResponse struct {
	Interfaces []service.InterfaceInfo `json:"interfaces"`
}

// SelectionResponse describes the interface chosen for a destination.
type SelectionResponse struct {
	Destination string `json:"destination"`
	Interface   string `json:"interface"`
	Address     string `json:"address"`
	Netmask     string `json:"netmask,omitempty"`
	ScopeID     uint32 `json:"scope_id,omitempty"`
	// Matched is "subnet", "priority" or "scope".
	Matched string `json:"matched"`
}

// TableInfo describes one installed policy routing table.
type TableInfo struct {
	Number    int                        `json:"number"`
	Interface string                     `json:"interface"`
	Mark      uint32                     `json:"mark"`
	LocalAddr string                     `json:"local_addr"`
	Port      int                        `json:"port,omitempty"`
	Subnet    string                     `json:"subnet,omitempty"`
	Gateway   string                     `json:"gateway,omitempty"`
	Objects   []networking.KernelObject  `json:"objects"`
	Results   []networking.CommandResult `json:"results"`
}

// TablesResponse returns the installed policy routing tables.
type TablesResponse struct {
	Tables []TableInfo `json:"tables"`
}

// TableChecksResponse returns the presence of every installed kernel object.
type TableChecksResponse struct {
	Healthy bool                         `json:"healthy"`
	Checks  []networking.ComponentStatus `json:"checks"`
}

// EndpointsResponse returns the bound endpoints.
type EndpointsResponse struct {
	Endpoints []service.EndpointInfo `json:"endpoints"`
}

// HealthCheckResponse returns health check results.
type HealthCheckResponse struct {
	Healthy  bool                   `json:"healthy"`
	Checks   map[string]CheckResult `json:"checks"`
	Warnings []string               `json:"warnings,omitempty"`
}

// CheckResult contains the result of a single health check.
type CheckResult struct {
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

func newTableInfo(t networking.RoutingTable) TableInfo {
	info := TableInfo{
		Number:    t.Number,
		Interface: t.Interface,
		Mark:      t.Mark,
		LocalAddr: t.LocalAddr.String(),
		Port:      t.Port,
		Objects:   t.Objects,
		Results:   t.Results,
	}
	if t.Subnet != nil {
		info.Subnet = t.Subnet.String()
	}
	if t.Gateway != nil {
		info.Gateway = t.Gateway.String()
	}
	if info.Objects == nil {
		info.Objects = []networking.KernelObject{}
	}
	if info.Results == nil {
		info.Results = []networking.CommandResult{}
	}
	return info
}
