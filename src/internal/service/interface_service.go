package service

import (
	"fmt"
	"strings"

	"github.com/multihome/mhroute/src/internal/networking"
)

// InterfaceInfo groups the catalog entries of one interface.
type InterfaceInfo struct {
	Index       int      `json:"index"`
	Name        string   `json:"name"`
	IsUp        bool     `json:"is_up"`
	IsLoopback  bool     `json:"is_loopback"`
	IPAddresses []string `json:"ip_addresses,omitempty"`
	// Table is the policy routing table number, 0 when the name has none.
	Table int `json:"table,omitempty"`
}

// InterfaceService provides unified interface information for both CLI and API.
type InterfaceService struct {
	catalog  networking.Catalog
	numberer *networking.TableNumberer
}

// NewInterfaceService creates a new interface service. A nil numberer leaves
// table numbers out.
func NewInterfaceService(catalog networking.Catalog, numberer *networking.TableNumberer) *InterfaceService {
	return &InterfaceService{catalog: catalog, numberer: numberer}
}

// GetInterfaces returns one entry per interface in catalog order.
func (s *InterfaceService) GetInterfaces(includeLoopback bool) ([]InterfaceInfo, error) {
	entries, err := s.catalog.ListInterfaces()
	if err != nil {
		return nil, err
	}

	result := make([]InterfaceInfo, 0)
	positions := make(map[string]int)
	for _, entry := range entries {
		if entry.Loopback && !includeLoopback {
			continue
		}

		pos, ok := positions[entry.Name]
		if !ok {
			info := InterfaceInfo{
				Index:      entry.Index,
				Name:       entry.Name,
				IsUp:       entry.Up,
				IsLoopback: entry.Loopback,
			}
			if s.numberer != nil {
				info.Table, _ = s.numberer.TableNumber(entry.Name)
			}
			pos = len(result)
			positions[entry.Name] = pos
			result = append(result, info)
		}

		result[pos].IPAddresses = append(result[pos].IPAddresses, formatAddress(entry))
	}

	return result, nil
}

func formatAddress(entry networking.InterfaceInfo) string {
	if entry.Family == networking.FamilyIPv4 {
		ones, _ := entry.Netmask.Size()
		return fmt.Sprintf("%s/%d", entry.Address, ones)
	}
	if entry.ScopeID != 0 {
		return fmt.Sprintf("%s%%%d", entry.Address, entry.ScopeID)
	}
	return entry.Address.String()
}

// Color constants for CLI formatting
const (
	colorReset = "\033[0m"
	colorCyan  = "\033[0;36m"
	colorGreen = "\033[32m"
	colorRed   = "\033[0;31m"
)

// FormatInterfacesForCLI returns a formatted string representation for CLI output.
func (s *InterfaceService) FormatInterfacesForCLI(interfaces []InterfaceInfo) string {
	var sb strings.Builder

	for _, iface := range interfaces {
		table := "-"
		if iface.Table != 0 {
			table = fmt.Sprintf("%d", iface.Table)
		}
		sb.WriteString(fmt.Sprintf("%d. %s%s%s (%sup%s=%s%v%s %stable%s=%s)\n",
			iface.Index,
			colorCyan, iface.Name, colorReset,
			colorCyan, colorReset,
			colorForBool(iface.IsUp), iface.IsUp, colorReset,
			colorCyan, colorReset, table))

		for _, ip := range iface.IPAddresses {
			family := "IPv4"
			if strings.Contains(ip, ":") {
				family = "IPv6"
			}
			sb.WriteString(fmt.Sprintf("  IP Address (%s): %s\n", family, ip))
		}
	}

	return sb.String()
}

func colorForBool(value bool) string {
	if value {
		return colorGreen
	}
	return colorRed
}
