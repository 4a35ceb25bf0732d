package api

import (
	"net"

	"github.com/multihome/mhroute/src/internal/networking"
	"github.com/multihome/mhroute/src/internal/service"
)

// fakeStatus serves canned service state.
type fakeStatus struct {
	interfaces    []service.InterfaceInfo
	interfacesErr error
	selection     *networking.SelectionResult
	selectErr     error
	tables        []networking.RoutingTable
	checks        []networking.ComponentStatus
	endpoints     []service.EndpointInfo

	selected net.IP
}

var _ StatusProvider = (*fakeStatus)(nil)

func (f *fakeStatus) Interfaces(bool) ([]service.InterfaceInfo, error) {
	return f.interfaces, f.interfacesErr
}

func (f *fakeStatus) Select(dst net.IP) (*networking.SelectionResult, error) {
	f.selected = dst
	return f.selection, f.selectErr
}

func (f *fakeStatus) Tables() []networking.RoutingTable {
	return f.tables
}

func (f *fakeStatus) CheckTables() []networking.ComponentStatus {
	return f.checks
}

func (f *fakeStatus) Endpoints() []service.EndpointInfo {
	return f.endpoints
}
