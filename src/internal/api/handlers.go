package api

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/multihome/mhroute/src/internal/config"
	"github.com/multihome/mhroute/src/internal/networking"
	"github.com/multihome/mhroute/src/internal/service"
)

// StatusProvider is the part of the multihome service the API reads from.
type StatusProvider interface {
	Interfaces(includeLoopback bool) ([]service.InterfaceInfo, error)
	Select(dst net.IP) (*networking.SelectionResult, error)
	Tables() []networking.RoutingTable
	CheckTables() []networking.ComponentStatus
	Endpoints() []service.EndpointInfo
}

// ConfigValidator checks the running configuration.
type ConfigValidator interface {
	ValidateConfig(cfg *config.Config) error
	Warnings(cfg *config.Config) []string
}

// Handler manages all API endpoints and dependencies.
type Handler struct {
	status    StatusProvider
	cfg       *config.Config
	validator ConfigValidator
}

// NewHandler creates a new API handler. A nil validator skips the
// configuration check of /health.
func NewHandler(status StatusProvider, cfg *config.Config, validator ConfigValidator) *Handler {
	return &Handler{
		status:    status,
		cfg:       cfg,
		validator: validator,
	}
}

// GetInterfaces returns the interface catalog.
// GET /api/v1/interfaces?loopback=true
func (h *Handler) GetInterfaces(w http.ResponseWriter, r *http.Request) {
	includeLoopback := r.URL.Query().Get("loopback") == "true"

	interfaces, err := h.status.Interfaces(includeLoopback)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if interfaces == nil {
		interfaces = []service.InterfaceInfo{}
	}
	writeJSONData(w, InterfacesResponse{Interfaces: interfaces})
}

// Select reports the interface that would carry traffic to dst.
// GET /api/v1/select?dst=192.0.2.10
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("dst")
	if raw == "" {
		WriteInvalidRequest(w, "query parameter dst is required")
		return
	}
	dst := net.ParseIP(raw)
	if dst == nil {
		WriteInvalidRequest(w, "dst is not an IP address: "+raw)
		return
	}

	result, err := h.status.Select(dst)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	response := SelectionResponse{
		Destination: dst.String(),
		Interface:   result.Interface,
		ScopeID:     result.ScopeID,
		Matched:     string(result.Matched),
	}
	if result.Address != nil {
		response.Address = result.Address.String()
	}
	if result.Netmask != nil {
		response.Netmask = net.IP(result.Netmask).String()
	}
	writeJSONData(w, response)
}

// GetTables returns the installed policy routing tables.
// GET /api/v1/tables
func (h *Handler) GetTables(w http.ResponseWriter, r *http.Request) {
	tables := h.status.Tables()
	response := TablesResponse{Tables: make([]TableInfo, 0, len(tables))}
	for _, t := range tables {
		response.Tables = append(response.Tables, newTableInfo(t))
	}
	writeJSONData(w, response)
}

// CheckTables reports whether the kernel objects of the installed tables
// are still present.
// GET /api/v1/tables/check
func (h *Handler) CheckTables(w http.ResponseWriter, r *http.Request) {
	checks := h.status.CheckTables()
	response := TableChecksResponse{Healthy: true, Checks: checks}
	if response.Checks == nil {
		response.Checks = []networking.ComponentStatus{}
	}
	for _, check := range checks {
		if !check.Exists {
			response.Healthy = false
		}
	}
	writeJSONData(w, response)
}

// GetEndpoints returns the bound endpoints.
// GET /api/v1/endpoints
func (h *Handler) GetEndpoints(w http.ResponseWriter, r *http.Request) {
	endpoints := h.status.Endpoints()
	if endpoints == nil {
		endpoints = []service.EndpointInfo{}
	}
	writeJSONData(w, EndpointsResponse{Endpoints: endpoints})
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(DataResponse{Data: data})
}

// writeJSONData writes a successful JSON response with data.
func writeJSONData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, data)
}
