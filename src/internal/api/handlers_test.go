package api

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multihome/mhroute/src/internal/config"
	"github.com/multihome/mhroute/src/internal/errors"
	"github.com/multihome/mhroute/src/internal/networking"
	"github.com/multihome/mhroute/src/internal/service"
)

func twoHomedService(priorities map[string]int) *service.MultihomeService {
	cfg := config.DefaultConfig()
	cfg.Selection.Priorities = priorities
	catalog := networking.NewStaticCatalog(
		networking.IPv4Entry("eth0", "192.168.1.5", "255.255.255.0"),
		networking.IPv4Entry("wlan0", "10.0.0.2", "255.255.255.0"),
	)
	return service.NewMultihomeService(cfg, catalog, nil, nil)
}

func serve(t *testing.T, h *Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestGetInterfaces(t *testing.T) {
	h := NewHandler(twoHomedService(nil), nil, nil)

	rec := serve(t, h, "/api/v1/interfaces")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp InterfacesResponse
	decodeData(t, rec, &resp)
	require.Len(t, resp.Interfaces, 2)
	assert.Equal(t, "eth0", resp.Interfaces[0].Name)
	assert.Equal(t, []string{"192.168.1.5/24"}, resp.Interfaces[0].IPAddresses)
	assert.Equal(t, 1, resp.Interfaces[0].Table)
	assert.Equal(t, "wlan0", resp.Interfaces[1].Name)
	assert.Equal(t, 21, resp.Interfaces[1].Table)
}

func TestGetInterfaces_EnumerationFailure(t *testing.T) {
	status := &fakeStatus{interfacesErr: errors.NewEnumerationError("dump failed", nil)}
	h := NewHandler(status, nil, nil)

	rec := serve(t, h, "/api/v1/interfaces")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	apiErr := decodeError(t, rec)
	assert.Equal(t, ErrCodeInternalError, apiErr.Code)
	assert.Equal(t, "ENUMERATION_ERROR", apiErr.Details["code"])
}

func TestSelect(t *testing.T) {
	h := NewHandler(twoHomedService(map[string]int{"wlan0": 1, "eth0": 2}), nil, nil)

	tests := []struct {
		name      string
		dst       string
		wantIface string
		wantAddr  string
		wantMatch string
	}{
		{"subnet match", "192.168.1.77", "eth0", "192.168.1.5", "subnet"},
		{"other subnet", "10.0.0.9", "wlan0", "10.0.0.2", "subnet"},
		{"priority fallback", "8.8.8.8", "eth0", "192.168.1.5", "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, h, "/api/v1/select?dst="+tt.dst)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp SelectionResponse
			decodeData(t, rec, &resp)
			assert.Equal(t, tt.dst, resp.Destination)
			assert.Equal(t, tt.wantIface, resp.Interface)
			assert.Equal(t, tt.wantAddr, resp.Address)
			assert.Equal(t, "255.255.255.0", resp.Netmask)
			assert.Equal(t, tt.wantMatch, resp.Matched)
		})
	}
}

func TestSelect_NoInterface(t *testing.T) {
	h := NewHandler(twoHomedService(nil), nil, nil)

	rec := serve(t, h, "/api/v1/select?dst=8.8.8.8")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrCodeNotFound, decodeError(t, rec).Code)
}

func TestSelect_BadRequest(t *testing.T) {
	status := &fakeStatus{}
	h := NewHandler(status, nil, nil)

	for _, target := range []string{"/api/v1/select", "/api/v1/select?dst=not-an-ip"} {
		rec := serve(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, ErrCodeInvalidRequest, decodeError(t, rec).Code, target)
	}
	assert.Nil(t, status.selected)
}

func TestGetTables(t *testing.T) {
	_, subnet, _ := net.ParseCIDR("192.168.1.0/24")
	status := &fakeStatus{tables: []networking.RoutingTable{{
		Number:    1,
		Interface: "eth0",
		Mark:      1,
		LocalAddr: net.ParseIP("192.168.1.5"),
		Subnet:    subnet,
		Gateway:   net.ParseIP("192.168.1.1"),
		Objects: []networking.KernelObject{
			{Kind: networking.KindMarkRule, Command: "iptables -t mangle -A MHROUTE_MARK -o eth0"},
		},
		Results: []networking.CommandResult{{Op: networking.OpFlushTable, OK: true}},
	}}}
	h := NewHandler(status, nil, nil)

	rec := serve(t, h, "/api/v1/tables")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TablesResponse
	decodeData(t, rec, &resp)
	require.Len(t, resp.Tables, 1)
	table := resp.Tables[0]
	assert.Equal(t, 1, table.Number)
	assert.Equal(t, "eth0", table.Interface)
	assert.Equal(t, "192.168.1.5", table.LocalAddr)
	assert.Equal(t, "192.168.1.0/24", table.Subnet)
	assert.Equal(t, "192.168.1.1", table.Gateway)
	require.Len(t, table.Objects, 1)
	assert.Equal(t, networking.KindMarkRule, table.Objects[0].Kind)
	require.Len(t, table.Results, 1)
	assert.True(t, table.Results[0].OK)
}

func TestGetTables_Empty(t *testing.T) {
	h := NewHandler(&fakeStatus{}, nil, nil)

	rec := serve(t, h, "/api/v1/tables")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"tables":[]}}`, rec.Body.String())
}

func TestGetEndpoints(t *testing.T) {
	status := &fakeStatus{endpoints: []service.EndpointInfo{
		{Family: "ipv4", Interface: "eth0", LocalAddr: "192.168.1.5:5000", Table: 1, Mark: 1},
	}}
	h := NewHandler(status, nil, nil)

	rec := serve(t, h, "/api/v1/endpoints")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp EndpointsResponse
	decodeData(t, rec, &resp)
	require.Len(t, resp.Endpoints, 1)
	assert.Equal(t, "192.168.1.5:5000", resp.Endpoints[0].LocalAddr)

	rec = serve(t, NewHandler(&fakeStatus{}, nil, nil), "/api/v1/endpoints")
	assert.JSONEq(t, `{"data":{"endpoints":[]}}`, rec.Body.String())
}

func TestCheckHealth(t *testing.T) {
	cfg := config.DefaultConfig()
	validator := service.NewValidationService(nil)

	t.Run("healthy", func(t *testing.T) {
		status := &fakeStatus{endpoints: []service.EndpointInfo{{Family: "ipv4", Interface: "eth0"}}}
		rec := serve(t, NewHandler(status, cfg, validator), "/health")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HealthCheckResponse
		decodeData(t, rec, &resp)
		assert.True(t, resp.Healthy)
		assert.True(t, resp.Checks["config_validation"].Passed)
		assert.True(t, resp.Checks["interfaces"].Passed)
		assert.True(t, resp.Checks["endpoints"].Passed)
	})

	t.Run("no endpoints", func(t *testing.T) {
		rec := serve(t, NewHandler(&fakeStatus{}, cfg, validator), "/api/v1/health")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HealthCheckResponse
		decodeData(t, rec, &resp)
		assert.False(t, resp.Healthy)
		assert.False(t, resp.Checks["endpoints"].Passed)
	})

	t.Run("invalid config", func(t *testing.T) {
		bad := config.DefaultConfig()
		bad.Routing.Gateway = "magic"
		status := &fakeStatus{endpoints: []service.EndpointInfo{{Family: "ipv4"}}}

		rec := serve(t, NewHandler(status, bad, validator), "/health")
		var resp HealthCheckResponse
		decodeData(t, rec, &resp)
		assert.False(t, resp.Healthy)
		assert.False(t, resp.Checks["config_validation"].Passed)
	})
}

func TestCheckTables(t *testing.T) {
	status := &fakeStatus{checks: []networking.ComponentStatus{
		{Table: 1, Interface: "eth0", Kind: networking.KindMarkRule, Exists: true},
		{Table: 1, Interface: "eth0", Kind: networking.KindDefaultRoute, Exists: false},
	}}

	rec := serve(t, NewHandler(status, nil, nil), "/api/v1/tables/check")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TableChecksResponse
	decodeData(t, rec, &resp)
	assert.False(t, resp.Healthy)
	require.Len(t, resp.Checks, 2)
	assert.Equal(t, networking.KindDefaultRoute, resp.Checks[1].Kind)

	rec = serve(t, NewHandler(&fakeStatus{}, nil, nil), "/api/v1/tables/check")
	assert.JSONEq(t, `{"data":{"healthy":true,"checks":[]}}`, rec.Body.String())
}
