package api

import (
	"fmt"
	"net/http"
)

// CheckHealth performs health checks on the service.
// GET /health
func (h *Handler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthCheckResponse{
		Healthy: true,
		Checks:  make(map[string]CheckResult),
	}

	if h.validator != nil {
		if err := h.validator.ValidateConfig(h.cfg); err != nil {
			response.Healthy = false
			response.Checks["config_validation"] = CheckResult{
				Passed:  false,
				Message: "Configuration validation failed: " + err.Error(),
			}
		} else {
			response.Checks["config_validation"] = CheckResult{
				Passed:  true,
				Message: "Configuration is valid",
			}
			response.Warnings = h.validator.Warnings(h.cfg)
		}
	}

	if _, err := h.status.Interfaces(true); err != nil {
		response.Healthy = false
		response.Checks["interfaces"] = CheckResult{
			Passed:  false,
			Message: "Failed to get interface list: " + err.Error(),
		}
	} else {
		response.Checks["interfaces"] = CheckResult{
			Passed:  true,
			Message: "Interface list is readable",
		}
	}

	if n := len(h.status.Endpoints()); n == 0 {
		response.Healthy = false
		response.Checks["endpoints"] = CheckResult{
			Passed:  false,
			Message: "No endpoints are bound",
		}
	} else {
		response.Checks["endpoints"] = CheckResult{
			Passed:  true,
			Message: fmt.Sprintf("%d endpoints bound", n),
		}
	}

	writeJSONData(w, response)
}
