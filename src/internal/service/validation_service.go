package service

import (
	"fmt"
	"sort"

	"github.com/multihome/mhroute/src/internal/config"
	"github.com/multihome/mhroute/src/internal/errors"
	"github.com/multihome/mhroute/src/internal/networking"
)

// ValidationService validates configuration before it is applied.
//
// Structural problems are errors. Settings that depend on the host, such as
// priority entries for interfaces that are absent or have no routing table,
// are reported as warnings because interfaces come and go.
type ValidationService struct {
	catalog networking.Catalog
}

// NewValidationService creates a new validation service. A nil catalog
// skips the host checks.
func NewValidationService(catalog networking.Catalog) *ValidationService {
	return &ValidationService{catalog: catalog}
}

// ValidateConfig returns a VALIDATION_ERROR wrapping every structural
// problem of cfg.
func (v *ValidationService) ValidateConfig(cfg *config.Config) error {
	if cfg == nil {
		return errors.NewValidationError("configuration is empty", nil)
	}
	if err := cfg.ValidateConfig(); err != nil {
		return errors.NewValidationError("configuration is invalid", err)
	}
	return nil
}

// Warnings lists host-dependent issues of cfg in a stable order.
func (v *ValidationService) Warnings(cfg *config.Config) []string {
	var warnings []string

	names := make([]string, 0, len(cfg.Selection.Priorities))
	for name := range cfg.Selection.Priorities {
		names = append(names, name)
	}
	sort.Strings(names)

	if cfg.Routing.Enabled {
		numberer := networking.NewTableNumberer(cfg.Routing.TableBases)
		for _, name := range names {
			if _, ok := numberer.TableNumber(name); !ok {
				warnings = append(warnings, fmt.Sprintf(
					"interface %s has no routing table number, it will be used without policy routing", name))
			}
		}
	}

	if v.catalog == nil {
		return warnings
	}
	entries, err := v.catalog.ListInterfaces()
	if err != nil {
		return append(warnings, fmt.Sprintf("cannot list interfaces: %v", err))
	}
	present := make(map[string]bool)
	for _, entry := range entries {
		present[entry.Name] = true
	}
	for _, name := range names {
		if !present[name] {
			warnings = append(warnings, fmt.Sprintf("interface %s from selection.priorities does not exist", name))
		}
	}

	return warnings
}
