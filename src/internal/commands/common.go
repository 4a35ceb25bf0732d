package commands

import (
	"fmt"

	"github.com/multihome/mhroute/src/internal/config"
	"github.com/multihome/mhroute/src/internal/log"
	"github.com/multihome/mhroute/src/internal/networking"
	"github.com/multihome/mhroute/src/internal/service"
)

type Runner interface {
	Init(args []string, globalArgs *AppContext) error
	Run() error
	Name() string
}

type AppContext struct {
	ConfigPath string
	Verbose    bool
	// Catalog overrides the netlink interface catalog when set.
	Catalog networking.Catalog
}

func (ctx *AppContext) catalog() networking.Catalog {
	if ctx.Catalog == nil {
		ctx.Catalog = networking.NewNetlinkCatalog()
	}
	return ctx.Catalog
}

// loadAndValidateConfigOrFail loads configuration from file and validates it.
// general.verbose in the file turns on debug logging as -verbose does.
func loadAndValidateConfigOrFail(configPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %v", err)
	}

	if err := cfg.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %v", err)
	}

	if cfg.General.Verbose {
		log.SetVerbose(true)
	}

	return cfg, nil
}

// logConfigWarnings reports host-dependent configuration problems. They never
// stop a command.
func logConfigWarnings(cfg *config.Config, catalog networking.Catalog) int {
	warnings := service.NewValidationService(catalog).Warnings(cfg)
	for _, warning := range warnings {
		log.Warnf("%s", warning)
	}
	return len(warnings)
}
