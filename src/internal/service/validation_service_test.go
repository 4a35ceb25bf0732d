package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/multihome/mhroute/src/internal/config"
	"github.com/multihome/mhroute/src/internal/errors"
	"github.com/multihome/mhroute/src/internal/networking"
)

func TestValidationService_ValidateConfig(t *testing.T) {
	validator := NewValidationService(nil)

	t.Run("Valid configuration", func(t *testing.T) {
		assert.NoError(t, validator.ValidateConfig(config.DefaultConfig()))
	})

	t.Run("Nil configuration", func(t *testing.T) {
		err := validator.ValidateConfig(nil)
		assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
	})

	t.Run("Invalid gateway mode", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Routing.Gateway = "guess"

		err := validator.ValidateConfig(cfg)
		assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
		assert.Contains(t, err.Error(), "routing.gateway")
	})
}

func TestValidationService_Warnings(t *testing.T) {
	catalog := networking.NewStaticCatalog(
		networking.IPv4Entry("eth0", "192.168.1.5", "255.255.255.0"),
		networking.IPv4Entry("usb0", "192.168.8.100", "255.255.255.0"),
	)
	validator := NewValidationService(catalog)

	cfg := config.DefaultConfig()
	cfg.Selection.Priorities = map[string]int{"eth0": 2, "usb0": 1, "wlan0": 3}

	warnings := validator.Warnings(cfg)
	assert.Equal(t, []string{
		"interface usb0 has no routing table number, it will be used without policy routing",
		"interface wlan0 from selection.priorities does not exist",
	}, warnings)

	cfg.Routing.Enabled = false
	assert.Len(t, validator.Warnings(cfg), 1)
}
