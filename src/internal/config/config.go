package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/multihome/mhroute/src/internal/log"
)

const (
	DefaultConfigPath       = "/etc/mhroute/mhroute.conf"
	DefaultMarkChain        = "MHROUTE_MARK"
	DefaultMarkRule         = "-o {{device}} -p udp -s {{local_addr}} -j MARK --set-mark {{fwmark}}"
	DefaultRulePriorityBase = 1000
	DefaultAPIListen        = "127.0.0.1:8089"

	GatewayHeuristic = "heuristic"
	GatewayDiscover  = "discover"
)

const (
	MARK_TMPL_DEVICE     = "device"
	MARK_TMPL_LOCAL_ADDR = "local_addr"
	MARK_TMPL_FWMARK     = "fwmark"
	MARK_TMPL_TABLE      = "table"
	MARK_TMPL_PORT       = "port"
)

// DefaultTableBases returns the prefix ranges for wired, atheros wireless,
// wireless and point-to-point (cellular) interfaces.
func DefaultTableBases() []*TableBase {
	return []*TableBase{
		{Prefix: "eth", Base: 1},
		{Prefix: "ath", Base: 11},
		{Prefix: "wlan", Base: 21},
		{Prefix: "ppp", Base: 31},
	}
}

// DefaultPriorities prefers wired over wireless when no subnet matches.
func DefaultPriorities() map[string]int {
	return map[string]int{
		"wlan0": 1,
		"eth0":  2,
	}
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := newBaseConfig()
	cfg.applyDefaults()
	return cfg
}

// newBaseConfig holds the scalar defaults. Maps and arrays of tables are left
// nil so that values decoded from a file replace them instead of merging.
func newBaseConfig() *Config {
	return &Config{
		General:   &GeneralConfig{},
		Selection: &SelectionConfig{},
		Routing: &RoutingConfig{
			Enabled:          true,
			Gateway:          GatewayHeuristic,
			MarkChain:        DefaultMarkChain,
			RulePriorityBase: DefaultRulePriorityBase,
			MarkRule:         DefaultMarkRule,
		},
		Endpoint: &EndpointConfig{
			BindToDevice: true,
			SetMark:      true,
			DualStack:    true,
		},
		Resolver: &ResolverConfig{
			TimeoutMs: 3000,
		},
		API: &APIConfig{
			Listen: DefaultAPIListen,
		},
	}
}

func (c *Config) applyDefaults() {
	base := newBaseConfig()
	if c.General == nil {
		c.General = base.General
	}
	if c.Selection == nil {
		c.Selection = base.Selection
	}
	if c.Selection.Priorities == nil {
		c.Selection.Priorities = DefaultPriorities()
	}
	if c.Routing == nil {
		c.Routing = base.Routing
	}
	if len(c.Routing.TableBases) == 0 {
		c.Routing.TableBases = DefaultTableBases()
	}
	if c.Endpoint == nil {
		c.Endpoint = base.Endpoint
	}
	if c.Resolver == nil {
		c.Resolver = base.Resolver
	}
	if c.API == nil {
		c.API = base.API
	}
}

// LoadConfig reads the TOML file at configPath. A missing file yields the
// default configuration.
func LoadConfig(configPath string) (*Config, error) {
	configFile := filepath.Clean(configPath)

	if !filepath.IsAbs(configFile) {
		if path, err := filepath.Abs(configFile); err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %v", err)
		} else {
			configFile = path
		}
	}

	if _, err := os.Stat(configFile); errors.Is(err, os.ErrNotExist) {
		log.Infof("Configuration file %s not found, using defaults", configFile)
		cfg := DefaultConfig()
		cfg._absConfigFilePath = configFile
		return cfg, nil
	}

	content, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	cfg, err := ParseConfig(content)
	if err != nil {
		return nil, err
	}
	cfg._absConfigFilePath = configFile

	log.Debugf("Configuration file path: %s", configFile)
	return cfg, nil
}

// ParseConfig decodes TOML content on top of the defaults.
func ParseConfig(content []byte) (*Config, error) {
	cfg := newBaseConfig()
	if err := toml.Unmarshal(content, cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			log.Errorf("%s", derr.String())
			row, col := derr.Position()
			log.Errorf("Error at line %d, column %d", row, col)
			return nil, fmt.Errorf("failed to parse config file at line %d, column %d", row, col)
		}
		return nil, fmt.Errorf("failed to parse config file: %v", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) SerializeConfig() (*bytes.Buffer, error) {
	buf := bytes.Buffer{}
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return &buf, nil
}

// WriteConfig writes the configuration back to the file it was loaded from.
func (c *Config) WriteConfig() error {
	if c._absConfigFilePath == "" {
		return fmt.Errorf("configuration has no file path")
	}
	buf, err := c.SerializeConfig()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c._absConfigFilePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(c._absConfigFilePath, buf.Bytes(), 0644)
}

// SetConfigPath sets the file WriteConfig writes to.
func (c *Config) SetConfigPath(path string) {
	c._absConfigFilePath = path
}
