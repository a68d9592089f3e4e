package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/crowdsense/crowdcast/core/metrics"
	"github.com/crowdsense/crowdcast/core/model"
	"github.com/crowdsense/crowdcast/infra/feed"
)

type Config struct {
	Zones        []ZoneConfig       `json:"zones"`
	Forecast     ForecastConfig     `json:"forecast"`
	Cache        CacheConfig        `json:"cache"`
	Observations ObservationsConfig `json:"observations"`
	Feed         feed.Config        `json:"feed"`
	Metrics      metrics.Config     `json:"metrics"`
	Logging      LoggingConfig      `json:"logging"`
	Simulator    SimulatorConfig    `json:"simulator"`
	API          APIConfig          `json:"api"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("CC_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "cc_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Forecast.SetDefaults()
	cfg.Cache.SetDefaults()
	cfg.Observations.SetDefaults()
	cfg.Logging.SetDefaults()
	cfg.API.SetDefaults()
	cfg.Feed.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the zone list and every section.
func (c Config) Validate() error {
	if len(c.Zones) == 0 {
		return fmt.Errorf("at least one zone is required")
	}
	seen := map[string]bool{}
	for _, z := range c.Zones {
		if err := z.Validate(); err != nil {
			return err
		}
		if seen[z.ID] {
			return fmt.Errorf("duplicate zone id %s", z.ID)
		}
		seen[z.ID] = true
	}
	if err := c.Forecast.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Feed.Enabled {
		if err := c.Feed.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ZoneConfig declares a monitored zone.
type ZoneConfig struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// Validate checks mandatory fields.
func (c ZoneConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("zone id is required")
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("zone %s: capacity must be positive", c.ID)
	}
	return nil
}

// Zone converts the section to the domain type.
func (c ZoneConfig) Zone() model.Zone {
	name := c.Name
	if name == "" {
		name = c.ID
	}
	return model.Zone{ID: c.ID, Name: name, Capacity: c.Capacity}
}

// ZoneList converts every configured zone.
func (c Config) ZoneList() []model.Zone {
	out := make([]model.Zone, 0, len(c.Zones))
	for _, z := range c.Zones {
		out = append(out, z.Zone())
	}
	return out
}
