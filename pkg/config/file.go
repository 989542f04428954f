package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dansasser/mcg-agent/pkg/provider"
)

// FileConfig is the optional YAML overlay (mcg.yaml). Values present in the
// file override the environment-loaded configuration.
type FileConfig struct {
	HTTP *struct {
		Port string `yaml:"port"`
	} `yaml:"http"`
	Cache *struct {
		Backend  string `yaml:"backend"`
		TTL      string `yaml:"ttl"`
		MaxItems int    `yaml:"max_items"`
		Compress *bool  `yaml:"compress"`
	} `yaml:"cache"`
	Provider *struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
		Timeout string `yaml:"timeout"`
	} `yaml:"provider"`
	Transformer string `yaml:"transformer_mode"`
	Features    *struct {
		ResponseOptimizer *bool `yaml:"response_optimizer"`
	} `yaml:"features"`
}

// ApplyFile overlays a YAML config file onto cfg. A missing file is not an
// error; a malformed one is.
func ApplyFile(cfg Config, path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file FileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if file.HTTP != nil && file.HTTP.Port != "" {
		cfg.HTTP.Port = file.HTTP.Port
	}
	if file.Cache != nil {
		if file.Cache.Backend != "" {
			cfg.Cache.Backend = CacheBackend(file.Cache.Backend)
		}
		if file.Cache.TTL != "" {
			ttl, err := time.ParseDuration(file.Cache.TTL)
			if err != nil {
				return cfg, fmt.Errorf("invalid cache.ttl in %s: %w", path, err)
			}
			cfg.Cache.TTL = ttl
		}
		if file.Cache.MaxItems > 0 {
			cfg.Cache.MaxItems = file.Cache.MaxItems
		}
		if file.Cache.Compress != nil {
			cfg.Cache.Compress = *file.Cache.Compress
		}
	}
	if file.Provider != nil {
		if file.Provider.BaseURL != "" {
			cfg.Provider.BaseURL = file.Provider.BaseURL
		}
		if file.Provider.Model != "" {
			cfg.Provider.Model = file.Provider.Model
		}
		if file.Provider.Timeout != "" {
			timeout, err := time.ParseDuration(file.Provider.Timeout)
			if err != nil {
				return cfg, fmt.Errorf("invalid provider.timeout in %s: %w", path, err)
			}
			cfg.Provider.Timeout = timeout
		}
	}
	if file.Transformer != "" {
		cfg.Transformer = provider.TransformerMode(file.Transformer)
	}
	if file.Features != nil && file.Features.ResponseOptimizer != nil {
		cfg.Features.ResponseOptimizer = *file.Features.ResponseOptimizer
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config file %s produced invalid configuration: %w", path, err)
	}
	return cfg, nil
}
