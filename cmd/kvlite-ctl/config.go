package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/yeqown/kvlite"
)

// config is the optional YAML file given by --config. Absent keys keep the
// library defaults.
type config struct {
	SyncJournal   *bool   `yaml:"sync_journal"`
	VerifyOnOpen  *bool   `yaml:"verify_on_open"`
	MaxKeyBytes   *uint32 `yaml:"max_key_bytes"`
	MaxValueBytes *uint32 `yaml:"max_value_bytes"`
}

func loadConfig(path string) (*config, error) {
	cfg := &config{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}

	return cfg, nil
}

func (cfg *config) options() []kvlite.Option {
	var options []kvlite.Option
	if cfg.SyncJournal != nil {
		options = append(options, kvlite.WithSyncJournal(*cfg.SyncJournal))
	}
	if cfg.VerifyOnOpen != nil {
		options = append(options, kvlite.WithVerifyOnOpen(*cfg.VerifyOnOpen))
	}
	if cfg.MaxKeyBytes != nil {
		options = append(options, kvlite.WithMaxKeyBytes(*cfg.MaxKeyBytes))
	}
	if cfg.MaxValueBytes != nil {
		options = append(options, kvlite.WithMaxValueBytes(*cfg.MaxValueBytes))
	}

	return options
}
