package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/invoicematch/internal/filter"
	"github.com/cleared-dev/invoicematch/internal/invoices"
	"github.com/cleared-dev/invoicematch/internal/mt940"
	"github.com/cleared-dev/invoicematch/internal/reconcile"
	"github.com/cleared-dev/invoicematch/internal/upload"
)

// FileName is the default config file name inside a project directory.
const FileName = "invoicematch.yaml"

// Config represents the top-level invoicematch.yaml configuration.
type Config struct {
	Filter    filter.Config    `yaml:"filter"`
	Matching  reconcile.Config `yaml:"matching"`
	Statement StatementConfig  `yaml:"statement"`
	Upload    upload.Config    `yaml:"upload"`
	Invoices  invoices.Config  `yaml:"invoices"`
	Log       LogConfig        `yaml:"log"`
}

// StatementConfig holds the header of generated statements and their file name.
type StatementConfig struct {
	mt940.Header `yaml:",inline"`
	FileName     string `yaml:"file_name"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// UploadConfig returns the upload section with the statement file name applied.
func (c *Config) UploadConfig() upload.Config {
	u := c.Upload
	u.StatementFile = c.Statement.FileName
	return u
}

// Load reads an invoicematch.yaml file from disk. Keys missing from the file
// keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns the configuration for a new project.
func Default() *Config {
	up := upload.DefaultConfig()
	return &Config{
		Filter: filter.Config{
			Enabled:  true,
			Keywords: []string{"ROYAL CANIN"},
		},
		Matching: reconcile.Config{
			Strategy:        reconcile.StrategySubstring,
			AllowableDrift:  20,
			AmountTolerance: 0.01,
		},
		Statement: StatementConfig{
			Header:   mt940.DefaultHeader(),
			FileName: up.StatementFile,
		},
		Upload: up,
		Invoices: invoices.Config{
			Patterns: []string{invoices.DefaultPattern},
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}
