package analyzer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gnolang/reach/internal/analysis/bddcpa"
	"github.com/gnolang/reach/internal/analysis/domain"
	"github.com/gnolang/reach/internal/analysis/reach"
)

// DefaultConfigFile is the configuration file looked up when none is given.
const DefaultConfigFile = ".reach.yaml"

const (
	PolicyInterval    = "interval"
	PolicyEnumeration = "enumeration"
)

var validate = validator.New()

// Config represents the project configuration.
type Config struct {
	Name     string         `yaml:"name"`
	Domain   DomainConfig   `yaml:"domain"`
	Blocking BlockingConfig `yaml:"blocking"`
	Driver   DriverConfig   `yaml:"driver"`
	BDD      BDDConfig      `yaml:"bdd"`
}

// DomainConfig selects how literals map to domain indices.
type DomainConfig struct {
	Policy string `yaml:"policy" validate:"oneof=interval enumeration"`
	// Min is the smallest value of an interval domain.
	Min  int64 `yaml:"min"`
	Size int   `yaml:"size" validate:"gte=2,lte=65536"`
}

type BlockingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Merge   string `yaml:"merge" validate:"oneof=equal always"`
}

type DriverConfig struct {
	// MaxIterations bounds the worklist of one file; 0 disables the bound.
	MaxIterations int `yaml:"max_iterations" validate:"gte=0"`
}

type BDDConfig struct {
	Nodes int `yaml:"nodes" validate:"gt=0"`
	Cache int `yaml:"cache" validate:"gt=0"`
}

// DefaultConfig returns the configuration written by `reach init`.
func DefaultConfig() Config {
	engine := bddcpa.DefaultConfig()
	return Config{
		Name: "reach",
		Domain: DomainConfig{
			Policy: PolicyInterval,
			Min:    0,
			Size:   16,
		},
		Blocking: BlockingConfig{
			Enabled: engine.Blocking,
			Merge:   engine.Merge.String(),
		},
		Driver: DriverConfig{MaxIterations: 100000},
		BDD: BDDConfig{
			Nodes: engine.BDDNodes,
			Cache: engine.BDDCache,
		},
	}
}

// LoadConfig reads the configuration at path on top of the defaults. A
// missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		path = DefaultConfigFile
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return config, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return config, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// Validate checks the value ranges of every section.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Policy returns a fresh literal policy. Enumeration policies remember the
// literals they have seen, so every run needs its own.
func (c Config) Policy() domain.Policy {
	if c.Domain.Policy == PolicyEnumeration {
		return domain.NewEnumerationPolicy(c.Domain.Size)
	}
	return domain.NewIntervalPolicy(c.Domain.Min, c.Domain.Size)
}

// EngineConfig returns the settings of the reachability engine.
func (c Config) EngineConfig() (bddcpa.Config, error) {
	merge, err := bddcpa.ParseMergeMode(c.Blocking.Merge)
	if err != nil {
		return bddcpa.Config{}, err
	}
	return bddcpa.Config{
		Blocking: c.Blocking.Enabled,
		Merge:    merge,
		BDDNodes: c.BDD.Nodes,
		BDDCache: c.BDD.Cache,
	}, nil
}

// Options returns the driver settings.
func (c Config) Options() reach.Options {
	return reach.Options{MaxIterations: c.Driver.MaxIterations}
}
