// Package config defines the configuration of a WabiSabi coordinator.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	wabisabi "github.com/MixinNetwork/wabisabi-go"
)

const (
	defaultLogLevel = "info"

	defaultNumberOfCredentials = 2
	defaultRangeProofWidth     = 51

	defaultGRPCAddress    = "127.0.0.1:9051"
	defaultMetricsAddress = "127.0.0.1:9052"
	defaultIdentifier     = "wabisabi"
)

// Round is the per-round protocol configuration, shared by every round the coordinator runs.
type Round struct {
	// NumberOfCredentials is K, the number of credentials presented and requested per request.
	NumberOfCredentials int

	// RangeProofWidth is the bit width of issued amounts.
	RangeProofWidth int
}

func (r *Round) validateAndApplyDefaults() error {
	if r.NumberOfCredentials == 0 {
		r.NumberOfCredentials = defaultNumberOfCredentials
	}
	if r.RangeProofWidth == 0 {
		r.RangeProofWidth = defaultRangeProofWidth
	}
	if r.NumberOfCredentials < 0 || r.NumberOfCredentials > wabisabi.MaxNumberOfCredentials {
		return errors.Errorf("config: NumberOfCredentials must be in [1, %d]", wabisabi.MaxNumberOfCredentials)
	}
	if r.RangeProofWidth < 0 || r.RangeProofWidth > wabisabi.MaxRangeProofWidth {
		return errors.Errorf("config: RangeProofWidth must be in [1, %d]", wabisabi.MaxRangeProofWidth)
	}
	return nil
}

// Coordinator is the network facing configuration.
type Coordinator struct {
	// Identifier is the human readable identifier for the instance.
	Identifier string

	// GRPCAddress is the address the registration service listens on.
	GRPCAddress string

	// MetricsAddress is the address prometheus metrics are served on, empty disables them.
	MetricsAddress string

	// SigningKeyFile holds the hex encoded schnorrkel secret key announcing rounds.
	// A fresh key is generated when it is empty.
	SigningKeyFile string
}

func (c *Coordinator) applyDefaults() {
	if c.Identifier == "" {
		c.Identifier = defaultIdentifier
	}
	if c.GRPCAddress == "" {
		c.GRPCAddress = defaultGRPCAddress
	}
}

// Logging is the coordinator logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stdout will be used.
	File string

	// Level specifies the log level.
	Level string
}

// Config is the top level coordinator configuration.
type Config struct {
	Round       *Round
	Coordinator *Coordinator
	Logging     *Logging
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.validateAndApplyDefaults(); err != nil {
		panic(err)
	}
	cfg.Coordinator.MetricsAddress = defaultMetricsAddress
	return cfg
}

func (cfg *Config) validateAndApplyDefaults() error {
	if cfg.Round == nil {
		cfg.Round = &Round{}
	}
	if err := cfg.Round.validateAndApplyDefaults(); err != nil {
		return err
	}

	if cfg.Coordinator == nil {
		cfg.Coordinator = &Coordinator{}
	}
	cfg.Coordinator.applyDefaults()

	if cfg.Logging == nil {
		cfg.Logging = &Logging{}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLogLevel
	}
	return nil
}

// LoadBinary loads, parses and validates the provided buffer b (TOML)
// and returns the Config.
func LoadBinary(b []byte) (*Config, error) {
	cfg := new(Config)
	if _, err := toml.Decode(string(b), cfg); err != nil {
		return nil, errors.Wrap(err, "config: failed to decode")
	}
	if err := cfg.validateAndApplyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses and validates the provided file and returns the Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(filepath.Clean(f))
	if err != nil {
		return nil, errors.Wrap(err, "config: failed to read")
	}
	return LoadBinary(b)
}
