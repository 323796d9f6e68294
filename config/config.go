// Package config loads gapsieved's configuration from built-in defaults, an
// optional config file, and command-line flags, in that order of increasing
// precedence — the same layering as the teacher node's config package.
package config

import "github.com/gapcoin-go/gapwork/internal/arith"

// Config holds the resolved worker configuration, after defaults, file, and
// flags have all been applied.
type Config struct {
	// Hash is the little-endian-encoded 256-bit seed (H) the worker builds
	// its PoW template from.
	Hash string

	// Shift is the default shift (s) used to build the search start value.
	Shift uint16

	// TargetDifficulty is the fixed-point difficulty (D_t, scaled by 2^48)
	// a reported gap must meet.
	TargetDifficulty uint64

	// Testnet records whether the run is on testnet. gapsieved does not read
	// it: TargetDifficulty is used as given on either network.
	Testnet bool

	// NPrimes is the size of the small-prime table each SieveEngine builds.
	NPrimes uint64

	// SieveSize is the bit width of each SieveEngine's segment.
	SieveSize uint64

	// Threads is the number of concurrent SieveEngine goroutines.
	Threads int

	// DataDir is where gapstore keeps its badger database.
	DataDir string

	Log LogConfig
}

// LogConfig mirrors the teacher's log-related Config fields.
type LogConfig struct {
	Level string
	File  string
	JSON  bool
}

// Defaults returns the built-in configuration before any file or flag is
// applied.
func Defaults() *Config {
	return &Config{
		Shift:            20,
		TargetDifficulty: arith.MinDifficulty,
		NPrimes:          100000,
		SieveSize:        1 << 22,
		Threads:          1,
		DataDir:          defaultDataDir(),
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// Load builds the final Config by applying, in order: built-in defaults,
// an optional config file (flags.Config or the default path under DataDir),
// then command-line flags.
func Load() (*Config, *Flags, error) {
	flags := ParseFlags()

	cfg := Defaults()
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	path := flags.Config
	if path == "" {
		path = defaultConfigPath(cfg.DataDir)
	}
	values, err := LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if err := ApplyFileConfig(cfg, values); err != nil {
		return nil, nil, err
	}

	ApplyFlags(cfg, flags)
	return cfg, flags, nil
}
