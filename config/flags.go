package config

import (
	"flag"
	"fmt"
	"os"
)

// Flags holds parsed command-line flags for gapsieved.
type Flags struct {
	Help    bool
	Version bool

	Hash             string
	Shift            int
	TargetDifficulty uint64
	Testnet          bool
	NPrimes          int
	SieveSize        int
	Threads          int
	DataDir          string
	Config           string

	LogLevel string
	LogFile  string
	LogJSON  bool

	// Explicitly-set bool flags, for true/false overrides distinct from
	// "not set".
	SetTestnet bool
	SetLogJSON bool
}

// ParseFlags parses gapsieved's command-line flags.
func ParseFlags() *Flags {
	f := &Flags{}
	fs := flag.NewFlagSet("gapsieved", flag.ContinueOnError)

	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")

	fs.StringVar(&f.Hash, "hash", "", "Little-endian hex-encoded 256-bit search seed H")
	fs.IntVar(&f.Shift, "shift", 0, "Shift s (minimum 14)")
	fs.Uint64Var(&f.TargetDifficulty, "target-difficulty", 0, "Target difficulty D_t, fixed-point scaled by 2^48")
	fs.BoolVar(&f.Testnet, "testnet", false, "Mark the run as testnet (recorded in the config; the search does not read it)")
	fs.IntVar(&f.NPrimes, "n-primes", 0, "Number of small primes each SieveEngine sieves against")
	fs.IntVar(&f.SieveSize, "sievesize", 0, "Sieve segment size in bits")
	fs.IntVar(&f.Threads, "threads", 0, "Number of concurrent SieveEngine goroutines")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory for the gapstore database")
	fs.StringVar(&f.Config, "config", "", "Config file path")

	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	fs.Usage = func() {
		printUsage()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if f.Help {
		printUsage()
		os.Exit(0)
	}

	f.SetTestnet = isFlagSet(fs, "testnet")
	f.SetLogJSON = isFlagSet(fs, "log-json")

	return f
}

// ApplyFlags applies command-line flags to a Config, taking precedence over
// both built-in defaults and the config file.
func ApplyFlags(cfg *Config, f *Flags) {
	if f.Hash != "" {
		cfg.Hash = f.Hash
	}
	if f.Shift != 0 {
		cfg.Shift = uint16(f.Shift)
	}
	if f.TargetDifficulty != 0 {
		cfg.TargetDifficulty = f.TargetDifficulty
	}
	if f.SetTestnet {
		cfg.Testnet = f.Testnet
	}
	if f.NPrimes != 0 {
		cfg.NPrimes = uint64(f.NPrimes)
	}
	if f.SieveSize != 0 {
		cfg.SieveSize = uint64(f.SieveSize)
	}
	if f.Threads != 0 {
		cfg.Threads = f.Threads
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

func printUsage() {
	usage := `gapsieved - prime-gap proof-of-work search worker

Usage:
  gapsieved [options]
  gapsieved --help

Commands:
  --help, -h      Show this help message
  --version       Accepted; no version information is printed

Search Options:
  --hash               Little-endian hex-encoded 256-bit search seed H
  --shift              Shift s (default: 20, minimum: 14)
  --target-difficulty  Target difficulty D_t, fixed-point scaled by 2^48
  --testnet            Mark the run as testnet (not read by the search)
  --n-primes           Small-prime table size per SieveEngine (default: 100000)
  --sievesize          Sieve segment size in bits (default: 4194304)
  --threads            Concurrent SieveEngine goroutines (default: 1)

Storage Options:
  --datadir     Data directory for the gapstore database
  --config      Config file path

Logging Options:
  --log-level   Log level: debug, info, warn, error (default: info)
  --log-file    Log file path (default: stdout)
  --log-json    Output logs as JSON
`
	fmt.Fprint(os.Stderr, usage)
}
