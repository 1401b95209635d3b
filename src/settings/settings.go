package settings

import "sync"

// Arguments is the engine's tunable configuration: the database file
// location plus the knobs that shape how it's laid out and accessed.
type Arguments struct {
	DataFile   string // path to the single-file database
	ConfigFile string

	MinDegree int // B-tree minimum degree t

	Verbose bool
	Debug   bool

	Version string
}

var (
	instance *Arguments
	once     sync.Once
	mu       sync.RWMutex
)

// GetSettings returns the process-wide settings instance, seeded with
// defaults on first call.
func GetSettings() *Arguments {
	once.Do(func() {
		instance = &Arguments{
			DataFile:  "./data.miniql",
			MinDegree: 64,
			Verbose:   false,
			Version:   "0.1.0",
		}
	})
	return instance
}

// UpdateSettings merges args into the global settings, leaving any
// zero-valued string or integer field at its current value; the Verbose
// and Debug flags are always applied.
func UpdateSettings(args Arguments) {
	mu.Lock()
	defer mu.Unlock()

	if args.DataFile != "" {
		instance.DataFile = args.DataFile
	}
	if args.ConfigFile != "" {
		instance.ConfigFile = args.ConfigFile
	}
	if args.MinDegree != 0 {
		instance.MinDegree = args.MinDegree
	}
	// Boolean flags need special handling since false is a valid value.
	instance.Verbose = args.Verbose
	instance.Debug = args.Debug

	if args.Version != "" {
		instance.Version = args.Version
	}
}
