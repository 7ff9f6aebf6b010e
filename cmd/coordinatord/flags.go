package main

import "flag"

// newFlagSet creates a flag.FlagSet bound to the operational overrides a
// coordinatord invocation can set on top of whatever a config file loaded,
// with ContinueOnError so run() controls its own error handling.
func newFlagSet(o *overrides) *flag.FlagSet {
	fs := flag.NewFlagSet("coordinatord", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "path to a ceremony config file (falls back to built-in defaults)")
	fs.StringVar(&o.dataDir, "datadir", "", "override the config's data directory")
	fs.StringVar(&o.address, "address", "", "override the config's HTTP bind address")
	fs.IntVar(&o.port, "port", 0, "override the config's HTTP bind port (0 = use config)")
	fs.StringVar(&o.environment, "environment", "", "override the config's environment (test, development, production)")
	return fs
}

// overrides holds the flag values layered on top of a loaded config.Config;
// empty/zero means "leave the config's value alone".
type overrides struct {
	configPath  string
	dataDir     string
	address     string
	port        int
	environment string
}
