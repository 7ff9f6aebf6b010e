package main

import "flag"

// newFlagSet creates a flag.FlagSet bound to verifierd's CLI overrides,
// with ContinueOnError so run() controls its own error handling.
func newFlagSet(o *overrides) *flag.FlagSet {
	fs := flag.NewFlagSet("verifierd", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "path to a ceremony config file (falls back to built-in defaults)")
	fs.StringVar(&o.keyPath, "keyfile", "", "path to this verifier's hex-encoded ECDSA private key")
	fs.StringVar(&o.coordinatorURL, "coordinator", "", "override the config's coordinator URL")
	return fs
}

// overrides holds the flag values layered on top of a loaded config.Config;
// empty means "leave the config's value alone".
type overrides struct {
	configPath     string
	keyPath        string
	coordinatorURL string
}
