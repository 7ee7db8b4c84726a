// Package profile records runtime profiles of a run.
//
// Processing a large work tree spends most of its time waiting on git
// subprocesses, so besides a CPU profile the package can capture an
// execution trace and the block and mutex profiles of the worker pool.
//
//	cfg := profile.NewConfig()
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//
//	p := cfg.NewProfiler()
//	err := p.Start()
//	...
//	err = p.Stop()
package profile
