package profile

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Profiler records the profiles named by its [Config] between
// [Profiler.Start] and [Profiler.Stop].
//
// Create instances with [Config.NewProfiler].
type Profiler struct {
	*Config

	cpuFile   *os.File
	traceFile *os.File
}

// Start begins the continuous profiles (CPU and trace) and enables block and
// mutex sampling when those profiles are requested.
func (p *Profiler) Start() error {
	if p.BlockProfile != "" {
		runtime.SetBlockProfileRate(1)
	}

	if p.MutexProfile != "" {
		runtime.SetMutexProfileFraction(1)
	}

	if p.CPUProfile != "" {
		f, err := os.Create(p.CPUProfile) //nolint:gosec // Path from a CLI flag.
		if err != nil {
			return fmt.Errorf("create CPU profile: %w", err)
		}

		err = pprof.StartCPUProfile(f)
		if err != nil {
			return errors.Join(fmt.Errorf("start CPU profile: %w", err), f.Close())
		}

		p.cpuFile = f
	}

	if p.Trace != "" {
		f, err := os.Create(p.Trace) //nolint:gosec // Path from a CLI flag.
		if err != nil {
			return errors.Join(fmt.Errorf("create trace: %w", err), p.stopCPU())
		}

		err = trace.Start(f)
		if err != nil {
			return errors.Join(fmt.Errorf("start trace: %w", err), f.Close(), p.stopCPU())
		}

		p.traceFile = f
	}

	return nil
}

// Stop ends the continuous profiles and writes the snapshot profiles. It is
// safe to call when Start was never called.
func (p *Profiler) Stop() error {
	errs := []error{p.stopCPU(), p.stopTrace()}

	for _, snap := range []struct{ name, path string }{
		{"heap", p.HeapProfile},
		{"block", p.BlockProfile},
		{"mutex", p.MutexProfile},
	} {
		if snap.path == "" {
			continue
		}

		if snap.name == "heap" {
			// Up-to-date statistics need a collection first.
			runtime.GC()
		}

		errs = append(errs, writeSnapshot(snap.name, snap.path))
	}

	return errors.Join(errs...)
}

func (p *Profiler) stopCPU() error {
	if p.cpuFile == nil {
		return nil
	}

	pprof.StopCPUProfile()

	f := p.cpuFile
	p.cpuFile = nil

	err := f.Close()
	if err != nil {
		return fmt.Errorf("close CPU profile: %w", err)
	}

	return nil
}

func (p *Profiler) stopTrace() error {
	if p.traceFile == nil {
		return nil
	}

	trace.Stop()

	f := p.traceFile
	p.traceFile = nil

	err := f.Close()
	if err != nil {
		return fmt.Errorf("close trace: %w", err)
	}

	return nil
}

func writeSnapshot(name, path string) error {
	prof := pprof.Lookup(name)
	if prof == nil {
		return fmt.Errorf("unknown profile %q", name)
	}

	f, err := os.Create(path) //nolint:gosec // Path from a CLI flag.
	if err != nil {
		return fmt.Errorf("create %s profile: %w", name, err)
	}

	err = prof.WriteTo(f, 0)
	if err != nil {
		return errors.Join(fmt.Errorf("write %s profile: %w", name, err), f.Close())
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("close %s profile: %w", name, err)
	}

	return nil
}
