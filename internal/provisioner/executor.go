package provisioner

import (
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Executor runs a batch of independent jobs to completion, aggregating every
// failure (spec.md §5 "parallel fan-out to external clients during IAM
// reconciliation"). The core never serializes per-resource IAM writes; it
// relies on the injected Executor's concurrency.
type Executor interface {
	// Run executes every fn concurrently and blocks until all have
	// completed. It returns nil if every fn succeeded, or a
	// *multierror.Error aggregating every failure otherwise — mirroring the
	// "wrapped futures rethrow typed errors on await" design note (spec.md
	// §9) by attaching every failure as a suppressed cause behind the first.
	Run(fns []func() error) error
}

// GoroutineExecutor is the default Executor: one goroutine per job, no
// concurrency cap. Suitable for the per-group, per-resource fan-out this
// package performs (bounded by the number of distinct resources a single
// group's privileges touch).
type GoroutineExecutor struct{}

func (GoroutineExecutor) Run(fns []func() error) error {
	if len(fns) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var result *multierror.Error

	wg.Add(len(fns))
	for _, fn := range fns {
		fn := fn
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				result = multierror.Append(result, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if result == nil {
		return nil
	}
	return result.ErrorOrNil()
}
