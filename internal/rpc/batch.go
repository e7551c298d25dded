package rpc

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Call names one remote operation and its arguments for batch execution.
type Call struct {
	Name string
	Args map[string]any
}

// BatchResult is the per-call outcome of [ExecuteBatch]. Exactly one of
// Result and Err is meaningful: a failed call carries a nil Result and a
// non-empty Err.
type BatchResult struct {
	Name     string
	Args     map[string]any
	Result   any
	Err      string
	Duration time.Duration
}

// OK reports whether the call produced a usable result.
func (r BatchResult) OK() bool { return r.Err == "" }

// ExecuteBatch issues all calls concurrently against caller and returns one
// result per call, in the same order as the input. A call that fails is
// captured as an error string on its own slot and never prevents the other
// calls from completing; duration is measured per call, not for the batch.
//
// Calls are not deduplicated here — admission control is the scheduler's job.
func ExecuteBatch(ctx context.Context, caller Caller, calls []Call) []BatchResult {
	results := make([]BatchResult, len(calls))

	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			start := time.Now()
			raw, err := caller.CallTool(ctx, call.Name, call.Args)
			r := BatchResult{
				Name:     call.Name,
				Args:     call.Args,
				Duration: time.Since(start),
			}
			if err != nil {
				r.Err = err.Error()
			} else {
				r.Result = raw
			}
			results[i] = r
			return nil
		})
	}
	// Goroutines never return errors; Wait is only a join.
	_ = g.Wait()

	return results
}
