// Package mock provides an in-memory test double for the [rpc.Caller]
// interface.
//
// [Caller] records every tool invocation for assertion in tests and exposes
// exported fields that control what the mock returns, either globally or per
// tool name. It is safe for concurrent use via an internal [sync.Mutex].
//
// Typical usage:
//
//	c := &mock.Caller{}
//	c.SetResult("list_characters", []any{map[string]any{"id": "ch-1"}})
//
//	// inject c into the system under test …
//
//	if got := c.CallCount("list_characters"); got != 1 {
//	    t.Errorf("expected 1 list_characters call, got %d", got)
//	}
package mock

import (
	"context"
	"sync"
)

// Call records the name and arguments of a single tool invocation.
type Call struct {
	Name string
	Args map[string]any
}

// Caller is a configurable test double for [rpc.Caller]. The zero value is
// ready to use and returns nil results for every tool.
type Caller struct {
	mu sync.Mutex

	calls   []Call
	results map[string]any
	errs    map[string]error

	// Err, when non-nil, is returned for every tool without a per-tool
	// override. Useful for simulating a dead transport.
	Err error

	// Hook, when non-nil, is consulted before any configured result and may
	// fully script a call's outcome.
	Hook func(ctx context.Context, name string, args map[string]any) (any, error, bool)
}

// SetResult configures the payload returned for the named tool.
func (c *Caller) SetResult(name string, result any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = make(map[string]any)
	}
	c.results[name] = result
}

// SetError configures a transport error returned for the named tool.
func (c *Caller) SetError(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.errs == nil {
		c.errs = make(map[string]error)
	}
	c.errs[name] = err
}

// CallTool implements [rpc.Caller].
func (c *Caller) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	if c.Hook != nil {
		if result, err, handled := c.Hook(ctx, name, args); handled {
			c.record(name, args)
			return result, err
		}
	}

	c.mu.Lock()
	c.calls = append(c.calls, Call{Name: name, Args: args})
	err, hasErr := c.errs[name]
	result := c.results[name]
	c.mu.Unlock()

	if hasErr {
		return nil, err
	}
	if c.Err != nil {
		return nil, c.Err
	}
	return result, nil
}

func (c *Caller) record(name string, args map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Name: name, Args: args})
}

// Calls returns a copy of all recorded invocations in order.
func (c *Caller) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallCount returns how many times the named tool was invoked.
func (c *Caller) CallCount(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call.Name == name {
			n++
		}
	}
	return n
}

// LastArgs returns the arguments of the most recent invocation of the named
// tool, or nil if it was never called.
func (c *Caller) LastArgs(name string) map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.calls) - 1; i >= 0; i-- {
		if c.calls[i].Name == name {
			return c.calls[i].Args
		}
	}
	return nil
}

// Reset clears all recorded calls and configured outcomes.
func (c *Caller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
	c.results = nil
	c.errs = nil
	c.Err = nil
}
