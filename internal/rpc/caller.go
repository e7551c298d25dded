// Package rpc defines the contract to the remote game-state service and the
// two leaf utilities every sync routine is built on: response normalization
// and batched parallel invocation.
//
// The remote service is reached exclusively through named tool calls — async
// request/response with no push channel. A raw result arrives in one of two
// wire shapes: a directly structured JSON value, or a content envelope of the
// form {"content":[{"type":"text","text":"…"}]}. Neither shape is guaranteed;
// [Normalize] reconciles both behind one function so no call site ever
// branches on the envelope.
package rpc

import "context"

// Caller issues a single named tool call against the remote service.
//
// The returned value is the decoded JSON payload in whichever of the two wire
// shapes the service produced; callers pass it through [Normalize] before
// use. A non-nil error means transport or protocol failure — application
// errors travel inside the payload and are detected via [IsErrorResponse].
//
// Implementations must be safe for concurrent use.
type Caller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
}

// CallerFunc adapts a plain function to the [Caller] interface.
type CallerFunc func(ctx context.Context, name string, args map[string]any) (any, error)

// CallTool implements [Caller].
func (f CallerFunc) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	return f(ctx, name, args)
}
