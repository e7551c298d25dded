// Package mcpbridge implements [rpc.Caller] on top of the official MCP Go
// SDK (github.com/modelcontextprotocol/go-sdk).
//
// The game-state service is a single MCP server reached over stdio or the
// MCP Streamable HTTP protocol. The bridge owns one client session, decodes
// each tool result into whichever of the two wire shapes the server produced
// (structured payload or text envelope), and hands it to the caller opaquely
// — normalization is [rpc.Normalize]'s job, not the transport's.
//
// Typical usage:
//
//	b, err := mcpbridge.Connect(ctx, mcpbridge.ServerConfig{
//	    Name:      "game-state",
//	    Transport: mcpbridge.TransportStdio,
//	    Command:   "/usr/local/bin/quest-keeper-server",
//	})
//	...
//	raw, err := b.CallTool(ctx, "list_characters", nil)
//	...
//	b.Close()
package mcpbridge

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/rpc"
)

// Transport selects the connection mechanism to the game-state server.
type Transport string

const (
	// TransportStdio spawns a subprocess and communicates over stdin/stdout.
	TransportStdio Transport = "stdio"

	// TransportStreamableHTTP communicates via the MCP Streamable HTTP protocol.
	TransportStreamableHTTP Transport = "streamable-http"
)

// IsValid reports whether t is a recognised transport.
func (t Transport) IsValid() bool {
	return t == TransportStdio || t == TransportStreamableHTTP
}

// ServerConfig describes how to reach the game-state MCP server.
type ServerConfig struct {
	// Name is a human-readable identifier used in log messages and errors.
	Name string

	// Transport specifies the connection mechanism.
	Transport Transport

	// Command is the executable path and optional arguments used when
	// Transport is stdio. Example: "/usr/local/bin/quest-keeper --stdio".
	Command string

	// URL is the endpoint address used when Transport is streamable-http.
	URL string

	// Env holds additional environment variables injected into the server
	// process when Transport is stdio. May be nil.
	Env map[string]string
}

// Bridge is a live connection to the game-state server. Create instances
// with [Connect]; the zero value is not usable.
type Bridge struct {
	mu      sync.RWMutex
	session *mcpsdk.ClientSession
	name    string
}

// Compile-time check: Bridge must implement rpc.Caller.
var _ rpc.Caller = (*Bridge)(nil)

// Connect establishes a session with the server described by cfg and verifies
// it by listing the server's tool catalogue once.
func Connect(ctx context.Context, cfg ServerConfig) (*Bridge, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("mcpbridge: server config must have a non-empty name")
	}
	if !cfg.Transport.IsValid() {
		return nil, fmt.Errorf("mcpbridge: unknown transport %q for server %q", cfg.Transport, cfg.Name)
	}

	var transport mcpsdk.Transport

	switch cfg.Transport {
	case TransportStdio:
		executable, args := splitCommand(cfg.Command)
		if executable == "" {
			return nil, fmt.Errorf("mcpbridge: stdio server %q requires a non-empty Command", cfg.Name)
		}
		cmd := exec.CommandContext(ctx, executable, args...)
		if len(cfg.Env) > 0 {
			cmd.Env = os.Environ()
			for k, v := range cfg.Env {
				cmd.Env = append(cmd.Env, k+"="+v)
			}
		}
		transport = &mcpsdk.CommandTransport{Command: cmd}

	case TransportStreamableHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("mcpbridge: streamable-http server %q requires a non-empty URL", cfg.Name)
		}
		transport = &mcpsdk.StreamableClientTransport{Endpoint: cfg.URL}
	}

	client := mcpsdk.NewClient(
		&mcpsdk.Implementation{Name: "quest-keeper-sync", Version: "1.0.0"},
		nil,
	)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpbridge: failed to connect to server %q: %w", cfg.Name, err)
	}

	// One listing round-trip confirms the server actually speaks MCP before
	// the sync layer starts depending on it.
	for _, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return nil, fmt.Errorf("mcpbridge: failed to list tools for server %q: %w", cfg.Name, err)
		}
		break
	}

	return &Bridge{session: session, name: cfg.Name}, nil
}

// CallTool implements [rpc.Caller]. The result is the server's structured
// content when present; otherwise the text content is re-wrapped as the
// {"content":[{"type":"text",…}]} envelope so downstream normalization sees
// the same shapes the wire carries. A tool-level error becomes an {"error":…}
// payload, not a Go error — transport failures alone surface as errors.
func (b *Bridge) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	b.mu.RLock()
	session := b.session
	b.mu.RUnlock()

	if session == nil {
		return nil, fmt.Errorf("mcpbridge: session to %q is closed", b.name)
	}

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("mcpbridge: call to tool %q failed: %w", name, err)
	}

	if result.IsError {
		return map[string]any{"error": concatText(result.Content)}, nil
	}
	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}

	content := make([]any, 0, len(result.Content))
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			content = append(content, map[string]any{"type": "text", "text": tc.Text})
		}
	}
	return map[string]any{"content": content}, nil
}

// Ping reports whether the session is still open. Used as a readiness check.
func (b *Bridge) Ping(ctx context.Context) error {
	b.mu.RLock()
	session := b.session
	b.mu.RUnlock()

	if session == nil {
		return fmt.Errorf("mcpbridge: session to %q is closed", b.name)
	}
	return session.Ping(ctx, nil)
}

// Close shuts down the server session. After Close returns the Bridge must
// not be used again.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	err := b.session.Close()
	b.session = nil
	if err != nil {
		return fmt.Errorf("mcpbridge: error closing server %q: %w", b.name, err)
	}
	return nil
}

// concatText joins all text content items into one string.
func concatText(content []mcpsdk.Content) string {
	var sb strings.Builder
	for _, c := range content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

// splitCommand splits a command string into executable and arguments.
// e.g. "/bin/foo --bar baz" → ("/bin/foo", ["--bar", "baz"]).
func splitCommand(command string) (executable string, args []string) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}
