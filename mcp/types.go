package mcp

import (
	"fmt"
	"strings"

	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcphub", "mcp")

// TransportKind is the kind of the tool server transport.
type TransportKind string

// Supported transports
const (
	// TransportStdio launches the server as a child process
	// and speaks the protocol over its stdin/stdout.
	TransportStdio TransportKind = "stdio"
	// TransportSSE connects to a remote server over HTTP with Server-Sent Events.
	TransportSSE TransportKind = "sse"
	// TransportStreamable connects to a remote server over streamable HTTP.
	TransportStreamable TransportKind = "streamable"
)

// ServerConfig describes how to reach one tool server.
type ServerConfig struct {
	// Name is the unique key of the server
	Name string `json:"name,omitempty" yaml:"name,omitempty" validate:"required"`
	// Command is the executable to launch for stdio servers
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
	// Args are the command arguments
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
	// Env is added to the sanitized environment of the child process
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	// URL is the endpoint of a remote server
	URL string `json:"url,omitempty" yaml:"url,omitempty" validate:"omitempty,url"`
	// Transport is derived from Command and URL if not set
	Transport TransportKind `json:"transport,omitempty" yaml:"transport,omitempty" validate:"omitempty,oneof=stdio sse streamable"`
	// Headers are static HTTP headers sent to remote servers
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// TransportKind returns the configured transport,
// or the one derived from Command and URL if not set:
// stdio for Command, sse for URL.
func (c *ServerConfig) TransportKind() TransportKind {
	switch {
	case c.Transport != "":
		return c.Transport
	case c.Command != "":
		return TransportStdio
	case c.URL != "":
		return TransportSSE
	}
	return ""
}

// String returns a short description of the server for logs.
func (c *ServerConfig) String() string {
	kind := c.TransportKind()
	if kind == TransportStdio {
		return fmt.Sprintf("%s (stdio: %s)", c.Name, strings.TrimSpace(c.Command+" "+strings.Join(c.Args, " ")))
	}
	return fmt.Sprintf("%s (%s: %s)", c.Name, kind, c.URL)
}

// ToolDescriptor is a tool advertised by a server.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
	// Server is the name of the server that advertised the tool
	Server string `json:"server"`
}

// ToolResult is the textual result of a tool invocation.
// Results flagged as error by the server are returned as ErrInvocation.
type ToolResult struct {
	Text string `json:"text"`
}

// ConnectError is the failure to connect a single server.
type ConnectError struct {
	Server string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("server %q: %s", e.Server, e.Err.Error())
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}
