package mcp

import (
	"net/http"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// SafeEnvVars is the list of environment variables inherited by stdio servers.
// Other variables, like provider API keys, must be set explicitly in the server `env`.
var SafeEnvVars = []string{
	"PATH",
	"HOME",
	"USER",
	"SHELL",
	"TERM",
	"LANG",
	"LC_ALL",
	"LC_CTYPE",
	"TMPDIR",
	"TMP",
	"TEMP",
	"XDG_CONFIG_HOME",
	"XDG_DATA_HOME",
	"XDG_CACHE_HOME",
	"XDG_RUNTIME_DIR",
	"GOPATH",
	"GOROOT",
	"NODE_PATH",
	"NPM_CONFIG_PREFIX",
	"PYTHONPATH",
	"VIRTUAL_ENV",
}

// NewTransport returns the client transport for the server configuration.
// If cfg.Transport is not set, it is derived from Command and URL.
// The child process of stdio servers outlives the connect call,
// and is stopped when the session is closed.
func NewTransport(cfg ServerConfig, httpClient *http.Client) (sdkmcp.Transport, error) {
	kind := cfg.TransportKind()
	switch kind {
	case TransportStdio:
		if cfg.Command == "" {
			return nil, errors.Newf("server %q: stdio transport requires command", cfg.Name)
		}
		cmd := exec.Command(cfg.Command, cfg.Args...)
		cmd.Env = buildEnv(cfg.Env)
		return &sdkmcp.CommandTransport{Command: cmd}, nil
	case TransportSSE:
		if cfg.URL == "" {
			return nil, errors.Newf("server %q: sse transport requires url", cfg.Name)
		}
		return &sdkmcp.SSEClientTransport{
			Endpoint:   cfg.URL,
			HTTPClient: withHeaders(httpClient, cfg.Headers),
		}, nil
	case TransportStreamable:
		if cfg.URL == "" {
			return nil, errors.Newf("server %q: streamable transport requires url", cfg.Name)
		}
		return &sdkmcp.StreamableClientTransport{
			Endpoint:   cfg.URL,
			HTTPClient: withHeaders(httpClient, cfg.Headers),
		}, nil
	default:
		return nil, errors.Newf("server %q: unsupported transport %q", cfg.Name, kind)
	}
}

// buildEnv returns the sanitized environment with the extra variables,
// sorted by key.
func buildEnv(extra map[string]string) []string {
	vals := make(map[string]string, len(SafeEnvVars)+len(extra))
	for _, key := range SafeEnvVars {
		if val := os.Getenv(key); val != "" {
			vals[key] = val
		}
	}
	if vals["PATH"] == "" {
		vals["PATH"] = "/usr/local/bin:/usr/bin:/bin"
	}
	for k, v := range extra {
		vals[k] = v
	}

	env := make([]string, 0, len(vals))
	for k, v := range vals {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	for k, v := range t.headers {
		if strings.EqualFold(k, "host") {
			r.Host = v
			continue
		}
		r.Header.Set(k, v)
	}
	return t.base.RoundTrip(r)
}

func withHeaders(c *http.Client, headers map[string]string) *http.Client {
	if len(headers) == 0 {
		return c
	}
	if c == nil {
		c = http.DefaultClient
	}
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := *c
	wrapped.Transport = &headerTransport{base: base, headers: headers}
	return &wrapped
}
