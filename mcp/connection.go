package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcphub/chatmodel"
	"github.com/effective-security/mcphub/pkg/metricskey"
	"github.com/effective-security/xlog"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/tidwall/sjson"
)

// Connection is a live session with one tool server.
// Calls on a connection are serialized by the caller.
type Connection struct {
	cfg     ServerConfig
	opts    Options
	session *sdkmcp.ClientSession
	cancel  context.CancelFunc

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Connect establishes the transport and performs the initialize handshake.
// The transport is released if the handshake fails.
func Connect(ctx context.Context, cfg ServerConfig, opts ...Option) (*Connection, error) {
	o := newOptions(opts)
	return connect(ctx, cfg, o)
}

func connect(ctx context.Context, cfg ServerConfig, o Options) (*Connection, error) {
	started := time.Now()
	defer metricskey.PerfServerConnect.MeasureSince(started, cfg.Name)

	transport, err := o.Transport(cfg)
	if err != nil {
		metricskey.StatsServerConnectsFailed.IncrCounter(1, cfg.Name)
		return nil, chatmodel.Classify(err, chatmodel.ErrConnection, "failed to create transport for %q", cfg.Name)
	}

	client := sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    o.ClientName,
		Version: o.ClientVersion,
	}, nil)

	// the session outlives ctx, so the handshake deadline is enforced
	// by cancelling the session context only when the handshake fails
	sessCtx, sessCancel := context.WithCancel(context.WithoutCancel(ctx))
	var timedOut atomic.Bool
	var timer *time.Timer
	if o.ConnectTimeout > 0 {
		timer = time.AfterFunc(o.ConnectTimeout, func() {
			timedOut.Store(true)
			sessCancel()
		})
	}
	stop := context.AfterFunc(ctx, sessCancel)

	session, err := client.Connect(sessCtx, transport, nil)
	stop()
	if timer != nil {
		timer.Stop()
	}
	if err == nil && sessCtx.Err() != nil {
		_ = session.Close()
		err = sessCtx.Err()
	}
	if err != nil {
		sessCancel()
		metricskey.StatsServerConnectsFailed.IncrCounter(1, cfg.Name)
		err = chatmodel.Classify(err, chatmodel.ErrConnection, "failed to connect to %q", cfg.Name)
		if timedOut.Load() && !errors.Is(err, chatmodel.ErrTimeout) {
			err = errors.Mark(err, chatmodel.ErrTimeout)
		}
		return nil, err
	}
	metricskey.StatsServerConnectsSucceeded.IncrCounter(1, cfg.Name)

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "connected",
		"server", cfg.String(),
		"elapsed", time.Since(started).String())

	return &Connection{
		cfg:     cfg,
		opts:    o,
		session: session,
		cancel:  sessCancel,
	}, nil
}

// Name returns the server name.
func (c *Connection) Name() string {
	return c.cfg.Name
}

// Config returns the server configuration.
func (c *Connection) Config() ServerConfig {
	return c.cfg
}

// IsClosed returns true if the connection was closed.
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// ListTools returns all tools advertised by the server.
func (c *Connection) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	if c.IsClosed() {
		return nil, chatmodel.NewClassified(chatmodel.ErrRouting, "server %q is closed", c.cfg.Name)
	}

	ctx, cancel := withTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	var res []ToolDescriptor
	params := &sdkmcp.ListToolsParams{}
	for {
		page, err := c.session.ListTools(ctx, params)
		if err != nil {
			return nil, classifyCall(ctx, err, chatmodel.ErrProtocol, "failed to list tools of %q", c.cfg.Name)
		}
		for _, t := range page.Tools {
			if t == nil || t.Name == "" {
				return nil, chatmodel.NewClassified(chatmodel.ErrProtocol, "server %q returned a tool without name", c.cfg.Name)
			}
			schema, err := normalizeSchema(t.InputSchema)
			if err != nil {
				return nil, chatmodel.Classify(err, chatmodel.ErrProtocol, "invalid input schema of %q on %q", t.Name, c.cfg.Name)
			}
			res = append(res, ToolDescriptor{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: schema,
				Server:      c.cfg.Name,
			})
		}
		if page.NextCursor == "" {
			break
		}
		params = &sdkmcp.ListToolsParams{Cursor: page.NextCursor}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "listed_tools",
		"server", c.cfg.Name,
		"count", len(res))

	return res, nil
}

// Invoke calls the tool with the arguments and returns the text of the result.
// Text blocks are joined by a new line, other content is rendered as JSON.
// A result flagged as error is returned as ErrInvocation.
func (c *Connection) Invoke(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	if c.IsClosed() {
		return nil, chatmodel.NewClassified(chatmodel.ErrRouting, "server %q is closed", c.cfg.Name)
	}
	if args == nil {
		args = map[string]any{}
	}

	ctx, cancel := withTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	res, err := c.session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, classifyCall(ctx, err, chatmodel.ErrInvocation, "failed to call %q on %q", name, c.cfg.Name)
	}

	text := contentText(res.Content)
	if res.IsError {
		return nil, chatmodel.NewClassified(chatmodel.ErrInvocation, "tool %q returned error: %s", name, text)
	}
	return &ToolResult{Text: text}, nil
}

// Close terminates the session. It is safe to call Close more than once.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.session.Close()
		c.cancel()
		logger.KV(xlog.DEBUG,
			"status", "closed",
			"server", c.cfg.Name)
	})
	return c.closeErr
}

func contentText(content []sdkmcp.Content) string {
	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch typ := c.(type) {
		case *sdkmcp.TextContent:
			parts = append(parts, typ.Text)
		default:
			js, err := json.Marshal(c)
			if err != nil {
				logger.KV(xlog.WARNING, "status", "unsupported_content", "err", err.Error())
				continue
			}
			parts = append(parts, string(js))
		}
	}
	return strings.Join(parts, "\n")
}

// normalizeSchema returns the schema as JSON object,
// with `type: object` added when missing.
func normalizeSchema(schema any) (map[string]any, error) {
	if schema == nil {
		return map[string]any{"type": "object"}, nil
	}
	js, err := json.Marshal(schema)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var m map[string]any
	if err = json.Unmarshal(js, &m); err != nil {
		return nil, errors.Wrap(err, "schema must be an object")
	}
	if m == nil {
		return map[string]any{"type": "object"}, nil
	}
	if _, ok := m["type"]; ok {
		return m, nil
	}
	js, err = sjson.SetBytes(js, "type", "object")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	m = nil
	if err = json.Unmarshal(js, &m); err != nil {
		return nil, errors.WithStack(err)
	}
	return m, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// classifyCall marks the error with the class,
// and as timeout when the call deadline was exceeded.
func classifyCall(ctx context.Context, err error, class error, format string, args ...any) error {
	res := chatmodel.Classify(err, class, format, args...)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(res, chatmodel.ErrTimeout) {
		res = errors.Mark(res, chatmodel.ErrTimeout)
	}
	return res
}
