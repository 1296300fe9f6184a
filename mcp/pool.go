package mcp

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcphub/chatmodel"
	"github.com/effective-security/xlog"
	"golang.org/x/sync/errgroup"
)

// Pool owns the connections to the tool servers and routes tool calls.
//
// One connection-management operation and one conversation may be in flight
// at a time. The internal lock keeps the maps consistent, but ConnectAll or
// CloseAll racing CallTool gives no guarantee which connection serves the call.
type Pool struct {
	opts   Options
	lock   sync.RWMutex
	order  []string
	conns  map[string]*Connection
	router *Router
	args   *argsValidator
}

// NewPool returns an empty pool.
func NewPool(opts ...Option) *Pool {
	return &Pool{
		opts:   newOptions(opts),
		conns:  map[string]*Connection{},
		router: NewRouter(),
		args:   &argsValidator{},
	}
}

// Router returns the tool router of the pool.
func (p *Pool) Router() *Router {
	return p.router
}

// Servers returns the names of the registered servers in registration order.
func (p *Pool) Servers() []string {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return slices.Clone(p.order)
}

// ConnectAll connects to the servers in parallel.
// A failing server does not stop the others: the returned error lists
// every failed server, and the connected ones stay registered.
// Servers already registered under the same name are closed first.
func (p *Pool) ConnectAll(ctx context.Context, configs []ServerConfig) error {
	var list []ServerConfig
	seen := map[string]bool{}
	for _, cfg := range configs {
		if seen[cfg.Name] {
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "duplicate_server",
				"server", cfg.Name)
			continue
		}
		seen[cfg.Name] = true
		list = append(list, cfg)
	}

	for _, cfg := range list {
		if err := p.Close(cfg.Name); err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "close_before_reconnect",
				"server", cfg.Name,
				"err", err.Error())
		}
	}

	conns := make([]*Connection, len(list))
	errs := make([]error, len(list))

	var g errgroup.Group
	if p.opts.Concurrency > 0 {
		g.SetLimit(p.opts.Concurrency)
	}
	for i, cfg := range list {
		g.Go(func() error {
			conns[i], errs[i] = connect(ctx, cfg, p.opts)
			return nil
		})
	}
	_ = g.Wait()

	var failed []error
	p.lock.Lock()
	for i, cfg := range list {
		if errs[i] != nil {
			logger.ContextKV(ctx, xlog.ERROR,
				"status", "connect_failed",
				"server", cfg.Name,
				"err", errs[i].Error())
			failed = append(failed, &ConnectError{Server: cfg.Name, Err: errs[i]})
			continue
		}
		p.conns[cfg.Name] = conns[i]
		if !slices.Contains(p.order, cfg.Name) {
			p.order = append(p.order, cfg.Name)
		}
	}
	p.lock.Unlock()

	if len(failed) > 0 {
		return errors.Mark(errors.Join(failed...), chatmodel.ErrConnection)
	}
	return nil
}

// ListAllTools queries every open connection and rebuilds the routing table.
// A server that fails to list its tools is reported in the returned error,
// and the catalog is built from the others.
func (p *Pool) ListAllTools(ctx context.Context) ([]ToolDescriptor, error) {
	p.lock.RLock()
	order := slices.Clone(p.order)
	conns := make([]*Connection, len(order))
	for i, name := range order {
		conns[i] = p.conns[name]
	}
	p.lock.RUnlock()

	var servers []string
	var errs []error
	tools := map[string][]ToolDescriptor{}
	for i, name := range order {
		conn := conns[i]
		if conn == nil || conn.IsClosed() {
			continue
		}
		list, err := conn.ListTools(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		servers = append(servers, name)
		tools[name] = list
	}

	p.router.Rebuild(servers, tools)
	catalog := p.router.Tools()

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "catalog",
		"servers", len(servers),
		"tools", len(catalog))

	if len(errs) > 0 {
		return catalog, errors.Join(errs...)
	}
	return catalog, nil
}

// CallTool routes the call to the server that owns the tool.
// The arguments are validated against the tool input schema
// before reaching the transport.
func (p *Pool) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	server, desc, ok := p.router.Lookup(name)
	if !ok {
		msg := fmt.Sprintf("tool %q not found", name)
		if suggestions := p.router.Suggest(name); len(suggestions) > 0 {
			msg += ", did you mean: " + strings.Join(suggestions, ", ")
		}
		return nil, chatmodel.NewClassified(chatmodel.ErrUnknownTool, "%s", msg)
	}

	p.lock.RLock()
	conn := p.conns[server]
	p.lock.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, chatmodel.NewClassified(chatmodel.ErrRouting, "tool %q routes to server %q which is not connected", name, server)
	}

	if err := p.args.Validate(desc, args); err != nil {
		return nil, err
	}

	return conn.Invoke(ctx, name, args)
}

// Close closes the connection to the server.
// Routes to the server are kept until the next ListAllTools,
// and fail with ErrRouting.
func (p *Pool) Close(name string) error {
	p.lock.Lock()
	conn := p.conns[name]
	delete(p.conns, name)
	p.order = slices.DeleteFunc(p.order, func(s string) bool { return s == name })
	p.lock.Unlock()

	if conn == nil {
		return nil
	}
	return errors.WithMessagef(conn.Close(), "failed to close %q", name)
}

// CloseAll closes every connection, and returns all the errors.
func (p *Pool) CloseAll() error {
	p.lock.Lock()
	order := p.order
	conns := p.conns
	p.order = nil
	p.conns = map[string]*Connection{}
	p.lock.Unlock()

	var errs []error
	for _, name := range order {
		if conn := conns[name]; conn != nil {
			if err := conn.Close(); err != nil {
				errs = append(errs, errors.WithMessagef(err, "failed to close %q", name))
			}
		}
	}
	return errors.Join(errs...)
}
