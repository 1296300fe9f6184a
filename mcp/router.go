package mcp

import (
	"sort"
	"strings"
	"sync"

	"github.com/effective-security/xlog"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// MaxSuggestions is the number of similar tool names returned by Suggest
const MaxSuggestions = 3

type route struct {
	server string
	desc   ToolDescriptor
}

// Router maps tool names to the servers that own them.
type Router struct {
	lock    sync.RWMutex
	catalog []ToolDescriptor
	routes  map[string]route
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{
		routes: map[string]route{},
	}
}

// Rebuild replaces the routing table.
// The catalog is ordered by servers, then by tools of each server.
// When several servers advertise the same tool, the last one wins,
// and the tool keeps the position of the winner.
func (r *Router) Rebuild(servers []string, tools map[string][]ToolDescriptor) {
	routes := map[string]route{}
	for _, server := range servers {
		for _, t := range tools[server] {
			if prev, ok := routes[t.Name]; ok && prev.server != server {
				logger.KV(xlog.WARNING,
					"status", "tool_collision",
					"tool", t.Name,
					"replaced", prev.server,
					"server", server)
			}
			t.Server = server
			routes[t.Name] = route{server: server, desc: t}
		}
	}

	catalog := make([]ToolDescriptor, 0, len(routes))
	added := map[string]bool{}
	for _, server := range servers {
		for _, t := range tools[server] {
			rt := routes[t.Name]
			if rt.server != server || added[t.Name] {
				continue
			}
			added[t.Name] = true
			catalog = append(catalog, rt.desc)
		}
	}

	r.lock.Lock()
	r.routes = routes
	r.catalog = catalog
	r.lock.Unlock()
}

// Lookup returns the server that owns the tool.
func (r *Router) Lookup(name string) (string, ToolDescriptor, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	rt, ok := r.routes[name]
	return rt.server, rt.desc, ok
}

// Tools returns the catalog.
func (r *Router) Tools() []ToolDescriptor {
	r.lock.RLock()
	defer r.lock.RUnlock()
	res := make([]ToolDescriptor, len(r.catalog))
	copy(res, r.catalog)
	return res
}

// Names returns the tool names in catalog order.
func (r *Router) Names() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	res := make([]string, len(r.catalog))
	for i, t := range r.catalog {
		res[i] = t.Name
	}
	return res
}

// Suggest returns up to MaxSuggestions tool names similar to name,
// the closest first.
func (r *Router) Suggest(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	type candidate struct {
		name     string
		distance int
	}
	var found []candidate
	for _, t := range r.Names() {
		if fuzzy.MatchFold(name, t) || fuzzy.MatchFold(t, name) {
			found = append(found, candidate{name: t, distance: fuzzy.LevenshteinDistance(strings.ToLower(name), strings.ToLower(t))})
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].distance < found[j].distance
	})

	var res []string
	for i := 0; i < len(found) && i < MaxSuggestions; i++ {
		res = append(res, found[i].name)
	}
	return res
}
