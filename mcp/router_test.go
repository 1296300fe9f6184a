package mcp_test

import (
	"testing"

	"github.com/effective-security/mcphub/mcp"
	"github.com/stretchr/testify/assert"
)

func TestRouter(t *testing.T) {
	r := mcp.NewRouter()
	assert.Empty(t, r.Tools())
	_, _, ok := r.Lookup("x")
	assert.False(t, ok)

	r.Rebuild([]string{"a", "b", "c"}, map[string][]mcp.ToolDescriptor{
		"a": {{Name: "search"}, {Name: "fetch"}, {Name: "summarize"}},
		"b": {{Name: "translate"}, {Name: "fetch", Description: "b fetch"}},
		"c": {{Name: "search", Description: "c search"}},
	})
	assert.Equal(t, []string{"summarize", "translate", "fetch", "search"}, r.Names())

	server, desc, ok := r.Lookup("fetch")
	assert.True(t, ok)
	assert.Equal(t, "b", server)
	assert.Equal(t, "b fetch", desc.Description)
	assert.Equal(t, "b", desc.Server)

	server, _, ok = r.Lookup("search")
	assert.True(t, ok)
	assert.Equal(t, "c", server)

	assert.Equal(t, []string{"search"}, r.Suggest("serch"))
	assert.Equal(t, []string{"fetch"}, r.Suggest("FETCH_URL"))
	assert.Empty(t, r.Suggest(""))
	assert.Empty(t, r.Suggest("zzz"))

	// wholesale replacement
	r.Rebuild([]string{"b"}, map[string][]mcp.ToolDescriptor{
		"b": {{Name: "translate"}},
	})
	assert.Equal(t, []string{"translate"}, r.Names())
	_, _, ok = r.Lookup("search")
	assert.False(t, ok)
}
