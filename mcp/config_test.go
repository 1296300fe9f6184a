package mcp_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/effective-security/mcphub/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serversJSON = `{
	"mcpServers": {
		"songs": {
			"command": "toolserver",
			"args": ["--transport", "stdio"],
			"env": {"TAVILY_API_KEY": "${MCPHUB_TEST_KEY}"}
		},
		"remote": {
			"url": "http://localhost:8080/sse",
			"headers": {"Authorization": "Bearer ${MCPHUB_TEST_KEY}"}
		},
		"stream": {
			"url": "http://localhost:8080/mcp",
			"transport": "streamable"
		},
		"broken": "not an object",
		"empty": {},
		"badurl": {"url": "not a url"},
		"mismatch": {"command": "x", "transport": "sse"}
	}
}`

func TestParseServers(t *testing.T) {
	key := gofakeit.UUID()
	t.Setenv("MCPHUB_TEST_KEY", key)

	list, err := mcp.ParseServers([]byte(serversJSON))
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, []string{"songs", "remote", "stream"}, serverNames(list))

	assert.Equal(t, mcp.TransportStdio, list[0].Transport)
	assert.Equal(t, []string{"--transport", "stdio"}, list[0].Args)
	assert.Equal(t, key, list[0].Env["TAVILY_API_KEY"])
	assert.Equal(t, "songs (stdio: toolserver --transport stdio)", list[0].String())

	assert.Equal(t, mcp.TransportSSE, list[1].Transport)
	assert.Equal(t, "Bearer "+key, list[1].Headers["Authorization"])

	assert.Equal(t, mcp.TransportStreamable, list[2].Transport)
	assert.Equal(t, "stream (streamable: http://localhost:8080/mcp)", list[2].String())

	_, err = mcp.ParseServers([]byte(`[]`))
	assert.Error(t, err)

	list, err = mcp.ParseServers([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = mcp.ParseServers([]byte(`{"mcpServers": "songs"}`))
	assert.Error(t, err)
}

func TestParseServers_DeclarationOrder(t *testing.T) {
	list, err := mcp.ParseServers([]byte(`{
		"mcpServers": {
			"zeta": {"command": "zeta"},
			"mid": {"url": "http://localhost:8080/sse"},
			"alpha": {"command": "alpha"}
		}
	}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "mid", "alpha"}, serverNames(list))
}

func serverNames(list []mcp.ServerConfig) []string {
	var res []string
	for _, c := range list {
		res = append(res, c.Name)
	}
	return res
}

func TestLoadServers(t *testing.T) {
	dir := t.TempDir()

	jsFile := filepath.Join(dir, "servers.json")
	require.NoError(t, os.WriteFile(jsFile, []byte(serversJSON), 0o600))
	list, err := mcp.LoadServers(jsFile)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	yamlFile := filepath.Join(dir, "servers.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte(`
mcpServers:
  songs:
    command: toolserver
    args: [--transport, stdio]
  remote:
    url: http://localhost:8080/sse
`), 0o600))
	list, err = mcp.LoadServers(yamlFile)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"songs", "remote"}, serverNames(list))
	assert.Equal(t, mcp.TransportStdio, list[0].Transport)
	assert.Equal(t, []string{"--transport", "stdio"}, list[0].Args)
	assert.Equal(t, mcp.TransportSSE, list[1].Transport)

	ymlFile := filepath.Join(dir, "servers.yml")
	require.NoError(t, os.WriteFile(ymlFile, []byte(`
mcpServers:
  zeta:
    command: zeta
  broken: not an object
  alpha:
    url: http://localhost:8080/mcp
    transport: streamable
`), 0o600))
	list, err = mcp.LoadServers(ymlFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, serverNames(list))
	assert.Equal(t, mcp.TransportStreamable, list[1].Transport)

	emptyFile := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(emptyFile, nil, 0o600))
	list, err = mcp.LoadServers(emptyFile)
	require.NoError(t, err)
	assert.Empty(t, list)

	badFile := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badFile, []byte("mcpServers: [songs]\n"), 0o600))
	_, err = mcp.LoadServers(badFile)
	assert.Error(t, err)

	_, err = mcp.LoadServers(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
