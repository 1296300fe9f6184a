package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/effective-security/mcphub/chatmodel"
	"github.com/effective-security/mcphub/encoding"
	"github.com/effective-security/mcphub/mcp"
	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoModel answers with the last human message
type echoModel struct{}

func (m *echoModel) GetProviderType() llms.ProviderType { return llms.ProviderBedrock }
func (m *echoModel) GetName() string                    { return "echo" }
func (m *echoModel) GenerateContent(_ context.Context, msgs []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	var last string
	for _, m := range msgs {
		if m.Role == llms.RoleHuman {
			last = m.GetText()
		}
	}
	choice := &llms.ContentChoice{StopReason: "end_turn"}
	choice.AddText("echo: " + last)
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{choice}}, nil
}

type noTools struct{}

func (noTools) ListAllTools(context.Context) ([]mcp.ToolDescriptor, error) {
	return []mcp.ToolDescriptor{{Name: "top_song", Description: "Get the top song", Server: "songs"}}, nil
}

func (noTools) CallTool(_ context.Context, name string, _ map[string]any) (*mcp.ToolResult, error) {
	return nil, chatmodel.NewClassified(chatmodel.ErrUnknownTool, "tool %q not found", name)
}

func testFlags() *flags {
	return &flags{
		output:    encoding.FormatText,
		maxRounds: 3,
	}
}

func TestChat_Ask(t *testing.T) {
	var out, errOut bytes.Buffer
	f := testFlags()
	f.output = encoding.FormatJSON

	c, err := newChat(&echoModel{}, noTools{}, f, &out, &errOut)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Ask(context.Background(), "hello"))
	assert.Equal(t, `{"type":"text","content":"echo: hello","final":true}
{"type":"done"}
`, out.String())
	assert.Empty(t, errOut.String())
}

func TestChat_InvalidFormat(t *testing.T) {
	f := testFlags()
	f.output = "xml"
	_, err := newChat(&echoModel{}, noTools{}, f, &bytes.Buffer{}, &bytes.Buffer{})
	assert.EqualError(t, err, `unsupported format: "xml"`)
}

func TestChat_Loop(t *testing.T) {
	var out, errOut bytes.Buffer
	f := testFlags()
	f.verbose = true
	f.transcript = filepath.Join(t.TempDir(), "transcript.log")

	c, err := newChat(&echoModel{}, noTools{}, f, &out, &errOut)
	require.NoError(t, err)
	defer c.Close()

	in := strings.NewReader("hello\n\n/history\n/tools\n/reset\n/history\nbye\n/exit\nignored\n")
	require.NoError(t, c.Loop(context.Background(), in))

	res := out.String()
	assert.Contains(t, res, "> echo: hello\n")
	assert.Contains(t, res, "Human: hello\nAI: echo: hello\n")
	assert.Contains(t, res, "songs/top_song: Get the top song\n")
	assert.Contains(t, res, "history is cleared\n")
	assert.Contains(t, res, "> echo: bye\n")
	assert.NotContains(t, res, "ignored")

	assert.Contains(t, errOut.String(), "Run Start: hello\n")
	assert.Contains(t, errOut.String(), "LLM Call: BEDROCK echo model")

	transcript, err := os.ReadFile(f.transcript)
	require.NoError(t, err)
	assert.Contains(t, string(transcript), "*** Run Started ***")
	assert.Contains(t, string(transcript), "Query: hello")
	assert.Contains(t, string(transcript), "Query: bye")
	assert.Contains(t, string(transcript), "*** Run Ended.")
}
