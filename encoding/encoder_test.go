package encoding_test

import (
	"bytes"
	"slices"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/effective-security/mcphub/chatmodel"
	"github.com/effective-security/mcphub/encoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCall struct {
	CallID string `fake:"{uuid}"`
	Genre  string `fake:"{word}"`
	Song   string `fake:"{word}"`
}

func testEvents(t *testing.T) ([]chatmodel.StreamEvent, fakeCall) {
	var fc fakeCall
	require.NoError(t, gofakeit.Struct(&fc))
	fc.Genre = "genre-" + fc.Genre

	raw := `{"genre":"` + fc.Genre + `"}`
	return []chatmodel.StreamEvent{
		chatmodel.TextEvent("Let me check.", false),
		chatmodel.ToolCallEvent(fc.CallID, "top_song", raw, map[string]any{"genre": fc.Genre}),
		chatmodel.ToolResultEvent(fc.CallID, "top_song", fc.Song),
		chatmodel.ErrorEvent("tool x failed: boom"),
		chatmodel.TextEvent("The top song is "+fc.Song, true),
		chatmodel.DoneEvent(),
	}, fc
}

func encode(t *testing.T, format encoding.Format, events []chatmodel.StreamEvent) string {
	var buf bytes.Buffer
	enc, err := encoding.NewEventEncoder(format, &buf)
	require.NoError(t, err)
	require.NoError(t, encoding.Copy(enc, slices.Values(events)))
	return buf.String()
}

func TestNewEventEncoder(t *testing.T) {
	for _, f := range append(encoding.Formats(), "", "JSON") {
		enc, err := encoding.NewEventEncoder(f, &bytes.Buffer{})
		require.NoError(t, err, f)
		assert.NotNil(t, enc)
	}

	_, err := encoding.NewEventEncoder("xml", &bytes.Buffer{})
	assert.EqualError(t, err, `unsupported format: "xml"`)
}

func TestText(t *testing.T) {
	events, fc := testEvents(t)
	exp := "Let me check.\n" +
		`> top_song({"genre":"` + fc.Genre + `"})` + "\n" +
		"< top_song: " + fc.Song + "\n" +
		"ERROR: tool x failed: boom\n" +
		"The top song is " + fc.Song + "\n"
	assert.Equal(t, exp, encode(t, encoding.FormatText, events))
}

func TestJSON(t *testing.T) {
	events, fc := testEvents(t)
	exp := `{"type":"text","content":"Let me check."}
{"type":"tool_call","name":"top_song","call_id":"` + fc.CallID + `","args":{"genre":"` + fc.Genre + `"},"raw_args":"{\"genre\":\"` + fc.Genre + `\"}"}
{"type":"tool_result","name":"top_song","call_id":"` + fc.CallID + `","result":"` + fc.Song + `"}
{"type":"error","message":"tool x failed: boom"}
{"type":"text","content":"The top song is ` + fc.Song + `","final":true}
{"type":"done"}
`
	assert.Equal(t, exp, encode(t, encoding.FormatJSON, events))
}

func TestYAML(t *testing.T) {
	events, fc := testEvents(t)
	res := encode(t, encoding.FormatYAML, events)
	assert.Contains(t, res, "type: text\ncontent: Let me check.\n---\n")
	assert.Contains(t, res, "type: tool_call\nname: top_song\n")
	assert.Contains(t, res, "args:\n  genre: "+fc.Genre+"\n")
	assert.Contains(t, res, "final: true\n")
	assert.Contains(t, res, "---\ntype: done\n")
}

func TestTOML(t *testing.T) {
	events, fc := testEvents(t)
	res := encode(t, encoding.FormatTOML, events)
	assert.Equal(t, len(events), bytes.Count([]byte(res), []byte("[[event]]\n")))
	assert.Contains(t, res, "[[event]]\ntype = \"text\"\ncontent = \"Let me check.\"\n")
	assert.Contains(t, res, "name = \"top_song\"\ncall_id = \""+fc.CallID+"\"\n")
	assert.Contains(t, res, "genre = \""+fc.Genre+"\"\n")
	assert.Contains(t, res, "final = true\n")
	assert.Contains(t, res, "[[event]]\ntype = \"done\"\n")
}
