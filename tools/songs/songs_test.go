package songs_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcphub/chatmodel"
	"github.com/effective-security/mcphub/pkg/llmutils"
	"github.com/effective-security/mcphub/tools/songs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTool(t *testing.T) {
	ctx := context.Background()
	tool := songs.New()

	assert.Equal(t, "top_song", tool.Name())
	assert.Contains(t, tool.Description(), "Supported genres")

	params := llmutils.ToJSON(tool.Parameters())
	assert.Contains(t, params, `"genre"`)
	assert.Contains(t, params, `"required":["genre"]`)

	tcases := []struct {
		input string
		exp   string
	}{
		{`{"genre":"pop"}`, "Blinding Lights - The Weeknd"},
		{`{"genre":"Rock"}`, "Bohemian Rhapsody - Queen"},
		{`{"genre":" jazz "}`, "So What - Miles Davis"},
		{`{"genre":"classical"}`, "Canon in D - Pachelbel"},
		{`{"genre":"hiphop"}`, "SICKO MODE - Travis Scott"},
		{`{"genre":"kpop"}`, "Dynamite - BTS"},
		{`{"genre":"polka"}`, "No top song found for genre: polka"},
	}
	for _, tc := range tcases {
		t.Run(tc.input, func(t *testing.T) {
			out, err := tool.Call(ctx, tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.exp, out)
		})
	}

	_, err := tool.Call(ctx, "plain string")
	assert.True(t, errors.Is(err, chatmodel.ErrArgumentParse))
	assert.Contains(t, err.Error(), "failed to unmarshal input")

	_, err = tool.Call(ctx, `{}`)
	assert.EqualError(t, err, "invalid request: empty genre")

	res, err := tool.Run(ctx, &songs.Request{Genre: "pop"})
	require.NoError(t, err)
	assert.Equal(t, "Blinding Lights - The Weeknd", res.Song)
}
