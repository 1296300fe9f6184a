package websearch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/mcphub/pkg/llmutils"
	"github.com/effective-security/mcphub/tools/websearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Setenv(websearch.EnvAPIKey, "")
	_, err := websearch.New()
	assert.EqualError(t, err, "TAVILY_API_KEY is not set")
}

func TestTool(t *testing.T) {
	t.Setenv(websearch.EnvAPIKey, "testkey")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var req tavilyModels.SearchRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		assert.NoError(t, err)
		assert.Equal(t, "What is capital of France", req.Query)

		resp := websearch.SearchResult{
			Results: []tavilyModels.SearchResult{
				{Title: "Test Result", URL: "https://example.com", Content: "Test content", Score: 0.9},
			},
		}
		if req.IncludeAnswer {
			resp.Answer = "Paris"
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	ctx := context.Background()

	tool, err := websearch.New()
	require.NoError(t, err)
	tool.WithBaseURL(server.URL).WithHTTPClient(server.Client())

	assert.Equal(t, "web_search", tool.Name())
	assert.Contains(t, tool.Description(), "Search the web")
	assert.Contains(t, llmutils.ToJSON(tool.Parameters()), `"required":["query"]`)

	resp, err := tool.Run(ctx, &websearch.SearchRequest{Query: "What is capital of France"})
	require.NoError(t, err)
	exp := `ANSWER: Paris
- URL: https://example.com
  TITLE: Test Result
  SCORE: 0.900000
  CONTENT: Test content
`
	assert.Equal(t, exp, resp.String())

	out, err := tool.Call(ctx, `{"query":"What is capital of France"}`)
	require.NoError(t, err)
	assert.Equal(t, exp, out)

	_, err = tool.Call(ctx, `{"query":""}`)
	assert.EqualError(t, err, "invalid request: empty query")
}

func TestToolLive(t *testing.T) {
	if os.Getenv("TAVILY_LIVE_TEST") == "" {
		t.Skip("TAVILY_LIVE_TEST is not set")
	}
	tool, err := websearch.New()
	require.NoError(t, err)

	resp, err := tool.Call(context.Background(), `{"query":"What is capital of France"}`)
	require.NoError(t, err)
	assert.Contains(t, resp, "Paris")
}
