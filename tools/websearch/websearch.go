// Package websearch provides the web_search tool backed by the Tavily search API.
package websearch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"reflect"

	"github.com/cockroachdb/errors"
	tavilygo "github.com/diverged/tavily-go"
	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/mcphub/pkg/schema"
	"github.com/effective-security/mcphub/tools"
)

const (
	// ToolName is the name of the tool advertised to the model.
	ToolName = "web_search"
	// EnvAPIKey is the environment variable with the Tavily API key.
	EnvAPIKey = "TAVILY_API_KEY"
)

// SearchRequest represents the tool input.
type SearchRequest struct {
	Query string `json:"query" yaml:"query" jsonschema:"title=query,description=The query to search web."`
}

// SearchResult represents the structure for a search response
type SearchResult struct {
	Results []tavilyModels.SearchResult `json:"results" yaml:"results"`
	Answer  string                      `json:"answer,omitempty" yaml:"answer,omitempty"`
}

// Tool is a tool that provides a web search functionality
type Tool struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ tools.Tool[SearchRequest, SearchResult] = (*Tool)(nil)

// New returns the tool configured from TAVILY_API_KEY.
func New() (*Tool, error) {
	apikey := os.Getenv(EnvAPIKey)
	if apikey == "" {
		return nil, errors.Newf("%s is not set", EnvAPIKey)
	}
	return &Tool{
		apiKey:     apikey,
		httpClient: http.DefaultClient,
	}, nil
}

func (t *Tool) WithBaseURL(baseURL string) *Tool {
	t.baseURL = baseURL
	return t
}

func (t *Tool) WithHTTPClient(client *http.Client) *Tool {
	t.httpClient = client
	return t
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "Search the web for current information. Returns an aggregated answer and the top results."
}

func (t *Tool) Parameters() any {
	sc, _ := schema.New(reflect.TypeOf(SearchRequest{}))
	return sc.Parameters
}

func (t *Tool) Run(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req.Query == "" {
		return nil, errors.New("invalid request: empty query")
	}

	client := tavilygo.NewClient(t.apiKey)
	if t.baseURL != "" {
		client.BaseURL = t.baseURL
	}
	if t.httpClient != nil {
		client.HTTPClient = t.httpClient
	}

	searchResp, err := tavilygo.Search(client, tavilyModels.SearchRequest{
		Query:         req.Query,
		SearchDepth:   "basic",
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to perform search")
	}

	return &SearchResult{
		Results: searchResp.Results,
		Answer:  searchResp.Answer,
	}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	return tools.Call[SearchRequest, SearchResult](ctx, t, input)
}

func (r *SearchResult) String() string {
	var buf bytes.Buffer
	if r.Answer != "" {
		fmt.Fprintf(&buf, "ANSWER: %s\n", r.Answer)
	}

	for _, result := range r.Results {
		fmt.Fprintf(&buf, "- URL: %s\n", result.URL)
		fmt.Fprintf(&buf, "  TITLE: %s\n", result.Title)
		fmt.Fprintf(&buf, "  SCORE: %f\n", result.Score)
		fmt.Fprintf(&buf, "  CONTENT: %s\n", result.Content)
	}

	return buf.String()
}
