package openai

import (
	"context"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/effective-security/mcphub/pkg/llms/openai/internal/openaiclient"
	"github.com/effective-security/mcphub/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLiveClient(t *testing.T, opts ...Option) llms.Model {
	t.Helper()
	if openaiKey := os.Getenv("OPENAI_API_KEY"); openaiKey == "" || openaiKey == "fakekey" {
		t.Skip("OPENAI_API_KEY not set")
		return nil
	}

	llm, err := New(opts...)
	require.NoError(t, err)
	return llm
}

func TestLiveTextChatSequence(t *testing.T) {
	t.Parallel()
	llm := newLiveClient(t)

	content := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "Name some countries"),
		llms.MessageFromTextParts(llms.RoleAI, "Spain and Lesotho"),
		llms.MessageFromTextParts(llms.RoleHuman, "Which if these is larger?"),
	}

	rsp, err := llm.GenerateContent(context.Background(), content, llms.WithMaxTokens(200))
	require.NoError(t, err)

	require.NotEmpty(t, rsp.Choices)
	assert.Regexp(t, "spain", strings.ToLower(rsp.Choices[0].Content))
}

func TestLiveStructuredOutput(t *testing.T) {
	t.Parallel()
	llm := newLiveClient(t, WithModel("gpt-4o-2024-08-06"))

	type Input struct {
		Steps       []string `json:"steps" description:"The steps to solve the problem"`
		FinalAnswer string   `json:"final_answer" description:"The final answer to the question"`
	}
	responseFormat, err := schema.NewResponseFormat(reflect.TypeOf(Input{}), true)
	require.NoError(t, err)

	content := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "You are a student taking a math exam."),
		llms.MessageFromTextParts(llms.RoleHuman, "Solve 2 + 2"),
	}

	rsp, err := llm.GenerateContent(context.Background(), content,
		llms.WithMaxTokens(500),
		llms.WithResponseFormat(responseFormat),
	)
	require.NoError(t, err)

	require.NotEmpty(t, rsp.Choices)
	assert.Contains(t, rsp.Choices[0].Content, "\"final_answer\":")
}

func TestLiveFunctionCalling(t *testing.T) {
	t.Parallel()
	llm := newLiveClient(t, WithModel("gpt-4o-2024-08-06"))

	type Search struct {
		SearchEngine string `json:"search_engine" enum:"google,duckduckgo,bing"`
		SearchQuery  string `json:"search_query"`
	}
	sc, err := schema.New(reflect.TypeOf(Search{}))
	require.NoError(t, err)

	toolList := []llms.Tool{
		{
			Type: string(openaiclient.ToolTypeFunction),
			Function: &llms.FunctionDefinition{
				Name:        "search",
				Description: "Search by the web search engine",
				Parameters:  sc.Parameters,
				Strict:      true,
			},
		},
	}

	content := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "You are a helpful assistant"),
		llms.MessageFromTextParts(llms.RoleHuman, "What is the age of Bob Odenkirk, a famous comedy screenwriter and an actor."),
	}

	rsp, err := llm.GenerateContent(context.Background(), content,
		llms.WithMaxTokens(500),
		llms.WithTools(toolList),
		llms.WithToolChoice(llms.ToolChoiceAuto),
	)
	require.NoError(t, err)

	require.NotEmpty(t, rsp.Choices)
	c1 := rsp.Choices[0]
	require.NotEmpty(t, c1.ToolCalls)
	assert.Equal(t, llms.StopReasonToolUse, c1.StopReason)
	assert.Contains(t, c1.ToolCalls[0].FunctionCall.Arguments, "\"search_query\":")
}
