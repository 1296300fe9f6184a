package openai

import (
	"context"
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcphub/chatmodel"
	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/effective-security/mcphub/pkg/llms/openai/internal/openaiclient"
	"github.com/effective-security/mcphub/pkg/schema"
	"github.com/effective-security/x/values"
	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
)

// ErrEmptyResponse is returned when the API returns no choices.
var ErrEmptyResponse = openaiclient.ErrEmptyResponse

// LLM is the chat completions adapter for OpenAI and Azure OpenAI.
type LLM struct {
	client *openaiclient.Client
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	_, c, err := newClient(opts...)
	if err != nil {
		return nil, err
	}
	return &LLM{
		client: c,
	}, nil
}

func newClient(opts ...Option) (*options, *openaiclient.Client, error) {
	o := &options{
		provider:   ProviderOpenAI,
		maxRetries: openaiclient.DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(o)
	}

	if openaiclient.IsAzure(o.provider) {
		o.token = values.StringsCoalesce(o.token, os.Getenv(azureTokenEnvVarName))
		o.model = values.StringsCoalesce(o.model, os.Getenv(azureDeploymentEnvVarName))
		o.baseURL = values.StringsCoalesce(o.baseURL, os.Getenv(azureEndpointEnvVarName))
		o.apiVersion = values.StringsCoalesce(o.apiVersion, os.Getenv(azureVersionEnvVarName), DefaultAPIVersion)
	} else {
		o.token = values.StringsCoalesce(o.token, os.Getenv(tokenEnvVarName))
		o.model = values.StringsCoalesce(o.model, os.Getenv(modelEnvVarName))
		o.baseURL = values.StringsCoalesce(o.baseURL, os.Getenv(baseURLEnvVarName))
		o.organization = values.StringsCoalesce(o.organization, os.Getenv(organizationEnvVarName))
	}
	if o.token == "" {
		return o, nil, errors.New("openai: missing the API key")
	}

	c, err := openaiclient.New(openaiclient.Config{
		Provider:     o.provider,
		Model:        o.model,
		Token:        o.token,
		BaseURL:      o.baseURL,
		Organization: o.organization,
		APIVersion:   o.apiVersion,
		HTTPClient:   o.httpClient,
		MaxRetries:   o.maxRetries,
	})
	if err != nil {
		return o, nil, err
	}
	return o, c, nil
}

// GetName returns the model name, or the deployment name for Azure.
func (o *LLM) GetName() string {
	return values.StringsCoalesce(o.client.Model, openaiclient.DefaultChatModel)
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	if openaiclient.IsAzure(o.client.Provider) {
		return llms.ProviderAzure
	}
	return llms.ProviderOpenAI
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	chatMsgs, err := toChatMessages(messages)
	if err != nil {
		return nil, err
	}

	req := &openai.ChatCompletionNewParams{
		Model:    opts.Model,
		Messages: chatMsgs,
	}
	if opts.MaxTokens > 0 {
		// Azure deployments of older models reject max_completion_tokens
		if openaiclient.IsAzure(o.client.Provider) {
			req.MaxTokens = openai.Int(int64(opts.MaxTokens))
		} else {
			req.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
		}
	}
	if opts.HasTemperature() || opts.Temperature > 0 {
		req.Temperature = openai.Float(opts.Temperature)
	}

	for _, tool := range opts.Tools {
		t, err := toolFromTool(tool)
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert llms tool to openai tool")
		}
		req.Tools = append(req.Tools, t)
	}
	if len(req.Tools) > 0 && opts.ToolChoice != "" {
		req.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(string(opts.ToolChoice)),
		}
	}

	if opts.ResponseFormat != nil {
		req.ResponseFormat = responseFormat(opts.ResponseFormat)
	}

	result, err := o.client.CreateChat(ctx, req)
	if err != nil {
		return nil, chatmodel.Classify(err, chatmodel.ErrProvider, "openai: chat completion failed")
	}

	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, c := range result.Choices {
		choice := &llms.ContentChoice{
			StopReason: c.FinishReason,
			GenerationInfo: map[string]any{
				"CompletionTokens": int(result.Usage.CompletionTokens),
				"PromptTokens":     int(result.Usage.PromptTokens),
				"TotalTokens":      int(result.Usage.TotalTokens),
				"ReasoningTokens":  int(result.Usage.CompletionTokensDetails.ReasoningTokens),
			},
		}
		choice.AddText(c.Message.Content)

		for _, tool := range c.Message.ToolCalls {
			id := tool.ID
			if id == "" {
				id = uuid.NewString()
			}
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   id,
				Type: string(openaiclient.ToolTypeFunction),
				FunctionCall: &llms.FunctionCall{
					Name:      tool.Function.Name,
					Arguments: tool.Function.Arguments,
				},
			})
		}
		if len(choice.ToolCalls) > 0 {
			choice.StopReason = llms.StopReasonToolUse
		}
		choices[i] = choice
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

func toChatMessages(messages []llms.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	chatMsgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, mc := range messages {
		switch mc.Role {
		case llms.RoleSystem:
			chatMsgs = append(chatMsgs, openai.SystemMessage(mc.GetText()))
		case llms.RoleHuman:
			chatMsgs = append(chatMsgs, openai.UserMessage(mc.GetText()))
		case llms.RoleAI:
			chatMsgs = append(chatMsgs, assistantMessage(mc))
		case llms.RoleTool:
			// one message per tool response
			for _, part := range mc.Parts {
				p, ok := part.(llms.ToolCallResponse)
				if !ok {
					return nil, errors.Errorf("expected part of type ToolCallResponse for role %v, got %T", mc.Role, part)
				}
				chatMsgs = append(chatMsgs, openai.ToolMessage(p.Content, p.ToolCallID))
			}
		default:
			return nil, errors.Wrapf(llms.ErrUnexpectedRole, "role %v not supported", mc.Role)
		}
	}
	return chatMsgs, nil
}

func assistantMessage(mc llms.Message) openai.ChatCompletionMessageParamUnion {
	msg := &openai.ChatCompletionAssistantMessageParam{}
	if text := mc.GetText(); text != "" {
		msg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(text),
		}
	}
	for _, part := range mc.Parts {
		tc, ok := part.(llms.ToolCall)
		if !ok || tc.FunctionCall == nil {
			continue
		}
		msg.ToolCalls = append(msg.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.FunctionCall.Name,
					Arguments: tc.FunctionCall.Arguments,
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: msg}
}

// toolFromTool converts an llms.Tool to a function tool.
func toolFromTool(t llms.Tool) (openai.ChatCompletionToolUnionParam, error) {
	if t.Type != "" && t.Type != string(openaiclient.ToolTypeFunction) {
		return openai.ChatCompletionToolUnionParam{}, errors.Errorf("tool type %v not supported", t.Type)
	}
	if t.Function == nil {
		return openai.ChatCompletionToolUnionParam{}, errors.New("tool function is required")
	}

	def := shared.FunctionDefinitionParam{
		Name: t.Function.Name,
	}
	if t.Function.Description != "" {
		def.Description = openai.String(t.Function.Description)
	}
	if t.Function.Parameters != nil {
		params, err := toFunctionParameters(t.Function.Parameters)
		if err != nil {
			return openai.ChatCompletionToolUnionParam{}, err
		}
		def.Parameters = params
	}
	if t.Function.Strict {
		def.Strict = openai.Bool(true)
	}
	return openai.ChatCompletionFunctionTool(def), nil
}

func responseFormat(rf *schema.ResponseFormat) openai.ChatCompletionNewParamsResponseFormatUnion {
	switch rf.Type {
	case "json_object":
		return openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	case "json_schema":
		if rf.JSONSchema != nil {
			js := shared.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   rf.JSONSchema.Name,
				Schema: rf.JSONSchema.Schema,
			}
			if rf.JSONSchema.Strict {
				js.Strict = openai.Bool(true)
			}
			return openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{JSONSchema: js},
			}
		}
	}
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfText: &shared.ResponseFormatTextParam{},
	}
}

func toFunctionParameters(p any) (shared.FunctionParameters, error) {
	switch v := p.(type) {
	case map[string]any:
		return shared.FunctionParameters(v), nil
	case shared.FunctionParameters:
		return v, nil
	}
	js, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal tool parameters")
	}
	var m map[string]any
	if err = json.Unmarshal(js, &m); err != nil {
		return nil, errors.Wrap(err, "tool parameters must be a JSON object")
	}
	return shared.FunctionParameters(m), nil
}
