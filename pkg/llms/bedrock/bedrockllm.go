package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcphub/chatmodel"
	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/effective-security/mcphub/pkg/llms/bedrock/internal/bedrockclient"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

// ConverseAPI is the part of the Bedrock runtime client used by the adapter.
type ConverseAPI = bedrockclient.ConverseAPI

// LLM is a Bedrock LLM implementation over the Converse API.
type LLM struct {
	modelID string
	client  *bedrockclient.Client
}

// New creates a new Bedrock LLM implementation.
func New(opts ...Option) (*LLM, error) {
	o, c, err := newClient(opts...)
	if err != nil {
		return nil, err
	}
	return &LLM{
		client:  c,
		modelID: o.modelID,
	}, nil
}

func newClient(opts ...Option) (*options, *bedrockclient.Client, error) {
	options := &options{
		modelID: DefaultModel,
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.client == nil {
		var loadOpts []func(*config.LoadOptions) error
		if options.region != "" {
			loadOpts = append(loadOpts, config.WithRegion(options.region))
		}
		if options.accessKeyID != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(options.accessKeyID, options.secretAccessKey, options.sessionToken),
			))
		}
		cfg, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
		if err != nil {
			return options, nil, errors.Wrap(err, "failed to load AWS config")
		}
		options.client = bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
			if options.httpClient != nil {
				o.HTTPClient = options.httpClient
			}
			if options.baseURL != "" {
				o.BaseEndpoint = aws.String(options.baseURL)
			}
		})
	}

	return options, bedrockclient.NewClient(options.client), nil
}

// GetName implements the Model interface.
func (l *LLM) GetName() string {
	return l.modelID
}

// GetProviderType implements the Model interface.
func (l *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderBedrock
}

// GenerateContent implements llms.Model.
func (l *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model: l.modelID,
	}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.Model == "" {
		opts.Model = l.modelID
	}

	m, err := processMessages(messages)
	if err != nil {
		return nil, err
	}

	res, err := l.client.CreateCompletion(ctx, opts.Model, m, opts)
	if err != nil {
		return nil, chatmodel.Classify(err, chatmodel.ErrProvider, "bedrock: converse failed")
	}
	return res, nil
}

func processMessages(messages []llms.Message) ([]bedrockclient.Message, error) {
	bedrockMsgs := make([]bedrockclient.Message, 0, len(messages))

	for _, m := range messages {
		for _, part := range m.Parts {
			switch part := part.(type) {
			case llms.TextContent:
				bedrockMsgs = append(bedrockMsgs, bedrockclient.Message{
					Role:    m.Role,
					Content: part.Text,
					Type:    bedrockclient.MessageTypeText,
				})
			case llms.ToolCall:
				msg := bedrockclient.Message{
					Role:       m.Role,
					Type:       bedrockclient.MessageTypeToolUse,
					ToolCallID: part.ID,
				}
				if part.FunctionCall != nil {
					msg.ToolName = part.FunctionCall.Name
					msg.ToolInput = part.FunctionCall.Arguments
				}
				bedrockMsgs = append(bedrockMsgs, msg)
			case llms.ToolCallResponse:
				bedrockMsgs = append(bedrockMsgs, bedrockclient.Message{
					Role:       m.Role,
					Content:    part.Content,
					Type:       bedrockclient.MessageTypeToolResult,
					ToolCallID: part.ToolCallID,
					IsError:    part.IsError,
				})
			default:
				return nil, errors.Newf("bedrock: unsupported content part %T", part)
			}
		}
	}
	return bedrockMsgs, nil
}

var _ llms.Model = (*LLM)(nil)
