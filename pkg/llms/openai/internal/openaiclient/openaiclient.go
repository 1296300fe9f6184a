package openaiclient

import (
	"context"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcphub", "openai")

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultChatModel  = "gpt-4o-mini"
	DefaultAPIVersion = "2024-10-21"
	DefaultMaxRetries = 2
)

// ErrEmptyResponse is returned when the OpenAI API returns an empty response.
var ErrEmptyResponse = errors.New("empty response")

// ProviderType is the flavor of the chat completions API.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "OPENAI"
	// ProviderAzure authenticates with the `api-key` header
	ProviderAzure ProviderType = "AZURE"
	// ProviderAzureAD authenticates with a bearer token
	ProviderAzureAD ProviderType = "AZURE_AD"
)

// ToolType is the type of a tool.
type ToolType string

const (
	ToolTypeFunction ToolType = "function"
)

// Config is the client configuration.
type Config struct {
	Provider     ProviderType
	Model        string
	Token        string
	BaseURL      string
	Organization string
	// APIVersion is required for Azure
	APIVersion string
	HTTPClient *http.Client
	MaxRetries int
}

// Client is a client for the chat completions API.
type Client struct {
	Model    string
	Provider ProviderType

	client openai.Client
}

// New returns a new OpenAI client.
func New(cfg Config) (*Client, error) {
	c := &Client{
		Model:    cfg.Model,
		Provider: cfg.Provider,
	}
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	opts := []option.RequestOption{
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	switch c.Provider {
	case ProviderAzure, ProviderAzureAD:
		if baseURL == "" {
			return nil, errors.New("openai: endpoint is required for Azure")
		}
		if c.Model == "" {
			return nil, errors.New("openai: deployment is required for Azure")
		}
		apiVersion := cfg.APIVersion
		if apiVersion == "" {
			apiVersion = DefaultAPIVersion
		}
		opts = append(opts, azure.WithEndpoint(baseURL, apiVersion))
		if c.Provider == ProviderAzure {
			opts = append(opts, azure.WithAPIKey(cfg.Token))
		} else {
			opts = append(opts, option.WithAPIKey(cfg.Token))
		}
	case ProviderOpenAI:
		if baseURL == "" {
			baseURL = DefaultBaseURL
		}
		opts = append(opts,
			option.WithBaseURL(baseURL+"/"),
			option.WithAPIKey(cfg.Token),
		)
		if cfg.Organization != "" {
			opts = append(opts, option.WithOrganization(cfg.Organization))
		}
	default:
		return nil, errors.Newf("openai: unsupported provider %q", c.Provider)
	}

	c.client = openai.NewClient(opts...)
	return c, nil
}

// IsAzure returns true for Azure deployments.
func IsAzure(apiType ProviderType) bool {
	return apiType == ProviderAzure || apiType == ProviderAzureAD
}

// CreateChat creates chat request.
func (c *Client) CreateChat(ctx context.Context, r *openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	if r.Model == "" {
		if c.Model == "" {
			r.Model = DefaultChatModel
		} else {
			r.Model = c.Model
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"provider", c.Provider,
		"model", r.Model,
		"messages", len(r.Messages),
		"tools", len(r.Tools))

	resp, err := c.client.Chat.Completions.New(ctx, *r)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, errors.Wrapf(err, "API returned unexpected status code: %d", apiErr.StatusCode)
		}
		return nil, errors.Wrap(err, "send request")
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp, nil
}
