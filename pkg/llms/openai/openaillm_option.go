package openai

import (
	"net/http"

	"github.com/effective-security/mcphub/pkg/llms/openai/internal/openaiclient"
)

const (
	tokenEnvVarName        = "OPENAI_API_KEY"      //nolint:gosec
	modelEnvVarName        = "OPENAI_MODEL"        //nolint:gosec
	baseURLEnvVarName      = "OPENAI_BASE_URL"     //nolint:gosec
	organizationEnvVarName = "OPENAI_ORGANIZATION" //nolint:gosec

	azureTokenEnvVarName      = "AZURE_OPENAI_API_KEY"    //nolint:gosec
	azureEndpointEnvVarName   = "AZURE_OPENAI_ENDPOINT"   //nolint:gosec
	azureDeploymentEnvVarName = "AZURE_OPENAI_DEPLOYMENT" //nolint:gosec
	azureVersionEnvVarName    = "AZURE_OPENAI_API_VERSION"
)

// ProviderType is the flavor of the chat completions API.
type ProviderType = openaiclient.ProviderType

const (
	ProviderOpenAI  = openaiclient.ProviderOpenAI
	ProviderAzure   = openaiclient.ProviderAzure
	ProviderAzureAD = openaiclient.ProviderAzureAD
)

const (
	DefaultAPIVersion = openaiclient.DefaultAPIVersion
)

type options struct {
	token        string
	model        string
	baseURL      string
	organization string
	provider     ProviderType
	httpClient   *http.Client
	maxRetries   int

	// required when provider is Azure
	apiVersion string
}

// Option is a functional option for the OpenAI client.
type Option func(*options)

// WithToken passes the API token to the client. If not set, the token
// is read from the OPENAI_API_KEY, or AZURE_OPENAI_API_KEY environment variable.
func WithToken(token string) Option {
	return func(opts *options) {
		opts.token = token
	}
}

// WithModel passes the OpenAI model to the client. If not set, the model
// is read from the OPENAI_MODEL environment variable.
// For Azure, it's the deployment name read from AZURE_OPENAI_DEPLOYMENT.
func WithModel(model string) Option {
	return func(opts *options) {
		opts.model = model
	}
}

// WithBaseURL passes the OpenAI base url to the client. If not set, the base url
// is read from the OPENAI_BASE_URL environment variable. If still not set in ENV
// VAR OPENAI_BASE_URL, then the default value is https://api.openai.com/v1 is used.
// For Azure, it's the resource endpoint read from AZURE_OPENAI_ENDPOINT.
func WithBaseURL(baseURL string) Option {
	return func(opts *options) {
		opts.baseURL = baseURL
	}
}

// WithOrganization passes the OpenAI organization to the client. If not set, the
// organization is read from the OPENAI_ORGANIZATION.
func WithOrganization(organization string) Option {
	return func(opts *options) {
		opts.organization = organization
	}
}

// WithProvider passes the api type to the client. If not set, the default value
// is ProviderOpenAI.
func WithProvider(apiType ProviderType) Option {
	return func(opts *options) {
		opts.provider = apiType
	}
}

// WithAPIVersion passes the api version to the client. If not set, the value
// is read from AZURE_OPENAI_API_VERSION, or DefaultAPIVersion is used.
func WithAPIVersion(apiVersion string) Option {
	return func(opts *options) {
		opts.apiVersion = apiVersion
	}
}

// WithHTTPClient allows setting a custom HTTP client. If not set, the default value
// is http.DefaultClient.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *options) {
		opts.httpClient = client
	}
}

// WithMaxRetries sets the number of retries on transient failures.
func WithMaxRetries(n int) Option {
	return func(opts *options) {
		opts.maxRetries = n
	}
}
