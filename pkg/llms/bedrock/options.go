package bedrock

import "net/http"

// Option is an option for the Bedrock LLM.
type Option func(*options)

type options struct {
	modelID         string
	client          ConverseAPI
	region          string
	accessKeyID     string
	secretAccessKey string
	sessionToken    string
	baseURL         string
	httpClient      *http.Client
}

// WithModel sets the model ID or inference profile to use.
func WithModel(modelID string) Option {
	return func(o *options) {
		o.modelID = modelID
	}
}

// WithClient sets the client to use.
// The AWS configuration options are ignored when the client is set.
func WithClient(client ConverseAPI) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithRegion sets the AWS region, the default chain is used otherwise.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithStaticCredentials sets the AWS credentials,
// the default chain is used otherwise.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(o *options) {
		o.accessKeyID = accessKeyID
		o.secretAccessKey = secretAccessKey
		o.sessionToken = sessionToken
	}
}

// WithBaseURL overrides the Bedrock runtime endpoint.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client of the Bedrock runtime client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}
