package llmfactory

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
)

// Config is the list of LLM providers available to the orchestrator.
type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers" validate:"dive"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider" yaml:"default_provider"`
}

// ProviderConfig for a chat provider
type ProviderConfig struct {
	Name            string        `json:"name" yaml:"name" validate:"required"`
	Token           string        `json:"token,omitempty" yaml:"token,omitempty"`
	DefaultModel    string        `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string      `json:"available_models,omitempty" yaml:"available_models,omitempty"`
	OpenAI          OpenAIConfig  `json:"open_ai" yaml:"open_ai"`
	Bedrock         BedrockConfig `json:"bedrock" yaml:"bedrock"`
}

// OpenAIConfig specifies options config
type OpenAIConfig struct {
	// BaseURL is the API base URL, or the resource endpoint for Azure
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	// APIType specifies the type of API to use:
	// OPENAI|AZURE|AZURE_AD|BEDROCK
	APIType string `json:"api_type,omitempty" yaml:"api_type,omitempty" validate:"required,oneof=OPENAI OPEN_AI AZURE AZURE_AD BEDROCK"`
	// OrgID specifies which organization's quota and billing should be used when making API requests.
	OrgID string `json:"org_id,omitempty" yaml:"org_id,omitempty"`
}

// BedrockConfig specifies the AWS settings,
// the default credentials chain is used when the keys are not set.
type BedrockConfig struct {
	Region          string `json:"region,omitempty" yaml:"region,omitempty"`
	AccessKeyID     string `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty"`
	SessionToken    string `json:"session_token,omitempty" yaml:"session_token,omitempty"`
	BaseURL         string `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
}

// FindModel returns the first of the models available in the provider,
// or the provider's default model.
func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate returns an error if the config is invalid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid LLM config")
	}
	if c.DefaultProvider != "" && c.Find(c.DefaultProvider) == nil {
		return errors.Newf("default provider %q is not configured", c.DefaultProvider)
	}
	return nil
}

// Find returns the provider by name
func (c *Config) Find(name string) *ProviderConfig {
	for _, p := range c.Providers {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
