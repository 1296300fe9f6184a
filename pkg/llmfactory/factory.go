package llmfactory

import (
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/effective-security/mcphub/pkg/llms/bedrock"
	"github.com/effective-security/mcphub/pkg/llms/openai"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcphub", "llmfactory")

// NewLLM is a wrapper for CreateLLM to allow for overriding the default implementation.
var NewLLM = CreateLLM

// Factory is the interface for creating and managing LLM models.
type Factory interface {
	// DefaultModel returns the default LLM model.
	DefaultModel() (llms.Model, error)
	// ModelByType returns an LLM model by its type, e.g.
	// OPENAI, AZURE, AZURE_AD, BEDROCK
	ModelByType(providerType string) (llms.Model, error)
	// ModelByName returns an LLM model by its name,
	// if the model is not found, it will return the default model.
	ModelByName(preferredModels ...string) (llms.Model, error)
}

// Load returns the factory from the config file
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

type factory struct {
	cfg *Config

	defaultProvider *ProviderConfig
	byType          map[string]llms.Model
	byName          map[string]llms.Model
	lock            sync.Mutex
}

// New creates a new LLM factory
func New(cfg *Config) Factory {
	f := &factory{
		cfg:    cfg,
		byType: make(map[string]llms.Model),
		byName: make(map[string]llms.Model),
	}

	if cfg.DefaultProvider != "" {
		f.defaultProvider = cfg.Find(cfg.DefaultProvider)
	}
	if f.defaultProvider == nil && len(f.cfg.Providers) > 0 {
		f.defaultProvider = f.cfg.Providers[0]
	}

	return f
}

// CreateLLM returns the adapter for the provider config
func CreateLLM(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	provType := normalizeType(cfg.OpenAI.APIType)
	switch provType {
	case "OPENAI":
		return newOpenAI(cfg, preferredModels...)
	case "AZURE", "AZURE_AD":
		return newAzure(cfg, preferredModels...)
	case "BEDROCK":
		return newBedrock(cfg, preferredModels...)
	}
	return nil, errors.Errorf("unsupported provider type: %s", provType)
}

func normalizeType(t string) string {
	t = strings.ToUpper(t)
	if t == "OPEN_AI" {
		return "OPENAI"
	}
	return t
}

func newOpenAI(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	model := cfg.FindModel(preferredModels...)
	opts := []openai.Option{
		openai.WithProvider(openai.ProviderOpenAI),
		openai.WithModel(model),
	}

	if cfg.Token != "" {
		opts = append(opts, openai.WithToken(cfg.Token))
	}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	if cfg.OpenAI.OrgID != "" {
		opts = append(opts, openai.WithOrganization(cfg.OpenAI.OrgID))
	}
	return openai.New(opts...)
}

func newAzure(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	model := cfg.FindModel(preferredModels...)
	opts := []openai.Option{
		openai.WithAPIVersion(cfg.OpenAI.APIVersion),
		openai.WithModel(model),
	}

	if cfg.Token != "" {
		opts = append(opts, openai.WithToken(cfg.Token))
	}
	if strings.EqualFold(cfg.OpenAI.APIType, "AZURE_AD") {
		opts = append(opts, openai.WithProvider(openai.ProviderAzureAD))
	} else {
		opts = append(opts, openai.WithProvider(openai.ProviderAzure))
	}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	return openai.New(opts...)
}

func newBedrock(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var opts []bedrock.Option
	if model := cfg.FindModel(preferredModels...); model != "" {
		opts = append(opts, bedrock.WithModel(model))
	}
	if cfg.Bedrock.Region != "" {
		opts = append(opts, bedrock.WithRegion(cfg.Bedrock.Region))
	}
	if cfg.Bedrock.AccessKeyID != "" {
		opts = append(opts, bedrock.WithStaticCredentials(cfg.Bedrock.AccessKeyID, cfg.Bedrock.SecretAccessKey, cfg.Bedrock.SessionToken))
	}
	if cfg.Bedrock.BaseURL != "" {
		opts = append(opts, bedrock.WithBaseURL(cfg.Bedrock.BaseURL))
	}
	return bedrock.New(opts...)
}

// DefaultModel returns the model of the default provider
func (f *factory) DefaultModel() (llms.Model, error) {
	if len(f.cfg.Providers) == 0 || f.defaultProvider == nil {
		return nil, errors.New("no providers configured")
	}

	f.lock.Lock()
	defer f.lock.Unlock()

	key := f.defaultProvider.Name + "/" + f.defaultProvider.DefaultModel
	if client, ok := f.byName[key]; ok {
		return client, nil
	}
	model, err := NewLLM(f.defaultProvider, f.defaultProvider.DefaultModel)
	if err != nil {
		return nil, err
	}
	f.byName[key] = model
	return model, nil
}

func (f *factory) ModelByType(providerType string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	providerType = normalizeType(providerType)
	if client, ok := f.byType[providerType]; ok {
		return client, nil
	}

	for _, cfg := range f.cfg.Providers {
		if normalizeType(cfg.OpenAI.APIType) == providerType {
			model, err := NewLLM(cfg)
			if err != nil {
				return nil, err
			}

			logger.KV(xlog.DEBUG,
				"status", "created_llm",
				"type", cfg.OpenAI.APIType,
				"version", cfg.OpenAI.APIVersion,
				"name", cfg.Name)

			f.byType[providerType] = model
			return model, nil
		}
	}
	return nil, errors.Errorf("provider not found for type: %s", providerType)
}

func (f *factory) ModelByName(modelNames ...string) (llms.Model, error) {
	f.lock.Lock()
	for _, modelName := range modelNames {
		if client, ok := f.byName[modelName]; ok {
			f.lock.Unlock()
			return client, nil
		}

		for _, cfg := range f.cfg.Providers {
			if slices.Contains(cfg.AvailableModels, modelName) {
				model, err := NewLLM(cfg, modelNames...)
				if err != nil {
					logger.KV(xlog.ERROR,
						"reason", "NewLLM",
						"type", cfg.OpenAI.APIType,
						"version", cfg.OpenAI.APIVersion,
						"models", modelNames,
						"err", err,
					)
					continue
				}

				logger.KV(xlog.DEBUG,
					"status", "created_llm",
					"type", cfg.OpenAI.APIType,
					"version", cfg.OpenAI.APIVersion,
					"name", cfg.Name)

				f.byName[modelName] = model
				f.lock.Unlock()
				return model, nil
			}
		}
	}
	f.lock.Unlock()
	return f.DefaultModel()
}
