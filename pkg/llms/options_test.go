package llms_test

import (
	"testing"

	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/effective-security/mcphub/pkg/schema"
	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	tools := []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name: "test",
			},
		},
	}
	rf := schema.ResponseFormatText

	opts := []llms.CallOption{
		llms.WithModel("test"),
		llms.WithMaxTokens(100),
		llms.WithTemperature(0.5),
		llms.WithTools(tools),
		llms.WithToolChoice(llms.ToolChoiceNone),
		llms.WithResponseFormat(rf),
	}

	o := &llms.CallOptions{}
	for _, opt := range opts {
		opt(o)
	}
	assert.Equal(t, "test", o.Model)
	assert.Equal(t, 100, o.MaxTokens)
	assert.Equal(t, 0.5, o.Temperature)
	assert.True(t, o.HasTemperature())
	assert.Equal(t, tools, o.Tools)
	assert.Equal(t, llms.ToolChoiceNone, o.ToolChoice)
	assert.Equal(t, rf, o.ResponseFormat)
	assert.NoError(t, o.Validate())

	o2 := &llms.CallOptions{}
	llms.WithOptions(*o)(o2)
	assert.Equal(t, o, o2)

	o3 := &llms.CallOptions{}
	assert.False(t, o3.HasTemperature())
	llms.WithTemperature(0)(o3)
	assert.True(t, o3.HasTemperature())
	assert.Zero(t, o3.Temperature)
}

func TestOptionsValidate(t *testing.T) {
	tcases := []struct {
		name string
		opts llms.CallOptions
		err  string
	}{
		{"ok", llms.CallOptions{MaxTokens: 1, Temperature: 2}, ""},
		{"ok_zero_temp", llms.CallOptions{MaxTokens: 1000, ToolChoice: llms.ToolChoiceAuto}, ""},
		{"no_tokens", llms.CallOptions{Temperature: 1}, "max tokens must be positive: 0"},
		{"neg_temp", llms.CallOptions{MaxTokens: 1, Temperature: -0.1}, "temperature must be in [0,2]: -0.1"},
		{"hot_temp", llms.CallOptions{MaxTokens: 1, Temperature: 2.5}, "temperature must be in [0,2]: 2.5"},
		{"choice", llms.CallOptions{MaxTokens: 1, ToolChoice: "required"}, `unsupported tool choice: "required"`},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.Validate()
			if tc.err == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tc.err)
			}
		})
	}
}

func TestCapabilities(t *testing.T) {
	assert.True(t, llms.ProviderOpenAI.Supports(llms.CapabilityForcedFinalAnswer))
	assert.True(t, llms.ProviderAzure.Supports(llms.CapabilityToolChoiceNone))
	assert.True(t, llms.ProviderBedrock.Supports(llms.CapabilityFunctionCalling))
	assert.False(t, llms.ProviderBedrock.Supports(llms.CapabilityForcedFinalAnswer))
	assert.False(t, llms.ProviderBedrock.Supports(llms.CapabilityToolChoiceNone))
	assert.False(t, llms.ProviderType("unknown").Supports(llms.CapabilityText))
}
