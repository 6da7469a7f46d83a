package model

import (
	"github.com/spf13/cobra"

	"github.com/malonaz/polychat/internal/configuration"
	"github.com/malonaz/polychat/internal/llm"
	"github.com/malonaz/polychat/internal/llm/anthropic"
	"github.com/malonaz/polychat/internal/llm/deepseek"
	"github.com/malonaz/polychat/internal/llm/gemini"
	"github.com/malonaz/polychat/internal/llm/openai"
)

// DefaultID is the model used for unknown model identifiers.
const DefaultID = "gpt-4o-mini"

// Provider serving a model.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
	ProviderDeepSeek  Provider = "deepseek"
	ProviderAnthropic Provider = "anthropic"
)

// Opts for model.
type Opts struct {
	Model string
}

// GetOpts on the given command.
func GetOpts(cmd *cobra.Command, defaultModel string) *Opts {
	opts := &Opts{}
	cmd.Flags().StringVarP(&opts.Model, "model", "m", defaultModel, "specify a model")
	return opts
}

// Model represents a chat model.
type Model struct {
	ID          string   `json:"id"`
	Aliases     []string `json:"aliases,omitempty"`
	Provider    Provider `json:"provider"`
	Description string   `json:"description"`
}

var models = []*Model{
	{ID: "gpt-4o-mini", Provider: ProviderOpenAI, Description: "OpenAI GPT-4o mini"},
	{ID: "gpt-3.5-turbo", Provider: ProviderOpenAI, Description: "OpenAI GPT-3.5 Turbo"},
	{ID: "gemini-2.0-flash", Aliases: []string{"gemini-pro", "gemini-flash"}, Provider: ProviderGemini, Description: "Google Gemini 2.0 Flash"},
	{ID: "deepseek-chat", Provider: ProviderDeepSeek, Description: "DeepSeek Chat"},
	{ID: "claude-3-5-haiku-latest", Aliases: []string{"claude"}, Provider: ProviderAnthropic, Description: "Anthropic Claude 3.5 Haiku"},
}

// List returns every supported model.
func List() []*Model {
	return append([]*Model(nil), models...)
}

// Lookup the model with the given id or alias.
func Lookup(id string) (*Model, bool) {
	for _, model := range models {
		if model.ID == id {
			return model, true
		}
		for _, alias := range model.Aliases {
			if alias == id {
				return model, true
			}
		}
	}
	return nil, false
}

// Parse returns the model with the given id or alias, falling back to the default model.
func Parse(id string) *Model {
	if model, ok := Lookup(id); ok {
		return model
	}
	model, _ := Lookup(DefaultID)
	return model
}

// NewClient instantiates a client for the given model id. Unknown ids get the default model.
// Options are forwarded to the provider client.
func NewClient(config *configuration.Config, id string, options ...any) (llm.Client, *Model) {
	model := Parse(id)
	temperature := config.Chat.Temperature
	generation := llm.GenerationOpts{
		MaxTokens:   config.Chat.MaxTokens,
		Temperature: &temperature,
	}
	providers := config.Providers
	switch model.Provider {
	case ProviderGemini:
		return gemini.NewClient(&gemini.Opts{
			BaseURL:    providers.Gemini.APIHost,
			APIKey:     providers.Gemini.APIKey,
			Model:      model.ID,
			Generation: generation,
		}, options...), model
	case ProviderDeepSeek:
		return deepseek.NewClient(&deepseek.Opts{
			BaseURL:    providers.DeepSeek.APIHost,
			APIKey:     providers.DeepSeek.APIKey,
			Model:      model.ID,
			Generation: generation,
		}, options...), model
	case ProviderAnthropic:
		return anthropic.NewClient(&anthropic.Opts{
			BaseURL:    providers.Anthropic.APIHost,
			APIKey:     providers.Anthropic.APIKey,
			Model:      model.ID,
			Generation: generation,
		}, options...), model
	default:
		return openai.NewClient(&openai.Opts{
			BaseURL:    providers.OpenAI.APIHost,
			APIKey:     providers.OpenAI.APIKey,
			Model:      model.ID,
			Generation: generation,
		}, options...), model
	}
}

// Factory returns a function instantiating clients from the given configuration.
func Factory(config *configuration.Config, options ...any) func(id string) (llm.Client, *Model) {
	return func(id string) (llm.Client, *Model) {
		return NewClient(config, id, options...)
	}
}
