package anthropic

import (
	"context"
	"net/http"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/pkg/errors"

	"github.com/malonaz/polychat/internal/llm"
)

const (
	providerName   = "anthropic"
	DefaultBaseURL = "https://api.anthropic.com/v1"
	DefaultModel   = "claude-3-5-haiku-latest"
)

// Opts for the anthropic client.
type Opts struct {
	BaseURL    string
	APIKey     string
	Model      string
	Generation llm.GenerationOpts
}

// Client wraps the go-anthropic client.
type Client struct {
	opts   *Opts
	client *anthropic.Client
}

// NewClient instantiates a client. A missing api key is only reported by SendMessage.
func NewClient(opts *Opts, options ...any) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	opts.Generation = opts.Generation.WithDefaults()
	clientOptions := []anthropic.ClientOption{anthropic.WithBaseURL(opts.BaseURL)}
	for _, option := range options {
		switch t := option.(type) {
		case *http.Client:
			clientOptions = append(clientOptions, anthropic.WithHTTPClient(t))
		default:
			panic(errors.Errorf("unknown option type %T", option))
		}
	}
	return &Client{
		opts:   opts,
		client: anthropic.NewClient(opts.APIKey, clientOptions...),
	}
}

// SendMessage implements llm.Client.
func (c *Client) SendMessage(ctx context.Context, messages []*llm.Message) (string, error) {
	if c.opts.APIKey == "" {
		return "", llm.MissingAPIKeyError(providerName)
	}
	anthropicMessages := make([]anthropic.Message, 0, len(messages))
	for _, message := range messages {
		switch message.Role {
		case llm.AssistantRole:
			anthropicMessages = append(anthropicMessages, anthropic.NewAssistantTextMessage(message.Content))
		default:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserTextMessage(message.Content))
		}
	}
	response, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.opts.Model),
		Messages:    anthropicMessages,
		MaxTokens:   c.opts.Generation.MaxTokens,
		Temperature: c.opts.Generation.Temperature,
	})
	if err != nil {
		var apiError *anthropic.APIError
		if errors.As(err, &apiError) {
			return "", llm.NewProviderError(providerName, 0, apiError.Message)
		}
		return "", llm.NewProviderError(providerName, 0, err.Error())
	}
	for _, content := range response.Content {
		if content.Type == anthropic.MessagesContentTypeText && content.Text != nil {
			return *content.Text, nil
		}
	}
	return "", llm.NewProviderError(providerName, http.StatusOK, "response contains no text content")
}
