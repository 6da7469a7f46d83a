package deepseek

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/malonaz/polychat/internal/llm"
)

const (
	providerName   = "deepseek"
	DefaultBaseURL = "https://api.deepseek.com/v1"
	DefaultModel   = "deepseek-chat"
)

// Opts for the deepseek client.
type Opts struct {
	BaseURL    string
	APIKey     string
	Model      string
	Generation llm.GenerationOpts
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string     `json:"model"`
	Messages    []*message `json:"messages"`
	MaxTokens   int        `json:"max_tokens"`
	Temperature float32    `json:"temperature"`
	Stream      bool       `json:"stream"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Client for the deepseek chat completion API.
type Client struct {
	opts   *Opts
	client *resty.Client
}

// NewClient instantiates a client. A missing api key is only reported by SendMessage.
func NewClient(opts *Opts, options ...any) *Client {
	client := resty.New()
	for _, option := range options {
		switch t := option.(type) {
		case *http.Client:
			client = resty.NewWithClient(t)
		default:
			panic(errors.Errorf("unknown option type %T", option))
		}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	opts.Generation = opts.Generation.WithDefaults()
	client.SetBaseURL(opts.BaseURL)
	return &Client{opts: opts, client: client}
}

// SendMessage implements llm.Client.
func (c *Client) SendMessage(ctx context.Context, messages []*llm.Message) (string, error) {
	if c.opts.APIKey == "" {
		return "", llm.MissingAPIKeyError(providerName)
	}
	request := &chatCompletionRequest{
		Model:       c.opts.Model,
		Messages:    make([]*message, 0, len(messages)),
		MaxTokens:   c.opts.Generation.MaxTokens,
		Temperature: *c.opts.Generation.Temperature,
	}
	for _, m := range messages {
		request.Messages = append(request.Messages, &message{Role: m.Role, Content: m.Content})
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.opts.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(request).
		Post("/chat/completions")
	if err != nil {
		return "", llm.NewProviderError(providerName, 0, err.Error())
	}
	if !response.IsSuccess() {
		return "", llm.NewProviderError(providerName, response.StatusCode(), llm.ErrorMessageFromBody(response.Body()))
	}

	result := &chatCompletionResponse{}
	if err := json.Unmarshal(response.Body(), result); err != nil {
		return "", llm.NewProviderError(providerName, response.StatusCode(), "malformed response: "+err.Error())
	}
	if len(result.Choices) == 0 {
		return "", llm.NewProviderError(providerName, response.StatusCode(), "response contains no choice")
	}
	return result.Choices[0].Message.Content, nil
}
