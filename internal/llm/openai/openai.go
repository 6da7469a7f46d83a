package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/malonaz/polychat/internal/llm"
)

const (
	providerName   = "openai"
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = openai.GPT4oMini
)

// Opts for the openai client.
type Opts struct {
	BaseURL    string
	APIKey     string
	Model      string
	Generation llm.GenerationOpts
}

// Client for openai and any API speaking the openai chat completion protocol.
type Client struct {
	opts   *Opts
	client *openai.Client
}

// NewClient instantiates a client. A missing api key is only reported by SendMessage.
func NewClient(opts *Opts, options ...any) *Client {
	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	for _, option := range options {
		switch t := option.(type) {
		case *http.Client:
			config.HTTPClient = t
		default:
			panic(errors.Errorf("unknown option type %T", option))
		}
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	opts.Generation = opts.Generation.WithDefaults()
	// go-openai omits zero values, the wire request always carries both fields.
	config.HTTPClient = &bodyFieldsDoer{
		doer: config.HTTPClient,
		fields: map[string]any{
			"stream":      false,
			"temperature": *opts.Generation.Temperature,
		},
	}
	return &Client{
		opts:   opts,
		client: openai.NewClientWithConfig(config),
	}
}

// SendMessage implements llm.Client.
func (c *Client) SendMessage(ctx context.Context, messages []*llm.Message) (string, error) {
	if c.opts.APIKey == "" {
		return "", llm.MissingAPIKeyError(providerName)
	}
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, message := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{Role: message.Role, Content: message.Content})
	}
	request := openai.ChatCompletionRequest{
		Model:       c.opts.Model,
		Messages:    chatMessages,
		MaxTokens:   c.opts.Generation.MaxTokens,
		Temperature: *c.opts.Generation.Temperature,
	}
	response, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", toProviderError(err)
	}
	if len(response.Choices) == 0 {
		return "", llm.NewProviderError(providerName, http.StatusOK, "response contains no choice")
	}
	return response.Choices[0].Message.Content, nil
}

func toProviderError(err error) error {
	var apiError *openai.APIError
	if errors.As(err, &apiError) {
		return llm.NewProviderError(providerName, apiError.HTTPStatusCode, apiError.Message)
	}
	var requestError *openai.RequestError
	if errors.As(err, &requestError) {
		return llm.NewProviderError(providerName, requestError.HTTPStatusCode, "")
	}
	return llm.NewProviderError(providerName, 0, err.Error())
}

// bodyFieldsDoer sets fixed fields on the JSON body of every POST request.
type bodyFieldsDoer struct {
	doer   openai.HTTPDoer
	fields map[string]any
}

// Do implements openai.HTTPDoer.
func (d *bodyFieldsDoer) Do(request *http.Request) (*http.Response, error) {
	if request.Method != http.MethodPost || request.Body == nil {
		return d.doer.Do(request)
	}
	body, err := io.ReadAll(request.Body)
	request.Body.Close()
	if err != nil {
		return nil, errors.Wrap(err, "reading request body")
	}
	payload := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "unmarshaling request body")
	}
	for key, value := range d.fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, errors.Wrapf(err, "marshaling %s", key)
		}
		payload[key] = raw
	}
	if body, err = json.Marshal(payload); err != nil {
		return nil, errors.Wrap(err, "marshaling request body")
	}
	request.Body = io.NopCloser(bytes.NewReader(body))
	request.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }
	request.ContentLength = int64(len(body))
	return d.doer.Do(request)
}
