package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/malonaz/polychat/internal/llm"
)

const (
	providerName   = "gemini"
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.0-flash"

	// Gemini calls the assistant role `model`.
	modelRole = "model"
)

// Opts for the gemini client.
type Opts struct {
	BaseURL    string
	APIKey     string
	Model      string
	Generation llm.GenerationOpts
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Client for the gemini generateContent API.
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
	request := &generateContentRequest{
		Contents: make([]content, 0, len(messages)),
		GenerationConfig: generationConfig{
			Temperature:     *c.opts.Generation.Temperature,
			MaxOutputTokens: c.opts.Generation.MaxTokens,
		},
	}
	for _, message := range messages {
		role := llm.UserRole
		if message.Role == llm.AssistantRole {
			role = modelRole
		}
		request.Contents = append(request.Contents, content{Role: role, Parts: []part{{Text: message.Content}}})
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", c.opts.APIKey).
		SetBody(request).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.opts.Model))
	if err != nil {
		return "", llm.NewProviderError(providerName, 0, err.Error())
	}
	if !response.IsSuccess() {
		return "", llm.NewProviderError(providerName, response.StatusCode(), llm.ErrorMessageFromBody(response.Body()))
	}

	result := &generateContentResponse{}
	if err := json.Unmarshal(response.Body(), result); err != nil {
		return "", llm.NewProviderError(providerName, response.StatusCode(), "malformed response: "+err.Error())
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", llm.NewProviderError(providerName, response.StatusCode(), "response contains no candidate")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}
