package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/malonaz/polychat/internal/types"
)

const (
	UserRole      = string(types.RoleUser)
	AssistantRole = string(types.RoleAssistant)

	DefaultMaxTokens   = 4000
	DefaultTemperature = float32(0.7)
)

// ErrMissingAPIKey is returned by a client whose provider credential is not configured.
// It is always returned before any request is sent.
var ErrMissingAPIKey = errors.New("api key is not configured")

// Message is the part of a turn that is sent to a provider.
type Message struct {
	Role    string
	Content string
}

// GenerationOpts shared by all providers.
type GenerationOpts struct {
	MaxTokens int
	// Nil means DefaultTemperature. Zero is a valid temperature.
	Temperature *float32
}

// WithDefaults returns a copy of the opts with unset fields set to their default.
func (o GenerationOpts) WithDefaults() GenerationOpts {
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Temperature == nil {
		temperature := DefaultTemperature
		o.Temperature = &temperature
	}
	return o
}

// Client converts a conversation into a single reply with one round trip to a provider.
type Client interface {
	SendMessage(ctx context.Context, messages []*Message) (string, error)
}

// MessagesFromTurns keeps the role and content of each turn, in order.
func MessagesFromTurns(turns []*types.Turn) []*Message {
	messages := make([]*Message, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, &Message{Role: string(turn.Role), Content: turn.Content})
	}
	return messages
}

// MissingAPIKeyError returns ErrMissingAPIKey annotated with the provider.
func MissingAPIKeyError(provider string) error {
	return errors.Wrapf(ErrMissingAPIKey, "%s", provider)
}

// ProviderError is returned when a provider call fails for any reason other than configuration.
type ProviderError struct {
	Provider string
	// Zero when no response was received.
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// NewProviderError instantiates a provider error. An empty message falls back to a generic one.
func NewProviderError(provider string, statusCode int, message string) *ProviderError {
	if message == "" {
		message = provider + " API error"
	}
	return &ProviderError{Provider: provider, StatusCode: statusCode, Message: message}
}

// IsConfigurationError returns true if err was caused by a missing credential.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrMissingAPIKey)
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ErrorMessageFromBody extracts `error.message` from a provider error body, if any.
func ErrorMessageFromBody(body []byte) string {
	e := &errorBody{}
	if err := json.Unmarshal(body, e); err != nil {
		return ""
	}
	return e.Error.Message
}
