package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malonaz/polychat/internal/configuration"
	"github.com/malonaz/polychat/internal/llm"
)

// newFakeProviders serves every provider API from a single server and counts requests per path.
func newFakeProviders(t *testing.T) (*httptest.Server, *atomic.Int32) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/openai/chat/completions", "/deepseek/chat/completions":
			w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"reply"}}]}`))
		case "/anthropic/messages":
			w.Write([]byte(`{"type":"message","role":"assistant","content":[{"type":"text","text":"reply"}]}`))
		default:
			w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"reply"}]}}]}`))
		}
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func newConfig(baseURL string, withKeys bool) *configuration.Config {
	config := configuration.Default()
	config.Providers.OpenAI.APIHost = baseURL + "/openai"
	config.Providers.Gemini.APIHost = baseURL + "/gemini"
	config.Providers.DeepSeek.APIHost = baseURL + "/deepseek"
	config.Providers.Anthropic.APIHost = baseURL + "/anthropic"
	if withKeys {
		config.Providers.OpenAI.APIKey = "openai"
		config.Providers.Gemini.APIKey = "gemini"
		config.Providers.DeepSeek.APIKey = "deepseek"
		config.Providers.Anthropic.APIKey = "anthropic"
	}
	return config
}

func TestParse(t *testing.T) {
	assert.Equal(t, "gemini-2.0-flash", Parse("gemini-pro").ID)
	assert.Equal(t, "gemini-2.0-flash", Parse("gemini-flash").ID)
	assert.Equal(t, "deepseek-chat", Parse("deepseek-chat").ID)
	assert.Equal(t, "claude-3-5-haiku-latest", Parse("claude").ID)
	assert.Equal(t, DefaultID, Parse("gpt-99").ID)
	assert.Equal(t, DefaultID, Parse("").ID)

	_, ok := Lookup("gpt-99")
	assert.False(t, ok)
}

func TestNewClientIssuesExactlyOneRequest(t *testing.T) {
	server, calls := newFakeProviders(t)
	config := newConfig(server.URL, true)

	for _, m := range List() {
		t.Run(m.ID, func(t *testing.T) {
			before := calls.Load()
			client, model := NewClient(config, m.ID)
			assert.Equal(t, m.ID, model.ID)
			reply, err := client.SendMessage(context.Background(), []*llm.Message{{Role: llm.UserRole, Content: "hello"}})
			require.NoError(t, err)
			assert.Equal(t, "reply", reply)
			assert.Equal(t, before+1, calls.Load())
		})
	}
}

func TestNewClientUnknownModelFallsBack(t *testing.T) {
	server, calls := newFakeProviders(t)
	config := newConfig(server.URL, true)

	client, model := NewClient(config, "not-a-model")
	assert.Equal(t, DefaultID, model.ID)
	assert.Equal(t, ProviderOpenAI, model.Provider)
	_, err := client.SendMessage(context.Background(), []*llm.Message{{Role: llm.UserRole, Content: "hello"}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestNewClientMissingCredentialSendsNothing(t *testing.T) {
	server, calls := newFakeProviders(t)
	config := newConfig(server.URL, false)

	for _, m := range List() {
		client, _ := Factory(config)(m.ID)
		_, err := client.SendMessage(context.Background(), []*llm.Message{{Role: llm.UserRole, Content: "hello"}})
		assert.True(t, llm.IsConfigurationError(err), m.ID)
	}
	assert.Zero(t, calls.Load())
}

func TestNewClientSendsZeroTemperature(t *testing.T) {
	server, _ := newFakeProviders(t)
	var temperatures []float64
	recorder := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		if generationConfig, ok := payload["generationConfig"].(map[string]any); ok {
			payload = generationConfig
		}
		temperature, ok := payload["temperature"].(float64)
		assert.True(t, ok, r.URL.Path)
		temperatures = append(temperatures, temperature)
		proxy, err := http.NewRequest(r.Method, server.URL+r.URL.Path, nil)
		if !assert.NoError(t, err) {
			return
		}
		response, err := http.DefaultClient.Do(proxy)
		if !assert.NoError(t, err) {
			return
		}
		defer response.Body.Close()
		w.Header().Set("Content-Type", "application/json")
		var body json.RawMessage
		assert.NoError(t, json.NewDecoder(response.Body).Decode(&body))
		w.Write(body)
	}))
	defer recorder.Close()

	config := newConfig(recorder.URL, true)
	config.Chat.Temperature = 0
	for _, m := range List() {
		client, _ := NewClient(config, m.ID)
		_, err := client.SendMessage(context.Background(), []*llm.Message{{Role: llm.UserRole, Content: "hello"}})
		require.NoError(t, err, m.ID)
	}
	require.Len(t, temperatures, len(List()))
	for _, temperature := range temperatures {
		assert.Zero(t, temperature)
	}
}
