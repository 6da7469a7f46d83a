package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malonaz/polychat/internal/llm"
	"github.com/malonaz/polychat/internal/model"
	"github.com/malonaz/polychat/internal/store"
	"github.com/malonaz/polychat/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeClient struct {
	reply    string
	err      error
	requests [][]*llm.Message
}

func (f *fakeClient) SendMessage(ctx context.Context, messages []*llm.Message) (string, error) {
	f.requests = append(f.requests, messages)
	return f.reply, f.err
}

type fakeImages struct {
	url string
	err error
}

func (f *fakeImages) Generate(ctx context.Context, prompt string) (string, error) {
	return f.url, f.err
}

type fixture struct {
	router *gin.Engine
	store  *store.Store
	client *fakeClient
	images *fakeImages
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		store:  store.New(store.NewMemoryBackend(), 0, nil),
		client: &fakeClient{reply: "Hello from the model"},
		images: &fakeImages{url: "https://example.com/image.png"},
	}
	t.Cleanup(func() { f.store.Close() })
	server, err := New(&Opts{
		Store: f.store,
		Clients: func(id string) (llm.Client, *model.Model) {
			return f.client, model.Parse(id)
		},
		Images:  f.images,
		Timeout: time.Second,
	})
	require.NoError(t, err)
	f.router = server.Router()
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, request)
	return recorder
}

func decode(t *testing.T, recorder *httptest.ResponseRecorder, value any) {
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), value))
}

func newSession(id, content string) *types.Session {
	turns := []*types.Turn{types.NewUserTurn(content, nil), types.NewAssistantTurn("Here is some code:\n```go\nfmt.Println(\"<hi>\")\n```")}
	return &types.Session{
		ID:        id,
		Title:     types.DeriveTitle(turns),
		Turns:     turns,
		Timestamp: time.Now().UTC(),
		Model:     "gpt-4o-mini",
	}
}

func TestSendChat(t *testing.T) {
	f := newFixture(t)
	recorder := f.do(t, http.MethodPost, "/api/chat", gin.H{
		"model": "gemini-pro",
		"messages": []gin.H{
			{"role": "user", "content": "Hi"},
			{"role": "assistant", "content": "Hello"},
			{"role": "user", "content": "How are you?"},
		},
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	var response struct {
		Reply string `json:"reply"`
		Model string `json:"model"`
	}
	decode(t, recorder, &response)
	assert.Equal(t, "Hello from the model", response.Reply)
	assert.Equal(t, "gemini-2.0-flash", response.Model)
	require.Len(t, f.client.requests, 1)
	assert.Len(t, f.client.requests[0], 3)
}

func TestSendChatUnknownModel(t *testing.T) {
	f := newFixture(t)
	recorder := f.do(t, http.MethodPost, "/api/chat", gin.H{
		"model":    "does-not-exist",
		"messages": []gin.H{{"role": "user", "content": "Hi"}},
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	var response map[string]string
	decode(t, recorder, &response)
	assert.Equal(t, model.DefaultID, response["model"])
}

func TestSendChatErrors(t *testing.T) {
	f := newFixture(t)
	messages := []gin.H{{"role": "user", "content": "Hi"}}

	f.client.err = llm.NewProviderError("DeepSeek", http.StatusTooManyRequests, "rate limited")
	recorder := f.do(t, http.MethodPost, "/api/chat", gin.H{"model": "deepseek-chat", "messages": messages})
	assert.Equal(t, http.StatusBadGateway, recorder.Code)
	var response map[string]string
	decode(t, recorder, &response)
	assert.Contains(t, response["error"], "rate limited")

	f.client.err = llm.MissingAPIKeyError("DeepSeek")
	recorder = f.do(t, http.MethodPost, "/api/chat", gin.H{"model": "deepseek-chat", "messages": messages})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSendChatInvalid(t *testing.T) {
	f := newFixture(t)
	for name, body := range map[string]gin.H{
		"no messages":     {"model": "gpt-4o-mini", "messages": []gin.H{}},
		"bad role":        {"messages": []gin.H{{"role": "system", "content": "Hi"}}},
		"ends with reply": {"messages": []gin.H{{"role": "user", "content": "Hi"}, {"role": "assistant", "content": "Hello"}}},
		"empty content":   {"messages": []gin.H{{"role": "user", "content": "  "}}},
		"null message":    {"messages": []any{nil}},
		"null and user":   {"messages": []any{nil, gin.H{"role": "user", "content": "Hi"}}},
	} {
		t.Run(name, func(t *testing.T) {
			recorder := f.do(t, http.MethodPost, "/api/chat", body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
		})
	}
	assert.Empty(t, f.client.requests)
}

func TestGenerateImage(t *testing.T) {
	f := newFixture(t)
	recorder := f.do(t, http.MethodPost, "/api/images", gin.H{"prompt": "a lighthouse"})
	require.Equal(t, http.StatusOK, recorder.Code)
	var response map[string]string
	decode(t, recorder, &response)
	assert.Equal(t, "https://example.com/image.png", response["url"])

	f.images.err = llm.NewProviderError("replicate", 500, "failed")
	recorder = f.do(t, http.MethodPost, "/api/images", gin.H{"prompt": "a lighthouse"})
	assert.Equal(t, http.StatusBadGateway, recorder.Code)

	recorder = f.do(t, http.MethodPost, "/api/images", gin.H{})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestListModels(t *testing.T) {
	f := newFixture(t)
	recorder := f.do(t, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var response struct {
		Models  []*model.Model `json:"models"`
		Default string         `json:"default"`
	}
	decode(t, recorder, &response)
	assert.Len(t, response.Models, len(model.List()))
	assert.Equal(t, model.DefaultID, response.Default)
}

func TestSessions(t *testing.T) {
	f := newFixture(t)

	recorder := f.do(t, http.MethodGet, "/api/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	session := newSession("ignored", "What is Go?")
	recorder = f.do(t, http.MethodPut, "/api/sessions/abc", session)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = f.do(t, http.MethodGet, "/api/sessions/abc", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	got := &types.Session{}
	decode(t, recorder, got)
	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, "What is Go?", got.Title)
	assert.Len(t, got.Turns, 2)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/api/sessions/def", newSession("def", "Second")).Code)
	recorder = f.do(t, http.MethodGet, "/api/sessions", nil)
	var list struct {
		Sessions []*types.Session `json:"sessions"`
	}
	decode(t, recorder, &list)
	require.Len(t, list.Sessions, 2)
	assert.Equal(t, "def", list.Sessions[0].ID)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/sessions/abc", nil).Code)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/sessions/abc", nil).Code)
	assert.Len(t, f.store.List(), 1)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/sessions", nil).Code)
	assert.Empty(t, f.store.List())
}

func TestPutSessionDefaults(t *testing.T) {
	f := newFixture(t)
	recorder := f.do(t, http.MethodPut, "/api/sessions/abc", gin.H{
		"messages": []gin.H{{"id": "1", "role": "user", "content": "Untitled question"}},
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	session, err := f.store.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, "Untitled question", session.Title)
	assert.Equal(t, model.DefaultID, session.Model)
	assert.False(t, session.Timestamp.IsZero())

	recorder = f.do(t, http.MethodPut, "/api/sessions/abc", "not a session")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestPutSessionRejectsInvalidTurns(t *testing.T) {
	f := newFixture(t)
	for name, body := range map[string]gin.H{
		"null turn":          {"messages": []any{nil}},
		"null turn titled":   {"title": "t", "messages": []any{nil, gin.H{"id": "1", "role": "user", "content": "hi"}}},
		"system turn titled": {"title": "t", "messages": []gin.H{{"id": "1", "role": "system", "content": "be nice"}}},
		"system turn":        {"messages": []gin.H{{"id": "1", "role": "system", "content": "be nice"}}},
	} {
		t.Run(name, func(t *testing.T) {
			recorder := f.do(t, http.MethodPut, "/api/sessions/abc", body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
		})
	}
	assert.Empty(t, f.store.List())
}

func TestPages(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Save(newSession("abc", "Tell me about lighthouses")))
	require.NoError(t, f.store.Save(newSession("def", "Recipes for dinner")))

	recorder := f.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Tell me about lighthouses")
	assert.Contains(t, recorder.Body.String(), "Recipes for dinner")

	recorder = f.do(t, http.MethodGet, "/?q=lighthouse", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Tell me about lighthouses")
	assert.NotContains(t, recorder.Body.String(), "Recipes for dinner")

	recorder = f.do(t, http.MethodGet, "/chat/abc", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	assert.Contains(t, body, `<code class="language-go">`)
	assert.Contains(t, body, "&lt;hi&gt;")
	assert.NotContains(t, body, "<hi>")

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/chat/missing", nil).Code)
}

func TestDeleteChatPage(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Save(newSession("abc", "Hello")))
	require.NoError(t, f.store.Save(newSession("def", "Hello")))

	recorder := f.do(t, http.MethodDelete, "/chat/abc", nil)
	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, "/", recorder.Header().Get("Location"))

	request := httptest.NewRequest(http.MethodDelete, "/chat/def", nil)
	request.Header.Set("X-Requested-With", "XMLHttpRequest")
	recorder = httptest.NewRecorder()
	f.router.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, f.store.List())
}

func TestFormatMessage(t *testing.T) {
	formatted := string(formatMessage("line one\nline <two>\n```sh\necho hi\n```"))
	assert.Equal(t, `<p>line one<br>line &lt;two&gt;</p><pre><code class="language-sh">echo hi</code></pre>`, formatted)
}

func TestCORS(t *testing.T) {
	f := newFixture(t)
	recorder := f.do(t, http.MethodOptions, "/api/chat", nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
}
