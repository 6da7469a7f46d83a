package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionJSONRoundTrip(t *testing.T) {
	timestamp := time.Date(2026, 10, 18, 12, 30, 0, 0, time.UTC)
	session := &Session{
		ID:    "a1b2c3d4",
		Title: "hello",
		Turns: []*Turn{
			{
				ID:        "1",
				Role:      RoleUser,
				Content:   "hello",
				Timestamp: timestamp,
				Files: []*File{
					{ID: "f1", Name: "notes.txt", Size: 42, Type: "text/plain", URL: "file:///tmp/notes.txt"},
				},
			},
			{ID: "2", Role: RoleAssistant, Content: "hi there", Timestamp: timestamp.Add(time.Second)},
			{ID: "3", Role: RoleAssistant, Content: ImageTurnContent, Timestamp: timestamp, ImageURL: "https://img/1.png"},
			{ID: "4", Role: RoleAssistant, Content: ErrorTurnContent, Timestamp: timestamp, Error: true},
		},
		Timestamp: timestamp,
		Model:     "gpt-4o-mini",
	}

	bytes, err := json.Marshal(session)
	require.NoError(t, err)
	decoded := &Session{}
	require.NoError(t, json.Unmarshal(bytes, decoded))
	assert.Equal(t, session, decoded)
}

func TestSessionJSONFieldNames(t *testing.T) {
	bytes, err := json.Marshal(&Session{ID: "x", Turns: []*Turn{{ID: "1", Role: RoleUser, ImageURL: "u"}}})
	require.NoError(t, err)
	assert.Contains(t, string(bytes), `"messages":[`)
	assert.Contains(t, string(bytes), `"imageUrl":"u"`)
	assert.NotContains(t, string(bytes), `"error"`)
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "New chat", DeriveTitle(nil))
	assert.Equal(t, "New chat", DeriveTitle([]*Turn{nil}))
	assert.Equal(t, "New chat", DeriveTitle([]*Turn{{Content: "   "}}))
	assert.Equal(t, "short question", DeriveTitle([]*Turn{{Content: "short question"}}))

	long := strings.Repeat("é", 60)
	title := DeriveTitle([]*Turn{{Content: long}, {Content: "ignored"}})
	assert.Equal(t, strings.Repeat("é", 50)+"...", title)
}

func TestTurnConstructors(t *testing.T) {
	user := NewUserTurn("hello", []*File{{ID: "f"}})
	assert.Equal(t, RoleUser, user.Role)
	assert.Len(t, user.Files, 1)
	assert.NotEmpty(t, user.ID)

	assert.Nil(t, NewUserTurn("hello", nil).Files)

	errorTurn := NewErrorTurn()
	assert.True(t, errorTurn.Error)
	assert.Equal(t, RoleAssistant, errorTurn.Role)

	image := NewImageTurn("https://img")
	assert.Equal(t, "https://img", image.ImageURL)

	user.Edit("changed")
	assert.Equal(t, "changed", user.Content)
	assert.Equal(t, RoleUser, user.Role)
}

func TestSessionValidate(t *testing.T) {
	session := &Session{ID: "abc", Turns: []*Turn{NewUserTurn("hi", nil), NewAssistantTurn("hello")}}
	require.NoError(t, session.Validate())
	require.NoError(t, (&Session{ID: "empty"}).Validate())

	for name, invalid := range map[string]*Session{
		"empty id":    {Turns: []*Turn{NewUserTurn("hi", nil)}},
		"null turn":   {ID: "abc", Turns: []*Turn{NewUserTurn("hi", nil), nil}},
		"system role": {ID: "abc", Turns: []*Turn{{ID: "1", Role: "system", Content: "be nice"}}},
		"no role":     {ID: "abc", Turns: []*Turn{{ID: "1", Content: "hi"}}},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, invalid.Validate(), ErrInvalidSession)
		})
	}
}
