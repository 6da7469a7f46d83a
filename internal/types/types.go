package types

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	// Number of runes of the first turn kept in a session title.
	titleLength = 50
	// Title of a session without turns.
	defaultTitle = "New chat"

	// Content of the synthetic turn appended when a provider call fails.
	ErrorTurnContent = "Sorry, an error occurred while processing your request."
	// Content of the turn carrying a generated image.
	ImageTurnContent = "Image generated successfully:"
)

// Role of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid returns true for the roles a turn can hold.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ErrInvalidSession is returned for sessions that cannot be stored.
var ErrInvalidSession = errors.New("invalid session")

// File is a reference to a file attached to a turn.
// URL is a local handle, only valid on the machine that attached the file.
type File struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
	URL  string `json:"url"`
	Data string `json:"data,omitempty"`
}

// Turn is one message exchanged in a conversation.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Files     []*File   `json:"files,omitempty"`
	Error     bool      `json:"error,omitempty"`
}

// Session is a persisted conversation.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Turns     []*Turn   `json:"messages"`
	Timestamp time.Time `json:"timestamp"`
	Model     string    `json:"model"`
}

func newTurn(role Role, content string) *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserTurn instantiates a user turn.
func NewUserTurn(content string, files []*File) *Turn {
	turn := newTurn(RoleUser, content)
	if len(files) > 0 {
		turn.Files = append([]*File(nil), files...)
	}
	return turn
}

// NewAssistantTurn instantiates an assistant turn.
func NewAssistantTurn(content string) *Turn {
	return newTurn(RoleAssistant, content)
}

// NewErrorTurn instantiates an assistant turn flagged as an error.
func NewErrorTurn() *Turn {
	turn := newTurn(RoleAssistant, ErrorTurnContent)
	turn.Error = true
	return turn
}

// NewImageTurn instantiates an assistant turn carrying a generated image.
func NewImageTurn(imageURL string) *Turn {
	turn := newTurn(RoleAssistant, ImageTurnContent)
	turn.ImageURL = imageURL
	return turn
}

// Edit replaces the content of a turn. The role never changes.
func (t *Turn) Edit(content string) {
	t.Content = content
}

// Validate checks the session has an id and that every turn is a user or assistant turn.
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.Wrap(ErrInvalidSession, "empty id")
	}
	for i, turn := range s.Turns {
		if turn == nil {
			return errors.Wrapf(ErrInvalidSession, "turn %d is null", i)
		}
		if !turn.Role.Valid() {
			return errors.Wrapf(ErrInvalidSession, "turn %d has role %q", i, turn.Role)
		}
	}
	return nil
}

// DeriveTitle returns the title of a session holding the given turns.
func DeriveTitle(turns []*Turn) string {
	if len(turns) == 0 || turns[0] == nil {
		return defaultTitle
	}
	content := strings.TrimSpace(turns[0].Content)
	if content == "" {
		return defaultTitle
	}
	if utf8.RuneCountInString(content) <= titleLength {
		return content
	}
	return string([]rune(content)[:titleLength]) + "..."
}
