package conversation

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/malonaz/polychat/internal/llm"
	"github.com/malonaz/polychat/internal/model"
	"github.com/malonaz/polychat/internal/types"
)

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrTurnNotFound   = errors.New("turn not found")
	ErrNotRegenerable = errors.New("only an assistant turn following a user turn can be regenerated")
	ErrNoImages       = errors.New("image generation is not configured")
)

// ClientFactory returns the client serving a model id.
type ClientFactory func(id string) (llm.Client, *model.Model)

// ImageGenerator turns a prompt into an image url.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Saver persists sessions.
type Saver interface {
	Save(session *types.Session) error
}

// Opts for a conversation.
type Opts struct {
	Model   string
	Clients ClientFactory
	Images  ImageGenerator
	Store   Saver
	Log     *slog.Logger
}

// Conversation is the active in-memory session.
// Provider calls run without holding the lock: a reply is appended when it arrives.
type Conversation struct {
	clients ClientFactory
	images  ImageGenerator
	store   Saver
	log     *slog.Logger

	mu    sync.Mutex
	id    string
	model string
	turns []*types.Turn
}

// New conversation.
func New(opts *Opts) *Conversation {
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Conversation{
		clients: opts.Clients,
		images:  opts.Images,
		store:   opts.Store,
		log:     log,
		model:   model.Parse(opts.Model).ID,
	}
}

// ID of the session, empty until the first save.
func (c *Conversation) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Model used for the next reply.
func (c *Conversation) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// SetModel and return the id of the model actually selected.
func (c *Conversation) SetModel(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model.Parse(id).ID
	return c.model
}

// Turns returns a copy of the turns.
func (c *Conversation) Turns() []*types.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyTurns(c.turns)
}

// Last returns the last turn with the given role, or nil.
func (c *Conversation) Last(role types.Role) *types.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Role == role {
			turn := *c.turns[i]
			return &turn
		}
	}
	return nil
}

// Send appends a user turn and then a reply computed from the whole conversation.
// On failure an error turn is appended and returned along with the error, the conversation
// remains usable.
func (c *Conversation) Send(ctx context.Context, content string, files []*types.File) (*types.Turn, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	c.mu.Lock()
	c.turns = append(c.turns, types.NewUserTurn(content, files))
	messages := llm.MessagesFromTurns(c.turns)
	modelID := c.model
	c.mu.Unlock()
	return c.reply(ctx, modelID, messages)
}

// Regenerate replaces the given assistant turn, and everything after it, with a new reply
// to the user turn preceding it.
func (c *Conversation) Regenerate(ctx context.Context, turnID string) (*types.Turn, error) {
	c.mu.Lock()
	index := c.indexOf(turnID)
	if index == -1 {
		c.mu.Unlock()
		return nil, ErrTurnNotFound
	}
	if c.turns[index].Role != types.RoleAssistant || index == 0 || c.turns[index-1].Role != types.RoleUser {
		c.mu.Unlock()
		return nil, ErrNotRegenerable
	}
	c.turns = c.turns[:index]
	messages := llm.MessagesFromTurns(c.turns)
	modelID := c.model
	c.mu.Unlock()
	return c.reply(ctx, modelID, messages)
}

// RegenerateLast regenerates the last assistant turn.
func (c *Conversation) RegenerateLast(ctx context.Context) (*types.Turn, error) {
	last := c.Last(types.RoleAssistant)
	if last == nil {
		return nil, ErrTurnNotFound
	}
	return c.Regenerate(ctx, last.ID)
}

func (c *Conversation) reply(ctx context.Context, modelID string, messages []*llm.Message) (*types.Turn, error) {
	client, m := c.clients(modelID)
	start := time.Now()
	content, err := client.SendMessage(ctx, messages)
	var turn *types.Turn
	if err != nil {
		c.log.Error("sending message", "model", m.ID, "error", err)
		turn = types.NewErrorTurn()
		err = errors.Wrapf(err, "sending message to %s", m.ID)
	} else {
		c.log.Debug("received reply", "model", m.ID, "messages", len(messages), "duration", time.Since(start))
		turn = types.NewAssistantTurn(content)
	}
	c.append(turn)
	return turn, err
}

// GenerateImage appends a user turn with the prompt and then a turn carrying the generated image.
// On failure an error turn is appended and returned along with the error.
func (c *Conversation) GenerateImage(ctx context.Context, prompt string) (*types.Turn, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyMessage
	}
	c.append(types.NewUserTurn(prompt, nil))

	var err error
	var url string
	if c.images == nil {
		err = ErrNoImages
	} else {
		url, err = c.images.Generate(ctx, prompt)
	}
	if err != nil {
		c.log.Error("generating image", "error", err)
		turn := types.NewErrorTurn()
		c.append(turn)
		return turn, errors.Wrap(err, "generating image")
	}
	turn := types.NewImageTurn(url)
	c.append(turn)
	return turn, nil
}

// Edit the content of a turn.
func (c *Conversation) Edit(turnID, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	index := c.indexOf(turnID)
	if index == -1 {
		return ErrTurnNotFound
	}
	c.turns[index].Edit(content)
	return nil
}

// DeleteTurn removes a turn.
func (c *Conversation) DeleteTurn(turnID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	index := c.indexOf(turnID)
	if index == -1 {
		return ErrTurnNotFound
	}
	c.turns = append(c.turns[:index:index], c.turns[index+1:]...)
	return nil
}

// Reset starts a new, unsaved session. The model is kept.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = ""
	c.turns = nil
}

// Load replaces the active state with a stored session.
func (c *Conversation) Load(session *types.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = session.ID
	c.model = model.Parse(session.Model).ID
	c.turns = copyTurns(session.Turns)
}

// Session returns a snapshot of the conversation. The id is empty until the first save.
func (c *Conversation) Session() *types.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Conversation) snapshot() *types.Session {
	return &types.Session{
		ID:        c.id,
		Title:     types.DeriveTitle(c.turns),
		Turns:     copyTurns(c.turns),
		Timestamp: time.Now().UTC(),
		Model:     c.model,
	}
}

// Save the conversation, assigning it an id on first save. Empty conversations are not saved.
func (c *Conversation) Save() error {
	if c.store == nil {
		return errors.New("no store configured")
	}
	c.mu.Lock()
	if len(c.turns) == 0 {
		c.mu.Unlock()
		return nil
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	session := c.snapshot()
	c.mu.Unlock()

	if err := c.store.Save(session); err != nil {
		return errors.Wrapf(err, "saving session %s", session.ID)
	}
	return nil
}

// AutoSave saves the conversation every interval until the context is done.
func (c *Conversation) AutoSave(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Save(); err != nil {
				c.log.Error("auto-saving", "error", err)
			}
		}
	}
}

// Export writes the turns as indented JSON.
func (c *Conversation) Export(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c.Turns()); err != nil {
		return errors.Wrap(err, "encoding turns")
	}
	return nil
}

func (c *Conversation) append(turn *types.Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, turn)
}

func (c *Conversation) indexOf(turnID string) int {
	for i, turn := range c.turns {
		if turn.ID == turnID {
			return i
		}
	}
	return -1
}

func copyTurns(turns []*types.Turn) []*types.Turn {
	if turns == nil {
		return nil
	}
	copied := make([]*types.Turn, 0, len(turns))
	for _, turn := range turns {
		if turn == nil {
			continue
		}
		t := *turn
		if turn.Files != nil {
			t.Files = append([]*types.File(nil), turn.Files...)
		}
		copied = append(copied, &t)
	}
	return copied
}
