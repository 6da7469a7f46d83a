package chat

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/malonaz/polychat/internal/cli"
	"github.com/malonaz/polychat/internal/conversation"
	"github.com/malonaz/polychat/internal/file"
	"github.com/malonaz/polychat/internal/markdown"
	"github.com/malonaz/polychat/internal/model"
	"github.com/malonaz/polychat/internal/types"
)

const help = `/image <prompt>  generate an image
/regen           regenerate the last reply
/edit <text>     replace the last message and regenerate its reply
/model [id]      show or switch the model
/attach <path>   attach a file to the next message
/save            save the chat
/new             start a new chat
/copy [code]     copy the last reply, or its last code block, to the clipboard
/export <path>   export the chat as JSON
/quit            save and exit
`

type repl struct {
	conversation *conversation.Conversation
	renderer     *markdown.Renderer
	timeout      time.Duration
	copy         func(string) error
	// Files attached to the next message.
	pending []*types.File
}

// parseCommand splits a slash command into its name and argument.
func parseCommand(input string) (string, string, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", "", false
	}
	name, arg, _ := strings.Cut(input[1:], " ")
	return strings.ToLower(name), strings.TrimSpace(arg), true
}

// handle an input line, returning true when the user wants to quit.
func (r *repl) handle(ctx context.Context, input string) bool {
	name, arg, ok := parseCommand(input)
	if !ok {
		if strings.TrimSpace(input) != "" {
			r.send(ctx, input)
		}
		return false
	}

	var err error
	switch name {
	case "quit", "exit":
		return true
	case "help":
		cli.UserCommand(help)
	case "image":
		err = r.image(ctx, arg)
	case "regen":
		err = r.regenerate(ctx)
	case "edit":
		err = r.edit(ctx, arg)
	case "model":
		err = r.model(arg)
	case "attach":
		err = r.attach(arg)
	case "save":
		err = r.save()
	case "new":
		// A failed save keeps the chat so that nothing is lost.
		if err = r.save(); err != nil {
			break
		}
		r.conversation.Reset()
		r.pending = nil
		cli.Title("POLYCHAT [%s](new)", r.conversation.Model())
	case "copy":
		err = r.copyLastReply(arg)
	case "export":
		err = r.export(arg)
	default:
		err = errors.Errorf("unknown command /%s, type /help", name)
	}
	if err != nil {
		cli.Error(err)
	}
	return false
}

func (r *repl) send(ctx context.Context, text string) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	files := r.pending
	r.pending = nil
	cli.AIOutput("%s: ", r.conversation.Model())
	turn, err := r.conversation.Send(ctx, text, files)
	r.printReply(turn, err)
}

func (r *repl) image(ctx context.Context, prompt string) error {
	if prompt == "" {
		return errors.New("usage: /image <prompt>")
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	cli.AIOutput("generating image...\n")
	turn, err := r.conversation.GenerateImage(ctx, prompt)
	r.printReply(turn, err)
	return nil
}

func (r *repl) regenerate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	cli.AIOutput("%s: ", r.conversation.Model())
	turn, err := r.conversation.RegenerateLast(ctx)
	if turn == nil {
		cli.AIOutput("\n")
		return err
	}
	r.printReply(turn, err)
	return nil
}

func (r *repl) edit(ctx context.Context, text string) error {
	if text == "" {
		return errors.New("usage: /edit <text>")
	}
	last := r.conversation.Last(types.RoleUser)
	if last == nil {
		return errors.New("nothing to edit")
	}
	if err := r.conversation.Edit(last.ID, text); err != nil {
		return err
	}
	turns := r.conversation.Turns()
	for i, turn := range turns {
		if turn.ID == last.ID && i+1 < len(turns) && turns[i+1].Role == types.RoleAssistant {
			return r.regenerate(ctx)
		}
	}
	cli.Info("message edited\n")
	return nil
}

func (r *repl) model(id string) error {
	if id == "" {
		var ids []string
		for _, m := range model.List() {
			ids = append(ids, m.ID)
		}
		selected, err := cli.SelectOption("Model", ids, r.conversation.Model())
		if err != nil {
			return err
		}
		id = selected
	} else if _, ok := model.Lookup(id); !ok {
		cli.Info("unknown model %s, using %s\n", id, model.DefaultID)
	}
	cli.Info("switched to %s\n", r.conversation.SetModel(id))
	return nil
}

func (r *repl) attach(path string) error {
	if path == "" {
		return errors.New("usage: /attach <path>")
	}
	f, err := file.Attach(path)
	if err != nil {
		return err
	}
	r.pending = append(r.pending, f)
	cli.FileInfo("attached %s (%s, %d bytes)\n", f.Name, f.Type, f.Size)
	return nil
}

func (r *repl) save() error {
	if err := r.conversation.Save(); err != nil {
		return err
	}
	if id := r.conversation.ID(); id != "" {
		cli.Info("saved chat %s\n", id)
	}
	return nil
}

func (r *repl) copyLastReply(arg string) error {
	last := r.conversation.Last(types.RoleAssistant)
	if last == nil {
		return errors.New("nothing to copy")
	}
	content := last.Content
	if last.ImageURL != "" {
		content = last.ImageURL
	}
	if arg == "code" {
		block := markdown.LastCodeBlock(last.Content)
		if block == nil {
			return errors.New("the last reply has no code block")
		}
		content = block.Code
	}
	if err := r.copy(content); err != nil {
		return errors.Wrap(err, "copying to clipboard")
	}
	cli.Info("copied to clipboard\n")
	return nil
}

func (r *repl) export(path string) error {
	if path == "" {
		return errors.New("usage: /export <path>")
	}
	path, err := file.ExpandPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating export file")
	}
	defer f.Close()
	if err := r.conversation.Export(f); err != nil {
		return err
	}
	cli.Info("exported to %s\n", path)
	return nil
}

func (r *repl) printHistory() {
	for i, turn := range r.conversation.Turns() {
		if i > 0 {
			cli.Separator()
		}
		if turn.Role == types.RoleUser {
			cli.UserInput("> %s\n", turn.Content)
			continue
		}
		r.printTurn(turn)
	}
}

func (r *repl) printReply(turn *types.Turn, err error) {
	if turn != nil {
		r.printTurn(turn)
	}
	if err != nil {
		cli.Error(err)
	}
}

func (r *repl) printTurn(turn *types.Turn) {
	switch {
	case turn.Error:
		cli.AIOutput("%s\n", turn.Content)
	case turn.ImageURL != "":
		cli.AIOutput("%s %s\n", turn.Content, turn.ImageURL)
	default:
		cli.AIOutput("\n%s\n", r.renderer.Render(turn.Content))
	}
}
