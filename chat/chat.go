package chat

import (
	"context"
	"io"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/malonaz/polychat/internal/cli"
	"github.com/malonaz/polychat/internal/configuration"
	"github.com/malonaz/polychat/internal/conversation"
	"github.com/malonaz/polychat/internal/debug"
	"github.com/malonaz/polychat/internal/file"
	"github.com/malonaz/polychat/internal/imagegen"
	"github.com/malonaz/polychat/internal/markdown"
	"github.com/malonaz/polychat/internal/model"
	"github.com/malonaz/polychat/internal/store"
)

// NewCmd instantiates and returns the chat command.
func NewCmd(config *configuration.Config, s *store.Store) *cobra.Command {
	var opts struct {
		Model      *model.Opts
		ChatID     string
		Files      []string
		NoAutoSave bool
	}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Back and forth chat",
		Long:  "Back and forth chat with any supported model. Type /help for commands.",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			c := conversation.New(&conversation.Opts{
				Model:   opts.Model.Model,
				Clients: model.Factory(config),
				Images:  imagegen.FromConfig(config),
				Store:   s,
				Log:     debug.GetLogger(),
			})
			if opts.ChatID != "" {
				session, err := s.Get(opts.ChatID)
				cobra.CheckErr(err)
				c.Load(session)
				if cmd.Flags().Changed("model") {
					c.SetModel(opts.Model.Model)
				}
			}

			files, err := file.AttachAll(opts.Files)
			cobra.CheckErr(err)
			renderer, err := markdown.NewRenderer(cli.Width())
			cobra.CheckErr(err)
			r := &repl{
				conversation: c,
				renderer:     renderer,
				timeout:      config.RequestTimeoutDuration(),
				copy:         clipboard.WriteAll,
				pending:      files,
			}

			id := c.ID()
			if id == "" {
				id = "new"
			}
			cli.Title("POLYCHAT [%s](%s)", c.Model(), id)
			r.printHistory()
			for _, f := range files {
				cli.FileInfo("attached %s (%s)\n", f.Name, f.Type)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if !opts.NoAutoSave {
				go c.AutoSave(ctx, config.AutoSaveIntervalDuration())
			}

			prompt, err := cli.NewPrompt()
			cobra.CheckErr(err)
			defer prompt.Close()
			for {
				text, err := prompt.Read()
				if err == io.EOF {
					break
				}
				cobra.CheckErr(err)
				if quit := r.handle(ctx, text); quit {
					break
				}
			}
			if err := c.Save(); err != nil {
				cli.Error(err)
			}
		},
	}

	opts.Model = model.GetOpts(cmd, config.Chat.DefaultModel)
	cmd.Flags().StringVar(&opts.ChatID, "id", "", "resume a saved chat")
	cmd.Flags().StringSliceVarP(&opts.Files, "file", "f", nil, "attach files to the first message")
	cmd.Flags().BoolVar(&opts.NoAutoSave, "no-autosave", false, "only save on exit and on /save")

	cmd.AddCommand(newListCmd(s))
	cmd.AddCommand(newDeleteCmd(s))
	cmd.AddCommand(newClearCmd(s))
	cmd.AddCommand(newExportCmd(s))
	return cmd
}
