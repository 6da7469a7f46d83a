package chat

import (
	"github.com/spf13/cobra"

	"github.com/malonaz/polychat/internal/cli"
	"github.com/malonaz/polychat/internal/store"
)

// newListCmd instantiates and returns the chat list command.
func newListCmd(s *store.Store) *cobra.Command {
	var opts struct {
		PageSize int
	}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved chats, most recent first",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			cli.Title("POLYCHAT CHAT LIST")
			sessions := s.List()
			if len(sessions) == 0 {
				cli.Info("no saved chats\n")
				return
			}
			for i, session := range sessions {
				if opts.PageSize > 0 && i == opts.PageSize {
					break
				}
				cli.AIOutput("chat (%s) - %s [%s]\n", session.ID, session.Timestamp.Local().Format("2006-01-02 15:04"), session.Model)
				cli.UserInput("> %s\n", session.Title)
			}
		},
	}

	cmd.Flags().IntVarP(&opts.PageSize, "page-size", "p", store.DefaultMaxSessions, "Page size")
	return cmd
}
