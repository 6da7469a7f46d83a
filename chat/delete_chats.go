package chat

import (
	"github.com/spf13/cobra"

	"github.com/malonaz/polychat/internal/cli"
	"github.com/malonaz/polychat/internal/store"
)

// newDeleteCmd instantiates and returns the chat delete command.
func newDeleteCmd(s *store.Store) *cobra.Command {
	var opts struct {
		Yes bool
	}
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved chat",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id := args[0]
			if !opts.Yes && !cli.QueryUser("Delete chat "+id+"?") {
				return
			}
			cobra.CheckErr(s.Delete(id))
			cli.Info("deleted chat %s\n", id)
		},
	}
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// newClearCmd instantiates and returns the chat clear command.
func newClearCmd(s *store.Store) *cobra.Command {
	var opts struct {
		Yes bool
	}
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved chat",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			if !opts.Yes && !cli.QueryUser("Delete all saved chats?") {
				return
			}
			cobra.CheckErr(s.Clear())
			cli.Info("deleted all chats\n")
		},
	}
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
