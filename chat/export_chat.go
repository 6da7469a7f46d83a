package chat

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/malonaz/polychat/internal/conversation"
	"github.com/malonaz/polychat/internal/file"
	"github.com/malonaz/polychat/internal/store"
)

// newExportCmd instantiates and returns the chat export command.
func newExportCmd(s *store.Store) *cobra.Command {
	var opts struct {
		Output string
	}
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export the turns of a saved chat as JSON",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cobra.CheckErr(exportSession(s, args[0], opts.Output, cmd.OutOrStdout()))
		},
	}
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file, stdout by default")
	return cmd
}

func exportSession(s *store.Store, id, output string, stdout io.Writer) error {
	session, err := s.Get(id)
	if err != nil {
		return err
	}
	c := conversation.New(&conversation.Opts{})
	c.Load(session)
	if output == "" {
		return c.Export(stdout)
	}
	path, err := file.ExpandPath(output)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating export file")
	}
	defer f.Close()
	return c.Export(f)
}
