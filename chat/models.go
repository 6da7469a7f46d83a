package chat

import (
	"github.com/spf13/cobra"

	"github.com/malonaz/polychat/internal/cli"
	"github.com/malonaz/polychat/internal/configuration"
	"github.com/malonaz/polychat/internal/model"
)

// NewModelsCmd instantiates and returns the models command.
func NewModelsCmd(config *configuration.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the supported models",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			cli.Title("POLYCHAT MODELS")
			for _, m := range model.List() {
				marker := " "
				if m.ID == model.Parse(config.Chat.DefaultModel).ID {
					marker = "*"
				}
				cli.AIOutput("%s %-26s %-10s %s\n", marker, m.ID, m.Provider, m.Description)
				for _, alias := range m.Aliases {
					cli.UserInput("    alias %s\n", alias)
				}
			}
		},
	}
}
