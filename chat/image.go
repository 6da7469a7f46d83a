package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/malonaz/polychat/internal/configuration"
	"github.com/malonaz/polychat/internal/imagegen"
)

// NewImageCmd instantiates and returns the image command.
func NewImageCmd(config *configuration.Config) *cobra.Command {
	var opts struct {
		Preset string
	}
	cmd := &cobra.Command{
		Use:   "image <prompt>",
		Short: "Generate an image and print its url",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if opts.Preset != "" {
				config.Image.Model = opts.Preset
			}
			ctx, cancel := context.WithTimeout(context.Background(), config.RequestTimeoutDuration())
			defer cancel()
			url, err := imagegen.FromConfig(config).Generate(ctx, strings.Join(args, " "))
			cobra.CheckErr(err)
			fmt.Fprintln(cmd.OutOrStdout(), url)
		},
	}
	cmd.Flags().StringVarP(&opts.Preset, "preset", "p", "", "sdxl or hidream, defaults to the configured one")
	return cmd
}
