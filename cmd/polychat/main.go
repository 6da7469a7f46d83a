package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/malonaz/polychat/chat"
	"github.com/malonaz/polychat/internal/configuration"
	"github.com/malonaz/polychat/internal/debug"
	"github.com/malonaz/polychat/internal/store"
	"github.com/malonaz/polychat/server"
)

const configFilepath = "~/.config/polychat/config.json"

var rootCmd = &cobra.Command{
	Use:     "polychat",
	Short:   "Chat with OpenAI, Gemini, DeepSeek and Claude models from one place",
	Version: "1.0",
}

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	config, err := configuration.Parse(configFilepath)
	if err != nil {
		panic(err)
	}
	debug.SetPath(config.DebugLog)

	s, err := store.Open(config.Store, debug.GetLogger())
	if err != nil {
		panic(err)
	}
	defer s.Close()

	rootCmd.AddCommand(chat.NewCmd(config, s))
	rootCmd.AddCommand(chat.NewModelsCmd(config))
	rootCmd.AddCommand(chat.NewImageCmd(config))
	rootCmd.AddCommand(server.NewServeCmd(config, s))
	rootCmd.Execute()
}
