package cmd

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "novaai",
	Short: "NovaAI backend: persona-driven chat and video generation over Gemini",
	Long: `NovaAI proxies a browser front end to the Google Gemini API: streamed
text completion per persona, asynchronous Veo video synthesis, session
storage, an activity log, and a credential-gated admin surface.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}
