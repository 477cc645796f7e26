package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "slack-ai-gateway",
		Short:        "Slack から AI ワーカーへの受付ゲートウェイ",
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(extractCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
