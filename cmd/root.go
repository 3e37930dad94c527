package cmd

import (
	"github.com/carousell/ct-go/pkg/logger/log"
	"github.com/spf13/cobra"

	"github.com/Ahnaf-Tariq/echochat-server/internal/app"
	"github.com/Ahnaf-Tariq/echochat-server/internal/server"
)

var rootCmd = &cobra.Command{
	Use:           "echochat-server",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		app.Invoke(
			server.StartServer,
		).Run()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
