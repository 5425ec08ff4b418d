package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "appcourier",
	Short: "Conversational app download broker",
	Long: `appcourier bridges a chat gateway and app mirror sites: users send an
app name in plain text, pick from the search results via poll or numbered
reply, and receive the installable package back in the chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server and delivery broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config.yaml")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	// .env is optional, real config comes from the yaml file and env vars
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
