package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var apiURL, apiKey string
	var client *Client

	root := &cobra.Command{
		Use:   "uptimectl",
		Short: "Operate an uptimewatch instance over its HTTP API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			client = NewClient(apiURL, apiKey)
		},
		SilenceUsage: true,
	}

	defaultURL := os.Getenv("API_BASE")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&apiURL, "api", defaultURL, "uptimewatch API URL")
	root.PersistentFlags().StringVar(&apiKey, "key", os.Getenv("UPTIME_API_KEY"), "API key (admin key for write commands)")

	get := func() *Client { return client }
	root.AddCommand(
		statusCmd(get),
		checkCmd(get),
		addCmd(get),
		removeCmd(get),
		historyCmd(get),
		notifyCmd(get),
	)
	return root
}
