// Package cli wires configuration, stores and the HTTP server into the
// jobbstart command.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root jobbstart command.
func NewRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "jobbstart",
		Short: "Job application generator with a one-time free trial",
		Long: `jobbstart serves the job application generator API.

Anonymous visitors get one free application per IP address; the counter
lives in Redis (or a local bbolt file) for a year after the last use.
Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "load variables from this file instead of ./.env")

	root.AddCommand(
		newServeCmd(&envFile),
		newTrialCmd(&envFile),
	)
	return root
}
