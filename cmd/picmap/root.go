package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/picmap/internal/config"
	"github.com/kailas-cloud/picmap/internal/version"
)

func newRootCmd() *cobra.Command {
	var env string

	root := &cobra.Command{
		Use:   "picmap",
		Short: "Faceted map search over constituents and their addresses",
		Long: `picmap serves faceted search over a parent/child Elasticsearch index of
constituents and their addresses.

  picmap serve    Start the HTTP API (default)
  picmap seed     Store facet vocabularies and precomputed base data`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), env)
		},
	}
	root.PersistentFlags().StringVar(&env, "env", config.GetEnv(),
		"config environment, reads config/<env>.yaml")

	root.AddCommand(
		newServeCmd(&env),
		newSeedCmd(&env),
		newVersionCmd(),
	)
	return root
}

func newServeCmd(env *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *env)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "picmap %s\n", version.String())
		},
	}
}
