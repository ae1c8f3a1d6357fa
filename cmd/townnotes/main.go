package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "townnotes",
		Short:   "Town Notes - profiles and session field reports",
		Version: Version,
	}

	rootCmd.PersistentFlags().String("server", envOr("TOWNNOTES_SERVER", "http://localhost:8080"), "API base URL")
	rootCmd.PersistentFlags().String("token", os.Getenv("TOWNNOTES_TOKEN"), "Bearer token of the caller")

	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
