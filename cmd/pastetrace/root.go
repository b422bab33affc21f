// Package main provides the entry point for the pastetrace CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pastetrace.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pastetrace",
		Short: "Credential leak discovery on paste sites",
		Long: `pastetrace discovers credential leaks targeting an organizational domain.

It analyzes paste-site content, scores how strongly each paste relates to
the target domain, extracts exposed email addresses and credential
patterns, and reports the findings as JSON or Markdown.

Run one-shot discovery with "scan", or start the HTTP API with "serve".`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
