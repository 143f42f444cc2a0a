package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func Execute() error {
	_ = godotenv.Load()
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bookingctl",
		Short:         "Chat with the pet-care booking assistant from the terminal",
		Long:          "bookingctl opens a booking conversation against the workflow webhook and renders its selection and scheduling panels as numbered prompts.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.AddCommand(newVersionCmd(), newChatCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}
