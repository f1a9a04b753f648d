package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "v0.1.0"

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show mint-engine version",
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Println("mint-engine " + version)
			return nil
		},
	}
}
