package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config file and its descriptors",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, doc, err := loadConfig()
		if err != nil {
			return err
		}
		if err := doc.Validate(); err != nil {
			return fmt.Errorf("invalid configuration:\n%w", err)
		}
		ds, _ := doc.DescriptorSet()
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid (%d descriptors)\n", len(ds))
		return nil
	},
}
