package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chat-assistant/internal/models"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [name]",
	Short: "Print a registered table schema, or list them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := models.DefaultSchemaRegistry()
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			for _, name := range registry.Names() {
				fmt.Fprintln(out, name)
			}
			return nil
		}

		schema, err := registry.Lookup(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, schema.Render())
		return nil
	},
}
