package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <entity> [entity...]",
	Short: "Resolve and print entity metadata (lookup attributes and targets)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		resolved, err := eng.resolver.ResolveMany(cmd.Context(), args)
		if err != nil {
			return fmt.Errorf("resolve entities: %w", err)
		}

		for _, name := range args {
			meta, ok := resolved[name]
			if !ok {
				fmt.Printf("%s: not resolved (invalid name, missing entity, or metadata call failed)\n\n", name)
				continue
			}

			fmt.Printf("%s (%q)\n", meta.LogicalName, meta.DisplayName)
			fmt.Printf("  collection:  %s\n", meta.EntitySetName)
			fmt.Printf("  primary id:  %s\n", meta.PrimaryIDAttribute)
			if len(meta.LookupAttributes) == 0 {
				fmt.Println("  lookups:     none")
			}
			for _, attr := range meta.LookupAttributes {
				targets := strings.Join(attr.Targets, ", ")
				if targets == "" {
					targets = "(targets unresolved)"
				}
				fmt.Printf("  lookup:      %s -> %s\n", attr.LookupFieldName, targets)
			}
			fmt.Println()
		}
		return nil
	},
}
