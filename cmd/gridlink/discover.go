package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var discoverJSON bool

var discoverCmd = &cobra.Command{
	Use:   "discover <parent-entity> <child-entity>",
	Short: "Discover the lookup column linking a child entity to a parent",
	Long: `Runs the ordered discovery chain (direct metadata, reverse lookup,
relationship descriptors, pattern guess) for the given entity pair and
prints the best relationship with its confidence tag.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		rel, err := eng.discoverer.Discover(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("discovery failed: %w", err)
		}
		if rel == nil {
			return fmt.Errorf("no usable entity names supplied")
		}

		if discoverJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rel)
		}

		fmt.Printf("Lookup column: %s\n", rel.LookupColumn)
		fmt.Printf("Confidence:    %s\n", rel.Confidence)
		fmt.Printf("Source:        %s\n", rel.Source)
		if rel.DisplayName != "" {
			fmt.Printf("Display name:  %s\n", rel.DisplayName)
		}
		if rel.ParentEntity != args[0] || rel.ChildEntity != args[1] {
			fmt.Printf("Note: orientation corrected to %s -> %s\n", rel.ParentEntity, rel.ChildEntity)
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverJSON, "json", false, "emit the relationship as JSON")
}
