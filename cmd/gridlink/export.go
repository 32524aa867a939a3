package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gridlink-io/gridlink-engine/pkg/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <parent:child> [parent:child...]",
	Short: "Discover the given pairs and export mappings above the confidence threshold",
	Long: `Runs discovery for every parent:child pair, then writes the relationships
that meet the configured confidence threshold to the mapping file. The file
is stable and re-ingestible, intended to seed a future session's manual
mapping table.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		for _, pair := range args {
			parts := strings.SplitN(pair, ":", 2)
			if len(parts) != 2 {
				return fmt.Errorf("pair %q must have the form parent:child", pair)
			}
			if _, err := eng.discoverer.Discover(cmd.Context(), parts[0], parts[1]); err != nil {
				return fmt.Errorf("discover %s: %w", pair, err)
			}
		}

		threshold := eng.cfg.Export.Threshold()
		rels := eng.discoverer.DiscoveredAbove(threshold)
		for _, rel := range rels {
			eng.cache.PromoteMapping(export.MappingName(rel.ParentEntity, rel.ChildEntity), rel)
		}
		data, err := export.ExportDiscoveredMappings(rels, threshold)
		if err != nil {
			return err
		}

		path := eng.cfg.Export.Path
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write mapping file: %w", err)
		}

		fmt.Printf("Wrote %d mapping(s) at or above %q confidence to %s\n", len(rels), threshold, path)
		return nil
	},
}
