package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gridlink-io/gridlink-engine/pkg/analyzer"
	"github.com/gridlink-io/gridlink-engine/pkg/dataverse"
	"github.com/gridlink-io/gridlink-engine/pkg/query"
)

var (
	queryParentID string
	querySelect   []string
	queryTop      int
	queryViewID   string
	queryExecute  bool
)

var queryCmd = &cobra.Command{
	Use:   "query <parent-entity> <child-entity>",
	Short: "Synthesize (and optionally execute) the child list query for a parent record",
	Long: `Discovers the relationship for the pair, builds the filter and full list
query, validates it, and prints it. With --execute the query is run and a
failure is fed through the error analyzer.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, child := args[0], args[1]

		eng, err := newEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		rel, err := eng.discoverer.Discover(cmd.Context(), parent, child)
		if err != nil {
			return fmt.Errorf("discovery failed: %w", err)
		}
		if rel == nil {
			return fmt.Errorf("no usable entity names supplied")
		}

		opts := query.Options{
			Select: querySelect,
			Filter: query.BuildFilter(rel.LookupColumn, queryParentID),
			Top:    queryTop,
			ViewID: queryViewID,
		}
		listQuery, err := eng.synthesizer.BuildListQuery(rel.ChildEntity, opts)
		if err != nil {
			return err
		}

		if result := query.ValidateQuery(listQuery); !result.IsValid {
			return fmt.Errorf("synthesized query failed validation: %s", strings.Join(result.Errors, "; "))
		}

		fmt.Printf("Filter: %s\n", opts.Filter)
		fmt.Printf("Query:  %s\n", listQuery)
		fmt.Printf("Confidence: %s (source: %s)\n", rel.Confidence, rel.Source)

		if !queryExecute {
			return nil
		}

		page, err := eng.client.ListRecords(cmd.Context(), listQuery)
		if err != nil {
			var reqErr *dataverse.RequestError
			if errors.As(err, &reqErr) {
				a := eng.analyzer.AnalyzeWithDiscovery(cmd.Context(), analyzer.Response{
					StatusCode: reqErr.StatusCode,
					Status:     reqErr.Status,
					Header:     reqErr.Header,
					Body:       reqErr.Body,
				}, parent, child)

				fmt.Printf("Query failed: %s (kind: %s)\n", a.Status, a.Kind)
				for _, s := range a.Suggestions {
					fmt.Printf("  - %s\n", s)
				}
				return fmt.Errorf("list query failed")
			}

			a := analyzer.AnalyzeTransportError(err)
			for _, s := range a.Suggestions {
				fmt.Printf("  - %s\n", s)
			}
			return err
		}

		fmt.Printf("Returned %d record(s)\n", len(page.Records))
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryParentID, "parent-id", "", "parent record id (GUID, unquoted in the filter)")
	queryCmd.Flags().StringSliceVar(&querySelect, "select", nil, "columns for the $select clause")
	queryCmd.Flags().IntVar(&queryTop, "top", 0, "page size; 0 means no $top clause")
	queryCmd.Flags().StringVar(&queryViewID, "view", "", "saved-view id to reference")
	queryCmd.Flags().BoolVar(&queryExecute, "execute", false, "execute the query against the Web API")
	_ = queryCmd.MarkFlagRequired("parent-id")
}
