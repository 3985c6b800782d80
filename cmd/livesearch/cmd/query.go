package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/wesm/livesearch/internal/search"
)

var queryJSON bool

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Run a single lookup against a search endpoint",
	Long: `Send one query to a livesearch endpoint and print the results.

Examples:
  livesearch query batman
  livesearch query --url https://search.example.com "dark knight"
  livesearch query --json zurich`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applySearchFlags(cmd, &cfg.Search)

		text := strings.Join(args, " ")
		client, err := newSearchClient(cfg.Search, logger)
		if err != nil {
			return err
		}

		items, err := client.Do(cmd.Context(), text)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if queryJSON {
			return writeItemsJSON(out, items)
		}
		if len(items) == 0 {
			fmt.Fprintln(out, "No results.")
			return nil
		}
		return writeItemsTable(out, items)
	},
}

// writeItemsTable prints a sequence number and every field of the first item.
func writeItemsTable(w io.Writer, items []search.Item) error {
	var names []string
	for _, f := range items[0].Fields {
		names = append(names, f.Name)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "#\t%s\n", strings.ToUpper(strings.Join(names, "\t")))
	for i, it := range items {
		row := make([]string, len(names))
		for j, name := range names {
			row[j], _ = it.Get(name)
		}
		fmt.Fprintf(tw, "%d\t%s\n", i+1, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nShowing %d results\n", len(items))
	return nil
}

// writeItemsJSON prints items as an array of objects, fields in order.
func writeItemsJSON(w io.Writer, items []search.Item) error {
	var b strings.Builder
	b.WriteString("[")
	for i, it := range items {
		if i > 0 {
			b.WriteString(",")
		}
		id, err := json.Marshal(it.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "\n  {\"id\": %s", id)
		for _, f := range it.Fields {
			key, err := json.Marshal(f.Name)
			if err != nil {
				return err
			}
			val, err := json.Marshal(f.Value)
			if err != nil {
				return err
			}
			fmt.Fprintf(&b, ", %s: %s", key, val)
		}
		b.WriteString("}")
	}
	if len(items) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("]\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func init() {
	addSearchFlags(queryCmd)
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(queryCmd)
}
