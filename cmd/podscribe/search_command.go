package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podscribe/internal/fetcher"
	"podscribe/internal/logging"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search the podcast directory for feeds",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			f := fetcher.New(fetcher.OptionsFromConfig(cfg), logging.NewNop())
			results, err := f.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, results)
			}
			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No podcasts found")
				return nil
			}
			rows := make([][]string, 0, len(results))
			for _, podcast := range results {
				rows = append(rows, []string{podcast.Name, podcast.Artist, podcast.FeedURL})
			}
			fmt.Fprint(out, renderTable([]tableColumn{col("Podcast").max(titleWidth), col("Artist").max(32), col("Feed")}, rows))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Submit a feed with: podscribe submit --feed <feed-url>")
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}
