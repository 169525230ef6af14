package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/csams/mdview/internal/markdown"
	"github.com/csams/mdview/internal/search"
)

func newRunsCmd() *cobra.Command {
	var text bool
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List styled runs in output order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if text {
				_, err := fmt.Fprint(out, app.Result.Text)
				return err
			}
			offset := 0
			for _, r := range app.Result.Runs {
				fmt.Fprintf(out, "%6d  %-32s %q\n", offset, r.Style, r.Text)
				offset += utf8.RuneCountInString(r.Text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&text, "text", false, "print the concatenated text instead")
	return cmd
}

func newLinksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "links",
		Short: "List hyperlink spans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			s := search.NewSearchState()
			for _, m := range s.MatchLinks(app.Result) {
				fmt.Fprintf(cmd.OutOrStdout(), "[%d,%d)  %s  %q\n", m.Link.Start, m.Link.End, m.Link.URL, m.Label)
			}
			return nil
		},
	}
}

func newImagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "List inline images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			for _, img := range app.Result.Images {
				fmt.Fprintf(cmd.OutOrStdout(), "%6d  %dx%d  %s  %q\n", img.Offset, img.Width, img.Height, img.URL, img.Alt)
			}
			return nil
		},
	}
}

func newTapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tap <offset>",
		Short: "Resolve the link under a character offset of the rendered text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			offset, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid offset %q: %w", args[0], err)
			}
			link, ok := app.Result.LinkAt(offset)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "no link at offset %d\n", offset)
				return nil
			}
			log.Printf("tapped link %s at offset %d", link.URL, offset)
			fmt.Fprintln(cmd.OutOrStdout(), link.URL)
			return nil
		},
	}
}

func newFindCmd() *cobra.Command {
	var (
		links         bool
		minScore      int
		caseSensitive bool
	)
	cmd := &cobra.Command{
		Use:   "find <query>",
		Short: "Fuzzy-find text or links in the rendered document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			s := search.NewSearchState()
			s.SetQuery(args[0])
			s.SetMinScore(minScore)
			s.SetCaseSensitive(caseSensitive)
			out := cmd.OutOrStdout()

			if links {
				matches := s.MatchLinks(app.Result)
				if len(matches) == 0 {
					fmt.Fprintln(out, "no matching links")
				}
				for _, m := range matches {
					fmt.Fprintf(out, "%4d  %-5s  %s  %q\n", m.Score, m.Field, m.Link.URL, m.Label)
				}
				return nil
			}

			ok, result := s.MatchText(app.Result)
			if !ok {
				fmt.Fprintln(out, "no match")
				return nil
			}
			fmt.Fprintf(out, "score %d\n", result.Score)
			for _, r := range search.Highlight(result.Positions, markdown.Style{}) {
				fmt.Fprintf(out, "[%d,%d)  source byte %d\n", r.Start, r.End, app.Result.PositionMap.ConvertedToOriginal(r.Start))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&links, "links", false, "match link labels and URLs instead of the text")
	cmd.Flags().IntVar(&minScore, "min-score", search.ScoreThresholdNormal, "minimum fzf score to accept")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "match case exactly")
	return cmd
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(app.Config, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
