package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/himansukumarhkr/Click/internal/report"
	"github.com/himansukumarhkr/Click/internal/session"
)

var statusFormat string
var statusOpenOnly bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List capture sessions and their artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		journal, err := session.NewJournal()
		if err != nil {
			return err
		}
		records, err := journal.List()
		if err != nil {
			return err
		}
		if statusOpenOnly {
			open := records[:0]
			for _, r := range records {
				if r.Open() {
					open = append(open, r)
				}
			}
			records = open
		}

		renderer, err := report.ForFormat(statusFormat)
		if err != nil {
			return err
		}
		data, err := renderer.Render(records)
		if err != nil {
			return fmt.Errorf("render status: %w", err)
		}

		out := string(data)
		if statusFormat != "json" && cmd.OutOrStdout() == os.Stdout && term.IsTerminal(os.Stdout.Fd()) {
			out = renderMarkdown(out)
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

// renderMarkdown styles md for the terminal, falling back to the raw text.
func renderMarkdown(md string) string {
	width := 100
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 20 {
		width = w - 4
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	styled, err := r.Render(md)
	if err != nil {
		return md
	}
	return styled
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "markdown", "Output format: markdown or json")
	statusCmd.Flags().BoolVar(&statusOpenOnly, "open", false, "Only list sessions that have not ended")
	rootCmd.AddCommand(statusCmd)
}
