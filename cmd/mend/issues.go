package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codemend/internal/source"
)

var issuesSource string

// issuesCmd lists what the sources currently report
var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "List issues reported by the configured sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg, logger)
		sources, err := a.sources(issuesSource)
		if err != nil {
			return err
		}

		issues, err := source.NewMulti(sources...).ListIssues(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, is := range issues {
			fmt.Fprintf(out, "%s %s\n", is.String(), mutedStyle.Render("("+is.Type()+")"))
		}
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%d issues", len(issues))))
		return nil
	},
}

func init() {
	issuesCmd.Flags().StringVar(&issuesSource, "source", "", "Only use the named source")
}
