package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardcast/internal/history"
	"cardcast/internal/textutil"
)

func newHistoryCommand(cmdCtx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.Paths.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				status := run.Status
				if run.Status == history.StatusFailed && run.ErrorMessage != "" {
					status = fmt.Sprintf("%s: %s", run.Status, run.ErrorMessage)
				}
				rows = append(rows, []string{
					run.StartedAt.Local().Format("2006-01-02 15:04"),
					textutil.TitleCase(run.DeckTitle),
					fmt.Sprintf("%d", run.Cards),
					fmt.Sprintf("%d/%d", run.AudioBuilt, run.AudioBuilt+run.AudioCached),
					fmt.Sprintf("%.0fs", run.Duration),
					status,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Deck", "Cards", "Synthesized", "Length", "Status"},
				rows,
				2, 3, 4,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to display")
	return cmd
}
