package pyship

import (
	"fmt"
	"os"
	"time"

	"github.com/0xa1bed0/pyship/internal/state"
	"github.com/0xa1bed0/pyship/internal/ui"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	var pruneDays int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent builds",
		Long:  `List recent image builds: project, image, status, and timing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			buildLog, err := state.DefaultBuildLog(cmd.Context())
			if err != nil {
				return err
			}

			if pruneDays > 0 {
				cutoff := time.Now().AddDate(0, 0, -pruneDays)
				n, err := buildLog.PruneBefore(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Printf("pruned %d record(s) older than %d day(s)\n", n, pruneDays)
			}

			records, err := buildLog.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no builds recorded")
				return nil
			}

			table := ui.NewTable(
				ui.Column{Header: "WHEN"},
				ui.Column{Header: "PROJECT", MaxWidth: 40},
				ui.Column{Header: "STATUS"},
				ui.Column{Header: "STEP", MaxWidth: 30},
				ui.Column{Header: "DURATION", Align: ui.AlignRight},
				ui.Column{Header: "IMAGE", MaxWidth: 40},
			)
			for _, rec := range records {
				table.AddRow(
					rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
					rec.Project,
					string(rec.Status),
					rec.FailedStep,
					rec.Duration.Round(time.Millisecond).String(),
					rec.ImageID,
				)
			}

			return table.Render(os.Stdout)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of builds to show")
	cmd.Flags().IntVar(&pruneDays, "prune", 0, "Also delete records older than N days")

	return cmd
}
