package pyship

import (
	"fmt"

	"github.com/0xa1bed0/pyship/internal/buildcontext"
	"github.com/spf13/cobra"
)

func newRenderCmd() *cobra.Command {
	opts := &recipeOptions{}

	cmd := &cobra.Command{
		Use:   "render [PATH]",
		Short: "Print the Dockerfile that build would use",
		Long: `Render the Dockerfile for the given project path without touching Docker.

If PATH is omitted, the current working directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pathArg, err := resolvePathArg(args)
			if err != nil {
				return err
			}

			bctx, err := buildcontext.New(pathArg)
			if err != nil {
				return err
			}

			rec, err := resolveRecipe(bctx, opts)
			if err != nil {
				return err
			}

			df, err := rec.Render()
			if err != nil {
				return err
			}

			fmt.Print(df.String())
			return nil
		},
	}

	attachRecipeFlags(cmd, opts)

	return cmd
}
