package pyship

import (
	"context"
	"fmt"
	"os"

	"github.com/0xa1bed0/pyship/internal/buildcontext"
	"github.com/0xa1bed0/pyship/internal/logs"
	"github.com/0xa1bed0/pyship/internal/project"
	"github.com/0xa1bed0/pyship/internal/ui"
	"github.com/moby/term"
	"github.com/spf13/cobra"
)

type runOptions struct {
	Recipe       recipeOptions
	RunEnv       []string
	ForceRebuild bool
}

// attachRunCmdFlags attaches the "run" cmd flags to the given command and
// injects a runOptions instance into the command's context via PreRun.
func attachRunCmdFlags(cmd *cobra.Command) {
	opts := &runOptions{}

	attachRecipeFlags(cmd, &opts.Recipe)

	flags := cmd.Flags()
	flags.StringArrayVar(&opts.RunEnv, "run-env", nil, "Extra environment for this run only, 'KEY=VALUE' (may be repeated)")
	flags.BoolVar(&opts.ForceRebuild, "rebuild", false, "Force rebuild of the image before running")

	// Store opts in command context before running
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		cmd.SetContext(withRunOptions(cmd.Context(), opts))
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [PATH]",
		Short: "Build the image if needed and launch the application",
		Long: `Build (if needed) the application image and run its recorded entry point.

If PATH is omitted, the current working directory is used.
The process exit code is the application's exit code.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCmdRunE,
	}

	attachRunCmdFlags(cmd)

	return cmd
}

// runCmdRunE is a separate function so root can reuse it (default command)
func runCmdRunE(cmd *cobra.Command, args []string) error {
	opts := getRunOptions(cmd.Context())
	if opts == nil {
		// Safe fallback for root or tests.
		opts = &runOptions{}
	}

	pathArg, err := resolvePathArg(args)
	if err != nil {
		return err
	}

	bctx, err := buildcontext.New(pathArg)
	if err != nil {
		return err
	}

	rec, err := resolveRecipe(bctx, &opts.Recipe)
	if err != nil {
		return err
	}

	orchestrator, dockerClient, err := newOrchestrator(cmd.Context())
	if err != nil {
		return err
	}

	outcome, err := orchestrator.BuildImage(cmd.Context(), bctx, rec, opts.ForceRebuild)
	if err != nil {
		return err
	}

	if outcome.Cached {
		rebuild, err := promptRebuildCached(outcome.ImageID)
		if err != nil {
			return err
		}
		if rebuild {
			outcome, err = orchestrator.BuildImage(cmd.Context(), bctx, rec, true)
			if err != nil {
				return err
			}
		}
	}

	proj := project.ResolveProject(bctx.Root(), outcome.ImageID)

	logs.Infof("launching %v ...", rec.EntryPoint)
	logs.Close()

	exitCode, err := dockerClient.RunContainer(context.Background(), proj, opts.RunEnv)
	if err != nil {
		return err
	}

	os.Exit(int(exitCode))
	return nil
}

// promptRebuildCached offers a choice between the cached image and a forced
// rebuild. Non-interactive runs keep the cached image without asking.
func promptRebuildCached(imageID string) (bool, error) {
	if _, isTerm := term.GetFdInfo(os.Stdin); !isTerm {
		return false, nil
	}

	runCached := logs.NewSelectOption("run the cached image", "run")
	rebuild := logs.NewSelectOption("rebuild the image first", "rebuild")

	answer, err := logs.PromptSelectOne(
		fmt.Sprintf("Image %s is up to date. What now?", imageID),
		[]ui.SelectOption{runCached, rebuild},
	)
	if err != nil {
		return false, err
	}
	return answer.OptionID() == "rebuild", nil
}

type ctxKeyRunOptions struct{}

func withRunOptions(ctx context.Context, opts *runOptions) context.Context {
	return context.WithValue(ctx, ctxKeyRunOptions{}, opts)
}

func getRunOptions(ctx context.Context) *runOptions {
	v := ctx.Value(ctxKeyRunOptions{})
	if v == nil {
		return nil
	}
	return v.(*runOptions)
}
