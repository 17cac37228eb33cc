package pyship

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/0xa1bed0/pyship/internal/buildcontext"
	"github.com/0xa1bed0/pyship/internal/cache"
	"github.com/0xa1bed0/pyship/internal/cli"
	hostappconfig "github.com/0xa1bed0/pyship/internal/config"
	"github.com/0xa1bed0/pyship/internal/dockerclient"
	"github.com/0xa1bed0/pyship/internal/logs"
	"github.com/0xa1bed0/pyship/internal/recipe"
	"github.com/0xa1bed0/pyship/internal/state"
	"github.com/spf13/cobra"
)

// recipeOptions are the flags shared by build, run, and render. Each one
// overrides a single recipe field; unset flags fall back to context hints and
// then to defaults.
type recipeOptions struct {
	Python    string
	Workdir   string
	Manifest  string
	Entry     string
	Env       []string
	Toolchain []string
	NoHints   bool
}

func attachRecipeFlags(cmd *cobra.Command, opts *recipeOptions) {
	flags := cmd.Flags()
	flags.StringVar(&opts.Python, "python", "", "Python version for the base image (e.g. '3.10')")
	flags.StringVar(&opts.Workdir, "workdir", "", "Working directory inside the image")
	flags.StringVar(&opts.Manifest, "manifest", "", "Dependency manifest filename (default 'requirements.txt')")
	flags.StringVar(&opts.Entry, "entry", "", "Entry script recorded as the image CMD (default 'main.py')")
	flags.StringArrayVarP(&opts.Env, "env", "e", nil, "Environment baked into the image, 'KEY=VALUE' (may be repeated)")
	flags.StringSliceVar(&opts.Toolchain, "toolchain", nil, "OS toolchain packages installed before pip (default 'gcc,python3-dev')")
	flags.BoolVar(&opts.NoHints, "no-hints", false, "Ignore Python version hints found in the project")
}

// resolveRecipe builds the effective recipe for a project. Precedence for the
// Python version: --python flag, then context hints, then the default.
func resolveRecipe(bctx *buildcontext.Context, opts *recipeOptions) (*recipe.Recipe, error) {
	rec := recipe.Default()

	if opts.Python != "" {
		rec.PythonVersion = opts.Python
	} else if !opts.NoHints {
		if hint, ok := bctx.PythonVersionHint(); ok {
			logs.Infof("using python %s (project hint)", hint)
			rec.PythonVersion = hint
		}
	}

	if opts.Workdir != "" {
		rec.Workdir = opts.Workdir
	}
	if opts.Manifest != "" {
		rec.ManifestName = opts.Manifest
	}
	if opts.Entry != "" {
		rec.EntryPoint = []string{"python", opts.Entry}
	}
	if opts.Toolchain != nil {
		rec.ToolchainPackages = opts.Toolchain
	}

	if len(opts.Env) > 0 {
		rec.Env = make(map[string]string, len(opts.Env))
		for _, kv := range opts.Env {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				return nil, fmt.Errorf("invalid --env %q: want KEY=VALUE", kv)
			}
			rec.Env[k] = v
		}
	}

	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

func resolvePathArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	return os.Getwd()
}

// newOrchestrator assembles the docker client, image cache, and build history
// into a ready orchestrator. A failed history open degrades to no recording.
func newOrchestrator(ctx context.Context) (*cli.BuildOrchestrator, dockerclient.DockerClient, error) {
	dockerClient, err := dockerclient.NewDockerClient()
	if err != nil {
		return nil, nil, fmt.Errorf("docker client: %w", err)
	}

	cacheManager, err := cache.NewCacheManager(hostappconfig.ImageCacheFile())
	if err != nil {
		return nil, nil, fmt.Errorf("image cache: %w", err)
	}

	buildLog, err := state.DefaultBuildLog(ctx)
	if err != nil {
		logs.Warnf("build history unavailable: %v", err)
		buildLog = nil
	}

	return cli.NewBuildOrchestrator(dockerClient, cacheManager, buildLog), dockerClient, nil
}

func newBuildCmd() *cobra.Command {
	opts := &recipeOptions{}
	var forceRebuild bool

	cmd := &cobra.Command{
		Use:   "build [PATH]",
		Short: "Build the application image",
		Long: `Build (or reuse from cache) the container image for the given project path.

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

			orchestrator, _, err := newOrchestrator(cmd.Context())
			if err != nil {
				return err
			}

			outcome, err := orchestrator.BuildImage(cmd.Context(), bctx, rec, forceRebuild)
			if err != nil {
				return err
			}

			if outcome.Cached {
				logs.Infof("image up to date: %s", outcome.ImageID)
			} else {
				logs.Infof("image built: %s", outcome.ImageID)
			}
			fmt.Println(outcome.ImageID)
			return nil
		},
	}

	attachRecipeFlags(cmd, opts)
	cmd.Flags().BoolVar(&forceRebuild, "rebuild", false, "Force rebuild even when a cached image exists")

	return cmd
}
