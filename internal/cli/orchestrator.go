// Package cli wires the build pipeline together: context validation, manifest
// checks, Dockerfile rendering, and the cached Docker build.
package cli

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/0xa1bed0/pyship/internal/buildcontext"
	"github.com/0xa1bed0/pyship/internal/cache"
	hostappconfig "github.com/0xa1bed0/pyship/internal/config"
	"github.com/0xa1bed0/pyship/internal/dockerclient"
	"github.com/0xa1bed0/pyship/internal/logs"
	"github.com/0xa1bed0/pyship/internal/manifest"
	"github.com/0xa1bed0/pyship/internal/pipeline"
	"github.com/0xa1bed0/pyship/internal/project"
	"github.com/0xa1bed0/pyship/internal/recipe"
	"github.com/0xa1bed0/pyship/internal/state"
)

// BuildOrchestrator runs the image build procedure as a linear pipeline and
// records the outcome in the build history.
type BuildOrchestrator struct {
	cacheManager cache.CacheManager
	dockerClient dockerclient.DockerClient
	buildLog     *state.BuildLog // nil disables history recording
}

func NewBuildOrchestrator(dockerClient dockerclient.DockerClient, cacheManager cache.CacheManager, buildLog *state.BuildLog) *BuildOrchestrator {
	return &BuildOrchestrator{
		cacheManager: cacheManager,
		dockerClient: dockerClient,
		buildLog:     buildLog,
	}
}

// BuildOutcome is what a finished (or aborted) pipeline run produced.
type BuildOutcome struct {
	ImageID string
	Cached  bool
	Results []pipeline.StepResult
}

// BuildImage validates the project, renders the Dockerfile, and resolves a
// usable image through the cache. Steps run strictly in order; the first
// failure aborts the run and the returned error names the failed step.
func (orc *BuildOrchestrator) BuildImage(ctx context.Context, bctx *buildcontext.Context, rec *recipe.Recipe, forceBuild bool) (*BuildOutcome, error) {
	var (
		man        *manifest.Manifest
		dockerFile recipe.Dockerfile
		imgID      cache.ImageID
		builtFresh bool
	)

	proj := project.ResolveProject(bctx.Root(), "")
	startedAt := time.Now()

	buildID := startedAt.UTC().Format("20060102-150405")
	if err := logs.SetFullLogPath(hostappconfig.BuildLogPath(proj.Name, buildID)); err != nil {
		logs.Warnf("full build log unavailable: %v", err)
	}

	steps := []pipeline.Step{
		{
			Name: "validate recipe",
			Run: func(ctx context.Context) error {
				rec.Normalize()
				return rec.Validate()
			},
		},
		{
			Name: "read dependency manifest",
			Run: func(ctx context.Context) error {
				var err error
				man, err = bctx.ReadManifest(rec.ManifestName)
				if err != nil {
					return err
				}
				return man.Validate()
			},
		},
		{
			Name: "verify entry script",
			Run: func(ctx context.Context) error {
				return bctx.VerifyEntryScript(rec.EntryScript())
			},
		},
		{
			Name: "render dockerfile",
			Run: func(ctx context.Context) error {
				var err error
				dockerFile, err = rec.Render()
				return err
			},
		},
		{
			Name: "resolve image",
			Run: func(ctx context.Context) error {
				var err error
				imgID, err = orc.cacheManager.ResolveImage(
					ctx,
					bctx.Root(),
					rec,
					orc.imageExists,
					func(ctx context.Context) (recipe.Dockerfile, error) {
						return dockerFile, nil
					},
					func(ctx context.Context, df recipe.Dockerfile, tag string) (cache.ImageID, error) {
						builtFresh = true
						return orc.buildImageSync(ctx, bctx, df, tag)
					},
					forceBuild,
				)
				return err
			},
		},
	}

	results, err := pipeline.NewRunner(steps).WithObserver(&stepLogger{}).Run(ctx)

	outcome := &BuildOutcome{
		ImageID: string(imgID),
		Cached:  err == nil && !builtFresh,
		Results: results,
	}

	if man != nil {
		logs.InfofSilent("manifest %s: %d requirement(s)", rec.ManifestName, len(man.Requirements))
	}

	orc.record(ctx, proj.Name, outcome, startedAt, err)

	if err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (orc *BuildOrchestrator) imageExists(ctx context.Context, imgID cache.ImageID) bool {
	return orc.dockerClient.ImageExists(ctx, string(imgID))
}

// buildImageSync archives the build context (with the rendered Dockerfile
// appended) and runs the Docker build under a tail box.
func (orc *BuildOrchestrator) buildImageSync(ctx context.Context, bctx *buildcontext.Context, df recipe.Dockerfile, tag string) (cache.ImageID, error) {
	var buf bytes.Buffer
	extra := map[string][]byte{
		dockerclient.DockerfileName: []byte(df.String()),
	}
	if err := bctx.Tar(&buf, extra); err != nil {
		return "", err
	}

	tail := logs.NewTailBox("docker build")
	defer tail.Close()
	tail.Printf("building %s (context %d bytes)", tag, buf.Len())

	builtTag, err := orc.dockerClient.BuildImage(ctx, &buf, "pyship:"+tag)
	if err != nil {
		return "", err
	}
	tail.Printf("built %s", builtTag)

	return cache.ImageID(builtTag), nil
}

// record appends the run to the build history. History failures are warnings,
// never build failures.
func (orc *BuildOrchestrator) record(ctx context.Context, projectName string, outcome *BuildOutcome, startedAt time.Time, buildErr error) {
	if orc.buildLog == nil {
		return
	}

	rec := state.BuildRecord{
		Project:   projectName,
		ImageID:   outcome.ImageID,
		Status:    state.BuildStatusOK,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	}
	if outcome.Cached {
		rec.Status = state.BuildStatusCached
	}
	if buildErr != nil {
		rec.Status = state.BuildStatusFailed
		var stepErr *pipeline.StepError
		if errors.As(buildErr, &stepErr) {
			rec.FailedStep = stepErr.Step
		}
	}

	if err := orc.buildLog.Insert(ctx, rec); err != nil {
		logs.Warnf("could not record build history: %v", err)
	}
}

// stepLogger reports pipeline progress through the logging facade.
type stepLogger struct{}

func (s *stepLogger) StepStarted(name string) {
	logs.Infof("step %s ...", name)
}

func (s *stepLogger) StepFinished(res pipeline.StepResult) {
	switch res.Status {
	case pipeline.StatusOK:
		logs.Infof("step %s ok (%s)", res.Name, res.Duration.Round(time.Millisecond))
	case pipeline.StatusFailed:
		logs.Errorf("step %s failed: %v", res.Name, res.Err)
	default:
		logs.InfofSilent("step %s %s", res.Name, res.Status)
	}
}
