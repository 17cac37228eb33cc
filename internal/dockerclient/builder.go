package dockerclient

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/build"
	sdkimage "github.com/docker/go-sdk/image"
)

// DockerfileName is the in-archive name of the generated Dockerfile. It is
// appended last to the context tar so it wins over any Dockerfile on disk.
const DockerfileName = "Dockerfile"

type DockerImageBuilder interface {
	BuildImage(ctx context.Context, contextTar io.Reader, tag string) (string, error)
}

// BuildImage runs a Docker build with the given context archive. The archive
// must already contain DockerfileName at its root.
func (dc *dockerClient) BuildImage(ctx context.Context, contextTar io.Reader, tag string) (string, error) {
	buildTag, err := sdkimage.Build(
		ctx,
		contextTar,
		tag,
		sdkimage.WithBuildClient(dc.client),
		sdkimage.WithBuildOptions(build.ImageBuildOptions{
			Dockerfile: DockerfileName,
			Remove:     true, // remove intermediate containers
		}),
	)
	if err != nil {
		return "", fmt.Errorf("image build: %w", err)
	}

	return buildTag, nil
}
