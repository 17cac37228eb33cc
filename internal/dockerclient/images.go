package dockerclient

import (
	"context"

	"github.com/docker/docker/api/types/filters"
	imagetypes "github.com/docker/docker/api/types/image"
)

func (dc *dockerClient) ImageExists(ctx context.Context, imageRef string) bool {
	_, err := dc.client.ImageInspect(ctx, imageRef)

	return err == nil
}

func (dc *dockerClient) RemoveImage(ctx context.Context, imageRef string) error {
	_, err := dc.client.ImageRemove(ctx, imageRef, imagetypes.RemoveOptions{
		Force:         true,
		PruneChildren: true,
	})
	return err
}

// ListImagesByPrefix returns the tags of local images whose repository starts
// with the given prefix. Used by the clean command.
func (dc *dockerClient) ListImagesByPrefix(ctx context.Context, prefix string) ([]string, error) {
	args := filters.NewArgs()
	args.Add("reference", prefix+"*")

	images, err := dc.client.ImageList(ctx, imagetypes.ListOptions{
		Filters: args,
	})
	if err != nil {
		return nil, err
	}

	var tags []string
	for _, img := range images {
		tags = append(tags, img.RepoTags...)
	}
	return tags, nil
}
