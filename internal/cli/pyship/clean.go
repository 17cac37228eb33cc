package pyship

import (
	"errors"
	"fmt"
	"os"

	hostappconfig "github.com/0xa1bed0/pyship/internal/config"
	"github.com/0xa1bed0/pyship/internal/dockerclient"
	"github.com/0xa1bed0/pyship/internal/logs"
	"github.com/spf13/cobra"
)

type cleanOptions struct {
	Images bool
	Cache  bool
	All    bool
	Yes    bool
}

func newCleanCmd() *cobra.Command {
	opts := &cleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove pyship images and the local image cache",
		Long: `Clean up pyship artifacts.

By default, '--all' is implied, which removes built images and the local cache file.
Use flags to be more granular.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Images && !opts.Cache && !opts.All {
				opts.All = true
			}
			if opts.All {
				opts.Images = true
				opts.Cache = true
			}

			if !opts.Yes {
				ok, err := logs.PromptConfirm("Remove pyship images and cache?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("aborted")
					return nil
				}
			}

			if opts.Images {
				dockerClient, err := dockerclient.NewDockerClient()
				if err != nil {
					return err
				}

				tags, err := dockerClient.ListImagesByPrefix(cmd.Context(), "pyship:")
				if err != nil {
					return err
				}
				for _, tag := range tags {
					if err := dockerClient.RemoveImage(cmd.Context(), tag); err != nil {
						logs.Warnf("could not remove %s: %v", tag, err)
						continue
					}
					fmt.Printf("removed %s\n", tag)
				}
				if len(tags) == 0 {
					fmt.Println("no pyship images found")
				}
			}

			if opts.Cache {
				cachePath := hostappconfig.ImageCacheFile()
				if err := os.Remove(cachePath); err != nil && !errors.Is(err, os.ErrNotExist) {
					return err
				}
				fmt.Printf("cleared %s\n", cachePath)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "Clean everything (default behavior)")
	cmd.Flags().BoolVar(&opts.Images, "images", false, "Remove built images only")
	cmd.Flags().BoolVar(&opts.Cache, "cache", false, "Remove the local image cache file only")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
