package main

import (
	"errors"
	"fmt"

	"github.com/gmessner/simple-cr/config"
	"github.com/gmessner/simple-cr/internal/entities"
	"github.com/gmessner/simple-cr/internal/signedlink"

	"github.com/spf13/cobra"
)

func newLinkCmd() *cobra.Command {
	var link entities.ReviewLink

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Print the signed review form URL for a branch push",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if link.ProjectID <= 0 || link.UserID <= 0 || link.Branch == "" {
				return errors.New("--project, --branch and --user are required")
			}
			cfg, err := config.NewConfig()
			if err != nil {
				return err
			}
			u, err := reviewURL(cfg.Review, link)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), u)
			return err
		},
	}
	cmd.Flags().IntVar(&link.ProjectID, "project", 0, "GitLab project id")
	cmd.Flags().StringVar(&link.Branch, "branch", "", "source branch name")
	cmd.Flags().IntVar(&link.UserID, "user", 0, "GitLab id of the pushing user")
	return cmd
}

func reviewURL(cfg config.ReviewConfig, link entities.ReviewLink) (string, error) {
	codec, err := signedlink.New([]byte(cfg.SigningSecret))
	if err != nil {
		return "", err
	}
	return codec.URL(cfg.PublicURL, link), nil
}
