package main

import (
	"github.com/spf13/cobra"

	"github.com/AndyXFuture/bilix-meta/internal/api"
)

var favCmd = &cobra.Command{
	Use:   "fav <fid-or-url>",
	Short: "Download items from a favorites list",
	Long: `Download items from a favorites list, addressed by fid or by the
favlist URL.

Examples:
  bilix fav 1445680 -n 30
  bilix fav "https://space.bilibili.com/123/favlist?fid=1445680" --keyword 东方`,
	Args: cobra.ExactArgs(1),
	RunE: runFavCmd,
}

func init() {
	rootCmd.AddCommand(favCmd)
	addWalkFlags(favCmd)
}

func runFavCmd(cmd *cobra.Command, args []string) error {
	h, err := catalogHandle(args[0], api.KindFavorites)
	if err != nil {
		return err
	}
	return runWalk(cmd, h)
}
