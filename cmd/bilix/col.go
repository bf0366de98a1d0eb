package main

import (
	"github.com/spf13/cobra"

	"github.com/AndyXFuture/bilix-meta/internal/api"
)

var colCmd = &cobra.Command{
	Use:   "col <sid-or-url>",
	Short: "Download items from a collection or video list",
	Long: `Download items from a curated collection or a creator-ordered
video list. URLs distinguish the two; a bare sid is treated as a
collection.

Examples:
  bilix col 630
  bilix col "https://space.bilibili.com/123/channel/collectiondetail?sid=630"
  bilix col "https://space.bilibili.com/123/channel/seriesdetail?sid=630"`,
	Args: cobra.ExactArgs(1),
	RunE: runColCmd,
}

func init() {
	rootCmd.AddCommand(colCmd)
	addWalkFlags(colCmd)
}

func runColCmd(cmd *cobra.Command, args []string) error {
	h, err := catalogHandle(args[0], api.KindCollection)
	if err != nil {
		return err
	}
	return runWalk(cmd, h)
}
