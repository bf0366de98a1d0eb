package main

import (
	"github.com/spf13/cobra"

	"github.com/AndyXFuture/bilix-meta/internal/api"
)

var cateCmd = &cobra.Command{
	Use:   "cate <name>",
	Short: "Download trending items from a category",
	Long: `Download trending items from a category feed, addressed by the
category name. An unknown name fails with a near-match suggestion.

Examples:
  bilix cate 舞蹈 -n 20
  bilix cate 宅舞 --order click --days 30`,
	Args: cobra.ExactArgs(1),
	RunE: runCateCmd,
}

func init() {
	rootCmd.AddCommand(cateCmd)
	addWalkFlags(cateCmd)
}

func runCateCmd(cmd *cobra.Command, args []string) error {
	return runWalk(cmd, api.Handle{Kind: api.KindCategory, ID: args[0]})
}
