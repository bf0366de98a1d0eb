package main

import (
	"github.com/spf13/cobra"

	"github.com/AndyXFuture/bilix-meta/internal/api"
)

var upCmd = &cobra.Command{
	Use:   "up <mid-or-url>",
	Short: "Download items from a creator's catalog",
	Long: `Download a creator's latest uploads, addressed by mid or by the
space URL.

Examples:
  bilix up 672328094 -n 30
  bilix up https://space.bilibili.com/672328094 --order click`,
	Args: cobra.ExactArgs(1),
	RunE: runUpCmd,
}

func init() {
	rootCmd.AddCommand(upCmd)
	addWalkFlags(upCmd)
}

func runUpCmd(cmd *cobra.Command, args []string) error {
	h, err := catalogHandle(args[0], api.KindCreator)
	if err != nil {
		return err
	}
	return runWalk(cmd, h)
}
