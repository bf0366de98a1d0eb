package main

import (
	"github.com/spf13/cobra"

	"github.com/AndyXFuture/bilix-meta/internal/api"
)

var autoCmd = &cobra.Command{
	Use:   "auto <url>",
	Short: "Classify an URL and download whatever it points at",
	Long: `Classify an URL and dispatch to the matching download mode: video
pages download as series, space sub-pages walk as catalogs.

Examples:
  bilix auto https://www.bilibili.com/video/BV1xx411c7mD
  bilix auto "https://space.bilibili.com/123/favlist?fid=1445680"`,
	Args: cobra.ExactArgs(1),
	RunE: runAutoCmd,
}

func init() {
	rootCmd.AddCommand(autoCmd)
	addWalkFlags(autoCmd)
}

func runAutoCmd(cmd *cobra.Command, args []string) error {
	h, err := api.ParseHandle(args[0])
	if err != nil {
		return err
	}

	switch h.Kind {
	case api.KindItem, api.KindSeries:
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		ctx, stop := signalContext()
		defer stop()
		return a.engine.DownloadSeries(ctx, h.URL, a.opts())
	default:
		return runWalk(cmd, h)
	}
}
