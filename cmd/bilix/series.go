package main

import (
	"github.com/spf13/cobra"
)

var seriesCmd = &cobra.Command{
	Use:   "series <url>",
	Short: "Download every part of a multi-part video",
	Long: `Download every part of the video an URL belongs to. Single-part
videos work too.

Examples:
  bilix series https://www.bilibili.com/video/BV1xx411c7mD
  bilix series -p 3-5 https://...   # parts 3 to 5 only`,
	Args: cobra.ExactArgs(1),
	RunE: runSeriesCmd,
}

func init() {
	rootCmd.AddCommand(seriesCmd)
	seriesCmd.Flags().StringP("range", "p", "", "Part range, first-last (1-based inclusive)")
}

func runSeriesCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	opts := a.opts()
	if s, _ := cmd.Flags().GetString("range"); s != "" {
		r, err := parsePartSpan(s)
		if err != nil {
			return err
		}
		opts.PartRange = &r
	}

	ctx, stop := signalContext()
	defer stop()
	return a.engine.DownloadSeries(ctx, args[0], opts)
}
