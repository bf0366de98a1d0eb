package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var videoCmd = &cobra.Command{
	Use:   "video <url>",
	Short: "Download the single video page an URL points at",
	Long: `Download the single video page an URL points at.

Examples:
  bilix video https://www.bilibili.com/video/BV1xx411c7mD
  bilix video -q 1080p --image --subtitle https://...
  bilix video -t 90-150 https://...   # clip seconds 90 to 150`,
	Args: cobra.ExactArgs(1),
	RunE: runVideoCmd,
}

func init() {
	rootCmd.AddCommand(videoCmd)
	videoCmd.Flags().StringP("time-range", "t", "", "Clip window in seconds, start-end")
}

func runVideoCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	opts := a.opts()
	if s, _ := cmd.Flags().GetString("time-range"); s != "" {
		r, err := parseSecondsSpan(s)
		if err != nil {
			return err
		}
		opts.TimeRange = &r
	}

	ctx, stop := signalContext()
	defer stop()
	return a.engine.DownloadItem(ctx, args[0], opts)
}

// signalContext cancels on interrupt so in-flight downloads unwind
// through their contexts instead of being killed mid-write.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
