package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath string
	dirFlag    string
	dbFlag     string

	qualityFlag string
	codecFlag   string

	imageFlag     bool
	subtitleFlag  bool
	danmakuFlag   bool
	metaFlag      bool
	onlyAudioFlag bool
	updateFlag    bool

	speedFlag float64
)

var rootCmd = &cobra.Command{
	Use:   "bilix",
	Short: "Download videos and metadata from bilibili",
	Long: `bilix - download videos and metadata from bilibili

Downloads single videos, whole multi-part series, favorites lists,
collections, creator catalogs, and category feeds, with optional cover
art, subtitles, danmaku, and NFO metadata for media servers.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file path")
	pf.StringVarP(&dirFlag, "dir", "d", "", "Download directory (overrides config)")
	pf.StringVar(&dbFlag, "db", "", "Dedup ledger path (overrides config)")
	pf.StringVarP(&qualityFlag, "quality", "q", "0", "Quality rank (0 = best) or label like 1080p")
	pf.StringVar(&codecFlag, "codec", "", "Preferred codec prefix, e.g. hev")
	pf.BoolVar(&imageFlag, "image", false, "Save cover art")
	pf.BoolVar(&subtitleFlag, "subtitle", false, "Save subtitles as SRT")
	pf.BoolVar(&danmakuFlag, "danmaku", false, "Save danmaku")
	pf.BoolVar(&metaFlag, "meta", false, "Save NFO metadata and creator portraits")
	pf.BoolVar(&onlyAudioFlag, "only-audio", false, "Save the audio stream only")
	pf.BoolVarP(&updateFlag, "update", "u", false, "Re-download even when artifacts exist")
	pf.Float64Var(&speedFlag, "speed-limit", 0, "Total transfer rate cap in bytes/sec")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("bilix {{.Version}}\n")
}
