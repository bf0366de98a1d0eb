package config

import "fmt"

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if c.Download.Root == "" {
		errs = append(errs, "download.root: required")
	}
	if c.Download.VideoConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("download.video_concurrency: must be at least 1, got %d", c.Download.VideoConcurrency))
	}
	if c.Download.APIConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("download.api_concurrency: must be at least 1, got %d", c.Download.APIConcurrency))
	}
	if c.Download.PartConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("download.part_concurrency: must be at least 1, got %d", c.Download.PartConcurrency))
	}
	if c.Download.SpeedLimit < 0 {
		errs = append(errs, "download.speed_limit: must not be negative")
	}
	if c.Download.StreamRetry < 1 {
		errs = append(errs, fmt.Sprintf("download.stream_retry: must be at least 1, got %d", c.Download.StreamRetry))
	}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("log_level: must be one of debug, info, warn, error; got %q", c.LogLevel))
	}

	return errs
}
