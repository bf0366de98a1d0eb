package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AndyXFuture/bilix-meta/internal/api"
)

// addWalkFlags registers the flags shared by every catalog-walking
// subcommand.
func addWalkFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("num", "n", 10, "Maximum number of items to download")
	cmd.Flags().String("keyword", "", "Server-side keyword filter")
	cmd.Flags().String("order", "", "Listing order (endpoint-specific)")
	cmd.Flags().Int("days", 0, "Restrict category feeds to the last N days")
}

// runWalk wires an app and walks the handle with the shared flags.
func runWalk(cmd *cobra.Command, h api.Handle) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	num, _ := cmd.Flags().GetInt("num")
	filters := api.PageFilters{}
	filters.Keyword, _ = cmd.Flags().GetString("keyword")
	filters.Order, _ = cmd.Flags().GetString("order")
	filters.Days, _ = cmd.Flags().GetInt("days")

	ctx, stop := signalContext()
	defer stop()
	return a.engine.Walk(ctx, h, num, filters, a.opts())
}

// catalogHandle accepts either a full URL or a bare id and returns a
// handle of the wanted kind.
func catalogHandle(arg string, want api.Kind) (api.Handle, error) {
	if strings.Contains(arg, "://") {
		h, err := api.ParseHandle(arg)
		if err != nil {
			return api.Handle{}, err
		}
		if h.Kind != want && !(want == api.KindCollection && h.Kind == api.KindSeriesList) {
			return api.Handle{}, fmt.Errorf("%s is a %s URL, not %s", arg, h.Kind, want)
		}
		return h, nil
	}
	h := api.Handle{Kind: want}
	if want == api.KindCreator {
		h.MID = arg
	} else {
		h.ID = arg
	}
	return h, nil
}

// parsePartSpan reads a 1-based inclusive "first-last" part range.
func parsePartSpan(s string) ([2]int, error) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return [2]int{}, fmt.Errorf("invalid range %q, want first-last", s)
	}
	first, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return [2]int{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	last, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return [2]int{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	return [2]int{first, last}, nil
}

// parseSecondsSpan reads a "start-end" clip window in seconds.
func parseSecondsSpan(s string) ([2]float64, error) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return [2]float64{}, fmt.Errorf("invalid window %q, want start-end", s)
	}
	from, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return [2]float64{}, fmt.Errorf("invalid window %q: %w", s, err)
	}
	to, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return [2]float64{}, fmt.Errorf("invalid window %q: %w", s, err)
	}
	if to <= from {
		return [2]float64{}, fmt.Errorf("invalid window %q: end before start", s)
	}
	return [2]float64{from, to}, nil
}
