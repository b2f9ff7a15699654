package main

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/swellmap/swellmap/internal/provider/resilience"
	"github.com/swellmap/swellmap/internal/spot"
	"github.com/swellmap/swellmap/internal/spotsync"
)

var (
	regionDelta   float64
	regionReports bool
	regionDemo    bool
	regionTimeout time.Duration
)

var regionCmd = &cobra.Command{
	Use:   "region <latitude> <longitude>",
	Short: "Fetch the spots around a point and print them as JSON.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("latitude: %w", err)
		}
		lon, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("longitude: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), regionTimeout)
		defer cancel()

		spots, err := fetchRegion(ctx, spot.Viewport{
			Latitude:       lat,
			Longitude:      lon,
			LatitudeDelta:  regionDelta,
			LongitudeDelta: regionDelta,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(spots)
	},
}

func init() {
	regionCmd.Flags().Float64Var(&regionDelta, "delta", 1, "Width and height of the viewport in degrees.")
	regionCmd.Flags().BoolVar(&regionReports, "reports", false, "Also fetch reports and surf forecasts for every spot found.")
	regionCmd.Flags().BoolVar(&regionDemo, "demo", false, "Use the offline demo dataset.")
	regionCmd.Flags().DurationVar(&regionTimeout, "timeout", time.Minute, "Give up after this long.")
}

// fetchRegion runs an engine just long enough to drain one region request
// and, optionally, the report requests it leads to.
func fetchRegion(ctx context.Context, v spot.Viewport) ([]spot.Spot, error) {
	engine := spotsync.NewEngine(spotsync.Config{
		Source:   newSurflineClient(resilience.NewRegistry()),
		DemoMode: regionDemo,
		Logger:   log,
	})

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	done := make(chan error, 1)
	go func() { done <- engine.Run(runCtx) }()

	engine.GetSpotsForRegion(v)
	if err := engine.WaitIdle(ctx); err != nil {
		return nil, err
	}

	if regionReports {
		spots := engine.Spots()
		engine.GetReportsForSpots(slices.Sorted(maps.Keys(spots)))
		if err := engine.WaitIdle(ctx); err != nil {
			return nil, err
		}
	}

	stop()
	<-done

	needed := v.Needed()
	var out []spot.Spot
	for _, s := range engine.Spots() {
		// The demo dataset is fixed; show all of it wherever the viewport is.
		if regionDemo || (s.Lat != nil && s.Lon != nil && needed.ContainsPoint(*s.Lat, *s.Lon)) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b spot.Spot) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}
