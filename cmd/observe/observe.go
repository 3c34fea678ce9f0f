// Package observe implements the one-shot observation query command
package observe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tphakala/birdmap-go/internal/birdimage"
	"github.com/tphakala/birdmap-go/internal/cluster"
	"github.com/tphakala/birdmap-go/internal/conf"
	"github.com/tphakala/birdmap-go/internal/ebird"
	"github.com/tphakala/birdmap-go/internal/geo"
	"github.com/tphakala/birdmap-go/internal/pipeline"
)

type observeOptions struct {
	lat    float64
	lng    float64
	back   string
	class  string
	bounds []float64 // neLat neLng swLat swLng
}

// Command creates the observe command, which runs a single fetch cycle
// for a coordinate and prints the resulting clusters as JSON.
func Command(settings *conf.Settings) *cobra.Command {
	opts := &observeOptions{}

	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Fetch observation clusters around a coordinate",
		Long:  "Run one fetch cycle: query recent or notable observations around a coordinate, group them into per-location species clusters, enrich with photos and print the result as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runObserve(cmd.Context(), settings, opts)
		},
	}

	cmd.Flags().Float64Var(&opts.lat, "lat", 0, "Latitude of the viewport center")
	cmd.Flags().Float64Var(&opts.lng, "lng", 0, "Longitude of the viewport center")
	cmd.Flags().StringVar(&opts.back, "back", viper.GetString("pipeline.defaultback"), "Day-count window (1, 3, 7, 14, 30)")
	cmd.Flags().StringVar(&opts.class, "class", viper.GetString("pipeline.defaultclass"), "Sighting classification (recent, rare)")
	cmd.Flags().Float64SliceVar(&opts.bounds, "bounds", nil, "Viewport bounds as neLat,neLng,swLat,swLng (defaults to max radius)")

	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")

	return cmd
}

func runObserve(ctx context.Context, settings *conf.Settings, opts *observeOptions) error {
	params, err := ParseParams(opts.back, opts.class)
	if err != nil {
		return err
	}

	bounds, err := ParseBounds(opts.bounds)
	if err != nil {
		return err
	}

	source, photos, err := BuildClients(settings)
	if err != nil {
		return err
	}
	defer source.Close()
	defer photos.Close()

	orch := pipeline.New(source, photos, noopListener{}, pipeline.Config{
		MinMoveKm: settings.Pipeline.MinMoveKm,
	})

	clusters, err := orch.FetchCycle(ctx, geo.Point{Lat: opts.lat, Lng: opts.lng}, bounds, params)
	if err != nil {
		return fmt.Errorf("observation query failed: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(clusters)
}

// ParseParams validates and converts back/class flag values.
func ParseParams(back, class string) (pipeline.QueryParams, error) {
	backWindow, err := ebird.ParseBackWindow(back)
	if err != nil {
		return pipeline.QueryParams{}, err
	}
	classification, err := ebird.ParseClassification(class)
	if err != nil {
		return pipeline.QueryParams{}, err
	}
	return pipeline.QueryParams{Back: backWindow, Class: classification}, nil
}

// ParseBounds converts a neLat,neLng,swLat,swLng flag value into
// viewport bounds. Empty input yields nil bounds (default radius).
func ParseBounds(values []float64) (*geo.Bounds, error) {
	if len(values) == 0 {
		return nil, nil
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("bounds requires exactly 4 values (neLat,neLng,swLat,swLng), got %d", len(values))
	}
	return &geo.Bounds{
		NE: geo.Point{Lat: values[0], Lng: values[1]},
		SW: geo.Point{Lat: values[2], Lng: values[3]},
	}, nil
}

// BuildClients constructs the observation and photo clients from settings.
func BuildClients(settings *conf.Settings) (*ebird.Client, *birdimage.Client, error) {
	source, err := ebird.NewClient(ebird.Config{
		APIKey:      settings.EBird.APIKey,
		BaseURL:     settings.EBird.BaseURL,
		Timeout:     settings.EBird.Timeout,
		CacheTTL:    settings.EBird.CacheTTL,
		RateLimitMS: settings.EBird.RateLimitMS,
	})
	if err != nil {
		return nil, nil, err
	}
	source.SetDebug(settings.Debug)

	photos := birdimage.NewClient(birdimage.Config{
		BaseURL: settings.BirdImage.BaseURL,
		Timeout: settings.BirdImage.Timeout,
	})

	return source, photos, nil
}

// noopListener satisfies pipeline.Listener for one-shot use where the
// cycle result is returned directly.
type noopListener struct{}

func (noopListener) OnClustersUpdated([]*cluster.LocationCluster) {}
func (noopListener) OnFetchStateChanged(bool)                     {}
func (noopListener) OnError(string)                               {}
