// Package watch implements the interactive viewport event replay command
package watch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tphakala/birdmap-go/cmd/observe"
	"github.com/tphakala/birdmap-go/internal/cluster"
	"github.com/tphakala/birdmap-go/internal/conf"
	"github.com/tphakala/birdmap-go/internal/geo"
	"github.com/tphakala/birdmap-go/internal/pipeline"
)

// Command creates the watch command, which feeds viewport and parameter
// events from stdin through the orchestrator and prints published
// cluster updates as JSON lines.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Replay viewport events through the fetch pipeline",
		Long: `Read events from stdin and run them through the fetch gate and pipeline.

Event syntax, one per line:
  viewport <lat> <lng> [<neLat> <neLng> <swLat> <swLng>]
  params <back> <class>

Published cluster updates, fetch state changes and errors are printed
as JSON lines on stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), settings)
		},
	}
	return cmd
}

func runWatch(ctx context.Context, settings *conf.Settings) error {
	source, photos, err := observe.BuildClients(settings)
	if err != nil {
		return err
	}
	defer source.Close()
	defer photos.Close()

	listener := &jsonLineListener{encoder: json.NewEncoder(os.Stdout)}

	orch := pipeline.New(source, photos, listener, pipeline.Config{
		MinMoveKm: settings.Pipeline.MinMoveKm,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go orch.Run(runCtx)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := dispatch(orch, line); err != nil {
			fmt.Fprintf(os.Stderr, "ignoring event: %v\n", err)
		}
	}

	cancel()
	<-orch.Done()
	return scanner.Err()
}

func dispatch(orch *pipeline.Orchestrator, line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "viewport":
		if len(fields) != 3 && len(fields) != 7 {
			return fmt.Errorf("viewport needs 2 or 6 numbers, got %d", len(fields)-1)
		}
		nums := make([]float64, 0, len(fields)-1)
		for _, f := range fields[1:] {
			n, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return fmt.Errorf("bad number %q: %w", f, err)
			}
			nums = append(nums, n)
		}
		center := geo.Point{Lat: nums[0], Lng: nums[1]}
		var bounds *geo.Bounds
		if len(nums) == 6 {
			bounds = &geo.Bounds{
				NE: geo.Point{Lat: nums[2], Lng: nums[3]},
				SW: geo.Point{Lat: nums[4], Lng: nums[5]},
			}
		}
		orch.ViewportSettled(center, bounds)
		return nil

	case "params":
		if len(fields) != 3 {
			return fmt.Errorf("params needs <back> <class>")
		}
		params, err := observe.ParseParams(fields[1], fields[2])
		if err != nil {
			return err
		}
		orch.ParamsChanged(params)
		return nil

	default:
		return fmt.Errorf("unknown event %q", fields[0])
	}
}

// jsonLineListener prints pipeline signals as JSON lines.
type jsonLineListener struct {
	encoder *json.Encoder
}

type updateLine struct {
	Event    string                     `json:"event"`
	Clusters []*cluster.LocationCluster `json:"clusters,omitempty"`
	Fetching *bool                      `json:"fetching,omitempty"`
	Message  string                     `json:"message,omitempty"`
}

func (l *jsonLineListener) OnClustersUpdated(clusters []*cluster.LocationCluster) {
	_ = l.encoder.Encode(updateLine{Event: "clusters", Clusters: clusters})
}

func (l *jsonLineListener) OnFetchStateChanged(isFetching bool) {
	_ = l.encoder.Encode(updateLine{Event: "fetchState", Fetching: &isFetching})
}

func (l *jsonLineListener) OnError(message string) {
	_ = l.encoder.Encode(updateLine{Event: "error", Message: message})
}
