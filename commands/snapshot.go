package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/openscope/wavescope/internal/core/render"
	"github.com/openscope/wavescope/internal/core/store"
	"github.com/openscope/wavescope/internal/core/viewport"
	"github.com/openscope/wavescope/internal/core/wave"
	"github.com/openscope/wavescope/internal/data/ingest"
	"github.com/openscope/wavescope/internal/data/loader"
	"github.com/openscope/wavescope/internal/util"
)

var (
	// Snapshot command flags
	snapshotOut      string
	snapshotWidth    int
	snapshotHeight   int
	snapshotFrom     string
	snapshotTo       string
	snapshotChannels []string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <capture>",
	Short: "Render a capture window to a PNG chart",
	Long: `Renders one window of a capture to a PNG image using the same
decimation pipeline as the interactive viewer: dense windows become
min/max envelopes, sparse windows become sample traces.

Examples:
  wavescope snapshot capture.jsonl --out wave.png
  wavescope snapshot capture.jsonl --from 2s --to 4s --width 1600
  wavescope snapshot recording.edf --channels ecg --out ecg.png`,
	Args: cobra.ExactArgs(1),
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)

	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "snapshot.png",
		"Output PNG path")
	snapshotCmd.Flags().IntVar(&snapshotWidth, "width", 1200,
		"Image width in pixels")
	snapshotCmd.Flags().IntVar(&snapshotHeight, "height", 600,
		"Image height in pixels")
	snapshotCmd.Flags().StringVar(&snapshotFrom, "from", "",
		"Window start as an offset from the capture start (e.g., 2s, 150ms)")
	snapshotCmd.Flags().StringVar(&snapshotTo, "to", "",
		"Window end as an offset from the capture start")
	snapshotCmd.Flags().StringSliceVar(&snapshotChannels, "channels", nil,
		"Render only the named channels (comma separated)")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	initLogging()

	path := expandPath(args[0])
	st := store.New()
	pipeline := ingest.NewPipeline(st, ingest.Config{Branch: viewBranch})
	l := loader.New(pipeline)

	if _, err := l.Load(path); err != nil {
		return loadError(path, err)
	}

	vp, err := snapshotViewport(st)
	if err != nil {
		return err
	}

	wanted := channelIDs(snapshotChannels)
	series, err := snapshotSeries(pipeline, st, vp, wanted)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return fmt.Errorf("no channels to render")
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s .. %s", util.FormatNano(vp.Start), util.FormatNano(vp.End)),
		Width:  snapshotWidth,
		Height: snapshotHeight,
		XAxis:  chart.XAxis{Name: "seconds"},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	f, err := os.Create(expandPath(snapshotOut))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := graph.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	util.LogInfof("wrote %s", snapshotOut)
	return nil
}

// snapshotViewport builds the render window: the full capture span narrowed
// by --from/--to offsets.
func snapshotViewport(st *store.Store) (viewport.Viewport, error) {
	t0, t1, ok := st.Span()
	if !ok {
		return viewport.Viewport{}, fmt.Errorf("capture holds no samples")
	}
	start, end := t0, t1+1

	if snapshotFrom != "" {
		d, err := time.ParseDuration(snapshotFrom)
		if err != nil {
			return viewport.Viewport{}, fmt.Errorf("invalid --from: %w", err)
		}
		start = t0 + d.Nanoseconds()
	}
	if snapshotTo != "" {
		d, err := time.ParseDuration(snapshotTo)
		if err != nil {
			return viewport.Viewport{}, fmt.Errorf("invalid --to: %w", err)
		}
		end = t0 + d.Nanoseconds()
	}
	return viewport.New(start, end, snapshotWidth)
}

// snapshotSeries runs each channel through the render builder and converts
// the primitives back to time-domain chart series: a line trace for sparse
// windows, a min/max envelope pair for dense ones.
func snapshotSeries(pipeline *ingest.Pipeline, st *store.Store, vp viewport.Viewport, wanted []wave.ChannelID) ([]chart.Series, error) {
	var series []chart.Series
	idx := 0
	for _, ch := range st.Channels() {
		id := ch.Meta().ID
		if len(wanted) > 0 && !containsID(wanted, id) {
			continue
		}
		pyr, err := pipeline.Pyramid(id)
		if err != nil {
			return nil, err
		}

		set, err := render.NewBuilder(ch, pyr).Build(context.Background(), vp)
		if err != nil {
			util.LogWarnf("render %s: %v", id, err)
			continue
		}
		if set.Empty() {
			continue
		}

		style := chart.Style{
			StrokeColor: chart.GetDefaultColor(idx),
			StrokeWidth: 1.5,
		}
		switch set.Mode {
		case render.ModeLines:
			xs := make([]float64, len(set.Points))
			ys := make([]float64, len(set.Points))
			for i, p := range set.Points {
				xs[i] = secondsAt(vp, p.X)
				ys[i] = p.V
			}
			series = append(series, chart.ContinuousSeries{
				Name: string(id), XValues: xs, YValues: ys, Style: style,
			})
		case render.ModeBars:
			minXs := make([]float64, len(set.Columns))
			minYs := make([]float64, len(set.Columns))
			maxYs := make([]float64, len(set.Columns))
			for i, col := range set.Columns {
				minXs[i] = secondsAt(vp, col.X)
				minYs[i] = col.Min
				maxYs[i] = col.Max
			}
			series = append(series,
				chart.ContinuousSeries{
					Name: string(id) + " max", XValues: minXs, YValues: maxYs, Style: style,
				},
				chart.ContinuousSeries{
					Name: string(id) + " min", XValues: minXs, YValues: minYs, Style: style,
				},
			)
		}
		idx++
	}
	return series, nil
}

// secondsAt converts a pixel column back to seconds from the window start.
func secondsAt(vp viewport.Viewport, x int) float64 {
	return (vp.PixelToTime(float64(x)) - float64(vp.Start)) / float64(time.Second)
}

func containsID(ids []wave.ChannelID, id wave.ChannelID) bool {
	for _, want := range ids {
		if want == id {
			return true
		}
	}
	return false
}
