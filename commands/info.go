package commands

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/openscope/wavescope/internal/core/store"
	"github.com/openscope/wavescope/internal/core/wave"
	"github.com/openscope/wavescope/internal/data/ingest"
	"github.com/openscope/wavescope/internal/data/loader"
	"github.com/openscope/wavescope/internal/util"
)

var (
	// Info command flags
	infoOutput string
)

var infoCmd = &cobra.Command{
	Use:   "info <capture>",
	Short: "Print channel inventory for a capture without opening the viewer",
	Long:  `Loads a capture and prints each channel's metadata, sample count, and time span.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

// channelInfo is the JSON shape of one channel in the info output.
type channelInfo struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Unit    string  `json:"unit,omitempty"`
	Rate    float64 `json:"rate,omitempty"`
	Samples int64   `json:"samples"`
	Start   int64   `json:"start_ns"`
	End     int64   `json:"end_ns"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
}

type captureInfo struct {
	Path     string        `json:"path"`
	Records  int           `json:"records"`
	Rejected int           `json:"rejected"`
	Channels []channelInfo `json:"channels"`
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringVarP(&infoOutput, "output", "o", "table",
		"Output format (table, json)")
}

func runInfo(cmd *cobra.Command, args []string) error {
	initLogging()

	path := expandPath(args[0])
	st := store.New()
	l := loader.New(ingest.NewPipeline(st, ingest.Config{}))

	res, err := l.Load(path)
	if err != nil {
		return loadError(path, err)
	}

	info := captureInfo{Path: path, Records: res.Records, Rejected: res.Rejected}
	for _, ch := range st.Channels() {
		meta := ch.Meta()
		ci := channelInfo{
			ID:      string(meta.ID),
			Label:   meta.Label,
			Unit:    meta.Unit,
			Rate:    meta.NominalRate,
			Samples: ch.Len(),
		}
		if t0, t1, err := ch.Span(); err == nil {
			ci.Start, ci.End = t0, t1
			if samples, err := ch.RangeQuery(t0, t1); err == nil {
				b := wave.Summarize(samples)
				ci.Min, ci.Max, ci.Mean = b.Min, b.Max, b.Mean()
			}
		}
		info.Channels = append(info.Channels, ci)
	}

	switch infoOutput {
	case "json":
		out, err := sonic.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	case "table":
		printInfoTable(info)
	default:
		return fmt.Errorf("invalid output format %q: must be 'table' or 'json'", infoOutput)
	}

	for _, rerr := range res.RecordErrs {
		fmt.Printf("warning: %s\n", rerr.Error())
	}
	return nil
}

func printInfoTable(info captureInfo) {
	fmt.Printf("Capture: %s\n", info.Path)
	fmt.Printf("Records: %d (%d rejected)\n\n", info.Records, info.Rejected)

	fmt.Printf("%-12s %-20s %-8s %10s %10s  %-24s %s\n",
		"CHANNEL", "LABEL", "UNIT", "RATE", "SAMPLES", "SPAN", "VALUES")
	for _, ci := range info.Channels {
		rate := "-"
		if ci.Rate > 0 {
			rate = util.FormatHz(ci.Rate)
		}
		span, values := "-", "-"
		if ci.Samples > 0 {
			span = fmt.Sprintf("%s .. %s", util.FormatNano(ci.Start), util.FormatNano(ci.End))
			values = fmt.Sprintf("%s .. %s (mean %s)",
				util.FormatValue(ci.Min, ci.Unit),
				util.FormatValue(ci.Max, ci.Unit),
				util.FormatValue(ci.Mean, ci.Unit))
		}
		fmt.Printf("%-12s %-20s %-8s %10s %10d  %-24s %s\n",
			ci.ID, ci.Label, ci.Unit, rate, ci.Samples, span, values)
	}
}
