package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openscope/wavescope/internal/application/view"
	"github.com/openscope/wavescope/internal/core/wave"
	"github.com/openscope/wavescope/internal/util"
)

var (
	// Logging related
	debug bool

	// Viewer flags
	viewFollow      bool
	viewRefresh     float64
	viewRetention   int
	viewBranch      int
	viewInterpolate bool
	viewChannels    []string

	rootCmd = &cobra.Command{
		Use:   "wavescope <capture> [flags]",
		Short: "Terminal waveform viewer for sampled signal captures",
		Long: `wavescope is an interactive terminal viewer for large sampled-signal
captures (JSONL and EDF). It keeps every channel on one shared time axis,
pans and zooms smoothly over millions of samples, and reads values and
time deltas off user-placed markers.

Examples:
  wavescope capture.jsonl                      # View a recorded capture
  wavescope capture.jsonl.gz                   # Compressed captures work too
  wavescope recording.edf --channels ecg,spo2  # View selected EDF signals
  wavescope live.jsonl --follow                # Tail a capture as it grows
  wavescope live.jsonl --follow --retention 1000000
  wavescope capture.jsonl --interpolate        # Linear marker readouts`,
		Args: cobra.ExactArgs(1),
		RunE: runView,
	}
)

const defaultLogFile = "~/.wavescope/logs/app.log"

func init() {
	// Ingestion configuration
	rootCmd.Flags().BoolVarP(&viewFollow, "follow", "f", false,
		"Tail the capture for appended records (JSONL only)")
	rootCmd.Flags().IntVar(&viewRetention, "retention", 0,
		"Samples retained per channel in follow mode (0 = unlimited)")
	rootCmd.Flags().IntVar(&viewBranch, "branch", 0,
		"Decimation branching factor (0 = default 16)")

	// Display configuration
	rootCmd.Flags().Float64Var(&viewRefresh, "refresh-per-second", 4,
		"Display refresh rate (0.1-60 Hz)")
	rootCmd.Flags().StringSliceVar(&viewChannels, "channels", nil,
		"Show only the named channels (comma separated)")

	// Measurement configuration
	rootCmd.Flags().BoolVar(&viewInterpolate, "interpolate", false,
		"Read marker values by linear interpolation instead of nearest sample")

	// System and debugging
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
}

func runView(cmd *cobra.Command, args []string) error {
	initLogging()

	config := &view.Config{
		InputFile:        expandPath(args[0]),
		Follow:           viewFollow,
		RefreshPerSecond: viewRefresh,
		Retention:        viewRetention,
		Branch:           viewBranch,
		Interpolate:      viewInterpolate,
		Channels:         channelIDs(viewChannels),
	}

	orchestrator, err := view.NewOrchestrator(config)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := orchestrator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func Execute() error {
	return rootCmd.Execute()
}

// Helper functions

func initLogging() {
	logLevel := "info"
	if debug {
		logLevel = "debug"
	}
	logFile := expandPath(defaultLogFile)
	ensureDir(filepath.Dir(logFile))
	util.InitLogger(logLevel, logFile, debug)
}

func channelIDs(names []string) []wave.ChannelID {
	ids := make([]wave.ChannelID, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			ids = append(ids, wave.ChannelID(name))
		}
	}
	return ids
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func loadError(path string, err error) error {
	return fmt.Errorf("loading %s: %w", filepath.Base(path), err)
}
