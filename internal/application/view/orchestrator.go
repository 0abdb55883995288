package view

import (
	"context"
	"fmt"
	"time"

	"github.com/openscope/wavescope/internal/core/measure"
	"github.com/openscope/wavescope/internal/core/scope"
	"github.com/openscope/wavescope/internal/core/store"
	"github.com/openscope/wavescope/internal/core/viewport"
	"github.com/openscope/wavescope/internal/data/ingest"
	"github.com/openscope/wavescope/internal/data/loader"
	"github.com/openscope/wavescope/internal/data/watch"
	"github.com/openscope/wavescope/internal/presentation/display"
	"github.com/openscope/wavescope/internal/presentation/interaction"
	"github.com/openscope/wavescope/internal/util"
)

// Orchestrator wires the viewer together: capture file into the ingestion
// pipeline, keyboard into the viewport, and the synchronizer's frames onto
// the terminal. Ingestion (in follow mode) and frame building run on their
// own goroutines; interaction and display share the main loop.
type Orchestrator struct {
	config   *Config
	pipeline *ingest.Pipeline
	loader   *loader.Loader
	engine   *measure.Engine
	sync     *scope.Synchronizer
	display  *display.TerminalDisplay
	keyboard *interaction.KeyboardReader
	tailer   *watch.Tailer

	follow bool
	status string

	frames      chan *scope.Frame
	frameCancel context.CancelFunc
}

// NewOrchestrator creates an orchestrator for config.
func NewOrchestrator(config *Config) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st := store.New()
	pipeline := ingest.NewPipeline(st, ingest.Config{
		Branch:    config.Branch,
		Retention: config.Retention,
	})
	policy := measure.ValueNearest
	if config.Interpolate {
		policy = measure.ValueInterpolate
	}

	return &Orchestrator{
		config:   config,
		pipeline: pipeline,
		loader:   loader.New(pipeline),
		engine:   measure.NewEngine(st, policy),
		display:  display.NewTerminalDisplay(),
		follow:   config.Follow,
		frames:   make(chan *scope.Frame, 1),
	}, nil
}

// Run drives the viewer until ctx is cancelled or the user quits.
func (o *Orchestrator) Run(ctx context.Context) error {
	util.LogInfof("viewing %s", o.config.InputFile)
	defer o.Close()

	if err := o.ingest(); err != nil {
		return err
	}
	if err := o.setupScope(); err != nil {
		return err
	}

	if kb, err := interaction.NewKeyboardReader(); err != nil {
		util.LogWarnf("keyboard unavailable, view is read-only: %v", err)
	} else {
		o.keyboard = kb
	}

	o.display.EnterAlternateScreen()
	defer o.display.ExitAlternateScreen()

	o.status = "h/l pan  +/- zoom  m marker  d measure  q quit"
	o.requestFrame(ctx)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / o.config.RefreshPerSecond))
	defer ticker.Stop()

	var keys <-chan interaction.KeyEvent
	if o.keyboard != nil {
		keys = o.keyboard.Events()
	}
	var updates <-chan struct{}
	if o.tailer != nil {
		updates = o.tailer.Updates()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-keys:
			if quit := o.handleAction(ctx, interaction.MapKey(ev)); quit {
				return nil
			}
		case <-updates:
			o.onDataAdvance()
			o.requestFrame(ctx)
		case <-ticker.C:
			o.requestFrame(ctx)
		case frame := <-o.frames:
			o.display.Render(frame, o.status)
		}
	}
}

// Close releases the keyboard and tailer.
func (o *Orchestrator) Close() {
	if o.frameCancel != nil {
		o.frameCancel()
	}
	if o.keyboard != nil {
		o.keyboard.Close()
		o.keyboard = nil
	}
	if o.tailer != nil {
		o.tailer.Close()
		o.tailer = nil
	}
}

// ingest performs the initial load, or starts the tailer in follow mode.
func (o *Orchestrator) ingest() error {
	if o.follow {
		tailer, err := watch.NewTailer(o.loader, o.config.InputFile)
		if err != nil {
			return err
		}
		o.tailer = tailer
		return nil
	}

	res, err := o.loader.Load(o.config.InputFile)
	if err != nil {
		return err
	}
	for _, rerr := range res.RecordErrs {
		util.LogWarn(rerr.Error())
	}
	if res.Rejected > 0 {
		util.LogWarnf("%d of %d records rejected", res.Rejected, res.Records)
	}
	return nil
}

func (o *Orchestrator) setupScope() error {
	t0, t1, ok := o.pipeline.Store().Span()
	if !ok {
		if !o.follow {
			return fmt.Errorf("%s holds no samples", o.config.InputFile)
		}
		t0, t1 = 0, 0
	}

	vp, err := viewport.New(t0, t1+1, o.display.PixelWidth())
	if err != nil {
		return err
	}
	vp = vp.WithClamp(t0, t1+1)

	o.sync, err = scope.NewSynchronizer(vp, o.engine)
	if err != nil {
		return err
	}
	for _, ch := range o.pipeline.Store().Channels() {
		id := ch.Meta().ID
		if !o.config.wants(id) {
			continue
		}
		pyr, err := o.pipeline.Pyramid(id)
		if err != nil {
			return err
		}
		o.sync.AddChannel(ch, pyr)
	}
	return nil
}

// requestFrame starts building a frame on its own goroutine, cancelling any
// build still in flight: its result is stale by definition and must never
// reach the display.
func (o *Orchestrator) requestFrame(ctx context.Context) {
	if o.sync == nil {
		return
	}
	if o.frameCancel != nil {
		o.frameCancel()
	}
	// A finished build may already sit in the buffer; it predates whatever
	// prompted this request, so drop it rather than render it.
	select {
	case <-o.frames:
	default:
	}
	frameCtx, cancel := context.WithCancel(ctx)
	o.frameCancel = cancel

	go func() {
		frame, err := o.sync.BuildFrame(frameCtx)
		if err != nil {
			return // cancelled or degraded; the next frame will catch up
		}
		select {
		case o.frames <- frame:
		case <-frameCtx.Done():
		}
	}()
}

// onDataAdvance widens the clamp to the grown recording and, in follow mode,
// keeps the window pinned to the newest data.
func (o *Orchestrator) onDataAdvance() {
	t0, t1, ok := o.pipeline.Store().Span()
	if !ok {
		return
	}
	// Channels may appear after the first frame in follow mode.
	for _, ch := range o.pipeline.Store().Channels() {
		id := ch.Meta().ID
		if !o.config.wants(id) || o.sync.SetVisible(id, true) == nil {
			continue
		}
		if pyr, err := o.pipeline.Pyramid(id); err == nil {
			o.sync.AddChannel(ch, pyr)
		}
	}
	o.sync.Update(func(vp viewport.Viewport) viewport.Viewport {
		vp = vp.WithClamp(t0, t1+1)
		if o.follow {
			span := vp.Span()
			vp = vp.WithRange(t1+1-span, t1+1)
		}
		return vp
	})
}

func (o *Orchestrator) handleAction(ctx context.Context, action interaction.Action) (quit bool) {
	switch action {
	case interaction.ActionQuit:
		return true
	case interaction.ActionPanLeft:
		o.pan(-1.0 / 8)
	case interaction.ActionPanRight:
		o.pan(1.0 / 8)
	case interaction.ActionPanLeftFast:
		o.pan(-1)
	case interaction.ActionPanRightFast:
		o.pan(1)
	case interaction.ActionZoomIn:
		o.zoom(0.5)
	case interaction.ActionZoomOut:
		o.zoom(2)
	case interaction.ActionMarkerPlace:
		o.placeMarker()
	case interaction.ActionMarkerClear:
		o.engine.Clear()
		o.status = "markers cleared"
	case interaction.ActionMeasure:
		o.measureLast()
	case interaction.ActionToggleFollow:
		o.follow = !o.follow && o.tailer != nil
		o.status = fmt.Sprintf("follow %v", o.follow)
	case interaction.ActionResetView:
		if t0, t1, ok := o.pipeline.Store().Span(); ok {
			o.sync.Update(func(vp viewport.Viewport) viewport.Viewport {
				return vp.WithRange(t0, t1+1)
			})
		}
	case interaction.ActionNone:
		return false
	}
	o.requestFrame(ctx)
	return false
}

func (o *Orchestrator) pan(screens float64) {
	// Manual panning unpins the view from the live edge.
	o.follow = false
	o.sync.Update(func(vp viewport.Viewport) viewport.Viewport {
		return vp.Pan(int(screens * float64(vp.Width)))
	})
}

func (o *Orchestrator) zoom(factor float64) {
	o.sync.Update(func(vp viewport.Viewport) viewport.Viewport {
		return vp.Zoom(vp.Width/2, factor)
	})
}

func (o *Orchestrator) placeMarker() {
	vp := o.sync.Viewport()
	t := int64(vp.PixelToTime(float64(vp.Width) / 2))
	id := o.engine.AddMarker(t)
	o.status = fmt.Sprintf("marker %d at %s", id, util.FormatNano(t))
}

// measureLast reports delta time, per-channel delta value, and frequency
// between the two most recent markers.
func (o *Orchestrator) measureLast() {
	markers := o.engine.Markers()
	if len(markers) < 2 {
		o.status = "need two markers to measure"
		return
	}
	a, b := markers[len(markers)-2], markers[len(markers)-1]
	res, err := o.engine.Delta(a.ID, b.ID)
	if err != nil {
		o.status = fmt.Sprintf("measure: %v", err)
		return
	}
	line := fmt.Sprintf("Δt %s", util.FormatNano(res.DeltaTime))
	if hz, err := o.engine.FrequencyFromPeriod(a.ID, b.ID); err == nil {
		line += fmt.Sprintf("  %s", util.FormatHz(hz))
	}
	for id, cd := range res.PerChannel {
		line += fmt.Sprintf("  %s Δ%s", id, util.FormatValue(cd.DeltaValue, ""))
	}
	o.status = line
}
