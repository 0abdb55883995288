package measure

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/openscope/wavescope/internal/core/store"
	"github.com/openscope/wavescope/internal/core/wave"
)

// Policy selects how a marker between two samples reads a value. This is a
// product-level choice, so it is explicit configuration rather than an
// inferred default.
type Policy int

const (
	// ValueNearest reads the closest sample; an exact halfway tie breaks
	// toward the later sample.
	ValueNearest Policy = iota
	// ValueInterpolate reads the linear interpolation between the two
	// bracketing samples.
	ValueInterpolate
)

// Marker is a user-placed reference point on the shared time axis. Markers
// are channel-agnostic; values are read per channel on demand.
type Marker struct {
	ID int
	T  int64
}

// ChannelDelta is the per-channel part of a two-marker measurement.
type ChannelDelta struct {
	ValueA     float64
	ValueB     float64
	DeltaValue float64
	Slew       float64 // delta value per second
}

// DeltaResult is a two-marker measurement across all channels.
type DeltaResult struct {
	DeltaTime  int64 // ns, signed (B minus A)
	PerChannel map[wave.ChannelID]ChannelDelta
}

// Engine owns the markers and computes measurements against the store. Each
// value read happens under the channel's reader lock, so a measurement is
// never torn across a concurrent ingestion update.
type Engine struct {
	mu      sync.Mutex
	store   *store.Store
	policy  Policy
	nextID  int
	markers map[int]int64
}

// NewEngine creates an engine reading values from st under the given policy.
func NewEngine(st *store.Store, policy Policy) *Engine {
	return &Engine{
		store:   st,
		policy:  policy,
		markers: make(map[int]int64),
	}
}

// AddMarker places a marker at t and returns its id.
func (e *Engine) AddMarker(t int64) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	e.markers[e.nextID] = t
	return e.nextID
}

// RemoveMarker deletes a marker.
func (e *Engine) RemoveMarker(id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.markers[id]; !ok {
		return wave.ErrUnknownMarker
	}
	delete(e.markers, id)
	return nil
}

// MoveMarker repositions an existing marker.
func (e *Engine) MoveMarker(id int, t int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.markers[id]; !ok {
		return wave.ErrUnknownMarker
	}
	e.markers[id] = t
	return nil
}

// Clear removes all markers.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.markers = make(map[int]int64)
	e.mu.Unlock()
}

// Markers returns all markers ordered by time.
func (e *Engine) Markers() []Marker {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Marker, 0, len(e.markers))
	for id, t := range e.markers {
		out = append(out, Marker{ID: id, T: t})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].T == out[j].T {
			return out[i].ID < out[j].ID
		}
		return out[i].T < out[j].T
	})
	return out
}

func (e *Engine) markerTime(id int) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.markers[id]
	if !ok {
		return 0, wave.ErrUnknownMarker
	}
	return t, nil
}

// ValueAt reads one channel's value at a marker position.
func (e *Engine) ValueAt(id wave.ChannelID, markerID int) (float64, error) {
	t, err := e.markerTime(markerID)
	if err != nil {
		return 0, err
	}
	ch, err := e.store.Channel(id)
	if err != nil {
		return 0, err
	}
	return e.read(ch, t)
}

// readAll reads one channel's value at every given time under a single lock
// acquisition, so a measurement spanning several times is never torn across a
// concurrent ingestion update.
func (e *Engine) readAll(ch *store.Channel, ts ...int64) ([]float64, error) {
	if e.policy == ValueNearest {
		samples, err := ch.NearestAll(ts...)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(samples))
		for i, s := range samples {
			out[i] = s.V
		}
		return out, nil
	}

	befores, afters, err := ch.BracketAll(ts...)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = interpolate(befores[i], afters[i], t)
	}
	return out, nil
}

func (e *Engine) read(ch *store.Channel, t int64) (float64, error) {
	vs, err := e.readAll(ch, t)
	if err != nil {
		return 0, err
	}
	return vs[0], nil
}

func interpolate(before, after wave.Sample, t int64) float64 {
	if before.T == after.T {
		return after.V
	}
	frac := float64(t-before.T) / float64(after.T-before.T)
	return before.V + frac*(after.V-before.V)
}

// Delta measures marker B relative to marker A: the signed time delta plus,
// per channel, the value delta and slew rate. Channels with no data are left
// out of the result rather than failing the measurement.
func (e *Engine) Delta(markerA, markerB int) (*DeltaResult, error) {
	ta, err := e.markerTime(markerA)
	if err != nil {
		return nil, err
	}
	tb, err := e.markerTime(markerB)
	if err != nil {
		return nil, err
	}

	res := &DeltaResult{
		DeltaTime:  tb - ta,
		PerChannel: make(map[wave.ChannelID]ChannelDelta),
	}
	seconds := float64(res.DeltaTime) / float64(time.Second)
	for _, ch := range e.store.Channels() {
		// Both marker values come from one locked read, so the delta never
		// mixes two store states.
		vs, err := e.readAll(ch, ta, tb)
		if err != nil {
			continue
		}
		cd := ChannelDelta{ValueA: vs[0], ValueB: vs[1], DeltaValue: vs[1] - vs[0]}
		if seconds != 0 {
			cd.Slew = cd.DeltaValue / seconds
		}
		res.PerChannel[ch.Meta().ID] = cd
	}
	return res, nil
}

// FrequencyFromPeriod treats the marker interval as one period and returns
// the frequency in hertz.
func (e *Engine) FrequencyFromPeriod(markerA, markerB int) (float64, error) {
	res, err := e.Delta(markerA, markerB)
	if err != nil {
		return 0, err
	}
	if res.DeltaTime == 0 {
		return 0, wave.ErrZeroPeriod
	}
	return float64(time.Second) / math.Abs(float64(res.DeltaTime)), nil
}
