package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapKey(t *testing.T) {
	cases := []struct {
		name string
		ev   KeyEvent
		want Action
	}{
		{"left arrow pans left", KeyEvent{Type: KeyArrowLeft}, ActionPanLeft},
		{"right arrow pans right", KeyEvent{Type: KeyArrowRight}, ActionPanRight},
		{"up arrow zooms in", KeyEvent{Type: KeyArrowUp}, ActionZoomIn},
		{"down arrow zooms out", KeyEvent{Type: KeyArrowDown}, ActionZoomOut},
		{"h pans left", KeyEvent{Key: 'h'}, ActionPanLeft},
		{"l pans right", KeyEvent{Key: 'l'}, ActionPanRight},
		{"H pans a screen left", KeyEvent{Key: 'H'}, ActionPanLeftFast},
		{"L pans a screen right", KeyEvent{Key: 'L'}, ActionPanRightFast},
		{"plus zooms in", KeyEvent{Key: '+'}, ActionZoomIn},
		{"equals zooms in", KeyEvent{Key: '='}, ActionZoomIn},
		{"minus zooms out", KeyEvent{Key: '-'}, ActionZoomOut},
		{"underscore zooms out", KeyEvent{Key: '_'}, ActionZoomOut},
		{"m places a marker", KeyEvent{Key: 'm'}, ActionMarkerPlace},
		{"c clears markers", KeyEvent{Key: 'c'}, ActionMarkerClear},
		{"d measures", KeyEvent{Key: 'd'}, ActionMeasure},
		{"f toggles follow", KeyEvent{Key: 'f'}, ActionToggleFollow},
		{"zero resets the view", KeyEvent{Key: '0'}, ActionResetView},
		{"q quits", KeyEvent{Key: 'q'}, ActionQuit},
		{"Q quits", KeyEvent{Key: 'Q'}, ActionQuit},
		{"ctrl-c quits", KeyEvent{Key: 3}, ActionQuit},
		{"escape is a no-op", KeyEvent{Key: 27, Type: KeyEscape}, ActionNone},
		{"unmapped key is a no-op", KeyEvent{Key: 'x'}, ActionNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapKey(tc.ev))
		})
	}
}

func TestParseInputPlainChars(t *testing.T) {
	events := parseInput([]byte("hl"))
	require.Len(t, events, 2)
	assert.Equal(t, KeyEvent{Key: 'h', Type: KeyChar}, events[0])
	assert.Equal(t, KeyEvent{Key: 'l', Type: KeyChar}, events[1])
}

func TestParseInputArrowSequences(t *testing.T) {
	cases := []struct {
		seq  string
		want KeyType
	}{
		{"\x1b[A", KeyArrowUp},
		{"\x1b[B", KeyArrowDown},
		{"\x1b[C", KeyArrowRight},
		{"\x1b[D", KeyArrowLeft},
	}
	for _, tc := range cases {
		events := parseInput([]byte(tc.seq))
		require.Len(t, events, 1, "sequence %q", tc.seq)
		assert.Equal(t, tc.want, events[0].Type)
	}
}

func TestParseInputMixedBuffer(t *testing.T) {
	// A fast typist can land a char and an arrow in one read.
	events := parseInput([]byte("m\x1b[Cq"))
	require.Len(t, events, 3)
	assert.Equal(t, KeyEvent{Key: 'm', Type: KeyChar}, events[0])
	assert.Equal(t, KeyArrowRight, events[1].Type)
	assert.Equal(t, KeyEvent{Key: 'q', Type: KeyChar}, events[2])
}

func TestParseInputBareEscape(t *testing.T) {
	events := parseInput([]byte{27})
	require.Len(t, events, 1)
	assert.Equal(t, KeyEscape, events[0].Type)
}

func TestParseInputUnknownCSIIgnored(t *testing.T) {
	events := parseInput([]byte("\x1b[Zq"))
	require.Len(t, events, 1, "the unknown sequence is dropped, the rest parses")
	assert.Equal(t, KeyEvent{Key: 'q', Type: KeyChar}, events[0])
}
