package measure

import (
	"fmt"

	"github.com/openscope/wavescope/internal/core/viewport"
	"github.com/openscope/wavescope/internal/util"
)

// MarkerLabel is the render-surface form of one visible marker.
type MarkerLabel struct {
	ID     int
	PixelX int
	Text   string
}

// Labels maps the markers inside the viewport to pixel positions with their
// display text. Markers outside the visible range are omitted.
func (e *Engine) Labels(vp viewport.Viewport) []MarkerLabel {
	var out []MarkerLabel
	for i, m := range e.Markers() {
		if m.T < vp.Start || m.T >= vp.End {
			continue
		}
		x := vp.TimeToPixel(m.T)
		if x < 0 || x >= vp.Width {
			continue
		}
		out = append(out, MarkerLabel{
			ID:     m.ID,
			PixelX: x,
			Text:   fmt.Sprintf("M%d %s", i+1, util.FormatNano(m.T)),
		})
	}
	return out
}
