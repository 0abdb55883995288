package interaction

// Action is a viewer command decoded from an input event. The core consumes
// only these; any richer input vocabulary belongs to the toolkit layer.
type Action int

const (
	ActionNone Action = iota
	ActionPanLeft
	ActionPanRight
	ActionPanLeftFast
	ActionPanRightFast
	ActionZoomIn
	ActionZoomOut
	ActionMarkerPlace
	ActionMarkerClear
	ActionMeasure
	ActionToggleFollow
	ActionResetView
	ActionQuit
)

// MapKey translates a key event to a viewer action.
//
//	arrows / h l   pan (shift amount is the caller's choice)
//	H L            pan a full screen
//	+ = up         zoom in around the center
//	- _ down       zoom out around the center
//	m              place marker at the center
//	c              clear markers
//	d              print measurements between the last two markers
//	f              toggle follow mode
//	0              reset to the full recording span
//	q / Ctrl+C     quit
func MapKey(ev KeyEvent) Action {
	switch ev.Type {
	case KeyArrowLeft:
		return ActionPanLeft
	case KeyArrowRight:
		return ActionPanRight
	case KeyArrowUp:
		return ActionZoomIn
	case KeyArrowDown:
		return ActionZoomOut
	case KeyEscape:
		return ActionNone
	}

	switch ev.Key {
	case 'h':
		return ActionPanLeft
	case 'l':
		return ActionPanRight
	case 'H':
		return ActionPanLeftFast
	case 'L':
		return ActionPanRightFast
	case '+', '=':
		return ActionZoomIn
	case '-', '_':
		return ActionZoomOut
	case 'm':
		return ActionMarkerPlace
	case 'c':
		return ActionMarkerClear
	case 'd':
		return ActionMeasure
	case 'f':
		return ActionToggleFollow
	case '0':
		return ActionResetView
	case 'q', 'Q', 3: // 3 is Ctrl+C
		return ActionQuit
	}
	return ActionNone
}
