// Package gesture tells taps from drags on the render surface and turns taps
// into player actions.
package gesture

// Pointer is the device that produced an event.
type Pointer uint8

const (
	PointerMouse Pointer = iota
	PointerTouch
)

// Kind is the phase of a pointer sequence an event belongs to.
type Kind uint8

const (
	KindPressStart Kind = iota // mouse down, touch start
	KindMove                   // mouse move, touch move
	KindRelease                // mouse up, touch end
	KindCancel                 // touch cancel
)

// ButtonPrimary is the left mouse button.
const ButtonPrimary uint8 = 1

// Event is a pointer or touch event in window coordinates.
type Event struct {
	Kind    Kind
	Pointer Pointer
	Button  uint8 // mouse only
	X, Y    float32
}

// Rect is the bounding rectangle of the render surface.
type Rect struct {
	X, Y, W, H float32
}

// Region is the surface area a press started in.
type Region uint8

const (
	RegionNone Region = iota
	RegionExit
	RegionSettings
	RegionToggle
)

func (r Region) String() string {
	switch r {
	case RegionExit:
		return "exit"
	case RegionSettings:
		return "settings"
	case RegionToggle:
		return "toggle"
	default:
		return "none"
	}
}

// Phase of the current pointer sequence.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseTracking
)

// Action is what a completed tap asks the player to do.
type Action uint8

const (
	ActionToggle Action = iota
	ActionExitSession
	ActionOpenSettings
)

func (a Action) String() string {
	switch a {
	case ActionExitSession:
		return "exit-session"
	case ActionOpenSettings:
		return "open-settings"
	default:
		return "toggle-playback"
	}
}

// State is the recognizer's view of the current pointer sequence.
type State struct {
	Phase     Phase
	Region    Region
	MoveCount int
}

// HotspotSize is the edge of the exit and settings hotspots, in pixels.
const HotspotSize = 50

// Classify maps a press at window coordinates (x, y) to a region of r: the
// top-left hotspot exits, the bottom-center hotspot opens settings, anything
// else toggles playback.
func Classify(r Rect, x, y float32) Region {
	lx := x - r.X
	ly := y - r.Y

	if lx >= 0 && lx <= HotspotSize && ly >= 0 && ly <= HotspotSize {
		return RegionExit
	}

	dx := lx - r.W/2
	if dx < 0 {
		dx = -dx
	}
	if dx <= HotspotSize/2 && ly >= r.H-HotspotSize && ly <= r.H {
		return RegionSettings
	}

	return RegionToggle
}
