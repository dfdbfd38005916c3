// Package input handles SDL2 input events.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// Event types for player use
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseDown
	EventMouseUp
	EventTouchDown
	EventTouchMove
	EventTouchUp
	EventControllerAdded
	EventControllerRemoved
	EventControllerButtonDown
	EventControllerButtonUp
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Repeat bool
	Width  int
	Height int
	// Mouse and touch positions are in window coordinates.
	MouseX float32
	MouseY float32
	Button uint8
	// Device is the device index for EventControllerAdded and the joystick
	// instance id for every other controller event.
	Device int32
}

// touchMouseID marks mouse events synthesized from touches.
const touchMouseID = 0xFFFFFFFF

// Input handles all input processing.
type Input struct {
	events []Event
	size   func() (int, int)
}

// New creates a new input handler. size reports the window size used to
// scale normalized touch coordinates.
func New(size func() (int, int)) *Input {
	return &Input{
		events: make([]Event, 0, 16),
		size:   size,
	}
}

// Update polls SDL events and converts them to player events.
// Returns true if the player should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		ev, ok := i.translate(event)
		if !ok {
			continue
		}
		i.events = append(i.events, ev)
		if ev.Type == EventQuit {
			return true
		}
	}

	return false
}

func (i *Input) translate(event sdl.Event) (Event, bool) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		return Event{Type: EventQuit}, true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			return Event{
				Type:   EventWindowResize,
				Width:  int(e.Data1),
				Height: int(e.Data2),
			}, true
		}

	case *sdl.KeyboardEvent:
		ev := Event{Key: e.Keysym.Scancode, Repeat: e.Repeat != 0}
		switch e.Type {
		case sdl.KEYDOWN:
			ev.Type = EventKeyDown
		case sdl.KEYUP:
			ev.Type = EventKeyUp
		default:
			return Event{}, false
		}
		return ev, true

	case *sdl.MouseMotionEvent:
		if e.Which == touchMouseID {
			return Event{}, false
		}
		return Event{
			Type:   EventMouseMove,
			MouseX: float32(e.X),
			MouseY: float32(e.Y),
		}, true

	case *sdl.MouseButtonEvent:
		// Touches are reported separately as finger events.
		if e.Which == touchMouseID {
			return Event{}, false
		}
		ev := Event{MouseX: float32(e.X), MouseY: float32(e.Y), Button: e.Button}
		switch e.Type {
		case sdl.MOUSEBUTTONDOWN:
			ev.Type = EventMouseDown
		case sdl.MOUSEBUTTONUP:
			ev.Type = EventMouseUp
		default:
			return Event{}, false
		}
		return ev, true

	case *sdl.TouchFingerEvent:
		w, h := 0, 0
		if i.size != nil {
			w, h = i.size()
		}
		ev := Event{MouseX: e.X * float32(w), MouseY: e.Y * float32(h)}
		switch e.Type {
		case sdl.FINGERDOWN:
			ev.Type = EventTouchDown
		case sdl.FINGERMOTION:
			ev.Type = EventTouchMove
		case sdl.FINGERUP:
			ev.Type = EventTouchUp
		default:
			return Event{}, false
		}
		return ev, true

	case *sdl.ControllerDeviceEvent:
		switch e.Type {
		case sdl.CONTROLLERDEVICEADDED:
			return Event{Type: EventControllerAdded, Device: int32(e.Which)}, true
		case sdl.CONTROLLERDEVICEREMOVED:
			return Event{Type: EventControllerRemoved, Device: int32(e.Which)}, true
		}

	case *sdl.ControllerButtonEvent:
		ev := Event{Device: int32(e.Which), Button: e.Button}
		switch e.Type {
		case sdl.CONTROLLERBUTTONDOWN:
			ev.Type = EventControllerButtonDown
		case sdl.CONTROLLERBUTTONUP:
			ev.Type = EventControllerButtonUp
		default:
			return Event{}, false
		}
		return ev, true
	}

	return Event{}, false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && !e.Repeat && e.Key == scancode {
			return true
		}
	}
	return false
}
