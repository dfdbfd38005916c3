package desktop

import (
	gomath "math"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vr/internal/engine/input"
	"github.com/Faultbox/midgard-vr/internal/gesture"
	"github.com/Faultbox/midgard-vr/internal/session"
	"github.com/Faultbox/midgard-vr/pkg/projection"
)

// nudgeStep is how far one arrow key press turns the cardboard head.
const nudgeStep = float32(5 * gomath.Pi / 180)

// Player is the playback side the keyboard controls.
type Player interface {
	Play()
	Pause()
	Paused() bool
	Fullscreen() bool
	SetFullscreen(on bool)
}

// Session is the controller the router feeds.
type Session interface {
	HandlePointer(ev gesture.Event)
	ChangeProjection(id string)
	Projection() projection.Format
	Deactivate()
	SessionState() session.SessionState
}

// Tracker is steered by the arrow keys while no motion sensor reports.
type Tracker interface {
	Nudge(dYaw, dPitch float32)
	Reset()
}

// Router turns window input into host events and controller calls.
//
// Keys:
//
//	F, F11      toggle fullscreen
//	Space       play / pause
//	V, Enter    press the session button
//	Escape      leave fullscreen, else end the session
//	P           cycle projection formats
//	Arrows      turn the split-screen head
//	R           recenter the split-screen head
type Router struct {
	host    *Host
	win     Window
	player  Player
	session Session
	pads    *Gamepads
	tracker Tracker
	log     *zap.Logger
}

// NewRouter wires a router. pads and tracker may be nil.
func NewRouter(host *Host, win Window, player Player, s Session, pads *Gamepads, tracker Tracker, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		host:    host,
		win:     win,
		player:  player,
		session: s,
		pads:    pads,
		tracker: tracker,
		log:     log,
	}
}

// Handle routes every event of one input pump.
func (r *Router) Handle(events []input.Event) {
	for _, ev := range events {
		r.handle(ev)
	}
}

func (r *Router) handle(ev input.Event) {
	switch ev.Type {
	case input.EventWindowResize:
		r.host.Emit(session.HostResize)

	case input.EventMouseDown:
		r.pointer(gesture.KindPressStart, gesture.PointerMouse, ev)
	case input.EventMouseMove:
		r.pointer(gesture.KindMove, gesture.PointerMouse, ev)
	case input.EventMouseUp:
		r.pointer(gesture.KindRelease, gesture.PointerMouse, ev)
	case input.EventTouchDown:
		r.pointer(gesture.KindPressStart, gesture.PointerTouch, ev)
	case input.EventTouchMove:
		r.pointer(gesture.KindMove, gesture.PointerTouch, ev)
	case input.EventTouchUp:
		r.pointer(gesture.KindRelease, gesture.PointerTouch, ev)

	case input.EventKeyDown:
		r.key(ev)

	case input.EventControllerAdded:
		if r.pads != nil {
			r.pads.Added(int(ev.Device))
		}
	case input.EventControllerRemoved:
		if r.pads != nil {
			r.pads.Removed(ev.Device)
		}
	case input.EventControllerButtonDown, input.EventControllerButtonUp:
		if r.pads != nil {
			r.pads.Button(ev.Device, int(ev.Button), ev.Type == input.EventControllerButtonDown)
		}
	}
}

func (r *Router) pointer(kind gesture.Kind, ptr gesture.Pointer, ev input.Event) {
	r.session.HandlePointer(gesture.Event{
		Kind:    kind,
		Pointer: ptr,
		Button:  ev.Button,
		X:       ev.MouseX,
		Y:       ev.MouseY,
	})
}

func (r *Router) key(ev input.Event) {
	switch ev.Key {
	case sdl.SCANCODE_LEFT:
		r.nudge(nudgeStep, 0)
		return
	case sdl.SCANCODE_RIGHT:
		r.nudge(-nudgeStep, 0)
		return
	case sdl.SCANCODE_UP:
		r.nudge(0, nudgeStep)
		return
	case sdl.SCANCODE_DOWN:
		r.nudge(0, -nudgeStep)
		return
	}
	if ev.Repeat {
		return
	}

	switch ev.Key {
	case sdl.SCANCODE_F, sdl.SCANCODE_F11:
		r.setFullscreen(!r.win.Fullscreen())
	case sdl.SCANCODE_SPACE:
		if r.player.Paused() {
			r.player.Play()
		} else {
			r.player.Pause()
		}
	case sdl.SCANCODE_V, sdl.SCANCODE_RETURN:
		if !r.host.ClickSessionButton() {
			r.log.Debug("no session button to press")
		}
	case sdl.SCANCODE_ESCAPE:
		if r.win.Fullscreen() {
			r.setFullscreen(false)
		} else if r.session.SessionState().Active {
			r.session.Deactivate()
		}
	case sdl.SCANCODE_P:
		r.session.ChangeProjection(nextFormat(r.session.Projection()).String())
	case sdl.SCANCODE_R:
		if r.tracker != nil {
			r.tracker.Reset()
		}
	}
}

func (r *Router) nudge(dYaw, dPitch float32) {
	if r.tracker != nil {
		r.tracker.Nudge(dYaw, dPitch)
	}
}

func (r *Router) setFullscreen(on bool) {
	if err := r.win.SetFullscreen(on); err != nil {
		r.log.Warn("failed to change fullscreen", zap.Error(err))
		return
	}
	r.player.SetFullscreen(on)
	r.host.Emit(session.HostFullscreenChange)
}

// nextFormat cycles through every format except NONE.
func nextFormat(f projection.Format) projection.Format {
	formats := projection.Formats
	for i, g := range formats {
		if g != f {
			continue
		}
		next := formats[(i+1)%len(formats)]
		if next == projection.FormatNone {
			next = formats[(i+2)%len(formats)]
		}
		return next
	}
	return projection.FormatSphere360
}
