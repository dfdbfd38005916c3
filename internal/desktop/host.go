// Package desktop embeds the immersive player in an SDL window: it plays
// the role of the host page, routes window input to the session
// controller and tracks connected game controllers.
package desktop

import (
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vr/internal/gesture"
	"github.com/Faultbox/midgard-vr/internal/session"
)

// Window is the part of the SDL window the host drives.
type Window interface {
	GetSize() (int, int)
	DrawableSize() (int, int)
	SetTitle(title string)
	Fullscreen() bool
	SetFullscreen(on bool) error
	ShowError(title, message string)
}

// Host implements session.Host on top of a desktop window.
type Host struct {
	win   Window
	title string
	log   *zap.Logger

	attached bool
	button   *sessionButton
	subs     map[session.HostEvent][]*func()
}

// NewHost creates a host for win. title is the window title shown outside
// a session.
func NewHost(win Window, title string, log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	return &Host{
		win:   win,
		title: title,
		log:   log,
		subs:  make(map[session.HostEvent][]*func()),
	}
}

// ContainerSize returns the drawable size in pixels.
func (h *Host) ContainerSize() (int, int) {
	return h.win.DrawableSize()
}

// SurfaceBounds returns the window rectangle in the coordinates mouse and
// touch events use.
func (h *Host) SurfaceBounds() gesture.Rect {
	w, ht := h.win.GetSize()
	return gesture.Rect{W: float32(w), H: float32(ht)}
}

// AttachSurface marks the window as showing the render surface.
func (h *Host) AttachSurface() func() {
	h.attached = true
	h.log.Debug("render surface attached")
	return func() {
		h.attached = false
		h.log.Debug("render surface detached")
	}
}

// Attached reports whether the render surface is shown.
func (h *Host) Attached() bool { return h.attached }

// AddSessionButton installs the session toggle. The desktop has no button
// widget; ClickSessionButton stands in for clicks and the window title
// shows the active mark.
func (h *Host) AddSessionButton(onClick func()) session.SessionButton {
	if h.button != nil {
		h.button.Remove()
	}
	h.button = &sessionButton{host: h, onClick: onClick}
	h.log.Debug("session button added")
	return h.button
}

// ClickSessionButton presses the session button, if one is installed.
// It reports whether a button was there to press.
func (h *Host) ClickSessionButton() bool {
	if h.button == nil {
		return false
	}
	h.button.onClick()
	return true
}

// Subscribe registers fn for ev.
func (h *Host) Subscribe(ev session.HostEvent, fn func()) func() {
	ptr := &fn
	h.subs[ev] = append(h.subs[ev], ptr)
	return func() {
		fns := h.subs[ev]
		for i, q := range fns {
			if q == ptr {
				h.subs[ev] = append(fns[:i:i], fns[i+1:]...)
				return
			}
		}
	}
}

// Emit notifies the subscribers of ev.
func (h *Host) Emit(ev session.HostEvent) {
	fns := append([]*func(){}, h.subs[ev]...)
	for _, fn := range fns {
		(*fn)()
	}
}

// ReportError logs err and shows it in a message box.
func (h *Host) ReportError(err *session.Error) {
	h.log.Error("player error",
		zap.String("code", string(err.Code)),
		zap.Stringer("kind", err.Kind),
		zap.Error(err))
	h.win.ShowError(err.Headline, err.Message)
}

func (h *Host) updateTitle() {
	title := h.title
	if h.button != nil && h.button.active {
		title += " [VR]"
	}
	h.win.SetTitle(title)
}

type sessionButton struct {
	host    *Host
	onClick func()
	active  bool
}

func (b *sessionButton) Active() bool { return b.active }

func (b *sessionButton) SetActive(active bool) {
	if b.active == active {
		return
	}
	b.active = active
	if b.host.button == b {
		b.host.updateTitle()
	}
}

func (b *sessionButton) Remove() {
	if b.host.button != b {
		return
	}
	b.active = false
	b.host.button = nil
	b.host.updateTitle()
	b.host.log.Debug("session button removed")
}
