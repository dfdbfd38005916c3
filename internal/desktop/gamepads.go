package desktop

import (
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vr/internal/session"
)

// ButtonCount is the number of buttons reported per gamepad.
const ButtonCount = 21

// Controller is an opened game controller.
type Controller interface {
	// InstanceID is the id button events carry.
	InstanceID() int32
	Name() string
	Close()
}

// Opener opens the game controller at a device index.
type Opener func(device int) (Controller, error)

type pad struct {
	ctrl      Controller
	slot      int
	timestamp uint64
	buttons   [ButtonCount]bool
}

// Gamepads tracks connected game controllers and implements
// session.GamepadSource. Snapshots are built from controller events, so
// reading them never polls the device.
type Gamepads struct {
	open Opener
	log  *zap.Logger

	pads  map[int32]*pad
	slots []*pad
}

// NewGamepads creates a tracker that opens controllers with open.
func NewGamepads(open Opener, log *zap.Logger) *Gamepads {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gamepads{
		open: open,
		log:  log,
		pads: make(map[int32]*pad),
	}
}

// Added opens the controller at device and assigns it the first free slot.
func (g *Gamepads) Added(device int) {
	ctrl, err := g.open(device)
	if err != nil {
		g.log.Warn("failed to open game controller", zap.Int("device", device), zap.Error(err))
		return
	}
	id := ctrl.InstanceID()
	if _, ok := g.pads[id]; ok {
		// SDL reports controllers present at startup twice.
		ctrl.Close()
		return
	}

	p := &pad{ctrl: ctrl, slot: len(g.slots)}
	for i, s := range g.slots {
		if s == nil {
			p.slot = i
			break
		}
	}
	if p.slot == len(g.slots) {
		g.slots = append(g.slots, p)
	} else {
		g.slots[p.slot] = p
	}
	g.pads[id] = p
	g.log.Info("game controller connected",
		zap.String("name", ctrl.Name()),
		zap.Int("slot", p.slot))
}

// Removed closes the controller with the given instance id.
func (g *Gamepads) Removed(id int32) {
	p, ok := g.pads[id]
	if !ok {
		return
	}
	p.ctrl.Close()
	delete(g.pads, id)
	g.slots[p.slot] = nil
	g.log.Info("game controller disconnected", zap.Int("slot", p.slot))
}

// Button records a button change.
func (g *Gamepads) Button(id int32, button int, down bool) {
	p, ok := g.pads[id]
	if !ok || button < 0 || button >= ButtonCount {
		return
	}
	if p.buttons[button] == down {
		return
	}
	p.buttons[button] = down
	p.timestamp++
}

// Gamepads returns a snapshot of every connected controller.
func (g *Gamepads) Gamepads() []session.Gamepad {
	out := make([]session.Gamepad, 0, len(g.pads))
	for _, p := range g.slots {
		if p == nil {
			continue
		}
		out = append(out, session.Gamepad{
			Index:     p.slot,
			Connected: true,
			Timestamp: p.timestamp,
			Buttons:   append([]bool(nil), p.buttons[:]...),
		})
	}
	return out
}

// Close closes every open controller.
func (g *Gamepads) Close() {
	for id := range g.pads {
		g.Removed(id)
	}
}
