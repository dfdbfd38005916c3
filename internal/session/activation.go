package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vr/internal/xr"
)

// detect probes the platform: current generation first, then legacy, then
// the compatibility shim. Absent capability leaves the player orbit-only.
func (c *Controller) detect() {
	p := c.deps.Platform
	if p == nil {
		c.noCapability("no immersive platform")
		return
	}

	switch {
	case p.Current() != nil:
		c.capability = CapabilityCurrent
		c.system = p.Current()
	case p.Legacy() != nil:
		legacy := p.Legacy()
		if legacy.OutOfDate() {
			c.deps.Host.ReportError(ErrOutOfDate)
			c.noCapability("legacy immersive API is out of date")
			return
		}
		c.capability = CapabilityLegacy
		c.system = xr.NewLegacySystem(legacy)
	default:
		if err := p.InstallShim(); err != nil || p.Current() == nil {
			c.noCapability("immersive API not available")
			return
		}
		c.trace("compatibility layer installed")
		c.capability = CapabilityCurrent
		c.system = p.Current()
	}

	gen := c.gen
	sys := c.system
	c.deps.Spawn(func() {
		ok, err := sys.IsSessionSupported(context.Background(), xr.ModeImmersiveVR)
		c.deps.Dispatcher.Post(func() {
			c.onSupport(gen, ok, err)
		})
	})
}

func (c *Controller) noCapability(reason string) {
	c.capability = CapabilityNone
	c.system = nil
	c.state = StateNoCapability
	c.log.Info(reason + ", using orbit controls")
}

func (c *Controller) onSupport(gen uint64, ok bool, err error) {
	if gen != c.gen || !c.initialized {
		return
	}
	if err != nil {
		c.log.Warn("immersive support query failed", zap.Error(err))
	}
	c.supported = ok && err == nil
	if !c.supported {
		c.state = StateNoCapability
		c.log.Info("immersive device not found, using orbit controls")
		return
	}

	c.log.Info("immersive session supported", zap.Stringer("capability", c.capability))
	if c.state == StateDetecting {
		c.state = StateReady
	}
	c.addSessionButton()
}

func (c *Controller) addSessionButton() {
	if c.button != nil {
		return
	}
	c.button = c.deps.Host.AddSessionButton(c.onSessionButton)
}

func (c *Controller) onSessionButton() {
	if c.button == nil {
		return
	}
	if c.button.Active() {
		c.button.SetActive(false)
		c.Deactivate()
		return
	}

	c.button.SetActive(true)
	p := c.deps.Playback
	if p.Ready() && p.Paused() {
		p.Play()
	}
	c.Activate()
}

// Activate requests an immersive session. Requests made while one is in
// flight or already running are ignored.
func (c *Controller) Activate() {
	if !c.initialized {
		return
	}
	if c.activating {
		c.trace("session activation already in flight")
		return
	}
	if c.session != nil {
		return
	}
	if c.system == nil || !c.supported {
		c.deps.Host.ReportError(ErrNotSupported)
		if c.button != nil {
			c.button.SetActive(false)
		}
		return
	}

	c.activating = true
	c.abortActivation = false
	gen := c.gen
	sys := c.system
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelActivation = cancel

	c.trace("requesting immersive session")
	c.deps.Spawn(func() {
		s, err := sys.RequestSession(ctx, xr.ModeImmersiveVR, xr.SessionInit{
			OptionalFeatures: []xr.ReferenceSpaceType{xr.SpaceLocalFloor},
		})
		c.deps.Dispatcher.Post(func() {
			c.onSessionStarted(gen, s, err)
		})
	})
}

func (c *Controller) onSessionStarted(gen uint64, s xr.Session, err error) {
	if gen != c.gen {
		// Reset while the request was in flight.
		if s != nil {
			_ = s.End()
		}
		return
	}

	c.activating = false
	if c.cancelActivation != nil {
		c.cancelActivation()
		c.cancelActivation = nil
	}
	defer c.applyDeferred()

	if err != nil {
		c.log.Warn("immersive session request failed", zap.Error(err))
		if c.button != nil {
			c.button.SetActive(false)
		}
		return
	}
	if c.abortActivation {
		c.abortActivation = false
		_ = s.End()
		return
	}

	// Switch the frame pump over to the session.
	c.stopFrame()
	c.session = s
	c.offSessionEnd = s.OnEnd(func() {
		c.deps.Dispatcher.Post(func() { c.onSessionEnd(s) })
	})
	c.controls.Disable()
	c.state = StateSessionActive
	if c.button != nil {
		c.button.SetActive(true)
	}
	c.log.Info("immersive session started")

	gen = c.gen
	c.deps.Spawn(func() {
		space, err := s.RequestReferenceSpace(context.Background(), xr.SpaceLocal)
		c.deps.Dispatcher.Post(func() {
			if gen != c.gen || c.session != s {
				return
			}
			if err != nil {
				c.log.Warn("reference space unavailable", zap.Error(err))
				return
			}
			c.space = space
		})
	})

	c.scheduleFrame()
}

func (c *Controller) applyDeferred() {
	if c.deferred == nil {
		return
	}
	f := *c.deferred
	c.deferred = nil
	c.applyProjection(f)
}

// Deactivate ends the running session, if any. A session still being
// requested is ended as soon as it starts.
func (c *Controller) Deactivate() {
	if c.activating {
		c.abortActivation = true
	}
	if c.session != nil {
		if err := c.session.End(); err != nil {
			c.log.Warn("end session", zap.Error(err))
		}
	}
	if c.button != nil {
		c.button.SetActive(false)
	}
}

// onSessionEnd runs for user, system and error initiated ends alike.
func (c *Controller) onSessionEnd(s xr.Session) {
	if c.session != s {
		return
	}
	c.stopFrame()
	if c.offSessionEnd != nil {
		c.offSessionEnd()
		c.offSessionEnd = nil
	}
	c.session = nil
	c.space = nil
	c.pose = nil

	c.controls.Enable()
	c.state = StateReady
	if c.button != nil {
		c.button.SetActive(false)
	}
	c.log.Info("immersive session ended")

	c.scheduleFrame()
}
