package session

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vr/internal/xr"
)

const (
	// fallbackFrameInterval paces frames when no display-sync source exists.
	fallbackFrameInterval = time.Second / 60
	// resizeSettleDelay is how long after a resize the dimensions are read
	// again; some platforms report stale sizes right after rotation.
	resizeSettleDelay = 200 * time.Millisecond
)

// scheduleFrame arms the next frame on the source matching the current
// state: the session while one is active, else display sync, else a timer.
func (c *Controller) scheduleFrame() {
	switch {
	case c.session != nil:
		s := c.session
		h := s.RequestAnimationFrame(func(t time.Time, f xr.Frame) {
			c.frame(t, f)
		})
		c.cancelFrame = func() { s.CancelAnimationFrame(h) }
	case c.deps.Display != nil:
		d := c.deps.Display
		id := d.RequestAnimationFrame(func(t time.Time) {
			c.frame(t, nil)
		})
		c.cancelFrame = func() { d.CancelAnimationFrame(id) }
	default:
		c.cancelFrame = c.deps.Timers.AfterFunc(fallbackFrameInterval, func() {
			c.frame(time.Now(), nil)
		})
	}
}

func (c *Controller) stopFrame() {
	if c.cancelFrame != nil {
		c.cancelFrame()
		c.cancelFrame = nil
	}
}

// frame is one iteration of the render loop.
func (c *Controller) frame(_ time.Time, f xr.Frame) {
	c.cancelFrame = nil
	if !c.initialized {
		return
	}

	if v := c.deps.Playback.Video(); v != nil && v.HasEnoughData() {
		c.renderer.MarkTextureDirty()
	}

	if c.session == nil {
		c.controls.Update()
	}

	if c.audio != nil {
		c.audio.Update(c.camera)
	}

	c.pose = nil
	if c.session != nil && f != nil && c.space != nil {
		if pose, ok := f.ViewerPose(c.space); ok {
			c.pose = &pose
		}
	}

	c.pollGamepads()

	if err := c.renderer.Render(c.camera, c.pose); err != nil {
		if errors.Is(err, ErrTextureUpload) {
			c.recoverTextureFailure(err)
			return
		}
		c.log.Warn("render", zap.Error(err))
	}

	// The loop may have been torn down by a callback above.
	if c.initialized && c.cancelFrame == nil {
		c.scheduleFrame()
	}
}

// recoverTextureFailure handles frames the GPU refuses to sample, typically
// cross-origin streams.
func (c *Controller) recoverTextureFailure(err error) {
	c.log.Error("video texture rejected", zap.Error(err))
	c.Reset()
	c.deps.Playback.Pause()
	c.deps.Host.ReportError(wrap(ErrHLSCORSNotSupported, err))
}

// pollGamepads toggles playback once per new input report that has a
// button held.
func (c *Controller) pollGamepads() {
	if c.deps.Gamepads == nil {
		return
	}
	for _, pad := range c.deps.Gamepads.Gamepads() {
		if !pad.Connected || pad.Timestamp == 0 || pad.Timestamp == c.prevTimestamps[pad.Index] {
			continue
		}
		for _, pressed := range pad.Buttons {
			if pressed {
				c.trace("gamepad toggle", zap.Int("index", pad.Index))
				c.togglePlayback()
				c.prevTimestamps[pad.Index] = pad.Timestamp
				break
			}
		}
	}
}

// handleResize applies the container size now and once more after the
// platform settles.
func (c *Controller) handleResize() {
	if !c.initialized {
		return
	}
	c.applyResize()

	if c.resizeTimers == nil {
		c.resizeTimers = make(map[int]func())
	}
	id := c.nextResize
	c.nextResize++
	c.resizeTimers[id] = c.deps.Timers.AfterFunc(resizeSettleDelay, func() {
		delete(c.resizeTimers, id)
		if !c.initialized {
			return
		}
		c.applyResize()
		if c.session == nil && !c.activating && c.button != nil {
			c.button.SetActive(false)
		}
	})
}

func (c *Controller) applyResize() {
	width, height := c.deps.Host.ContainerSize()
	if width <= 0 || height <= 0 {
		return
	}
	c.camera.SetAspect(aspect(width, height))
	c.renderer.SetSize(width, height)
	c.trace("resized", zap.Int("width", width), zap.Int("height", height))
}
