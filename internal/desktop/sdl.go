package desktop

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"
)

type sdlController struct {
	ctrl *sdl.GameController
}

// OpenSDLController opens a controller through SDL's game controller API.
func OpenSDLController(device int) (Controller, error) {
	if !sdl.IsGameController(device) {
		return nil, fmt.Errorf("device %d is not a game controller", device)
	}
	ctrl := sdl.GameControllerOpen(device)
	if ctrl == nil {
		return nil, fmt.Errorf("SDL_GameControllerOpen failed: %v", sdl.GetError())
	}
	return &sdlController{ctrl: ctrl}, nil
}

func (c *sdlController) InstanceID() int32 {
	return int32(c.ctrl.Joystick().InstanceID())
}

func (c *sdlController) Name() string {
	return c.ctrl.Name()
}

func (c *sdlController) Close() {
	c.ctrl.Close()
}
