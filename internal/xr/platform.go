package xr

import (
	"errors"
	"sync"
)

// ErrNoShim is returned by InstallShim when no compatibility layer exists.
var ErrNoShim = errors.New("xr: no compatibility layer available")

// Platform is what capability detection probes.
type Platform interface {
	// Current returns the current-generation API, or nil when absent.
	Current() System
	// Legacy returns the previous-generation API, or nil when absent.
	Legacy() LegacyAPI
	// InstallShim installs a compatibility layer so that Current reports a
	// System afterwards.
	InstallShim() error
}

// Runtime is a Platform assembled from whatever the host provides.
type Runtime struct {
	mu      sync.Mutex
	current System
	legacy  LegacyAPI
	shim    func() (System, error)
}

// NewRuntime creates a platform. Any argument may be nil.
func NewRuntime(current System, legacy LegacyAPI, shim func() (System, error)) *Runtime {
	return &Runtime{current: current, legacy: legacy, shim: shim}
}

func (r *Runtime) Current() System {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Runtime) Legacy() LegacyAPI {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.legacy
}

func (r *Runtime) InstallShim() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return nil
	}
	if r.shim == nil {
		return ErrNoShim
	}
	sys, err := r.shim()
	if err != nil {
		return err
	}
	r.current = sys
	return nil
}
