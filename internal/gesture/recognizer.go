package gesture

// Recognizer consumes surface events and emits at most one Action per
// pointer sequence. It is not safe for concurrent use; all calls must come
// from the UI sequence.
type Recognizer struct {
	bounds        func() Rect
	sessionActive func() bool
	emit          func(Action)

	state    State
	disposed bool
}

// New creates a recognizer. bounds returns the surface rectangle at press
// time, sessionActive reports whether an immersive session is presenting,
// and emit receives classified actions.
func New(bounds func() Rect, sessionActive func() bool, emit func(Action)) *Recognizer {
	return &Recognizer{
		bounds:        bounds,
		sessionActive: sessionActive,
		emit:          emit,
	}
}

// Handle feeds one event into the recognizer.
func (r *Recognizer) Handle(ev Event) {
	if r.disposed {
		return
	}

	switch ev.Kind {
	case KindPressStart:
		if ev.Pointer == PointerMouse && ev.Button != ButtonPrimary {
			return
		}
		r.state = State{
			Phase:  PhaseTracking,
			Region: Classify(r.bounds(), ev.X, ev.Y),
		}

	case KindMove:
		if r.state.Phase != PhaseTracking {
			return
		}
		// Any movement turns the sequence into a drag.
		r.state.MoveCount++
		r.state.Region = RegionNone

	case KindRelease:
		region := r.state.Region
		tracking := r.state.Phase == PhaseTracking
		r.state = State{}
		if !tracking || region == RegionNone {
			return
		}
		r.emit(r.action(region))

	case KindCancel:
		r.state = State{}
	}
}

func (r *Recognizer) action(region Region) Action {
	active := r.sessionActive()
	switch {
	case region == RegionExit && active:
		return ActionExitSession
	case region == RegionSettings && active:
		return ActionOpenSettings
	default:
		return ActionToggle
	}
}

// State returns the current sequence state.
func (r *Recognizer) State() State {
	return r.state
}

// Reset drops any sequence in progress.
func (r *Recognizer) Reset() {
	r.state = State{}
}

// Dispose resets the recognizer and ignores all later events.
func (r *Recognizer) Dispose() {
	r.state = State{}
	r.disposed = true
}
