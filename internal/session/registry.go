package session

import (
	"fmt"
	"sync"
)

// Registry holds the open sessions. At most one is active; hotkeys go to it.
// Sessions are kept in creation order and looked up by their current ID, so
// rotation needs no re-keying here.
type Registry struct {
	mu      sync.RWMutex
	engines []*Engine
	active  *Engine
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers e and makes it the active session, pausing the previous one.
func (r *Registry) Add(e *Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines = append(r.engines, e)
	r.activateLocked(e)
}

func (r *Registry) activateLocked(e *Engine) {
	if r.active != nil && r.active != e {
		r.active.SetStatus(Paused)
	}
	r.active = e
	e.SetStatus(Active)
}

// Active returns the active session, or nil when every session is paused.
func (r *Registry) Active() *Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// List returns the sessions in creation order.
func (r *Registry) List() []*Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Engine(nil), r.engines...)
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}

// Get finds a session by its current ID.
func (r *Registry) Get(id string) (*Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(id)
}

func (r *Registry) findLocked(id string) (*Engine, error) {
	for _, e := range r.engines {
		if e.ID() == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoSession, id)
}

// At returns the session at index i (0-based) in creation order.
func (r *Registry) At(i int) (*Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.engines) {
		return nil, fmt.Errorf("%w: index %d", ErrNoSession, i+1)
	}
	return r.engines[i], nil
}

// Resume makes the session with id active, pausing the current one.
func (r *Registry) Resume(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.findLocked(id)
	if err != nil {
		return err
	}
	if !e.Running() {
		return ErrNotRunning
	}
	r.activateLocked(e)
	return nil
}

// Pause pauses the session with id. Pausing the active session leaves no
// session active.
func (r *Registry) Pause(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.findLocked(id)
	if err != nil {
		return err
	}
	e.SetStatus(Paused)
	if r.active == e {
		r.active = nil
	}
	return nil
}

// Close ends the session with id and removes it. With discard set the
// artifact is deleted as well.
func (r *Registry) Close(id string, discard bool) error {
	r.mu.Lock()
	e, err := r.findLocked(id)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.removeLocked(e)
	r.mu.Unlock()

	e.Cleanup(discard)
	return nil
}

func (r *Registry) removeLocked(e *Engine) {
	kept := r.engines[:0]
	for _, x := range r.engines {
		if x != e {
			kept = append(kept, x)
		}
	}
	r.engines = kept
	if r.active == e {
		r.active = nil
	}
}

// CloseAll ends every session.
func (r *Registry) CloseAll(discard bool) {
	r.mu.Lock()
	all := r.engines
	r.engines = nil
	r.active = nil
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, e := range all {
		wg.Add(1)
		go func(e *Engine) {
			defer wg.Done()
			e.Cleanup(discard)
		}(e)
	}
	wg.Wait()
}

// route runs fn against the active session. It reports false when no
// session is active.
func (r *Registry) route(fn func(*Engine)) bool {
	e := r.Active()
	if e == nil {
		return false
	}
	fn(e)
	return true
}

// Capture sends a capture to the active session.
func (r *Registry) Capture() bool { return r.route((*Engine).Capture) }

// Undo sends an undo to the active session.
func (r *Registry) Undo() bool { return r.route((*Engine).Undo) }

// Rotate sends a rotation to the active session.
func (r *Registry) Rotate() bool { return r.route((*Engine).Rotate) }

// CopyAll asks the active session to publish every capture.
func (r *Registry) CopyAll() bool { return r.route((*Engine).CopyAll) }

// CopyMasterFile asks the active session to publish its artifact.
func (r *Registry) CopyMasterFile() bool { return r.route((*Engine).CopyMasterFile) }
