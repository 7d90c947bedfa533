package drop

import "sync"

// Binder attaches the window-level capturing listeners for one
// installation and returns the function that detaches them.
type Binder func() (unbind func())

// Installation is a handle to one active set of global listeners.
type Installation struct {
	version  string
	unbind   func()
	registry *Registry
	disposed bool
}

// Version returns the version stamp the installation was created with.
func (i *Installation) Version() string { return i.version }

// Dispose detaches the installation's listeners. Safe to call more than
// once; disposing a superseded installation is a no-op beyond its own
// unbind.
func (i *Installation) Dispose() {
	i.registry.mu.Lock()
	defer i.registry.mu.Unlock()
	i.disposeLocked()
}

func (i *Installation) disposeLocked() {
	if i.disposed {
		return
	}
	i.disposed = true
	if i.registry.active == i {
		i.registry.active = nil
	}
	if i.unbind != nil {
		i.unbind()
	}
}

// Registry owns the single active installation of global drag listeners.
// Installing a new version disposes the previous one's listeners before
// attaching its own, so re-initialization replaces rather than duplicates.
type Registry struct {
	mu     sync.Mutex
	active *Installation
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry { return &Registry{} }

// Install replaces the active installation with a new one stamped by
// version. bind runs after the previous installation is disposed.
func (r *Registry) Install(version string, bind Binder) *Installation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		r.active.disposeLocked()
	}
	inst := &Installation{version: version, registry: r}
	if bind != nil {
		inst.unbind = bind()
	}
	r.active = inst
	return inst
}

// ActiveVersion returns the version of the active installation, if any.
func (r *Registry) ActiveVersion() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return "", false
	}
	return r.active.version, true
}
