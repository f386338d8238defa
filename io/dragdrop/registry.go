// SPDX-License-Identifier: Unlicense OR MIT

package dragdrop

import (
	"sync"

	"github.com/BurningTreeC/wry/internal/debug"
)

// Registry is an in-memory Session implementation. The host marks the
// window of an internal drag with Begin and End around its own drag
// gesture, and the embedded page retrieves stored drop paths with
// TakeDropPaths once native insertion has completed.
//
// The zero value is ready to use. Registry is safe for concurrent use;
// hosts typically call Begin and TakeDropPaths from a script message
// handler while the bridge queries from the platform callback thread.
type Registry struct {
	mu       sync.Mutex
	internal bool
	texts    map[string]string
	pending  string
	stored   bool
}

// Begin marks the start of an internal drag. texts holds the replacement
// payload text per representation kind, typically TypePlainText and
// TypeTiddler; kinds not present are left untouched at drop time.
func (r *Registry) Begin(texts map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.internal = true
	r.texts = make(map[string]string, len(texts))
	for k, v := range texts {
		r.texts[k] = v
	}
	debug.Log(debug.REGISTRY, "internal drag began, %d replacement kinds", len(r.texts))
}

// End marks the end of an internal drag and discards its replacement
// text.
func (r *Registry) End() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.internal = false
	r.texts = nil
}

// InternalDrag implements Session.
func (r *Registry) InternalDrag() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.internal
}

// DragText implements Session.
func (r *Registry) DragText(kind string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.texts[kind]
	return s, ok
}

// StoreDropPaths implements Session. The stored value replaces any
// previous one.
func (r *Registry) StoreDropPaths(json string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = json
	r.stored = true
}

// TakeDropPaths returns the most recently stored drop paths and clears
// them. The second return is false when no drop has been stored since the
// last call.
func (r *Registry) TakeDropPaths() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.stored {
		return "", false
	}
	json := r.pending
	r.pending, r.stored = "", false
	return json, true
}
