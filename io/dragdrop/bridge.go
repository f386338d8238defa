// SPDX-License-Identifier: Unlicense OR MIT

package dragdrop

import (
	"strings"

	"github.com/BurningTreeC/wry/internal/debug"
	"github.com/BurningTreeC/wry/io/event"
)

// Session exposes the host's process-wide drag state to the bridge. The
// host marks drags it originates itself as internal; everything else
// (files or text from the OS or another application) is external. All
// methods are called synchronously on the platform callback thread.
//
// Registry is a ready-made implementation.
type Session interface {
	// InternalDrag reports whether the drag in progress originated
	// inside the application. It is queried exactly once per drop,
	// before the payload is read for rewriting or the listener is
	// dispatched.
	InternalDrag() bool
	// StoreDropPaths records the dropped file paths, serialized as a
	// JSON array of strings, for later out-of-band retrieval by the
	// embedded page.
	StoreDropPaths(json string)
	// DragText returns the replacement text for the given payload
	// representation kind of an internal drag. A false return leaves
	// that representation untouched.
	DragText(kind string) (string, bool)
}

// Bridge turns native drag callbacks into events and decides, per stage,
// whether the host's listener claims the stage or control falls through
// to the platform's default drag-and-drop handling.
//
// A Bridge holds no per-session state; every stage works from the
// callback's own payload and location. It is driven from the platform
// callback thread only.
type Bridge struct {
	// Listener receives the events. A nil Listener never claims.
	Listener Listener
	// Session classifies drags and stores dropped paths. A nil Session
	// classifies every drag as external and drops the path store
	// sub-step.
	Session Session
}

// Enter handles the start of a drag session over the view. If the
// listener does not claim the event, super is invoked and its operation
// returned unchanged.
func (b *Bridge) Enter(p Payload, at Location, super func() Operation) Operation {
	ev := EnterEvent{Paths: collectPaths(p), Position: at.Position()}
	debug.Log(debug.DND, "enter: %d paths at %v", len(ev.Paths), ev.Position)
	if b.claimed(ev) {
		return Copy
	}
	return super()
}

// Update handles a drag movement. No paths are collected; the payload
// does not change while the session is in progress. If the listener does
// not claim the event, super is invoked; a None answer from super is
// normalized to Copy, since an empty answer for a location over the page
// body must not reject the drop. Any other operation, such as the one a
// file input advertises, is preserved.
func (b *Bridge) Update(at Location, super func() Operation) Operation {
	if b.claimed(OverEvent{Position: at.Position()}) {
		return Copy
	}
	if op := super(); op != None {
		return op
	}
	return Copy
}

// Drop handles the drop stage. The session is classified exactly once,
// after path collection and before any listener dispatch or payload
// mutation. Exactly one of three branches runs:
//
//   - internal drag: the payload's plain text and tiddler representations
//     are rewritten through the session so native insertion receives the
//     correct data; the listener is not invoked;
//   - external drag with files: the paths are handed to the session's
//     store and the listener is not invoked, the page retrieves them
//     after native insertion has fired its own drop events;
//   - external drag without files (plain text, HTML, a URL): the listener
//     is invoked with a DropEvent.
//
// In all three branches the platform's default handling runs afterwards,
// and its acceptance result is returned.
func (b *Bridge) Drop(p Payload, at Location, super func() bool) bool {
	paths := collectPaths(p)
	pos := at.Position()
	internal := b.Session != nil && b.Session.InternalDrag()
	switch {
	case internal:
		debug.Log(debug.DND, "drop: internal at %v, rewriting payload", pos)
		b.rewrite(p)
	case len(paths) > 0:
		debug.Log(debug.DND, "drop: external, storing %d paths", len(paths))
		if b.Session != nil {
			b.Session.StoreDropPaths(encodePaths(paths))
		}
	default:
		debug.Log(debug.DND, "drop: external text at %v", pos)
		b.claimed(DropEvent{Paths: paths, Position: pos})
	}
	return super()
}

// Exit handles the end of a drag session without a drop. If the listener
// claims the event, the platform's default handling is suppressed
// entirely.
func (b *Bridge) Exit(super func()) {
	if !b.claimed(LeaveEvent{}) {
		super()
	}
}

func (b *Bridge) claimed(e event.Event) bool {
	return b.Listener != nil && b.Listener(e)
}

// rewrite overwrites the payload representations for which the session
// provides replacement text. It runs strictly before the platform's
// default drop handling, which reads the payload once.
func (b *Bridge) rewrite(p Payload) {
	if p == nil {
		return
	}
	for _, kind := range []string{TypePlainText, TypeTiddler} {
		if s, ok := b.Session.DragText(kind); ok {
			p.SetString(kind, s)
		}
	}
}

// encodePaths serializes paths as a JSON array of strings. Only backslash
// and double quote are escaped; the stored form is consumed verbatim by
// the embedded page.
func encodePaths(paths []string) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, p := range paths {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		for j := 0; j < len(p); j++ {
			if c := p[j]; c == '\\' || c == '"' {
				sb.WriteByte('\\')
			}
			sb.WriteByte(p[j])
		}
		sb.WriteByte('"')
	}
	sb.WriteByte(']')
	return sb.String()
}
