// SPDX-License-Identifier: Unlicense OR MIT

// Package dragdrop brokers native drag-and-drop sessions into a small,
// platform independent event model for an embedded web view.
//
// The protocol is as follows:
//
//   - The platform layer forwards every native drag callback to a [Bridge],
//     together with the drag [Payload], the native [Location] and a
//     capability that invokes the platform's default handling for that
//     stage.
//   - The bridge builds the matching event ([EnterEvent], [OverEvent],
//     [DropEvent] or [LeaveEvent]) and delivers it to the host's
//     [Listener]. A true return claims the event; the default platform
//     handling runs only for unclaimed events.
//   - At drop time the bridge first asks the host's [Session] whether the
//     drag originated inside the application. Internal drags bypass the
//     listener: their payload text is rewritten through the session before
//     the platform inserts it. External file drags are funneled to the
//     session's path store instead of the listener, so that one gesture is
//     never processed through two channels.
//
// A drag session is the native sequence Enter, zero or more Over, then
// Drop or Leave, for one user gesture.
package dragdrop

import (
	"image"
	"math"

	"github.com/BurningTreeC/wry/f32"
	"github.com/BurningTreeC/wry/io/event"
)

// EnterEvent is sent when a drag session enters the view.
type EnterEvent struct {
	// Paths is the file list carried by the payload, in source order.
	Paths []string
	// Position is the drag location in the view's top-left origin
	// pixel space.
	Position image.Point
}

// OverEvent is sent for every native drag movement over the view.
// It carries no paths; the payload does not change between callbacks.
type OverEvent struct {
	Position image.Point
}

// DropEvent is sent when an external drag without files is dropped on
// the view. File-bearing and internally originated drops are routed to
// the platform's own insertion path instead, see [Bridge.Drop].
type DropEvent struct {
	Paths    []string
	Position image.Point
}

// LeaveEvent is sent when a drag session exits the view without
// dropping.
type LeaveEvent struct{}

func (EnterEvent) ImplementsEvent() {}
func (OverEvent) ImplementsEvent()  {}
func (DropEvent) ImplementsEvent()  {}
func (LeaveEvent) ImplementsEvent() {}

// Listener receives drag events. A true return claims the event and
// suppresses the platform's default handling for that stage. The call is
// synchronous on the platform callback thread and must return promptly.
type Listener func(event.Event) bool

// Operation is a platform drag operation code. None and Copy have a fixed
// meaning; any other value is platform specific and passed through
// unchanged.
type Operation uint32

const (
	None Operation = 0
	Copy Operation = 1
)

// Location is a drag location reported by a native callback. Native views
// report drag coordinates with a bottom-left origin; ViewHeight is the
// height of the view at the time of the callback, so that the location can
// be flipped into the page's top-left origin space. The view may resize
// between callbacks, so a Location is rebuilt for every stage.
type Location struct {
	Point      f32.Point
	ViewHeight float32
}

// Position maps the location to the page's top-left origin pixel space.
func (l Location) Position() image.Point {
	return image.Point{
		X: int(math.Round(float64(l.Point.X))),
		Y: int(math.Round(float64(l.ViewHeight - l.Point.Y))),
	}
}
