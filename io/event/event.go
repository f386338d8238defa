// SPDX-License-Identifier: Unlicense OR MIT

// Package event contains the types shared by the event producers of this
// module. Hosts receive events through a listener and distinguish them
// with a type switch.
package event

// Event is the marker interface for events.
type Event interface {
	ImplementsEvent()
}
