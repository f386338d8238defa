// SPDX-License-Identifier: Unlicense OR MIT

//go:build !darwin && !windows
// +build !darwin,!windows

package app

import "github.com/BurningTreeC/wry/io/dragdrop"

// InstallDragDestination is not supported on this platform. Linux hosts
// receive drops through the web view's own WebKitGTK handling.
func InstallDragDestination(view uintptr, b *dragdrop.Bridge) error {
	return ErrDragDropUnsupported
}
