// SPDX-License-Identifier: Unlicense OR MIT

// Package app contains the platform glue that attaches a drag-and-drop
// bridge to a native web view.
package app

import "errors"

// ErrDragDropUnsupported is returned by InstallDragDestination on
// platforms without native drag-and-drop glue.
var ErrDragDropUnsupported = errors.New("app: drag and drop is not supported on this platform")
