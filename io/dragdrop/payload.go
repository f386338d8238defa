// SPDX-License-Identifier: Unlicense OR MIT

package dragdrop

import "strings"

// Representation kinds of a drag payload. The platform layer maps them to
// the native pasteboard types: on macOS TypeFileList is
// NSFilenamesPboardType and TypePlainText is public.utf8-plain-text, on
// Windows they are CF_HDROP and CF_UNICODETEXT.
const (
	// TypeFileList is the list of filesystem paths carried by a
	// file drag.
	TypeFileList = "text/uri-list"
	// TypePlainText is the textual representation consumed by native
	// text insertion.
	TypePlainText = "text/plain"
	// TypeTiddler is the structured representation read by TiddlyWiki
	// dropzone handlers.
	TypeTiddler = "text/vnd.tiddler"
)

// Payload is the transferable data of one drag session. A payload exposes
// multiple typed representations keyed by the kind strings above. The
// underlying native object is owned by the platform layer; a Payload
// borrows it for the duration of a single callback, and only
// [Bridge.Drop] mutates it.
type Payload interface {
	// Has reports whether the payload offers a representation of kind.
	Has(kind string) bool
	// List returns the items of a list valued representation such as
	// TypeFileList. Items are raw bytes in the platform's encoding.
	List(kind string) ([][]byte, bool)
	// String returns the textual representation of kind.
	String(kind string) (string, bool)
	// SetString overwrites the representation of kind, leaving all
	// other representations untouched.
	SetString(kind, value string)
}

// collectPaths decodes the payload's file list representation into an
// ordered path sequence. A payload without a file list yields no paths;
// many valid drags carry none. Items that are not valid UTF-8 are decoded
// lossily rather than rejected, since drag sources are not under the
// embedder's control.
func collectPaths(p Payload) []string {
	if p == nil || !p.Has(TypeFileList) {
		return nil
	}
	items, ok := p.List(TypeFileList)
	if !ok {
		return nil
	}
	paths := make([]string, 0, len(items))
	for _, it := range items {
		paths = append(paths, strings.ToValidUTF8(string(it), "\uFFFD"))
	}
	return paths
}
