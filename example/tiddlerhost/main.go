// SPDX-License-Identifier: Unlicense OR MIT

// Command tiddlerhost shows the host side of the drag-and-drop bridge:
// a tiddler store backing the session registry, a listener receiving the
// events, and the drop routing between the two. The native web view is
// stood in for by an in-memory payload, so the program runs anywhere;
// a real host passes its view handle to app.InstallDragDestination
// instead of driving the bridge itself.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/gen2brain/beeep"

	"github.com/BurningTreeC/wry/f32"
	"github.com/BurningTreeC/wry/io/dragdrop"
	"github.com/BurningTreeC/wry/io/event"
)

// memPayload is an in-memory stand-in for a native drag pasteboard.
type memPayload struct {
	files [][]byte
	texts map[string]string
}

func (p *memPayload) Has(kind string) bool {
	if kind == dragdrop.TypeFileList {
		return p.files != nil
	}
	_, ok := p.texts[kind]
	return ok
}

func (p *memPayload) List(kind string) ([][]byte, bool) {
	if kind != dragdrop.TypeFileList || p.files == nil {
		return nil, false
	}
	return p.files, true
}

func (p *memPayload) String(kind string) (string, bool) {
	s, ok := p.texts[kind]
	return s, ok
}

func (p *memPayload) SetString(kind, value string) {
	if p.texts == nil {
		p.texts = make(map[string]string)
	}
	p.texts[kind] = value
}

func main() {
	dbPath := flag.String("db", "tiddlers.db", "path to the tiddler database")
	notify := flag.Bool("notify", false, "show a desktop notification for dropped files")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := OpenStore(*dbPath)
	if err != nil {
		log.Error("open store", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	seed := Tiddler{Title: "My Tiddler", Text: "Dragged from the sidebar.", Tags: "example"}
	if err := store.Put(seed); err != nil {
		log.Error("seed store", "err", err)
		os.Exit(1)
	}

	reg := new(dragdrop.Registry)
	bridge := &dragdrop.Bridge{
		Session: reg,
		Listener: func(e event.Event) bool {
			switch e := e.(type) {
			case dragdrop.EnterEvent:
				log.Info("drag enter", "paths", e.Paths, "pos", e.Position)
			case dragdrop.OverEvent:
				log.Debug("drag over", "pos", e.Position)
			case dragdrop.DropEvent:
				log.Info("text drop", "pos", e.Position)
			case dragdrop.LeaveEvent:
				log.Info("drag leave")
			}
			// Nothing is claimed; the default handling always runs.
			return false
		},
	}

	externalFileDrag(log, bridge, reg, *notify)
	internalTiddlerDrag(log, bridge, reg, store)
}

// externalFileDrag replays the callbacks of a file drag from the OS.
// The paths end up in the registry, not at the listener, and the page
// would read them back after the native drop events fired.
func externalFileDrag(log *slog.Logger, bridge *dragdrop.Bridge, reg *dragdrop.Registry, notify bool) {
	payload := &memPayload{files: [][]byte{[]byte("/a.txt"), []byte("/b/c.png")}}
	at := dragdrop.Location{Point: f32.Pt(10, 290), ViewHeight: 300}

	bridge.Enter(payload, at, func() dragdrop.Operation { return dragdrop.None })
	bridge.Update(at, func() dragdrop.Operation { return dragdrop.None })
	bridge.Drop(payload, at, func() bool { return true })

	paths, ok := reg.TakeDropPaths()
	if !ok {
		log.Error("no drop paths stored")
		return
	}
	log.Info("stored drop paths", "json", paths)
	if notify {
		if err := beeep.Notify("tiddlerhost", fmt.Sprintf("files dropped: %s", paths), ""); err != nil {
			log.Warn("notify", "err", err)
		}
	}
}

// internalTiddlerDrag replays an internal drag of a stored tiddler. The
// payload arrives with a resolved URL as its plain text; the bridge
// rewrites it to the tiddler title and JSON before native insertion.
func internalTiddlerDrag(log *slog.Logger, bridge *dragdrop.Bridge, reg *dragdrop.Registry, store *Store) {
	t, err := store.Get("My Tiddler")
	if err != nil {
		log.Error("load tiddler", "err", err)
		return
	}
	fields, err := json.Marshal([]Tiddler{t})
	if err != nil {
		log.Error("marshal tiddler", "err", err)
		return
	}
	reg.Begin(map[string]string{
		dragdrop.TypePlainText: t.Title,
		dragdrop.TypeTiddler:   string(fields),
	})
	defer reg.End()

	payload := &memPayload{texts: map[string]string{
		dragdrop.TypePlainText: "wiki://host/#My%20Tiddler",
	}}
	at := dragdrop.Location{Point: f32.Pt(50, 50), ViewHeight: 300}
	bridge.Drop(payload, at, func() bool { return true })

	text, _ := payload.String(dragdrop.TypePlainText)
	tiddler, _ := payload.String(dragdrop.TypeTiddler)
	log.Info("payload after rewrite", "text", text, "tiddler", tiddler)
}
