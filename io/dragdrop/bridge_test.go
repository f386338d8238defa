// SPDX-License-Identifier: Unlicense OR MIT

package dragdrop

import (
	"fmt"
	"image"
	"reflect"
	"testing"

	"github.com/BurningTreeC/wry/f32"
	"github.com/BurningTreeC/wry/io/event"
)

// testPayload is a Payload over plain maps. SetString calls are recorded
// in order. When trace is non-nil, mutations are appended to it.
type testPayload struct {
	lists   map[string][][]byte
	strings map[string]string
	badList bool
	sets    []string
	trace   *[]string
}

func (p *testPayload) Has(kind string) bool {
	if _, ok := p.lists[kind]; ok {
		return true
	}
	_, ok := p.strings[kind]
	return ok
}

func (p *testPayload) List(kind string) ([][]byte, bool) {
	if p.badList {
		return nil, false
	}
	l, ok := p.lists[kind]
	return l, ok
}

func (p *testPayload) String(kind string) (string, bool) {
	s, ok := p.strings[kind]
	return s, ok
}

func (p *testPayload) SetString(kind, value string) {
	if p.strings == nil {
		p.strings = make(map[string]string)
	}
	p.strings[kind] = value
	p.sets = append(p.sets, kind)
	if p.trace != nil {
		*p.trace = append(*p.trace, "set "+kind)
	}
}

// testSession is a Session over plain fields, recording its calls in
// trace when non-nil.
type testSession struct {
	internal   bool
	texts      map[string]string
	stored     []string
	classified int
	trace      *[]string
}

func (s *testSession) InternalDrag() bool {
	s.classified++
	if s.trace != nil {
		*s.trace = append(*s.trace, "classify")
	}
	return s.internal
}

func (s *testSession) StoreDropPaths(json string) {
	s.stored = append(s.stored, json)
	if s.trace != nil {
		*s.trace = append(*s.trace, "store")
	}
}

func (s *testSession) DragText(kind string) (string, bool) {
	t, ok := s.texts[kind]
	return t, ok
}

// recorder returns a Listener that appends every event to got and claims
// according to claim.
func recorder(claim bool, got *[]event.Event) Listener {
	return func(e event.Event) bool {
		*got = append(*got, e)
		return claim
	}
}

func assertEvents(t *testing.T, got []event.Event, want ...event.Event) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("delivered events %v, want %v", got, want)
	}
}

func filePayload(paths ...string) *testPayload {
	items := make([][]byte, len(paths))
	for i, p := range paths {
		items[i] = []byte(p)
	}
	return &testPayload{lists: map[string][][]byte{TypeFileList: items}}
}

func at(x, y, height float32) Location {
	return Location{Point: f32.Pt(x, y), ViewHeight: height}
}

func TestEnterClaimed(t *testing.T) {
	var got []event.Event
	b := &Bridge{Listener: recorder(true, &got)}
	superCalls := 0
	op := b.Enter(filePayload("/a.txt"), at(10, 290, 300), func() Operation {
		superCalls++
		return None
	})
	if op != Copy {
		t.Errorf("claimed Enter returned %v, want Copy", op)
	}
	if superCalls != 0 {
		t.Errorf("claimed Enter invoked default handling %d times", superCalls)
	}
	assertEvents(t, got, EnterEvent{Paths: []string{"/a.txt"}, Position: image.Pt(10, 10)})
}

func TestEnterNotClaimed(t *testing.T) {
	var got []event.Event
	b := &Bridge{Listener: recorder(false, &got)}
	const linkOp = Operation(2)
	superCalls := 0
	op := b.Enter(filePayload("/a.txt", "/b/c.png"), at(10, 290, 300), func() Operation {
		superCalls++
		return linkOp
	})
	if op != linkOp {
		t.Errorf("unclaimed Enter returned %v, want the default handling's %v", op, linkOp)
	}
	if superCalls != 1 {
		t.Errorf("default handling invoked %d times, want 1", superCalls)
	}
	assertEvents(t, got, EnterEvent{Paths: []string{"/a.txt", "/b/c.png"}, Position: image.Pt(10, 10)})
}

func TestUpdateClaimed(t *testing.T) {
	var got []event.Event
	b := &Bridge{Listener: recorder(true, &got)}
	op := b.Update(at(5, 295, 300), func() Operation {
		t.Error("claimed Update invoked default handling")
		return None
	})
	if op != Copy {
		t.Errorf("claimed Update returned %v, want Copy", op)
	}
	assertEvents(t, got, OverEvent{Position: image.Pt(5, 5)})
}

func TestUpdateNormalizesNone(t *testing.T) {
	b := &Bridge{Listener: func(event.Event) bool { return false }}
	if op := b.Update(at(0, 0, 100), func() Operation { return None }); op != Copy {
		t.Errorf("Update with a None default returned %v, want Copy", op)
	}
}

func TestUpdatePreservesOperation(t *testing.T) {
	b := &Bridge{Listener: func(event.Event) bool { return false }}
	const moveOp = Operation(16)
	if op := b.Update(at(0, 0, 100), func() Operation { return moveOp }); op != moveOp {
		t.Errorf("Update returned %v, want the default handling's %v", op, moveOp)
	}
}

func TestExit(t *testing.T) {
	for _, claim := range []bool{true, false} {
		var got []event.Event
		b := &Bridge{Listener: recorder(claim, &got)}
		superCalls := 0
		b.Exit(func() { superCalls++ })
		wantCalls := 1
		if claim {
			wantCalls = 0
		}
		if superCalls != wantCalls {
			t.Errorf("claim=%v: default handling invoked %d times, want %d", claim, superCalls, wantCalls)
		}
		assertEvents(t, got, LeaveEvent{})
	}
}

func TestDropRouting(t *testing.T) {
	tests := []struct {
		name         string
		internal     bool
		paths        []string
		wantStored   int
		wantListener int
		wantSets     int
	}{
		{"internal with files", true, []string{"/a.txt"}, 0, 0, 2},
		{"internal without files", true, nil, 0, 0, 2},
		{"external with files", false, []string{"/a.txt"}, 1, 0, 0},
		{"external without files", false, nil, 0, 1, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got []event.Event
			s := &testSession{
				internal: tc.internal,
				texts: map[string]string{
					TypePlainText: "My Tiddler",
					TypeTiddler:   `{"title":"My Tiddler"}`,
				},
			}
			p := filePayload(tc.paths...)
			b := &Bridge{Listener: recorder(false, &got), Session: s}
			superCalls := 0
			accepted := b.Drop(p, at(0, 0, 100), func() bool {
				superCalls++
				return true
			})
			if !accepted {
				t.Error("Drop did not report the default handling's acceptance")
			}
			if superCalls != 1 {
				t.Errorf("default handling invoked %d times, want 1", superCalls)
			}
			if s.classified != 1 {
				t.Errorf("session classified %d times, want exactly 1", s.classified)
			}
			if len(s.stored) != tc.wantStored {
				t.Errorf("stored %d path sets, want %d", len(s.stored), tc.wantStored)
			}
			if len(got) != tc.wantListener {
				t.Errorf("listener received %d events, want %d", len(got), tc.wantListener)
			}
			if len(p.sets) != tc.wantSets {
				t.Errorf("payload rewritten %d times, want %d", len(p.sets), tc.wantSets)
			}
		})
	}
}

func TestDropOrdering(t *testing.T) {
	// Classification happens exactly once, before any payload mutation,
	// and the default handling runs last.
	var trace []string
	s := &testSession{
		internal: true,
		texts:    map[string]string{TypePlainText: "My Tiddler"},
		trace:    &trace,
	}
	p := &testPayload{trace: &trace}
	b := &Bridge{Session: s}
	b.Drop(p, at(0, 0, 100), func() bool {
		trace = append(trace, "super")
		return true
	})
	want := []string{"classify", "set " + TypePlainText, "super"}
	if !reflect.DeepEqual(trace, want) {
		t.Errorf("drop ran %v, want %v", trace, want)
	}
}

func TestDropReturnsDefaultResult(t *testing.T) {
	for _, accepted := range []bool{true, false} {
		b := &Bridge{Listener: func(event.Event) bool { return true }, Session: &testSession{}}
		got := b.Drop(&testPayload{}, at(0, 0, 100), func() bool { return accepted })
		if got != accepted {
			t.Errorf("Drop = %v, want the default handling's %v", got, accepted)
		}
	}
}

func TestDropListenerClaimDoesNotSuppressDefault(t *testing.T) {
	// An external text drop informs the listener, but the default
	// handling runs regardless of the listener's answer.
	for _, claim := range []bool{true, false} {
		var got []event.Event
		b := &Bridge{Listener: recorder(claim, &got), Session: &testSession{}}
		superCalls := 0
		b.Drop(&testPayload{strings: map[string]string{TypePlainText: "dropped text"}}, at(3, 97, 100), func() bool {
			superCalls++
			return true
		})
		if superCalls != 1 {
			t.Errorf("claim=%v: default handling invoked %d times, want 1", claim, superCalls)
		}
		assertEvents(t, got, DropEvent{Paths: nil, Position: image.Pt(3, 3)})
	}
}

func TestRewriteLeavesAbsentKinds(t *testing.T) {
	s := &testSession{
		internal: true,
		texts:    map[string]string{TypeTiddler: `{"title":"My Tiddler"}`},
	}
	p := &testPayload{strings: map[string]string{
		TypePlainText: "file:///resolved/location",
	}}
	b := &Bridge{Session: s}
	b.Drop(p, at(0, 0, 100), func() bool { return true })
	if got := p.strings[TypePlainText]; got != "file:///resolved/location" {
		t.Errorf("plain text rewritten to %q without replacement text", got)
	}
	if got := p.strings[TypeTiddler]; got != `{"title":"My Tiddler"}` {
		t.Errorf("tiddler representation = %q, want the replacement", got)
	}
	if want := []string{TypeTiddler}; !reflect.DeepEqual(p.sets, want) {
		t.Errorf("rewritten kinds %v, want %v", p.sets, want)
	}
}

func TestRewriteOverwrites(t *testing.T) {
	s := &testSession{
		internal: true,
		texts: map[string]string{
			TypePlainText: "My Tiddler",
			TypeTiddler:   `{"title":"My Tiddler"}`,
		},
	}
	p := &testPayload{strings: map[string]string{
		TypePlainText: "file:///resolved/location",
		TypeTiddler:   "stale",
	}}
	b := &Bridge{Session: s}
	b.Drop(p, at(0, 0, 100), func() bool { return true })
	if got := p.strings[TypePlainText]; got != "My Tiddler" {
		t.Errorf("plain text = %q, want the replacement", got)
	}
	if got := p.strings[TypeTiddler]; got != `{"title":"My Tiddler"}` {
		t.Errorf("tiddler representation = %q, want the replacement", got)
	}
}

func TestNilListenerAndSession(t *testing.T) {
	b := &Bridge{}
	if op := b.Enter(filePayload("/a.txt"), at(0, 0, 100), func() Operation { return None }); op != None {
		t.Errorf("Enter = %v, want the default handling's None", op)
	}
	if op := b.Update(at(0, 0, 100), func() Operation { return None }); op != Copy {
		t.Errorf("Update = %v, want Copy", op)
	}
	// External file drop with no session: the store sub-step is skipped,
	// native handling still runs.
	superCalls := 0
	if !b.Drop(filePayload("/a.txt"), at(0, 0, 100), func() bool { superCalls++; return true }) {
		t.Error("Drop did not report the default handling's acceptance")
	}
	if superCalls != 1 {
		t.Errorf("default handling invoked %d times, want 1", superCalls)
	}
	exitCalls := 0
	b.Exit(func() { exitCalls++ })
	if exitCalls != 1 {
		t.Errorf("Exit invoked default handling %d times, want 1", exitCalls)
	}
}

func TestExternalFileDrag(t *testing.T) {
	// An external drag of two files over a 400x300 view at native
	// location (10, 290).
	var got []event.Event
	reg := new(Registry)
	b := &Bridge{Listener: recorder(false, &got), Session: reg}
	p := filePayload("/a.txt", "/b/c.png")
	loc := at(10, 290, 300)

	enterCalls := 0
	b.Enter(p, loc, func() Operation { enterCalls++; return None })
	if enterCalls != 1 {
		t.Errorf("default Enter handling invoked %d times, want 1", enterCalls)
	}
	assertEvents(t, got, EnterEvent{Paths: []string{"/a.txt", "/b/c.png"}, Position: image.Pt(10, 10)})

	got = nil
	b.Drop(p, loc, func() bool { return true })
	if len(got) != 0 {
		t.Errorf("listener received %v for a file drop", got)
	}
	json, ok := reg.TakeDropPaths()
	if !ok || json != `["/a.txt","/b/c.png"]` {
		t.Errorf("stored drop paths = %q, %v", json, ok)
	}
}

func TestInternalTiddlerDrag(t *testing.T) {
	// An internal tiddler drag dropped at (50, 50) on a 400x300 view.
	var got []event.Event
	reg := new(Registry)
	reg.Begin(map[string]string{
		TypePlainText: "My Tiddler",
		TypeTiddler:   `{"title":"My Tiddler","text":"..."}`,
	})
	b := &Bridge{Listener: recorder(false, &got), Session: reg}
	p := &testPayload{strings: map[string]string{
		TypePlainText: "file:///wiki/#My%20Tiddler",
	}}
	accepted := b.Drop(p, at(50, 50, 300), func() bool { return true })
	if !accepted {
		t.Error("Drop did not report the default handling's acceptance")
	}
	if len(got) != 0 {
		t.Errorf("listener received %v for an internal drop", got)
	}
	if gotText := p.strings[TypePlainText]; gotText != "My Tiddler" {
		t.Errorf("plain text = %q, want the tiddler title", gotText)
	}
	if gotText := p.strings[TypeTiddler]; gotText != `{"title":"My Tiddler","text":"..."}` {
		t.Errorf("tiddler representation = %q, want the tiddler JSON", gotText)
	}
	reg.End()
	if reg.InternalDrag() {
		t.Error("registry still reports an internal drag after End")
	}
}

func TestSessionFreshPerDrop(t *testing.T) {
	// Classification is not cached across callbacks.
	s := &testSession{}
	b := &Bridge{Session: s}
	for i := 1; i <= 3; i++ {
		s.internal = i%2 == 0
		p := &testPayload{}
		b.Drop(p, at(0, 0, 100), func() bool { return true })
		if s.classified != i {
			t.Fatalf("after %d drops the session was classified %d times", i, s.classified)
		}
	}
}

func BenchmarkDropExternalFiles(b *testing.B) {
	paths := make([]string, 16)
	for i := range paths {
		paths[i] = fmt.Sprintf("/dir/file-%d.txt", i)
	}
	p := filePayload(paths...)
	br := &Bridge{Session: new(Registry)}
	super := func() bool { return true }
	loc := at(10, 290, 300)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		br.Drop(p, loc, super)
	}
}
