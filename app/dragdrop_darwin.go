// SPDX-License-Identifier: Unlicense OR MIT

//go:build darwin && !ios
// +build darwin,!ios

package app

import (
	"errors"
	"runtime/cgo"
	"unsafe"

	"github.com/BurningTreeC/wry/f32"
	"github.com/BurningTreeC/wry/internal/debug"
	"github.com/BurningTreeC/wry/io/dragdrop"
)

/*
#cgo CFLAGS: -Werror -Wno-deprecated-declarations -fobjc-arc -x objective-c
#cgo LDFLAGS: -framework AppKit

#include <stdlib.h>
#include <string.h>
#include <AppKit/AppKit.h>
#include <objc/runtime.h>
#include <objc/message.h>

extern NSUInteger wry_onDraggingEntered(uintptr_t handle, CFTypeRef view, CFTypeRef info);
extern NSUInteger wry_onDraggingUpdated(uintptr_t handle, CFTypeRef view, CFTypeRef info);
extern void wry_onDraggingExited(uintptr_t handle, CFTypeRef view, CFTypeRef info);
extern int wry_onPerformDrag(uintptr_t handle, CFTypeRef view, CFTypeRef info);

static const void *wry_handleKey = &wry_handleKey;

static uintptr_t wry_handleFor(id view) {
	NSNumber *n = objc_getAssociatedObject(view, wry_handleKey);
	return (uintptr_t)n.unsignedLongLongValue;
}

static NSDragOperation wry_draggingEntered(id self, SEL _cmd, id<NSDraggingInfo> info) {
	return (NSDragOperation)wry_onDraggingEntered(wry_handleFor(self), (__bridge CFTypeRef)self, (__bridge CFTypeRef)info);
}

static NSDragOperation wry_draggingUpdated(id self, SEL _cmd, id<NSDraggingInfo> info) {
	return (NSDragOperation)wry_onDraggingUpdated(wry_handleFor(self), (__bridge CFTypeRef)self, (__bridge CFTypeRef)info);
}

static void wry_draggingExited(id self, SEL _cmd, id<NSDraggingInfo> info) {
	wry_onDraggingExited(wry_handleFor(self), (__bridge CFTypeRef)self, (__bridge CFTypeRef)info);
}

static BOOL wry_performDragOperation(id self, SEL _cmd, id<NSDraggingInfo> info) {
	return wry_onPerformDrag(wry_handleFor(self), (__bridge CFTypeRef)self, (__bridge CFTypeRef)info) ? YES : NO;
}

// The drag destination subclass is installed as the view's class, so the
// default platform handling is reached through objc_msgSendSuper on its
// superclass, the original view class.
static NSUInteger wry_superDraggingEntered(CFTypeRef viewRef, CFTypeRef infoRef) {
	id view = (__bridge id)viewRef;
	struct objc_super sup = {view, class_getSuperclass(object_getClass(view))};
	typedef NSUInteger (*sendFn)(struct objc_super *, SEL, id);
	return ((sendFn)objc_msgSendSuper)(&sup, @selector(draggingEntered:), (__bridge id)infoRef);
}

static NSUInteger wry_superDraggingUpdated(CFTypeRef viewRef, CFTypeRef infoRef) {
	id view = (__bridge id)viewRef;
	struct objc_super sup = {view, class_getSuperclass(object_getClass(view))};
	typedef NSUInteger (*sendFn)(struct objc_super *, SEL, id);
	return ((sendFn)objc_msgSendSuper)(&sup, @selector(draggingUpdated:), (__bridge id)infoRef);
}

static void wry_superDraggingExited(CFTypeRef viewRef, CFTypeRef infoRef) {
	id view = (__bridge id)viewRef;
	struct objc_super sup = {view, class_getSuperclass(object_getClass(view))};
	typedef void (*sendFn)(struct objc_super *, SEL, id);
	((sendFn)objc_msgSendSuper)(&sup, @selector(draggingExited:), (__bridge id)infoRef);
}

static int wry_superPerformDrag(CFTypeRef viewRef, CFTypeRef infoRef) {
	id view = (__bridge id)viewRef;
	struct objc_super sup = {view, class_getSuperclass(object_getClass(view))};
	typedef BOOL (*sendFn)(struct objc_super *, SEL, id);
	return ((sendFn)objc_msgSendSuper)(&sup, @selector(performDragOperation:), (__bridge id)infoRef) ? 1 : 0;
}

static int wry_installDragDestination(CFTypeRef viewRef, uintptr_t handle) {
	@autoreleasepool {
		NSView *view = (__bridge NSView *)viewRef;
		Class cls = object_getClass(view);
		NSString *name = [NSString stringWithFormat:@"WryDragDestination_%s", class_getName(cls)];
		Class sub = NSClassFromString(name);
		if (sub == nil) {
			sub = objc_allocateClassPair(cls, name.UTF8String, 0);
			if (sub == nil) {
				return 0;
			}
			class_addMethod(sub, @selector(draggingEntered:), (IMP)wry_draggingEntered, "L@:@");
			class_addMethod(sub, @selector(draggingUpdated:), (IMP)wry_draggingUpdated, "L@:@");
			class_addMethod(sub, @selector(draggingExited:), (IMP)wry_draggingExited, "v@:@");
			class_addMethod(sub, @selector(performDragOperation:), (IMP)wry_performDragOperation, "c@:@");
			objc_registerClassPair(sub);
		}
		objc_setAssociatedObject(view, wry_handleKey, @(handle), OBJC_ASSOCIATION_RETAIN_NONATOMIC);
		object_setClass(view, sub);
		[view registerForDraggedTypes:@[NSFilenamesPboardType, NSPasteboardTypeString, @"text/vnd.tiddler"]];
		return 1;
	}
}

static CGFloat wry_viewHeight(CFTypeRef viewRef) {
	@autoreleasepool {
		NSView *view = (__bridge NSView *)viewRef;
		return view.bounds.size.height;
	}
}

static NSPoint wry_draggingLocation(CFTypeRef infoRef) {
	@autoreleasepool {
		return [(__bridge id<NSDraggingInfo>)infoRef draggingLocation];
	}
}

static int wry_hasFileList(CFTypeRef infoRef) {
	@autoreleasepool {
		NSPasteboard *pb = [(__bridge id<NSDraggingInfo>)infoRef draggingPasteboard];
		return [pb availableTypeFromArray:@[NSFilenamesPboardType]] != nil ? 1 : 0;
	}
}

static int wry_hasType(CFTypeRef infoRef, const char *type) {
	@autoreleasepool {
		NSPasteboard *pb = [(__bridge id<NSDraggingInfo>)infoRef draggingPasteboard];
		NSString *t = [NSString stringWithUTF8String:type];
		return [pb availableTypeFromArray:@[t]] != nil ? 1 : 0;
	}
}

// wry_fileList returns the NSFilenamesPboardType property list, or NULL
// when it is absent or not an array of the expected shape.
static CFTypeRef wry_fileList(CFTypeRef infoRef) {
	@autoreleasepool {
		NSPasteboard *pb = [(__bridge id<NSDraggingInfo>)infoRef draggingPasteboard];
		id paths = [pb propertyListForType:NSFilenamesPboardType];
		if (![paths isKindOfClass:[NSArray class]]) {
			return NULL;
		}
		return CFBridgingRetain(paths);
	}
}

static NSUInteger wry_listLen(CFTypeRef listRef) {
	return [(__bridge NSArray *)listRef count];
}

// wry_listItem returns a copy of item i's UTF-8 bytes, or NULL for a non
// string item. The caller frees the copy.
static char *wry_listItem(CFTypeRef listRef, NSUInteger i) {
	@autoreleasepool {
		id item = [(__bridge NSArray *)listRef objectAtIndex:i];
		if (![item isKindOfClass:[NSString class]]) {
			return NULL;
		}
		return strdup([(NSString *)item UTF8String]);
	}
}

static char *wry_stringForType(CFTypeRef infoRef, const char *type) {
	@autoreleasepool {
		NSPasteboard *pb = [(__bridge id<NSDraggingInfo>)infoRef draggingPasteboard];
		NSString *s = [pb stringForType:[NSString stringWithUTF8String:type]];
		if (s == nil) {
			return NULL;
		}
		return strdup(s.UTF8String);
	}
}

static void wry_setStringForType(CFTypeRef infoRef, const char *value, const char *type) {
	@autoreleasepool {
		NSPasteboard *pb = [(__bridge id<NSDraggingInfo>)infoRef draggingPasteboard];
		[pb setString:[NSString stringWithUTF8String:value]
			  forType:[NSString stringWithUTF8String:type]];
	}
}
*/
import "C"

// InstallDragDestination attaches b to the NSView identified by view,
// typically the WKWebView of the window. The view's class is replaced at
// runtime with a dragging destination subclass; unclaimed stages fall
// through to the view's own NSDraggingDestination implementation. Must be
// called on the main thread. The bridge stays attached for the lifetime
// of the view.
func InstallDragDestination(view uintptr, b *dragdrop.Bridge) error {
	if view == 0 {
		return errors.New("app: nil view")
	}
	if b == nil {
		return errors.New("app: nil bridge")
	}
	h := cgo.NewHandle(b)
	if C.wry_installDragDestination(C.CFTypeRef(unsafe.Pointer(view)), C.uintptr_t(h)) == 0 {
		h.Delete()
		return errors.New("app: failed to install drag destination")
	}
	debug.Log(debug.PLATFORM, "drag destination installed on view %#x", view)
	return nil
}

func bridgeFor(h C.uintptr_t) *dragdrop.Bridge {
	return cgo.Handle(h).Value().(*dragdrop.Bridge)
}

func dragLocation(view, info C.CFTypeRef) dragdrop.Location {
	pt := C.wry_draggingLocation(info)
	return dragdrop.Location{
		Point:      f32.Pt(float32(pt.x), float32(pt.y)),
		ViewHeight: float32(C.wry_viewHeight(view)),
	}
}

// pasteboard adapts the dragging pasteboard of one NSDraggingInfo to
// dragdrop.Payload. It borrows the native object for a single callback.
type pasteboard struct {
	info C.CFTypeRef
}

func nativeType(kind string) string {
	switch kind {
	case dragdrop.TypePlainText:
		return "public.utf8-plain-text"
	default:
		return kind
	}
}

func (p pasteboard) Has(kind string) bool {
	if kind == dragdrop.TypeFileList {
		return C.wry_hasFileList(p.info) != 0
	}
	ct := C.CString(nativeType(kind))
	defer C.free(unsafe.Pointer(ct))
	return C.wry_hasType(p.info, ct) != 0
}

func (p pasteboard) List(kind string) ([][]byte, bool) {
	if kind != dragdrop.TypeFileList {
		return nil, false
	}
	list := C.wry_fileList(p.info)
	if list == 0 {
		return nil, false
	}
	defer C.CFRelease(list)
	n := int(C.wry_listLen(list))
	items := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		cstr := C.wry_listItem(list, C.NSUInteger(i))
		if cstr == nil {
			// Unexpected shape; the whole representation is dropped.
			return nil, false
		}
		items = append(items, []byte(C.GoString(cstr)))
		C.free(unsafe.Pointer(cstr))
	}
	return items, true
}

func (p pasteboard) String(kind string) (string, bool) {
	ct := C.CString(nativeType(kind))
	defer C.free(unsafe.Pointer(ct))
	cstr := C.wry_stringForType(p.info, ct)
	if cstr == nil {
		return "", false
	}
	defer C.free(unsafe.Pointer(cstr))
	return C.GoString(cstr), true
}

func (p pasteboard) SetString(kind, value string) {
	cv := C.CString(value)
	defer C.free(unsafe.Pointer(cv))
	ct := C.CString(nativeType(kind))
	defer C.free(unsafe.Pointer(ct))
	C.wry_setStringForType(p.info, cv, ct)
}

//export wry_onDraggingEntered
func wry_onDraggingEntered(h C.uintptr_t, view, info C.CFTypeRef) C.NSUInteger {
	b := bridgeFor(h)
	op := b.Enter(pasteboard{info}, dragLocation(view, info), func() dragdrop.Operation {
		return dragdrop.Operation(C.wry_superDraggingEntered(view, info))
	})
	return C.NSUInteger(op)
}

//export wry_onDraggingUpdated
func wry_onDraggingUpdated(h C.uintptr_t, view, info C.CFTypeRef) C.NSUInteger {
	b := bridgeFor(h)
	op := b.Update(dragLocation(view, info), func() dragdrop.Operation {
		return dragdrop.Operation(C.wry_superDraggingUpdated(view, info))
	})
	return C.NSUInteger(op)
}

//export wry_onDraggingExited
func wry_onDraggingExited(h C.uintptr_t, view, info C.CFTypeRef) {
	b := bridgeFor(h)
	b.Exit(func() {
		C.wry_superDraggingExited(view, info)
	})
}

//export wry_onPerformDrag
func wry_onPerformDrag(h C.uintptr_t, view, info C.CFTypeRef) C.int {
	b := bridgeFor(h)
	accepted := b.Drop(pasteboard{info}, dragLocation(view, info), func() bool {
		return C.wry_superPerformDrag(view, info) != 0
	})
	if accepted {
		return 1
	}
	return 0
}
