// SPDX-License-Identifier: Unlicense OR MIT

//go:build windows
// +build windows

package app

import (
	"errors"
	"sync/atomic"
	"syscall"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/BurningTreeC/wry/f32"
	"github.com/BurningTreeC/wry/internal/debug"
	"github.com/BurningTreeC/wry/io/dragdrop"
)

// Win32/COM plumbing for a custom IDropTarget on the WebView2 content
// window. WebView2 registers its own IDropTarget on a Chrome_WidgetWin_0
// child; that target is revoked and replaced with one that drives the
// bridge. The replaced target cannot be recovered through OLE, so the
// default-handling capabilities passed to the bridge approximate the
// answers the web view would give.
var (
	modOle32   = windows.NewLazySystemDLL("ole32.dll")
	modShell32 = windows.NewLazySystemDLL("shell32.dll")
	modUser32  = windows.NewLazySystemDLL("user32.dll")

	procOleInitialize           = modOle32.NewProc("OleInitialize")
	procRevokeDragDrop          = modOle32.NewProc("RevokeDragDrop")
	procRegisterDragDrop        = modOle32.NewProc("RegisterDragDrop")
	procReleaseStgMedium        = modOle32.NewProc("ReleaseStgMedium")
	procDragQueryFileW          = modShell32.NewProc("DragQueryFileW")
	procEnumChildWindows        = modUser32.NewProc("EnumChildWindows")
	procGetClassNameW           = modUser32.NewProc("GetClassNameW")
	procGetClientRect           = modUser32.NewProc("GetClientRect")
	procScreenToClient          = modUser32.NewProc("ScreenToClient")
	procRegisterClipboardFormat = modUser32.NewProc("RegisterClipboardFormatW")

	modKernel32      = windows.NewLazySystemDLL("kernel32.dll")
	procGlobalAlloc  = modKernel32.NewProc("GlobalAlloc")
	procGlobalFree   = modKernel32.NewProc("GlobalFree")
	procGlobalLock   = modKernel32.NewProc("GlobalLock")
	procGlobalUnlock = modKernel32.NewProc("GlobalUnlock")
)

const (
	cfUnicodeText = 13
	cfHDROP       = 15

	tymedHGlobal    = 1
	dvaspectContent = 1
	ghndFlags       = 0x0042 // GMEM_MOVEABLE | GMEM_ZEROINIT

	comSOK          = 0
	comENoInterface = 0x80004002
)

var (
	iidIUnknown    = syscall.GUID{Data1: 0x00000000, Data4: [8]byte{0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46}}
	iidIDropTarget = syscall.GUID{Data1: 0x00000122, Data4: [8]byte{0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46}}
)

// FORMATETC, Win64 layout.
type formatETC struct {
	cfFormat uint16
	_pad     [6]byte
	ptd      uintptr
	dwAspect uint32
	lindex   int32
	tymed    uint32
	_pad2    [4]byte
}

// STGMEDIUM, Win64 layout.
type stgMEDIUM struct {
	tymed          uint32
	_pad           uint32
	hGlobal        uintptr
	pUnkForRelease uintptr
}

type rect struct {
	left, top, right, bottom int32
}

type point struct {
	x, y int32
}

// dropTargetVtbl is the COM vtable for IDropTarget.
type dropTargetVtbl struct {
	QueryInterface uintptr
	AddRef         uintptr
	Release        uintptr
	DragEnter      uintptr
	DragOver       uintptr
	DragLeave      uintptr
	Drop           uintptr
}

// dropTarget implements IDropTarget. The first field must be the vtable
// pointer for COM interop.
type dropTarget struct {
	lpVtbl   *dropTargetVtbl
	refCount int32
	bridge   *dragdrop.Bridge
	hwnd     uintptr
	// data is the session's IDataObject, captured in DragEnter for the
	// argument-less DragOver callback. It stays valid for the session.
	data uintptr
}

// Global references prevent collection while the COM object is alive.
var (
	gDropTarget *dropTarget
	gVtbl       *dropTargetVtbl
	cfTiddler   uintptr
)

func dtQueryInterface(this, riid, ppvObject uintptr) uintptr {
	if ppvObject == 0 {
		return comENoInterface
	}
	guid := (*syscall.GUID)(unsafe.Pointer(riid))
	if *guid == iidIUnknown || *guid == iidIDropTarget {
		*(*uintptr)(unsafe.Pointer(ppvObject)) = this
		dtAddRef(this)
		return comSOK
	}
	*(*uintptr)(unsafe.Pointer(ppvObject)) = 0
	return comENoInterface
}

func dtAddRef(this uintptr) uintptr {
	dt := (*dropTarget)(unsafe.Pointer(this))
	return uintptr(atomic.AddInt32(&dt.refCount, 1))
}

func dtRelease(this uintptr) uintptr {
	dt := (*dropTarget)(unsafe.Pointer(this))
	return uintptr(atomic.AddInt32(&dt.refCount, -1))
}

// location converts a screen POINTL packed into pt to the bottom-left
// origin location the bridge expects.
func (dt *dropTarget) location(pt uintptr) dragdrop.Location {
	p := point{x: int32(uint32(pt)), y: int32(uint32(pt >> 32))}
	procScreenToClient.Call(dt.hwnd, uintptr(unsafe.Pointer(&p)))
	var r rect
	procGetClientRect.Call(dt.hwnd, uintptr(unsafe.Pointer(&r)))
	height := float32(r.bottom - r.top)
	return dragdrop.Location{
		Point:      f32.Pt(float32(p.x), height-float32(p.y)),
		ViewHeight: height,
	}
}

func (dt *dropTarget) defaultOperation(p dragdrop.Payload) dragdrop.Operation {
	if p != nil && (p.Has(dragdrop.TypeFileList) || p.Has(dragdrop.TypePlainText)) {
		return dragdrop.Copy
	}
	return dragdrop.None
}

func dtDragEnter(this, pDataObj, grfKeyState, pt, pdwEffect uintptr) uintptr {
	dt := (*dropTarget)(unsafe.Pointer(this))
	dt.data = pDataObj
	p := dataObject{obj: pDataObj}
	op := dt.bridge.Enter(p, dt.location(pt), func() dragdrop.Operation {
		return dt.defaultOperation(p)
	})
	*(*uint32)(unsafe.Pointer(pdwEffect)) = uint32(op)
	return comSOK
}

func dtDragOver(this, grfKeyState, pt, pdwEffect uintptr) uintptr {
	dt := (*dropTarget)(unsafe.Pointer(this))
	p := dataObject{obj: dt.data}
	op := dt.bridge.Update(dt.location(pt), func() dragdrop.Operation {
		return dt.defaultOperation(p)
	})
	*(*uint32)(unsafe.Pointer(pdwEffect)) = uint32(op)
	return comSOK
}

func dtDragLeave(this uintptr) uintptr {
	dt := (*dropTarget)(unsafe.Pointer(this))
	dt.bridge.Exit(func() {})
	dt.data = 0
	return comSOK
}

func dtDrop(this, pDataObj, grfKeyState, pt, pdwEffect uintptr) uintptr {
	dt := (*dropTarget)(unsafe.Pointer(this))
	debug.Log(debug.PLATFORM, "drop on hwnd %#x", dt.hwnd)
	p := dataObject{obj: pDataObj}
	accepted := dt.bridge.Drop(p, dt.location(pt), func() bool {
		// The web view's own target has been displaced; nothing is
		// inserted natively on this platform.
		return false
	})
	effect := uint32(dragdrop.None)
	if accepted || p.Has(dragdrop.TypeFileList) {
		effect = uint32(dragdrop.Copy)
	}
	*(*uint32)(unsafe.Pointer(pdwEffect)) = effect
	dt.data = 0
	return comSOK
}

// dataObject adapts an IDataObject to dragdrop.Payload.
type dataObject struct {
	obj uintptr
}

func (d dataObject) format(kind string) (uint16, bool) {
	switch kind {
	case dragdrop.TypeFileList:
		return cfHDROP, true
	case dragdrop.TypePlainText:
		return cfUnicodeText, true
	case dragdrop.TypeTiddler:
		if cfTiddler == 0 {
			return 0, false
		}
		return uint16(cfTiddler), true
	}
	return 0, false
}

func (d dataObject) vcall(index int, args ...uintptr) uintptr {
	vtbl := *(*uintptr)(unsafe.Pointer(d.obj))
	fn := *(*uintptr)(unsafe.Pointer(vtbl + uintptr(index)*unsafe.Sizeof(uintptr(0))))
	ret, _, _ := syscall.SyscallN(fn, append([]uintptr{d.obj}, args...)...)
	return ret
}

func (d dataObject) Has(kind string) bool {
	if d.obj == 0 {
		return false
	}
	cf, ok := d.format(kind)
	if !ok {
		return false
	}
	fe := formatETC{cfFormat: cf, dwAspect: dvaspectContent, lindex: -1, tymed: tymedHGlobal}
	// IDataObject::QueryGetData, vtable index 5.
	return d.vcall(5, uintptr(unsafe.Pointer(&fe))) == comSOK
}

func (d dataObject) List(kind string) ([][]byte, bool) {
	if kind != dragdrop.TypeFileList || d.obj == 0 {
		return nil, false
	}
	fe := formatETC{cfFormat: cfHDROP, dwAspect: dvaspectContent, lindex: -1, tymed: tymedHGlobal}
	var medium stgMEDIUM
	// IDataObject::GetData, vtable index 3.
	if d.vcall(3, uintptr(unsafe.Pointer(&fe)), uintptr(unsafe.Pointer(&medium))) != comSOK {
		return nil, false
	}
	defer procReleaseStgMedium.Call(uintptr(unsafe.Pointer(&medium)))

	hdrop := medium.hGlobal
	count, _, _ := procDragQueryFileW.Call(hdrop, 0xFFFFFFFF, 0, 0)
	items := make([][]byte, 0, count)
	buf := make([]uint16, 4096)
	for i := uintptr(0); i < count; i++ {
		n, _, _ := procDragQueryFileW.Call(hdrop, i, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
		items = append(items, []byte(string(utf16.Decode(buf[:n]))))
	}
	return items, true
}

func (d dataObject) String(kind string) (string, bool) {
	if d.obj == 0 {
		return "", false
	}
	cf, ok := d.format(kind)
	if !ok || cf == cfHDROP {
		return "", false
	}
	fe := formatETC{cfFormat: cf, dwAspect: dvaspectContent, lindex: -1, tymed: tymedHGlobal}
	var medium stgMEDIUM
	if d.vcall(3, uintptr(unsafe.Pointer(&fe)), uintptr(unsafe.Pointer(&medium))) != comSOK {
		return "", false
	}
	defer procReleaseStgMedium.Call(uintptr(unsafe.Pointer(&medium)))

	ptr, _, _ := procGlobalLock.Call(medium.hGlobal)
	if ptr == 0 {
		return "", false
	}
	defer procGlobalUnlock.Call(medium.hGlobal)
	var units []uint16
	for off := uintptr(0); ; off += 2 {
		u := *(*uint16)(unsafe.Pointer(ptr + off))
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units)), true
}

func (d dataObject) SetString(kind, value string) {
	if d.obj == 0 {
		return
	}
	cf, ok := d.format(kind)
	if !ok || cf == cfHDROP {
		return
	}
	units := utf16.Encode([]rune(value))
	units = append(units, 0)
	size := uintptr(len(units)) * 2
	hGlobal, _, _ := procGlobalAlloc.Call(ghndFlags, size)
	if hGlobal == 0 {
		// The rewrite sub-step is skipped; the drop still proceeds.
		return
	}
	ptr, _, _ := procGlobalLock.Call(hGlobal)
	if ptr == 0 {
		procGlobalFree.Call(hGlobal)
		return
	}
	copy(unsafe.Slice((*uint16)(unsafe.Pointer(ptr)), len(units)), units)
	procGlobalUnlock.Call(hGlobal)

	fe := formatETC{cfFormat: cf, dwAspect: dvaspectContent, lindex: -1, tymed: tymedHGlobal}
	medium := stgMEDIUM{tymed: tymedHGlobal, hGlobal: hGlobal}
	// IDataObject::SetData, vtable index 7; fRelease transfers the
	// global to the data object.
	if d.vcall(7, uintptr(unsafe.Pointer(&fe)), uintptr(unsafe.Pointer(&medium)), 1) != comSOK {
		procGlobalFree.Call(hGlobal)
	}
}

// InstallDragDestination registers a drop target driving b on the
// WebView2 content window under hwnd. The Chrome_WidgetWin_0 child that
// hosts the web content is preferred; hwnd itself is the fallback.
func InstallDragDestination(hwnd uintptr, b *dragdrop.Bridge) error {
	if hwnd == 0 {
		return errors.New("app: nil window handle")
	}
	if b == nil {
		return errors.New("app: nil bridge")
	}
	// Wails and WebView2 hosts initialize COM apartment-threaded only;
	// OLE drag and drop additionally needs OleInitialize. S_FALSE means
	// already initialized.
	procOleInitialize.Call(0)

	if cfTiddler == 0 {
		name, _ := windows.UTF16PtrFromString(dragdrop.TypeTiddler)
		cfTiddler, _, _ = procRegisterClipboardFormat.Call(uintptr(unsafe.Pointer(name)))
	}

	gVtbl = &dropTargetVtbl{
		QueryInterface: syscall.NewCallback(dtQueryInterface),
		AddRef:         syscall.NewCallback(dtAddRef),
		Release:        syscall.NewCallback(dtRelease),
		DragEnter:      syscall.NewCallback(dtDragEnter),
		DragOver:       syscall.NewCallback(dtDragOver),
		DragLeave:      syscall.NewCallback(dtDragLeave),
		Drop:           syscall.NewCallback(dtDrop),
	}

	targets := append(findChromeWidgetChildren(hwnd), hwnd)
	for _, h := range targets {
		gDropTarget = &dropTarget{lpVtbl: gVtbl, refCount: 1, bridge: b, hwnd: h}
		procRevokeDragDrop.Call(h) // may not have one
		ret, _, _ := procRegisterDragDrop.Call(h, uintptr(unsafe.Pointer(gDropTarget)))
		debug.Log(debug.PLATFORM, "RegisterDragDrop hwnd=%#x hresult=%#x", h, ret)
		if ret == comSOK {
			return nil
		}
	}
	return errors.New("app: RegisterDragDrop failed")
}

func findChromeWidgetChildren(parent uintptr) []uintptr {
	var found []uintptr
	cb := syscall.NewCallback(func(child, lParam uintptr) uintptr {
		var className [256]uint16
		procGetClassNameW.Call(child, uintptr(unsafe.Pointer(&className[0])), 256)
		if syscall.UTF16ToString(className[:]) == "Chrome_WidgetWin_0" {
			found = append(found, child)
		}
		return 1 // keep enumerating
	})
	procEnumChildWindows.Call(parent, cb, 0)
	return found
}
