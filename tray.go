//go:build windows
// +build windows

package main

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
)

const (
	WM_APP          = 0x8000
	WM_APP_TRAY_MSG = WM_APP + 10
	WM_APP_TRAY_DO  = WM_APP + 1

	ID_UPDATE    = 1001
	ID_AUTOSTART = 1002
	ID_QUIT      = 1003

	WM_DEVICECHANGE = 0x0219

	WM_POWERBROADCAST      = 0x0218
	PBT_APMSUSPEND         = 0x0004
	PBT_APMRESUMESUSPEND   = 0x0007
	PBT_APMRESUMEAUTOMATIC = 0x0012
)

var (
	hwnd    win.HWND
	nid     win.NOTIFYICONDATA
	trayMu  sync.Mutex
	trayOps = make(chan func(), 32)

	taskbarCreated uint32

	statusMu   sync.Mutex
	statusText = "Headset: <disconnected>"
	statusIcon = iconDisconnected

	iconCacheMu sync.Mutex
	iconCache   = map[iconKind]win.HICON{}

	user32      = syscall.NewLazyDLL("user32.dll")
	appendMenuW = user32.NewProc("AppendMenuW")
)

// trayPresenter renders session status updates onto the notification
// area icon. Apply may be called from the session worker; the actual
// Win32 calls are marshalled onto the tray thread via trayInvoke.
type trayPresenter struct{}

func (trayPresenter) Apply(u statusUpdate) {
	statusMu.Lock()
	statusText = u.Tooltip
	statusIcon = u.Icon
	statusMu.Unlock()

	trayInvoke(func() {
		applyTrayTooltip(u.Tooltip)
		applyTrayIcon(u.Icon)
	})
}

func startTray() {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Printf("[TRAY] recovered: %v\n%s", r, debug.Stack())
			}
		}
	}()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hInst := win.GetModuleHandle(nil)
	className, _ := syscall.UTF16PtrFromString("HyperXWMTrayClass")

	wc := win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		LpfnWndProc:   syscall.NewCallback(wndProc),
		HInstance:     hInst,
		LpszClassName: className,
	}
	win.RegisterClassEx(&wc)

	tbc, _ := syscall.UTF16PtrFromString("TaskbarCreated")
	taskbarCreated = win.RegisterWindowMessage(tbc)

	windowName, _ := syscall.UTF16PtrFromString("HyperXWM Tray")
	hwnd = win.CreateWindowEx(0, className, windowName, 0, 0, 0, 0, 0, 0, 0, hInst, nil)

	nid = win.NOTIFYICONDATA{}
	nid.CbSize = uint32(unsafe.Sizeof(nid))
	nid.HWnd = hwnd
	nid.UID = 1
	nid.UFlags = win.NIF_ICON | win.NIF_MESSAGE | win.NIF_TIP
	nid.UCallbackMessage = WM_APP_TRAY_MSG
	nid.HIcon = statusIconHandle(iconDisconnected)
	tip, _ := syscall.UTF16FromString("Headset: <disconnected>")
	copy(nid.SzTip[:], tip)

	win.Shell_NotifyIcon(win.NIM_ADD, &nid)
	nid.UVersion = win.NOTIFYICON_VERSION_4
	win.Shell_NotifyIcon(win.NIM_SETVERSION, &nid)

	var msg win.MSG
	for win.GetMessage(&msg, 0, 0, 0) > 0 {
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
}

func wndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	if msg == taskbarCreated {
		// explorer restarted; the icon has to be re-added
		win.Shell_NotifyIcon(win.NIM_ADD, &nid)
		nid.UVersion = win.NOTIFYICON_VERSION_4
		win.Shell_NotifyIcon(win.NIM_SETVERSION, &nid)
		statusMu.Lock()
		text, icon := statusText, statusIcon
		statusMu.Unlock()
		applyTrayTooltip(text)
		applyTrayIcon(icon)
		return 0
	}

	switch msg {
	case WM_POWERBROADCAST:
		switch wParam {
		case PBT_APMSUSPEND:
			if logger != nil {
				logger.Printf("[POWER] suspend")
			}
			if session != nil {
				session.Suspend()
			}
		case PBT_APMRESUMESUSPEND, PBT_APMRESUMEAUTOMATIC:
			if logger != nil {
				logger.Printf("[POWER] resume")
			}
			if session != nil {
				session.Resume()
			}
		}
		return 1

	case WM_DEVICECHANGE:
		if session != nil {
			session.RequestUpdate()
		}
		return 0

	case WM_APP_TRAY_MSG:
		code := uint32(lParam) & 0xFFFF
		if code == win.WM_RBUTTONUP || code == win.WM_CONTEXTMENU {
			showMenu()
		}
		return 0

	case win.WM_CONTEXTMENU:
		showMenu()
		return 0

	case WM_APP_TRAY_DO:
		for {
			select {
			case fn := <-trayOps:
				func() {
					defer func() {
						if r := recover(); r != nil {
							if logger != nil {
								logger.Printf("[TRAY] op recovered: %v", r)
							}
						}
					}()
					fn()
				}()
			default:
				return 0
			}
		}
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

// trayInvoke queues fn for the tray thread. All Shell_NotifyIcon and
// menu calls go through here so they stay on the window's thread.
func trayInvoke(fn func()) {
	select {
	case trayOps <- fn:
	default:
		go func() { trayOps <- fn }()
	}
	if hwnd != 0 {
		win.PostMessage(hwnd, WM_APP_TRAY_DO, 0, 0)
	}
}

func applyTrayTooltip(text string) {
	tip, err := syscall.UTF16FromString(text)
	if err != nil {
		return
	}
	trayMu.Lock()
	for i := range nid.SzTip {
		nid.SzTip[i] = 0
	}
	copy(nid.SzTip[:], tip)
	nid.UFlags = win.NIF_ICON | win.NIF_MESSAGE | win.NIF_TIP
	win.Shell_NotifyIcon(win.NIM_MODIFY, &nid)
	trayMu.Unlock()
}

func applyTrayIcon(kind iconKind) {
	icon := statusIconHandle(kind)
	if icon == 0 {
		return
	}
	trayMu.Lock()
	nid.HIcon = icon
	nid.UFlags = win.NIF_ICON
	win.Shell_NotifyIcon(win.NIM_MODIFY, &nid)
	nid.UFlags = win.NIF_ICON | win.NIF_MESSAGE | win.NIF_TIP
	trayMu.Unlock()
}

func statusIconHandle(kind iconKind) win.HICON {
	iconCacheMu.Lock()
	icon, ok := iconCache[kind]
	iconCacheMu.Unlock()
	if ok && icon != 0 {
		return icon
	}
	icon = createStatusIcon(kind)
	if icon != 0 {
		iconCacheMu.Lock()
		iconCache[kind] = icon
		iconCacheMu.Unlock()
	}
	return icon
}

// createStatusIcon rasterizes the battery glyph for one icon kind: an
// outlined body with a fill bar sized by the bucket, blue while
// charging, grayed out while disconnected.
func createStatusIcon(kind iconKind) win.HICON {
	const size = 32

	bih := win.BITMAPINFOHEADER{
		BiSize:     uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
		BiWidth:    size,
		BiHeight:   -size,
		BiPlanes:   1,
		BiBitCount: 32,
	}

	hdc := win.GetDC(0)
	if hdc == 0 {
		return 0
	}
	defer win.ReleaseDC(0, hdc)

	var pBits unsafe.Pointer
	hBitmap := win.CreateDIBSection(hdc, &bih, 0, &pBits, 0, 0)
	if hBitmap == 0 || pBits == nil {
		return 0
	}

	px := unsafe.Slice((*uint32)(pBits), size*size)
	for i := range px {
		px[i] = 0
	}
	set := func(x, y int, c uint32) {
		if x >= 0 && y >= 0 && x < size && y < size {
			px[y*size+x] = c
		}
	}

	var fill float64
	fillColor := uint32(0xFF107C10)
	borderColor := uint32(0xFFF5F5F5)
	switch kind {
	case iconDisconnected:
		fill, borderColor = 0, 0xFF6E7681
	case iconCharging:
		fill, fillColor = 1, 0xFF0078D4
	case iconEmpty:
		fill = 0
	case iconLow:
		fill, fillColor = 0.2, 0xFFC42B1C
	case iconMid:
		fill, fillColor = 0.5, 0xFFF7630C
	case iconHigh:
		fill = 0.7
	case iconFull:
		fill = 1
	}

	// battery body with a nub on the right
	const left, top, right, bottom = 2, 10, 27, 22
	for y := top; y <= bottom; y++ {
		for x := left; x <= right; x++ {
			if x == left || x == right || y == top || y == bottom {
				set(x, y, borderColor)
			}
		}
	}
	for y := top + 3; y <= bottom-3; y++ {
		set(right+1, y, borderColor)
		set(right+2, y, borderColor)
	}

	filled := int(fill * float64(right-left-3))
	for y := top + 2; y <= bottom-2; y++ {
		for x := left + 2; x < left+2+filled; x++ {
			set(x, y, fillColor)
		}
	}

	if kind == iconCharging {
		// small bolt over the fill
		bolt := [][2]int{{16, 12}, {15, 13}, {14, 14}, {13, 15}, {14, 15}, {15, 15},
			{16, 16}, {15, 17}, {14, 18}, {13, 19}, {14, 17}, {16, 15}}
		for _, p := range bolt {
			set(p[0], p[1], 0xFFFFFFFF)
		}
	}
	if kind == iconDisconnected {
		// slash across the body
		for i := 0; i < 16; i++ {
			set(7+i, 24-i, 0xFFC42B1C)
			set(8+i, 24-i, 0xFFC42B1C)
		}
	}

	hMask := win.CreateBitmap(size, size, 1, 1, nil)
	ii := win.ICONINFO{
		FIcon:    1,
		HbmMask:  hMask,
		HbmColor: hBitmap,
	}
	hIcon := win.CreateIconIndirect(&ii)
	win.DeleteObject(win.HGDIOBJ(hBitmap))
	win.DeleteObject(win.HGDIOBJ(hMask))
	return hIcon
}

func showMenu() {
	hMenu := win.CreatePopupMenu()
	if hMenu == 0 {
		return
	}

	statusMu.Lock()
	text := statusText
	statusMu.Unlock()
	if lvl, charging, ok := lastReading(); ok {
		if eta := formatEstimate(lvl, charging); eta != "" {
			text = fmt.Sprintf("%s (%s)", text, eta)
		}
	}

	statusItem, _ := syscall.UTF16PtrFromString(text)
	appendMenuW.Call(uintptr(hMenu), uintptr(win.MF_STRING|win.MF_GRAYED), 0, uintptr(unsafe.Pointer(statusItem)))
	appendMenuW.Call(uintptr(hMenu), uintptr(win.MF_SEPARATOR), 0, 0)

	updateItem, _ := syscall.UTF16PtrFromString("Update now")
	appendMenuW.Call(uintptr(hMenu), uintptr(win.MF_STRING), ID_UPDATE, uintptr(unsafe.Pointer(updateItem)))

	autoFlags := win.MF_STRING
	if isStartupEnabled() {
		autoFlags |= win.MF_CHECKED
	}
	autoItem, _ := syscall.UTF16PtrFromString("Start with Windows")
	appendMenuW.Call(uintptr(hMenu), uintptr(autoFlags), ID_AUTOSTART, uintptr(unsafe.Pointer(autoItem)))

	appendMenuW.Call(uintptr(hMenu), uintptr(win.MF_SEPARATOR), 0, 0)
	quitItem, _ := syscall.UTF16PtrFromString("Quit")
	appendMenuW.Call(uintptr(hMenu), uintptr(win.MF_STRING), ID_QUIT, uintptr(unsafe.Pointer(quitItem)))

	var pt win.POINT
	win.GetCursorPos(&pt)
	win.SetForegroundWindow(hwnd)

	trackPopupMenu := user32.NewProc("TrackPopupMenu")
	cmd, _, _ := trackPopupMenu.Call(
		uintptr(hMenu),
		uintptr(win.TPM_RETURNCMD|win.TPM_RIGHTBUTTON),
		uintptr(pt.X),
		uintptr(pt.Y),
		0,
		uintptr(hwnd),
		0,
	)
	win.PostMessage(hwnd, 0, 0, 0)
	win.DestroyMenu(hMenu)

	switch cmd {
	case ID_UPDATE:
		if session != nil {
			session.RequestUpdate()
		}
	case ID_AUTOSTART:
		enabled := !isStartupEnabled()
		setStartupEnabled(enabled)
		settings.StartWithWindows = enabled
		saveSettings()
	case ID_QUIT:
		requestShutdown()
	}
}

// sendNotification shows a balloon tip from the tray icon.
func sendNotification(title, message string, critical bool) {
	infoTitle, _ := syscall.UTF16FromString(title)
	infoText, _ := syscall.UTF16FromString(message)

	trayInvoke(func() {
		trayMu.Lock()
		nid.UFlags = win.NIF_INFO
		if critical {
			nid.DwInfoFlags = win.NIIF_WARNING
		} else {
			nid.DwInfoFlags = win.NIIF_INFO
		}
		for i := range nid.SzInfoTitle {
			nid.SzInfoTitle[i] = 0
		}
		for i := range nid.SzInfo {
			nid.SzInfo[i] = 0
		}
		copy(nid.SzInfoTitle[:], infoTitle)
		copy(nid.SzInfo[:], infoText)
		win.Shell_NotifyIcon(win.NIM_MODIFY, &nid)

		nid.UFlags = win.NIF_ICON | win.NIF_MESSAGE | win.NIF_TIP
		win.Shell_NotifyIcon(win.NIM_MODIFY, &nid)
		trayMu.Unlock()
	})
}

func removeTrayIcon() {
	trayMu.Lock()
	win.Shell_NotifyIcon(win.NIM_DELETE, &nid)
	trayMu.Unlock()
}

// requestShutdown tears the process down from the menu: stop the
// session worker, persist state, drop the icon and quit the loop.
func requestShutdown() {
	if session != nil {
		session.Stop()
	}
	if lvl, charging, ok := lastReading(); ok {
		saveChargeData(lvl, charging)
	}
	removeTrayIcon()
	win.PostQuitMessage(0)
}
