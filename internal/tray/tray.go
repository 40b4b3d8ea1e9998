// Package tray shows the workflow status in the system tray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

const appTitle = "HandSignal"

// Tray is a system tray Display. The countdown is shown as the tray title and
// the status as a disabled menu item.
type Tray struct {
	onToggle     func(listening bool)
	onOpenStatus func()
	onQuit       func()
	listening    bool
	status       string
	countdown    string
	mu           sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray that starts out listening for claps.
func New() *Tray {
	return &Tray{
		listening: true,
	}
}

// OnToggle sets the callback run when clap listening is paused or resumed.
func (t *Tray) OnToggle(fn func(listening bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpenStatus sets the callback for the "Open Status Page" menu item.
func (t *Tray) OnOpenStatus(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenStatus = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTooltip("HandSignal clap-triggered gesture capture")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.listening), "Pause or resume clap detection")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(statusTitle(t.status), "Current workflow status")
	t.menuStatus.Disable()
	systray.SetTitle(titleFor(t.countdown))
	t.mu.Unlock()

	systray.AddSeparator()
	menuOpen := systray.AddMenuItem("Open Status Page...", "Open the status page in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit HandSignal")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpenStatus()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.listening = !t.listening
	listening := t.listening
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(listening))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(listening)
	}
}

func (t *Tray) handleOpenStatus() {
	t.mu.RLock()
	callback := t.onOpenStatus
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetStatus updates the status menu item.
func (t *Tray) SetStatus(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = text
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(statusTitle(text))
	}
}

// SetCountdown shows text as the tray title; empty restores the app name.
func (t *Tray) SetCountdown(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.countdown = text
	if t.menuStatus != nil {
		systray.SetTitle(titleFor(text))
	}
}

// Status returns the last status text.
func (t *Tray) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Countdown returns the last countdown text.
func (t *Tray) Countdown() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.countdown
}

// IsListening reports whether clap detection is enabled from the menu.
func (t *Tray) IsListening() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.listening
}

func toggleTitle(listening bool) string {
	if listening {
		return "● Listening for claps"
	}
	return "○ Paused"
}

func statusTitle(status string) string {
	if status == "" {
		return "Status: idle"
	}
	return "Status: " + status
}

func titleFor(countdown string) string {
	if countdown == "" {
		return appTitle
	}
	return countdown
}
