package internal

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"sync"
)

// SpeechCallbacks carries the terminal-event handlers for one utterance.
// Exactly one of the two fires; both must re-enable whatever the caller
// disabled before speaking.
type SpeechCallbacks struct {
	OnEnded func()
	OnError func(err error)
}

// Voice is the injected speech capability: text-to-speech output and
// speech-to-text input. The engine itself is opaque to this package.
type Voice interface {
	Speak(text string, cb SpeechCallbacks)
	Listen() (string, error)
	Stop()
	IsSpeaking() bool
}

// Coordinates is a geolocation fix.
type Coordinates struct {
	Lat float64
	Lng float64
}

// Locator exposes the most recent geolocation fix, or nil when no fix is
// available.
type Locator interface {
	Location() *Coordinates
}

// Messenger opens an external messaging deep-link for a phone number with a
// pre-filled text. Fire-and-forget; no delivery confirmation exists.
type Messenger interface {
	SendDeepLink(number, text string) error
}

// Notifier raises system notifications for alarm firings.
type Notifier interface {
	PermissionGranted() bool
	Notify(title, body string) error
}

// AudioPlayer plays the looping alarm cue. Loop keeps playing until Stop.
type AudioPlayer interface {
	Loop() error
	Stop()
}

// SilentVoice is a no-op Voice for headless use. Speak reports completion
// immediately so input gating never wedges without a speech engine.
type SilentVoice struct{}

func (SilentVoice) Speak(text string, cb SpeechCallbacks) {
	if cb.OnEnded != nil {
		cb.OnEnded()
	}
}

func (SilentVoice) Listen() (string, error) { return "", fmt.Errorf("voice input not available") }
func (SilentVoice) Stop()                   {}
func (SilentVoice) IsSpeaking() bool        { return false }

// NilLocator reports no geolocation fix.
type NilLocator struct{}

func (NilLocator) Location() *Coordinates { return nil }

// StaticLocator reports a fixed coordinate, e.g. from configuration.
type StaticLocator struct {
	Coords Coordinates
}

func (l StaticLocator) Location() *Coordinates {
	c := l.Coords
	return &c
}

// WhatsAppMessenger opens wa.me deep-links in the system browser.
type WhatsAppMessenger struct {
	// OpenURL overrides how links are opened; defaults to the platform
	// browser command.
	OpenURL func(url string) error
}

// SendDeepLink builds the wa.me URL for the number and opens it.
func (m *WhatsAppMessenger) SendDeepLink(number, text string) error {
	link := fmt.Sprintf("https://wa.me/%s?text=%s", NormalizeNumber(number), url.QueryEscape(text))
	open := m.OpenURL
	if open == nil {
		open = openBrowser
	}
	return open(link)
}

func openBrowser(link string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", link).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", link).Start()
	default:
		return exec.Command("xdg-open", link).Start()
	}
}

// TerminalNotifier writes notifications to a print function, standing in
// for system notifications on plain terminals.
type TerminalNotifier struct {
	Printf func(format string, args ...interface{})
}

func (n *TerminalNotifier) PermissionGranted() bool { return n.Printf != nil }

func (n *TerminalNotifier) Notify(title, body string) error {
	if n.Printf == nil {
		return fmt.Errorf("notifier has no output")
	}
	n.Printf("\n[%s] %s\n", title, body)
	return nil
}

// CommandAudioPlayer shells out to an audio command (e.g. "mpv --loop") to
// play the alarm cue, killing the process on Stop. Safe for concurrent use
// from timer and input goroutines.
type CommandAudioPlayer struct {
	Command string
	Args    []string

	mu   sync.Mutex
	proc *exec.Cmd
}

func (p *CommandAudioPlayer) Loop() error {
	if p.Command == "" {
		return fmt.Errorf("no audio command configured")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.proc = exec.Command(p.Command, p.Args...)
	return p.proc.Start()
}

func (p *CommandAudioPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.proc != nil && p.proc.Process != nil {
		_ = p.proc.Process.Kill()
	}
	p.proc = nil
}
