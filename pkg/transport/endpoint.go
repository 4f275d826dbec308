package transport

import (
	"os"
	"time"

	"go.bug.st/serial"
)

// endpoint is the minimal surface the Transport needs from whatever sits
// underneath it: a real serial port or a pseudo-terminal master used by
// tests. applyReadDeadline arms the next Read to return no later than
// deadline; how it does that differs by concrete type.
type endpoint interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	applyReadDeadline(deadline time.Time) error
}

// serialEndpoint wraps a real go.bug.st/serial port. The library exposes a
// read *timeout* (duration), not a deadline, so each call recomputes the
// remaining time budget.
type serialEndpoint struct {
	port serial.Port
}

func openSerialEndpoint(path string, baud int, rtscts bool) (*serialEndpoint, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	if rtscts {
		// Best-effort: this only raises the RTS line; output is not gated on
		// CTS. A failure here is not fatal.
		if err := port.SetRTS(true); err != nil {
			_ = err
		}
	}

	return &serialEndpoint{port: port}, nil
}

func (e *serialEndpoint) Read(p []byte) (int, error)  { return e.port.Read(p) }
func (e *serialEndpoint) Write(p []byte) (int, error) { return e.port.Write(p) }
func (e *serialEndpoint) Close() error                { return e.port.Close() }

func (e *serialEndpoint) applyReadDeadline(deadline time.Time) error {
	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}
	return e.port.SetReadTimeout(remaining)
}

// ptyEndpoint wraps a pseudo-terminal file descriptor, used by tests to
// fabricate a device endpoint without hardware. Per spec, reads on a pty
// use a deadline-based poll rather than a native serial read timeout.
type ptyEndpoint struct {
	f *os.File
}

// NewPTYEndpoint is a test-only constructor letting test harnesses plug a
// creack/pty master end of a pty pair in as the Transport's endpoint.
func NewPTYEndpoint(f *os.File) *ptyEndpoint {
	return &ptyEndpoint{f: f}
}

func (e *ptyEndpoint) Read(p []byte) (int, error)  { return e.f.Read(p) }
func (e *ptyEndpoint) Write(p []byte) (int, error) { return e.f.Write(p) }
func (e *ptyEndpoint) Close() error                { return e.f.Close() }

func (e *ptyEndpoint) applyReadDeadline(deadline time.Time) error {
	// The Go runtime's poller backs a tty *os.File's SetReadDeadline with
	// exactly the non-blocking poll/select loop this endpoint needs; no
	// hand-rolled poll loop is required.
	return e.f.SetReadDeadline(deadline)
}
