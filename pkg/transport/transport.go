// Package transport owns the serial endpoint and the byte-stuffed frame
// boundary: writing a stuffed frame plus its delimiter, and reading bytes
// off the wire until the next delimiter, bounded by a deadline.
package transport

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ufte/uftpc/pkg/uftproto"
)

const delimiter = 0x00

// readChunk is the size of each underlying Read call while draining the
// endpoint toward the next delimiter.
const readChunk = 512

// Transport writes stuffed frames terminated by the wire delimiter and
// reads them back, buffering any bytes read past one frame's delimiter for
// the next call. Not safe for concurrent use.
type Transport struct {
	ep    endpoint
	baud  int
	isPTY bool
	accum []byte
}

// Open opens a real serial port in raw 8-N-1 mode at baud. When rtscts is
// set the RTS line is raised; output is not gated on CTS.
func Open(path string, baud int, rtscts bool) (*Transport, error) {
	ep, err := openSerialEndpoint(path, baud, rtscts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, uftproto.ErrOpenFailed, err)
	}
	return &Transport{ep: ep, baud: baud, isPTY: false}, nil
}

// OpenPTY wraps an already-open pseudo-terminal file as the Transport's
// endpoint. baud is still needed for the post-write transmission-time
// pause even though a pty has no real baud rate of its own. Test-only.
func OpenPTY(f *os.File, baud int) *Transport {
	return &Transport{ep: NewPTYEndpoint(f), baud: baud, isPTY: true}
}

// IsPTY reports whether the underlying endpoint is a pseudo-terminal.
func (t *Transport) IsPTY() bool { return t.isPTY }

// Close closes the underlying endpoint and discards the accumulator.
func (t *Transport) Close() error {
	t.accum = nil
	return t.ep.Close()
}

// WriteFrame appends the wire delimiter to stuffed, writes it in one call,
// then blocks for the computed transmission-time pause that absorbs
// driver buffering on typical USB-serial adapters.
func (t *Transport) WriteFrame(stuffed []byte) error {
	frame := make([]byte, 0, len(stuffed)+1)
	frame = append(frame, stuffed...)
	frame = append(frame, delimiter)

	if _, err := t.ep.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w: %w", uftproto.ErrWriteFailed, err)
	}

	time.Sleep(transmissionPause(len(frame), t.baud))
	return nil
}

// transmissionPause computes a deliberate overestimate of the time it
// takes byteCount bytes to physically leave the host at baud, so the
// write call's return does not race ahead of the hardware.
func transmissionPause(byteCount, baud int) time.Duration {
	if baud <= 0 {
		return 0
	}
	seconds := 2 * float64(byteCount) * 10 / float64(baud)
	return time.Duration(seconds * float64(time.Second))
}

// ReadFrame consumes bytes from the endpoint until the first delimiter,
// returning everything before it (exclusive). Bytes after the delimiter
// are retained in the accumulator for the next call. Bounded by deadline;
// fails with uftproto.ErrReadTimeout if no full frame arrives in time.
func (t *Transport) ReadFrame(deadline time.Time) ([]byte, error) {
	buf := make([]byte, readChunk)

	for {
		if idx := bytes.IndexByte(t.accum, delimiter); idx >= 0 {
			frame := make([]byte, idx)
			copy(frame, t.accum[:idx])
			t.accum = append([]byte(nil), t.accum[idx+1:]...)
			return frame, nil
		}

		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("no delimiter before deadline: %w", uftproto.ErrReadTimeout)
		}

		if err := t.ep.applyReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("arm read deadline: %w: %w", uftproto.ErrReadFailed, err)
		}

		n, err := t.ep.Read(buf)
		if n > 0 {
			t.accum = append(t.accum, buf[:n]...)
			continue
		}
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return nil, fmt.Errorf("read: %w: %w", uftproto.ErrReadFailed, err)
		}
	}
}

// isTimeout reports whether err is the kind of error a deadline-bounded
// read returns when it simply ran out of time, as opposed to a real I/O
// fault. Both *os.File (net.Error-like Timeout()) and go.bug.st/serial
// (a plain io.EOF-free zero-byte read on timeout) are handled.
func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	if errors.As(err, &te) {
		return te.Timeout()
	}
	return false
}

// ReadRaw returns whatever bytes are immediately available: first any
// bytes already buffered in the accumulator, otherwise the result of one
// bounded Read call against the endpoint. Unlike ReadFrame it does not
// split on the delimiter; it exists for syncdetect, which scans a raw
// byte stream for a beacon substring before any framing applies. A
// timed-out Read is reported as (nil, nil), not an error, so a caller
// polling in a loop against its own deadline doesn't need to special-case
// it.
func (t *Transport) ReadRaw(deadline time.Time) ([]byte, error) {
	if len(t.accum) > 0 {
		b := t.accum
		t.accum = nil
		return b, nil
	}

	if err := t.ep.applyReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("arm read deadline: %w: %w", uftproto.ErrReadFailed, err)
	}

	buf := make([]byte, readChunk)
	n, err := t.ep.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err != nil {
		if isTimeout(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read: %w: %w", uftproto.ErrReadFailed, err)
	}
	return nil, nil
}

// DrainPending discards any buffered accumulator bytes and, for a real
// serial endpoint, flushes the driver's input buffer too. Called once at
// the start of each sync-detect attempt.
func (t *Transport) DrainPending() {
	t.accum = nil
	if se, ok := t.ep.(*serialEndpoint); ok {
		_ = se.port.ResetInputBuffer()
	}
}

// RawWrite is a test-only hook (per spec's re-architecture guidance) that
// bypasses framing entirely, used to inject malformed or garbage bytes.
func (t *Transport) RawWrite(b []byte) error {
	_, err := t.ep.Write(b)
	return err
}

// ResetAccumulator is a test-only hook that discards any buffered partial
// frame, used to simulate recovery after desync.
func (t *Transport) ResetAccumulator() {
	t.accum = nil
}
