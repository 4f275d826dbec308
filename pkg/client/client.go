// Package client assembles the wire layer into the typed command surface
// a caller actually uses: Session wraps a transport, a request engine and
// the sync detector behind cd/ls/rm/reboot/transfer methods.
package client

import (
	"os"
	"time"

	"github.com/ufte/uftpc/pkg/packet"
	"github.com/ufte/uftpc/pkg/request"
	"github.com/ufte/uftpc/pkg/syncdetect"
	"github.com/ufte/uftpc/pkg/transfer"
	"github.com/ufte/uftpc/pkg/transport"
	"github.com/ufte/uftpc/pkg/uftproto"
)

// Options configures a Session.
type Options struct {
	Port      string
	Baud      int
	RTSCTS    bool
	Timeout   time.Duration
	ChunkSize int
	// Sink, if non-nil, receives transfer lifecycle events from Transfer;
	// Cd, Ls, Rm and Reboot publish none. It never influences the protocol;
	// publish failures are logged and swallowed, not propagated.
	Sink transfer.Sink
}

// DefaultBaud and DefaultTimeout mirror the wire defaults from spec §6.
const (
	DefaultBaud    = 115200
	DefaultTimeout = 5 * time.Second
)

// Session owns one connected lifetime of the serial endpoint. It is not
// safe for concurrent use from multiple goroutines; a caller that needs
// to share a Session must serialize access itself.
type Session struct {
	transport *transport.Transport
	engine    *request.Engine
	chunkSize int
	sink      transfer.Sink
}

// Open opens the serial endpoint at opts.Port and returns a Session ready
// for Sync. Baud defaults to DefaultBaud and Timeout to DefaultTimeout
// when left zero.
func Open(opts Options) (*Session, error) {
	baud := opts.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	chunkSize := opts.ChunkSize
	if chunkSize == 0 {
		chunkSize = transfer.DefaultChunkSize
	}

	t, err := transport.Open(opts.Port, baud, opts.RTSCTS)
	if err != nil {
		return nil, err
	}

	return newSession(t, timeout, chunkSize, opts.Sink), nil
}

// OpenPTY wraps an already-open pseudo-terminal as the Session's
// transport. Test-only: production callers use Open.
func OpenPTY(f *os.File, baud int, timeout time.Duration, chunkSize int) *Session {
	return newSession(transport.OpenPTY(f, baud), timeout, chunkSize, nil)
}

func newSession(t *transport.Transport, timeout time.Duration, chunkSize int, sink transfer.Sink) *Session {
	return &Session{
		transport: t,
		engine:    request.New(t, timeout),
		chunkSize: chunkSize,
		sink:      sink,
	}
}

// Close closes the underlying transport.
func (s *Session) Close() error {
	return s.transport.Close()
}

// Sync drains pending bytes and scans for the device's idle beacon,
// proving the host TTY is configured correctly. Must be called at most
// once per session, before any request.
func (s *Session) Sync(timeout time.Duration, retries int) error {
	return syncdetect.Detect(s.transport, s.transport.DrainPending, timeout, retries)
}

// Transport exposes the raw test-only hooks (RawWrite, ResetAccumulator)
// spec's re-architecture guidance calls for, without exposing anything
// else about session internals.
func (s *Session) Transport() *transport.Transport { return s.transport }

type pathParams struct {
	Path string `json:"path"`
}

// Cd changes the device's working directory.
func (s *Session) Cd(path string) error {
	meta, _, err := s.engine.Request(uftproto.CodeCd, pathParams{Path: path}, nil)
	if err != nil {
		return err
	}
	return request.AsRemoteError(meta)
}

// Ls lists path's directory entries.
func (s *Session) Ls(path string) ([]packet.Entry, error) {
	meta, _, err := s.engine.Request(uftproto.CodeLs, pathParams{Path: path}, nil)
	if err != nil {
		return nil, err
	}
	if err := request.AsRemoteError(meta); err != nil {
		return nil, err
	}
	return meta.Entries, nil
}

// Rm removes path on the device.
func (s *Session) Rm(path string) error {
	meta, _, err := s.engine.Request(uftproto.CodeRm, pathParams{Path: path}, nil)
	if err != nil {
		return err
	}
	return request.AsRemoteError(meta)
}

// Reboot asks the device to reset; it resets shortly after acknowledging.
func (s *Session) Reboot() error {
	meta, _, err := s.engine.Request(uftproto.CodeReboot, struct{}{}, nil)
	if err != nil {
		return err
	}
	return request.AsRemoteError(meta)
}

// Transfer dispatches to Put or Get based on direction ("up" or "down").
func (s *Session) Transfer(direction, localPath, remotePath string, progress transfer.Progress) error {
	return transfer.Transfer(s.engine, direction, localPath, remotePath, s.chunkSize, progress, s.sink)
}

// Stat looks up name within the listing of its parent directory. It is
// built entirely out of Ls; the wire protocol has no dedicated stat
// operation.
func (s *Session) Stat(dir, name string) (packet.Entry, bool, error) {
	entries, err := s.Ls(dir)
	if err != nil {
		return packet.Entry{}, false, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e, true, nil
		}
	}
	return packet.Entry{}, false, nil
}

