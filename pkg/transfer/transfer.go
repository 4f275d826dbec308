// Package transfer implements the PUT (upload) and GET (download)
// streaming loops: bounded-memory chunked transfer over the request
// engine, driven by an explicit byte offset rather than loading a whole
// file into memory.
package transfer

import (
	"fmt"
	"io"
	"os"

	"github.com/ufte/uftpc/pkg/request"
	"github.com/ufte/uftpc/pkg/uftproto"
)

// DefaultChunkSize is the per-packet payload size the device's fixed RAM
// budget is sized for. Larger chunks are legal on the wire but may be
// rejected by the device.
const DefaultChunkSize = 1024

// Progress is called after each chunk is sent or received. total is -1
// when the total size is not known in advance (always true for PUT; GET
// only learns size implicitly by reaching eof).
type Progress func(sent int64, total int64)

// Sink receives lifecycle events for a transfer; it is the narrow
// interface pkg/telemetry's Sink satisfies, kept here so transfer does
// not import telemetry directly. code is the wire command byte the event
// concerns (uftproto.CodePut or uftproto.CodeGet).
type Sink interface {
	Event(code byte, op string, ok bool, bytes int64, errMsg string)
}

type noopSink struct{}

func (noopSink) Event(byte, string, bool, int64, string) {}

type putParams struct {
	Path string `json:"path"`
	Off  int64  `json:"off"`
}

type getParams struct {
	Path string `json:"path"`
	Off  int64  `json:"off"`
}

// Put streams localPath to remotePath in chunks of chunkSize (DefaultChunkSize
// if zero), terminating with one zero-length write that signals
// end-of-file and commit to the device. progress and sink may be nil.
func Put(eng *request.Engine, localPath, remotePath string, chunkSize int, progress Progress, sink Sink) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if sink == nil {
		sink = noopSink{}
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w: %w", localPath, uftproto.ErrLocalIO, err)
	}
	defer f.Close()

	buf := make([]byte, chunkSize)
	var off int64

	for {
		n, readErr := io.ReadFull(f, buf)
		if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
			sink.Event(uftproto.CodePut, "put", false, off, readErr.Error())
			return fmt.Errorf("read %s at offset %d: %w: %w", localPath, off, uftproto.ErrLocalIO, readErr)
		}

		chunk := buf[:n]
		meta, _, err := eng.Request(uftproto.CodePut, putParams{Path: remotePath, Off: off}, chunk)
		if err != nil {
			sink.Event(uftproto.CodePut, "put", false, off, err.Error())
			return err
		}
		if !meta.OK {
			sink.Event(uftproto.CodePut, "put", false, off, meta.Err)
			return request.AsRemoteError(meta)
		}

		off += int64(n)
		if progress != nil {
			progress(off, -1)
		}

		if n == 0 {
			sink.Event(uftproto.CodePut, "put", true, off, "")
			return nil
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			// Last real chunk was short; the final empty-binary call still
			// has to go out to signal end-of-file and commit.
			meta, _, err := eng.Request(uftproto.CodePut, putParams{Path: remotePath, Off: off}, nil)
			if err != nil {
				sink.Event(uftproto.CodePut, "put", false, off, err.Error())
				return err
			}
			if !meta.OK {
				sink.Event(uftproto.CodePut, "put", false, off, meta.Err)
				return request.AsRemoteError(meta)
			}
			sink.Event(uftproto.CodePut, "put", true, off, "")
			return nil
		}
	}
}

// Get streams remotePath into localPath in chunks, terminating when the
// device reports meta.EOF. On a remote-side failure the partially written
// local file is unlinked, so success is the only case in which localPath
// exists afterward.
func Get(eng *request.Engine, remotePath, localPath string, chunkSize int, progress Progress, sink Sink) error {
	if sink == nil {
		sink = noopSink{}
	}

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %s: %w: %w", localPath, uftproto.ErrLocalIO, err)
	}

	var off int64
	for {
		meta, bin, err := eng.Request(uftproto.CodeGet, getParams{Path: remotePath, Off: off}, nil)
		if err != nil {
			sink.Event(uftproto.CodeGet, "get", false, off, err.Error())
			_ = f.Close()
			_ = os.Remove(localPath)
			return err
		}
		if !meta.OK {
			sink.Event(uftproto.CodeGet, "get", false, off, meta.Err)
			_ = f.Close()
			_ = os.Remove(localPath)
			return request.AsRemoteError(meta)
		}

		if len(bin) > 0 {
			if _, err := f.Write(bin); err != nil {
				sink.Event(uftproto.CodeGet, "get", false, off, err.Error())
				_ = f.Close()
				_ = os.Remove(localPath)
				return fmt.Errorf("write %s at offset %d: %w: %w", localPath, off, uftproto.ErrLocalIO, err)
			}
			off += int64(len(bin))
			if progress != nil {
				progress(off, -1)
			}
		}

		if meta.EOF != nil && *meta.EOF {
			sink.Event(uftproto.CodeGet, "get", true, off, "")
			return f.Close()
		}
	}
}

// Direction names accepted by Transfer.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Transfer dispatches to Put or Get based on direction ("up" or "down").
// Any other direction fails with uftproto.ErrInvalidArgument.
func Transfer(eng *request.Engine, direction, localPath, remotePath string, chunkSize int, progress Progress, sink Sink) error {
	switch direction {
	case DirectionUp:
		return Put(eng, localPath, remotePath, chunkSize, progress, sink)
	case DirectionDown:
		return Get(eng, remotePath, localPath, chunkSize, progress, sink)
	default:
		return fmt.Errorf("unknown transfer direction %q: %w", direction, uftproto.ErrInvalidArgument)
	}
}

