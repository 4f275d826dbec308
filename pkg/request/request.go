// Package request implements the synchronous, single-outstanding
// request/response engine that sits on top of the frame transport: encode
// and write one command packet, then decode exactly one response packet.
package request

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ufte/uftpc/pkg/packet"
	"github.com/ufte/uftpc/pkg/stuffing"
	"github.com/ufte/uftpc/pkg/uftproto"
)

// frameWriter and frameReader are the two Transport operations the engine
// needs; kept as a narrow interface so tests can substitute a fake.
type frameWriter interface {
	WriteFrame(stuffed []byte) error
}

type frameReader interface {
	ReadFrame(deadline time.Time) ([]byte, error)
}

// Transport is the combined surface a *transport.Transport satisfies.
type Transport interface {
	frameWriter
	frameReader
}

// Engine is a thin wrapper binding a Transport to a per-request timeout.
// Only one Request call may be in flight at a time; callers serialize.
type Engine struct {
	t       Transport
	timeout time.Duration
}

// New returns an Engine issuing requests over t, each bounded by timeout.
func New(t Transport, timeout time.Duration) *Engine {
	return &Engine{t: t, timeout: timeout}
}

// Request builds a packet for code and params (marshaled to JSON) with an
// optional trailing bin region, writes it as one frame, and reads back
// exactly one response frame. It returns the decoded metadata and, when
// meta.Bin is a positive count, that many trailing bytes from the response
// packet body.
//
// Framing and CRC failures surface as their respective uftproto sentinels;
// a device-side protocol failure (ok:false, or unparseable JSON) is
// returned as a non-nil *packet.Meta with no error — the caller decides
// whether that constitutes a uftproto.ErrRemoteError.
func (e *Engine) Request(code byte, params interface{}, bin []byte) (*packet.Meta, []byte, error) {
	jsonBytes, err := json.Marshal(params)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal request params: %w", err)
	}

	body, err := packet.Build(code, jsonBytes, bin)
	if err != nil {
		return nil, nil, err
	}

	if err := e.t.WriteFrame(stuffing.Encode(body)); err != nil {
		return nil, nil, err
	}

	deadline := time.Now().Add(e.timeout)
	stuffed, err := e.t.ReadFrame(deadline)
	if err != nil {
		return nil, nil, err
	}

	decoded, err := stuffing.Decode(stuffed)
	if err != nil {
		return nil, nil, err
	}

	parsed, err := packet.Parse(decoded)
	if err != nil {
		return nil, nil, err
	}

	meta := packet.DecodeMeta(parsed.JSON)

	var binOut []byte
	if meta.Bin != nil && *meta.Bin > 0 {
		n := *meta.Bin
		if n > len(parsed.Bin) {
			n = len(parsed.Bin)
		}
		binOut = parsed.Bin[:n]
	}

	return meta, binOut, nil
}

// AsRemoteError turns a failed response (ok:false) into a
// uftproto.ErrRemoteError, preserving the device's message verbatim. It
// returns nil when meta reports success.
func AsRemoteError(meta *packet.Meta) error {
	if meta.OK {
		return nil
	}
	return fmt.Errorf("remote: %s: %w", meta.Err, uftproto.ErrRemoteError)
}
