// Package packet implements the UFTE packet codec: building and parsing
// the [code][len][json][bin?][crc32] layout that rides inside each
// byte-stuffed frame.
package packet

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"

	"github.com/ufte/uftpc/pkg/uftproto"
)

// Build returns the decoded (pre-stuffing) packet body for code, json and
// an optional trailing bin region. It fails with uftproto.ErrOversizedJSON
// if json does not fit a uint16 length.
func Build(code byte, jsonBytes []byte, bin []byte) ([]byte, error) {
	if len(jsonBytes) > 0xFFFF {
		return nil, fmt.Errorf("json region is %d bytes: %w", len(jsonBytes), uftproto.ErrOversizedJSON)
	}

	body := make([]byte, 0, 1+2+len(jsonBytes)+len(bin)+4)
	body = append(body, code)
	lenBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBuf, uint16(len(jsonBytes)))
	body = append(body, lenBuf...)
	body = append(body, jsonBytes...)
	body = append(body, bin...)

	crc := crc32.ChecksumIEEE(body)
	crcBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(crcBuf, crc)
	body = append(body, crcBuf...)

	return body, nil
}

// Parsed is a CRC-verified, split packet body.
type Parsed struct {
	Code byte
	JSON []byte
	Bin  []byte
}

// Parse verifies the CRC trailer of a decoded packet body and splits it
// into code, JSON region and trailing binary region. It fails with
// uftproto.ErrShortFrame if body is under 5 bytes, or
// uftproto.ErrCrcMismatch if the trailer does not match.
func Parse(body []byte) (*Parsed, error) {
	if len(body) < 5 {
		return nil, fmt.Errorf("decoded body is %d bytes: %w", len(body), uftproto.ErrShortFrame)
	}

	split := len(body) - 4
	payload, trailer := body[:split], body[split:]

	expected := binary.BigEndian.Uint32(trailer)
	actual := crc32.ChecksumIEEE(payload)
	if actual != expected {
		return nil, fmt.Errorf("computed 0x%08x, trailer says 0x%08x: %w", actual, expected, uftproto.ErrCrcMismatch)
	}

	if len(payload) < 3 {
		return nil, fmt.Errorf("decoded body is %d bytes: %w", len(body), uftproto.ErrShortFrame)
	}

	code := payload[0]
	jsonLen := int(binary.BigEndian.Uint16(payload[1:3]))
	if 3+jsonLen > len(payload) {
		return nil, fmt.Errorf("json_len %d exceeds body: %w", jsonLen, uftproto.ErrShortFrame)
	}

	return &Parsed{
		Code: code,
		JSON: payload[3 : 3+jsonLen],
		Bin:  payload[3+jsonLen:],
	}, nil
}

// Entry is a single directory entry as reported by an LS response.
type Entry struct {
	Name string `json:"n"`
	Type string `json:"t"` // "f" or "d"
	Size int64  `json:"s"`
}

// Meta is the decoded response metadata. Unknown JSON keys are ignored by
// encoding/json, matching the "dynamic JSON as typed union" guidance: any
// field this client doesn't recognize is simply left unpopulated.
type Meta struct {
	OK      bool    `json:"ok"`
	Err     string  `json:"err,omitempty"`
	Entries []Entry `json:"entries,omitempty"`
	EOF     *bool   `json:"eof,omitempty"`
	Bin     *int    `json:"bin,omitempty"`
}

// DecodeMeta parses the response JSON region. A malformed JSON body is not
// a framing error: it is surfaced as a synthetic {ok:false, err:"bad_json"}
// metadata object, per spec.
func DecodeMeta(jsonBytes []byte) *Meta {
	var m Meta
	if err := json.Unmarshal(jsonBytes, &m); err != nil {
		return &Meta{OK: false, Err: "bad_json"}
	}
	return &m
}
