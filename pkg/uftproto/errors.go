// Package uftproto holds error values and small shared constants for the
// UFTE serial file-transfer protocol client. Every other package in this
// module wraps one of these sentinels with fmt.Errorf("...: %w", ...) so
// callers can still use errors.Is against a stable value.
package uftproto

import "errors"

// Command codes, fixed by the wire protocol.
const (
	CodeSync   byte = 0x01
	CodeCd     byte = 0x11
	CodeLs     byte = 0x12
	CodeRm     byte = 0x13
	CodeGet    byte = 0x21
	CodePut    byte = 0x22
	CodeReboot byte = 0x31
	CodeResp   byte = 0x00
)

// Beacon is the ASCII substring the device emits while idle/booting.
const Beacon = "UFTE"

var (
	// ErrOpenFailed means the serial endpoint could not be opened or configured.
	ErrOpenFailed = errors.New("open failed")
	// ErrSyncFailed means no beacon was observed within the configured retries.
	ErrSyncFailed = errors.New("sync failed")
	// ErrWriteFailed is a write-side I/O failure on the endpoint.
	ErrWriteFailed = errors.New("write failed")
	// ErrReadFailed is a read-side I/O failure on the endpoint.
	ErrReadFailed = errors.New("read failed")
	// ErrReadTimeout means no delimiter arrived before the deadline.
	ErrReadTimeout = errors.New("read timeout")
	// ErrMalformedFrame means the byte-stuffing decode failed.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrShortFrame means the decoded packet body was too short: under 5
	// bytes, missing the code/json_len header, or shorter than json_len says.
	ErrShortFrame = errors.New("short frame")
	// ErrCrcMismatch means the trailing CRC-32 did not match the computed one.
	ErrCrcMismatch = errors.New("crc mismatch")
	// ErrOversizedJSON means the JSON region would not fit a uint16 length.
	ErrOversizedJSON = errors.New("oversized json")
	// ErrRemoteError means the device responded with ok:false.
	ErrRemoteError = errors.New("remote error")
	// ErrInvalidArgument means local API misuse, e.g. an unknown transfer direction.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrLocalIO means a local file open/read/write failure.
	ErrLocalIO = errors.New("local io error")
)
