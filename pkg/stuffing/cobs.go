// Package stuffing implements the COBS (Consistent Overhead Byte Stuffing)
// codec used to remove the wire delimiter byte (0x00) from a packet before
// it goes on the serial link.
package stuffing

import (
	"fmt"

	"github.com/ufte/uftpc/pkg/uftproto"
)

const maxBlockSpan = 0xFF

// Encode returns a byte-stuffed representation of b that contains no 0x00
// byte and that Decode reverses exactly. An empty input encodes to a
// single 0x01 byte.
func Encode(b []byte) []byte {
	out := make([]byte, 0, len(b)+len(b)/maxBlockSpan+1)

	codePos := len(out)
	out = append(out, 0) // placeholder code byte
	span := byte(1)

	for i, c := range b {
		if c == 0x00 {
			out[codePos] = span
			codePos = len(out)
			out = append(out, 0)
			span = 1
			continue
		}

		out = append(out, c)
		span++

		if span == maxBlockSpan {
			out[codePos] = span
			if i == len(b)-1 {
				// A full block that ends the input needs no trailing block.
				return out
			}
			codePos = len(out)
			out = append(out, 0)
			span = 1
		}
	}

	out[codePos] = span
	return out
}

// Decode inverses Encode. It fails with uftproto.ErrMalformedFrame if the
// input contains a 0x00 byte, if a code byte claims more literal bytes than
// remain, or if the input is empty.
//
// Does not strip a trailing zero from the decoded output the way some COBS
// implementations do defensively; doing so would corrupt any payload whose
// last original byte is legitimately 0x00. The Frame Transport's own
// delimiter-stripping invariant (§4.3) makes that defense unnecessary here.
func Decode(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("empty stuffed input: %w", uftproto.ErrMalformedFrame)
	}

	out := make([]byte, 0, len(b))
	i := 0
	for i < len(b) {
		code := b[i]
		if code == 0x00 {
			return nil, fmt.Errorf("zero code byte at offset %d: %w", i, uftproto.ErrMalformedFrame)
		}
		i++

		span := int(code) - 1
		if i+span > len(b) {
			return nil, fmt.Errorf("code byte overruns input: %w", uftproto.ErrMalformedFrame)
		}

		for _, c := range b[i : i+span] {
			if c == 0x00 {
				return nil, fmt.Errorf("literal zero byte in stuffed region: %w", uftproto.ErrMalformedFrame)
			}
		}

		out = append(out, b[i:i+span]...)
		i += span

		if code != maxBlockSpan && i < len(b) {
			out = append(out, 0x00)
		}
	}

	return out, nil
}
