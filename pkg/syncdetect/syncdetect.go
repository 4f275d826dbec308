// Package syncdetect looks for the device's idle/boot beacon on an
// otherwise unframed byte stream, proving the host TTY is configured
// correctly before any request is sent.
package syncdetect

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ufte/uftpc/pkg/uftproto"
)

// DefaultRetries is the number of beacon scan attempts before giving up.
const DefaultRetries = 3

const retryDelay = 500 * time.Millisecond

// window bounds how much trailing context the detector keeps while
// scanning for the beacon substring.
const window = 50

// reader is the minimal surface syncdetect needs: a deadline-bounded
// single read. transport.Transport satisfies it through ReadRaw, which
// pkg/client passes in directly.
type reader interface {
	ReadRaw(deadline time.Time) ([]byte, error)
}

// Detect drains any pending bytes via drain, then reads from r for up to
// timeout per attempt, looking for uftproto.Beacon in a sliding window.
// It retries up to retries times with a 500ms pause between attempts, and
// fails with uftproto.ErrSyncFailed if the beacon is never seen. Detect
// never writes to the endpoint.
func Detect(r reader, drain func(), timeout time.Duration, retries int) error {
	if retries <= 0 {
		retries = DefaultRetries
	}

	for attempt := 1; attempt <= retries; attempt++ {
		drain()

		if scanOnce(r, timeout) {
			return nil
		}

		if attempt < retries {
			time.Sleep(retryDelay)
		}
	}

	return fmt.Errorf("no %q beacon within %d attempt(s): %w", uftproto.Beacon, retries, uftproto.ErrSyncFailed)
}

func scanOnce(r reader, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	var tail []byte
	beacon := []byte(uftproto.Beacon)

	for time.Now().Before(deadline) {
		chunk, err := r.ReadRaw(deadline)
		if err != nil {
			continue
		}
		if len(chunk) == 0 {
			continue
		}

		tail = append(tail, chunk...)
		if len(tail) > window {
			tail = tail[len(tail)-window:]
		}

		if bytes.Contains(tail, beacon) {
			return true
		}
	}

	return false
}
