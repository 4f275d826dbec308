package syncdetect

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeReader replays a scripted sequence of chunks, one per ReadRaw call;
// once exhausted, each call sleeps until the deadline and returns (nil, nil).
type fakeReader struct {
	mu     sync.Mutex
	chunks [][]byte
	idx    int
}

func (f *fakeReader) ReadRaw(deadline time.Time) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.chunks) {
		time.Sleep(time.Until(deadline))
		return nil, nil
	}
	c := f.chunks[f.idx]
	f.idx++
	return c, nil
}

func TestDetectSucceedsOnFirstAttempt(t *testing.T) {
	r := &fakeReader{chunks: [][]byte{[]byte("garbage"), []byte("UFTE"), []byte("more")}}
	drains := 0

	err := Detect(r, func() { drains++ }, 200*time.Millisecond, 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, drains)
}

func TestDetectSucceedsAcrossWindowBoundary(t *testing.T) {
	// Beacon split across two chunks; window must retain enough trailing
	// context to still see it.
	r := &fakeReader{chunks: [][]byte{[]byte("UF"), []byte("TE")}}
	err := Detect(r, func() {}, 200*time.Millisecond, 1)
	assert.NoError(t, err)
}

func TestDetectFailsAfterRetriesExhausted(t *testing.T) {
	r := &fakeReader{chunks: [][]byte{[]byte("nope"), []byte("still nothing")}}
	drains := 0

	err := Detect(r, func() { drains++ }, 80*time.Millisecond, 2)
	assert.Error(t, err)
	assert.Equal(t, 2, drains)
}

func TestDetectDoesNotMatchAcrossStaleWindowEviction(t *testing.T) {
	// A long run of filler pushes the early fragment out of the window
	// before the rest of the beacon arrives, so it must not match.
	filler := make([]byte, window+10)
	for i := range filler {
		filler[i] = 'x'
	}
	r := &fakeReader{chunks: [][]byte{[]byte("UF"), filler, []byte("TE")}}

	err := Detect(r, func() {}, 100*time.Millisecond, 1)
	assert.Error(t, err)
}
