package transfer

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ufte/uftpc/pkg/packet"
	"github.com/ufte/uftpc/pkg/request"
	"github.com/ufte/uftpc/pkg/stuffing"
)

// scriptedTransport answers each WriteFrame/ReadFrame pair with the next
// frame from responses, in order; it records every request body it saw.
type scriptedTransport struct {
	t         *testing.T
	responses [][]byte
	idx       int
	seen      []parsedSeen
}

type parsedSeen struct {
	json []byte
	bin  []byte
}

func (s *scriptedTransport) WriteFrame(stuffed []byte) error {
	decoded, err := stuffing.Decode(stuffed)
	require.NoError(s.t, err)
	parsed, err := packet.Parse(decoded)
	require.NoError(s.t, err)
	s.seen = append(s.seen, parsedSeen{json: append([]byte(nil), parsed.JSON...), bin: append([]byte(nil), parsed.Bin...)})
	return nil
}

func (s *scriptedTransport) ReadFrame(deadline time.Time) ([]byte, error) {
	require.Less(s.t, s.idx, len(s.responses), "more requests than scripted responses")
	r := s.responses[s.idx]
	s.idx++
	return r, nil
}

func respond(t *testing.T, jsonBody string, bin []byte) []byte {
	t.Helper()
	body, err := packet.Build(0x00, []byte(jsonBody), bin)
	require.NoError(t, err)
	return stuffing.Encode(body)
}

func TestPutSmallFileSingleChunkPlusTerminator(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "small.bin")
	content := []byte("hello world")
	require.NoError(t, os.WriteFile(local, content, 0o644))

	st := &scriptedTransport{t: t, responses: [][]byte{
		respond(t, `{"ok":true}`, nil), // the short chunk + implicit EOF readErr path
		respond(t, `{"ok":true}`, nil), // terminating empty-bin call
	}}
	eng := request.New(st, time.Second)

	var progressed int64
	err := Put(eng, local, "/remote/small.bin", 4096, func(sent, total int64) { progressed = sent }, nil)
	require.NoError(t, err)
	assert.EqualValues(t, len(content), progressed)
	require.Len(t, st.seen, 2)
	assert.Equal(t, content, st.seen[0].bin)
	assert.Empty(t, st.seen[1].bin)
}

func TestPutExactMultipleOfChunkSizeSendsCleanTerminator(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "exact.bin")
	content := make([]byte, 8)
	for i := range content {
		content[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(local, content, 0o644))

	st := &scriptedTransport{t: t, responses: [][]byte{
		respond(t, `{"ok":true}`, nil), // full chunk
		respond(t, `{"ok":true}`, nil), // clean io.EOF -> empty terminator
	}}
	eng := request.New(st, time.Second)

	err := Put(eng, local, "/remote/exact.bin", 8, nil, nil)
	require.NoError(t, err)
	require.Len(t, st.seen, 2)
	assert.Equal(t, content, st.seen[0].bin)
	assert.Empty(t, st.seen[1].bin)
}

func TestPutSurfacesRemoteError(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o644))

	st := &scriptedTransport{t: t, responses: [][]byte{
		respond(t, `{"ok":false,"err":"no_space"}`, nil),
	}}
	eng := request.New(st, time.Second)

	err := Put(eng, local, "/remote/f.bin", 4096, nil, nil)
	assert.Error(t, err)
}

func TestGetRoundTripReassemblesFile(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "out.bin")

	chunk1 := []byte("0123456789")
	chunk2 := []byte("abcdefghij")

	st := &scriptedTransport{t: t, responses: [][]byte{
		respond(t, `{"ok":true,"bin":10}`, chunk1),
		respond(t, `{"ok":true,"bin":10}`, chunk2),
		respond(t, `{"ok":true,"eof":true}`, nil),
	}}
	eng := request.New(st, time.Second)

	err := Get(eng, "/remote/out.bin", local, 10, nil, nil)
	require.NoError(t, err)

	got, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, append(append([]byte(nil), chunk1...), chunk2...), got)
}

func TestGetUnlinksLocalFileOnRemoteFailure(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "out.bin")

	st := &scriptedTransport{t: t, responses: [][]byte{
		respond(t, `{"ok":false,"err":"no_such_file"}`, nil),
	}}
	eng := request.New(st, time.Second)

	err := Get(eng, "/remote/missing.bin", local, 1024, nil, nil)
	assert.Error(t, err)

	_, statErr := os.Stat(local)
	assert.True(t, os.IsNotExist(statErr))
}

func TestTransferDispatchesByDirection(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o644))

	st := &scriptedTransport{t: t, responses: [][]byte{
		respond(t, `{"ok":true}`, nil),
		respond(t, `{"ok":true}`, nil),
	}}
	eng := request.New(st, time.Second)

	err := Transfer(eng, DirectionUp, local, "/r/f.bin", 4096, nil, nil)
	assert.NoError(t, err)
}

func TestTransferRejectsUnknownDirection(t *testing.T) {
	eng := request.New(&scriptedTransport{t: t}, time.Second)
	err := Transfer(eng, "sideways", "a", "b", 1024, nil, nil)
	assert.Error(t, err)
}

func TestPutStreamsLargeFileBoundedMemory(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "large.bin")
	content := make([]byte, 100*1024)
	for i := range content {
		content[i] = byte(i % 256)
	}
	require.NoError(t, os.WriteFile(local, content, 0o644))

	chunkSize := 1024
	numChunks := len(content) / chunkSize
	responses := make([][]byte, 0, numChunks+1)
	for i := 0; i < numChunks; i++ {
		responses = append(responses, respond(t, `{"ok":true}`, nil))
	}
	responses = append(responses, respond(t, `{"ok":true}`, nil)) // terminator

	st := &scriptedTransport{t: t, responses: responses}
	eng := request.New(st, time.Second)

	err := Put(eng, local, "/remote/large.bin", chunkSize, nil, nil)
	require.NoError(t, err)

	var reassembled []byte
	for _, s := range st.seen {
		reassembled = append(reassembled, s.bin...)
	}
	assert.Equal(t, sha256.Sum256(content), sha256.Sum256(reassembled))
}
