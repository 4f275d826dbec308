// Package fakedevice is an on-board test harness standing in for the
// embedded device during tests: a small in-process handler that speaks
// the exact UFTE wire format over a pseudo-terminal pair, so the wire
// layer can be exercised without real hardware. Modeled on the pack's
// TestNCServer-style "device on the other end of the wire" test server.
package fakedevice

import (
	"bytes"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/ufte/uftpc/pkg/packet"
	"github.com/ufte/uftpc/pkg/stuffing"
)

// Handler answers one request. code is the command byte, jsonIn the
// request JSON, binIn the trailing binary (if any). It returns the
// response JSON-encodable metadata and optional trailing binary.
type Handler func(code byte, jsonIn []byte, binIn []byte) (meta interface{}, binOut []byte)

// Device runs Handler against whatever arrives on the tty side of a pty
// pair and optionally emits a beacon string before serving requests.
type Device struct {
	Master  *os.File // client-facing end; pass to transport.OpenPTY
	slave   *os.File
	handler Handler
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a pty pair and starts serving handler on the slave end.
// Call Close when done to release both file descriptors.
func New(handler Handler) (*Device, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, err
	}

	d := &Device{Master: master, slave: slave, handler: handler, stopCh: make(chan struct{})}
	d.wg.Add(1)
	go d.serve()
	return d, nil
}

// EmitBeacon writes the literal beacon text to the slave side, as if the
// device were announcing readiness.
func (d *Device) EmitBeacon(text string) error {
	_, err := d.slave.Write([]byte(text))
	return err
}

// Close stops serving and closes both ends of the pty pair.
func (d *Device) Close() error {
	close(d.stopCh)
	err1 := d.slave.Close()
	err2 := d.Master.Close()
	d.wg.Wait()
	if err1 != nil {
		return err1
	}
	return err2
}

func (d *Device) serve() {
	defer d.wg.Done()

	var accum []byte
	buf := make([]byte, 512)

	for {
		select {
		case <-d.stopCh:
			return
		default:
		}

		_ = d.slave.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, err := d.slave.Read(buf)
		if n > 0 {
			accum = append(accum, buf[:n]...)
			for {
				idx := bytes.IndexByte(accum, 0x00)
				if idx < 0 {
					break
				}
				frame := accum[:idx]
				accum = accum[idx+1:]
				d.handleFrame(frame)
			}
		}
		if err != nil {
			if te, ok := err.(interface{ Timeout() bool }); ok && te.Timeout() {
				continue
			}
			return
		}
	}
}

func (d *Device) handleFrame(stuffed []byte) {
	decoded, err := stuffing.Decode(stuffed)
	if err != nil {
		return
	}
	parsed, err := packet.Parse(decoded)
	if err != nil {
		return
	}

	meta, binOut := d.handler(parsed.Code, parsed.JSON, parsed.Bin)

	jsonOut, err := json.Marshal(meta)
	if err != nil {
		return
	}

	body, err := packet.Build(0x00, jsonOut, binOut)
	if err != nil {
		return
	}

	_, _ = d.slave.Write(stuffing.Encode(body))
	_, _ = d.slave.Write([]byte{0x00})
}
