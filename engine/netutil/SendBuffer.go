package netutil

import (
	"io"

	"github.com/moormud/moormud/engine/mmioutil"
)

const (
	_SEND_BUFFER_SIZE = 8192 * 2
)

// sendBuffer coalesces small packet writes into larger conn writes
type sendBuffer struct {
	buffer  [_SEND_BUFFER_SIZE]byte
	written int
}

func newSendBuffer() *sendBuffer {
	return &sendBuffer{}
}

func (sb *sendBuffer) Write(b []byte) (n int, err error) {
	n = copy(sb.buffer[sb.written:], b)
	sb.written += n
	return
}

// WriteAllTo writes all buffered bytes to the writer and resets the buffer
func (sb *sendBuffer) WriteAllTo(writer io.Writer) error {
	if sb.written == 0 {
		return nil
	}

	err := mmioutil.WriteAll(writer, sb.buffer[:sb.written])
	sb.written = 0
	return err
}

// FreeSpace returns the remaining capacity of the buffer
func (sb *sendBuffer) FreeSpace() int {
	return _SEND_BUFFER_SIZE - sb.written
}
