package console

import "io"

// newBlockingReader returns a reader that blocks until the writer is closed.
func newBlockingReader() (io.Reader, io.Closer) {
	return io.Pipe()
}
