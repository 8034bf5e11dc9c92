/*
Copyright 2018 The pdfcpu Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package pdfdoc

import (
	"bufio"
	"fmt"
	"io"
)

const bufSize = 8 * 1024

// sink is the caller-supplied write callback alternative to a file
// descriptor, per spec.md §4.1 ("a caller-supplied sink callback
// (ctx, bytes, len) -> ssize_t").
type sink func([]byte) (int, error)

// buffer is the buffered positioned reader/writer C1 names: Tell, Seek,
// Peek, ReadByte, ReadLine, Write, Printf, Flush, Close, wrapping either
// an io.ReadSeeker (read mode) or an io.Writer/sink (write mode).
type buffer struct {
	rs  io.ReadSeeker
	br  *bufio.Reader
	pos int64 // logical read position (Tell)

	w       io.Writer
	bw      *bufio.Writer
	written int64 // logical write position (Tell)

	closer io.Closer
}

// newReadBuffer wraps rs for positioned, buffered reading.
func newReadBuffer(rs io.ReadSeeker) *buffer {
	return &buffer{rs: rs, br: bufio.NewReaderSize(rs, bufSize)}
}

// newWriteBuffer wraps w (an io.Writer, e.g. an *os.File, or any sink)
// for buffered writing. w may optionally implement io.Closer.
func newWriteBuffer(w io.Writer) *buffer {
	b := &buffer{w: w, bw: bufio.NewWriterSize(w, bufSize)}
	if c, ok := w.(io.Closer); ok {
		b.closer = c
	}
	return b
}

// Tell returns the current logical position: bufpos + (bufptr - buffer).
func (b *buffer) Tell() int64 {
	if b.w != nil {
		return b.written
	}
	return b.pos
}

// Seek repositions the read buffer, invalidating any buffered look-ahead.
func (b *buffer) Seek(offset int64, whence int) (int64, error) {
	if b.rs == nil {
		return 0, wrapErr(IoError, io.ErrClosedPipe, "seek on a write-only buffer")
	}
	n, err := b.rs.Seek(offset, whence)
	if err != nil {
		return 0, wrapErr(IoError, err, "seek")
	}
	b.br.Reset(b.rs)
	b.pos = n
	return n, nil
}

// Peek returns the next n bytes without advancing Tell.
func (b *buffer) Peek(n int) ([]byte, error) {
	bb, err := b.br.Peek(n)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return bb, wrapErr(IoError, err, "peek")
	}
	return bb, nil
}

// ReadByte reads and advances one byte.
func (b *buffer) ReadByte() (byte, error) {
	c, err := b.br.ReadByte()
	if err != nil {
		if err == io.EOF {
			return 0, err
		}
		return 0, wrapErr(IoError, err, "read byte")
	}
	b.pos++
	return c, nil
}

// Read implements io.Reader, advancing Tell by the bytes actually read.
func (b *buffer) Read(p []byte) (int, error) {
	n, err := b.br.Read(p)
	b.pos += int64(n)
	if err != nil && err != io.EOF {
		return n, wrapErr(IoError, err, "read")
	}
	return n, err
}

// ReadLine reads up to and including the next '\n', or to EOF.
func (b *buffer) ReadLine() (string, error) {
	line, err := b.br.ReadString('\n')
	b.pos += int64(len(line))
	if err != nil && err != io.EOF {
		return line, wrapErr(IoError, err, "read line")
	}
	return line, nil
}

// Write buffers p for output, advancing the logical write position.
func (b *buffer) Write(p []byte) (int, error) {
	n, err := b.bw.Write(p)
	b.written += int64(n)
	if err != nil {
		return n, wrapErr(IoError, err, "write")
	}
	return n, nil
}

// Printf formats and writes, mirroring C1's printf operation.
func (b *buffer) Printf(format string, args ...interface{}) error {
	_, err := b.Write([]byte(fmt.Sprintf(format, args...)))
	return err
}

// Flush pushes buffered writes to the underlying sink.
func (b *buffer) Flush() error {
	if b.bw == nil {
		return nil
	}
	if err := b.bw.Flush(); err != nil {
		return wrapErr(IoError, err, "flush")
	}
	return nil
}

// Close flushes and, if the underlying writer is an io.Closer, closes it.
func (b *buffer) Close() error {
	if err := b.Flush(); err != nil {
		return err
	}
	if b.closer != nil {
		if err := b.closer.Close(); err != nil {
			return wrapErr(IoError, err, "close")
		}
	}
	return nil
}

// sinkWriter adapts a sink callback to io.Writer so it can back a
// write buffer the same way an *os.File does.
type sinkWriter struct{ fn sink }

func (s sinkWriter) Write(p []byte) (int, error) { return s.fn(p) }

// newWriteBufferFromSink wraps a caller sink callback for buffered
// writing, the alternative to an *os.File named in spec.md §4.1/§6.2.
func newWriteBufferFromSink(fn sink) *buffer {
	return newWriteBuffer(sinkWriter{fn})
}
