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
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestBufferReadLineAndTell(t *testing.T) {
	b := newReadBuffer(strings.NewReader("abc\ndef\n"))

	line, err := b.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "abc\n" {
		t.Errorf("ReadLine = %q, want %q", line, "abc\n")
	}
	if got := b.Tell(); got != 4 {
		t.Errorf("Tell() = %d, want 4", got)
	}

	line, err = b.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "def\n" {
		t.Errorf("ReadLine = %q, want %q", line, "def\n")
	}
}

func TestBufferSeekResetsLookahead(t *testing.T) {
	b := newReadBuffer(strings.NewReader("0123456789"))

	if _, err := b.Peek(4); err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if _, err := b.Seek(8, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	c, err := b.ReadByte()
	if err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	if c != '8' {
		t.Errorf("ReadByte after seek = %q, want '8'", c)
	}
	if got := b.Tell(); got != 9 {
		t.Errorf("Tell() after one ReadByte post-seek = %d, want 9", got)
	}
}

func TestBufferSeekOnWriteOnlyFails(t *testing.T) {
	var buf bytes.Buffer
	b := newWriteBuffer(&buf)
	if _, err := b.Seek(0, io.SeekStart); err == nil {
		t.Error("Seek on a write-only buffer should fail")
	}
}

func TestBufferWritePrintfFlushClose(t *testing.T) {
	var buf bytes.Buffer
	b := newWriteBuffer(&buf)

	if err := b.Printf("%d %s\n", 7, "widgets"); err != nil {
		t.Fatalf("Printf: %v", err)
	}
	if got := b.Tell(); got != int64(len("7 widgets\n")) {
		t.Errorf("Tell() = %d, want %d", got, len("7 widgets\n"))
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if buf.String() != "7 widgets\n" {
		t.Errorf("buffered output = %q, want %q", buf.String(), "7 widgets\n")
	}
}

func TestNewWriteBufferFromSink(t *testing.T) {
	var got []byte
	fn := func(p []byte) (int, error) {
		got = append(got, p...)
		return len(p), nil
	}
	b := newWriteBufferFromSink(fn)
	if _, err := b.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("sink received %q, want %q", got, "hello")
	}
}
