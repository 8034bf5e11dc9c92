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
	"io"
	"testing"

	"github.com/mechiko/pdfdoc/pkg/filter"
	"github.com/mechiko/pdfdoc/pkg/types"
)

func TestCreateStreamForWritingEnforcesSingleOpenStream(t *testing.T) {
	doc := Create()
	s1, err := createStreamForWriting(doc, types.NewDict(), nil)
	if err != nil {
		t.Fatalf("first createStreamForWriting: %v", err)
	}
	if _, err := createStreamForWriting(doc, types.NewDict(), nil); err != ErrStreamAlreadyOpen {
		t.Errorf("second createStreamForWriting = %v, want ErrStreamAlreadyOpen", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if doc.openStream != nil {
		t.Error("openStream should be cleared after Close")
	}
}

func TestStreamWriteCloseEncodesFlate(t *testing.T) {
	doc := Create()
	s, err := createStreamForWriting(doc, types.NewDict(), []types.Filter{{Name: filter.Flate}})
	if err != nil {
		t.Fatalf("createStreamForWriting: %v", err)
	}
	payload := []byte("the quick brown fox jumps over the lazy dog, repeatedly, repeatedly")
	if _, err := s.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.dict.Raw == nil {
		t.Error("Close should have encoded Raw via the filter pipeline")
	}
	if l := s.dict.IntEntry("Length"); l == nil || *l != len(s.dict.Raw) {
		t.Errorf("/Length = %v, want %d", l, len(s.dict.Raw))
	}
}

func TestStreamReadAfterOpenForReading(t *testing.T) {
	doc := Create()
	sd := types.NewStreamDict(types.NewDict(), 0, nil, nil, nil)
	sd.Raw = []byte("plain content")
	s, err := openStreamForReading(doc, 1, 0, &sd)
	if err != nil {
		t.Fatalf("openStreamForReading: %v", err)
	}
	defer s.Close()

	buf := make([]byte, 5)
	n, err := s.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "plain" {
		t.Errorf("Read = %q, want %q", buf[:n], "plain")
	}

	rest, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll rest: %v", err)
	}
	if string(rest) != " content" {
		t.Errorf("rest = %q, want %q", rest, " content")
	}
}

func TestStreamGetsLineOriented(t *testing.T) {
	doc := Create()
	sd := types.NewStreamDict(types.NewDict(), 0, nil, nil, nil)
	sd.Raw = []byte("line one\nline two")
	s, err := openStreamForReading(doc, 1, 0, &sd)
	if err != nil {
		t.Fatalf("openStreamForReading: %v", err)
	}
	defer s.Close()

	l1, err := s.Gets()
	if err != nil || l1 != "line one\n" {
		t.Fatalf("Gets = %q, err %v", l1, err)
	}
	l2, err := s.Gets()
	if err != nil || l2 != "line two" {
		t.Fatalf("Gets (last line) = %q, err %v", l2, err)
	}
	if _, err := s.Gets(); err != io.EOF {
		t.Errorf("Gets at EOF = %v, want io.EOF", err)
	}
}

func TestStreamTokenDelegatesToScanner(t *testing.T) {
	doc := Create()
	sd := types.NewStreamDict(types.NewDict(), 0, nil, nil, nil)
	sd.Raw = []byte("1 0 0 1 100 200 cm")
	s, err := openStreamForReading(doc, 1, 0, &sd)
	if err != nil {
		t.Fatalf("openStreamForReading: %v", err)
	}
	defer s.Close()

	tok, err := s.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.kind != tokNumber || tok.text != "1" {
		t.Errorf("first token = %+v", tok)
	}
}

func TestStreamDoubleCloseIsIdempotent(t *testing.T) {
	doc := Create()
	s, err := createStreamForWriting(doc, types.NewDict(), nil)
	if err != nil {
		t.Fatalf("createStreamForWriting: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}
