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
	"github.com/mechiko/pdfdoc/pkg/types"
)

// valueWriter frames indirect objects onto a write buffer. Value
// serialization itself is delegated to types.Object.PDFString, which
// already guarantees the deterministic, key-sorted rendering spec.md
// §4.5 requires of a written dict; this file's job, grounded on
// write/write.go's per-object framing (writeIndRef / "%d %d obj" /
// "endobj" bracketing), is object and stream framing. /Length is not
// back-patched: a stream's /Length is set by StreamDict.Encode before
// it is framed here.
type valueWriter struct {
	buf *buffer
}

func newValueWriter(b *buffer) *valueWriter {
	return &valueWriter{buf: b}
}

// writeIndirectObject writes "objNr genNr obj\n<value>\nendobj\n",
// returning the byte offset the object started at, for the xref
// table's entry.
func (w *valueWriter) writeIndirectObject(objNr, genNr int, obj types.Object) (int64, error) {
	offset := w.buf.Tell()

	if err := w.buf.Printf("%d %d obj\n", objNr, genNr); err != nil {
		return 0, err
	}

	if sd, ok := obj.(types.StreamDict); ok {
		if err := w.writeStreamBody(sd); err != nil {
			return 0, err
		}
	} else if obj == nil {
		if err := w.buf.Printf("null"); err != nil {
			return 0, err
		}
	} else {
		if err := w.buf.Printf("%s", obj.PDFString()); err != nil {
			return 0, err
		}
	}

	if err := w.buf.Printf("\nendobj\n"); err != nil {
		return 0, err
	}

	return offset, nil
}

// writeStreamBody emits a stream dict's "<<...>> stream\n<raw bytes>\nendstream"
// framing. sd.Raw must already hold the encoded bytes (StreamDict.Encode
// having been called) and sd's /Length entry the encoded size.
func (w *valueWriter) writeStreamBody(sd types.StreamDict) error {
	if err := w.buf.Printf("%s", sd.Dict.PDFString()); err != nil {
		return err
	}
	if err := w.buf.Printf("\nstream\n"); err != nil {
		return err
	}
	if _, err := w.buf.Write(sd.Raw); err != nil {
		return err
	}
	return w.buf.Printf("\nendstream")
}
