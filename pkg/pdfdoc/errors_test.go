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
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := wrapErr(IoError, cause, "writing object")
	want := "IoError: writing object: disk full"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapErrNilIsNil(t *testing.T) {
	if wrapErr(IoError, nil, "no cause here") != nil {
		t.Error("wrapErr(kind, nil, msg) should return nil")
	}
}

func TestIsKindMatchesThroughWrapping(t *testing.T) {
	base := newErr(ParseError, "malformed number")
	wrapped := fmt.Errorf("while reading header: %w", base)
	if !IsKind(wrapped, ParseError) {
		t.Error("IsKind should see through fmt.Errorf %w wrapping")
	}
	if IsKind(wrapped, IoError) {
		t.Error("IsKind should not match an unrelated Kind")
	}
}

func TestIsKindOnPlainError(t *testing.T) {
	if IsKind(errors.New("boom"), ParseError) {
		t.Error("IsKind on a non-pdfdoc error must be false")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		IoError:       "IoError",
		ParseError:    "ParseError",
		NotFoundError: "NotFound",
		Kind(99):      "UnknownError",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
