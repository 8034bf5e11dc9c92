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

import "github.com/pkg/errors"

// Kind classifies an error the way the error callback (§6.3, §7) switches
// on it: by what went wrong, not by which Go type implements it.
type Kind int

const (
	IoError Kind = iota
	ParseError
	DataError
	StateError
	FilterError
	CryptoError
	AuthError
	PolicyError
	NotFoundError
	OverflowError
)

func (k Kind) String() string {
	switch k {
	case IoError:
		return "IoError"
	case ParseError:
		return "ParseError"
	case DataError:
		return "DataError"
	case StateError:
		return "StateError"
	case FilterError:
		return "FilterError"
	case CryptoError:
		return "CryptoError"
	case AuthError:
		return "AuthError"
	case PolicyError:
		return "PolicyError"
	case NotFoundError:
		return "NotFound"
	case OverflowError:
		return "Overflow"
	default:
		return "UnknownError"
	}
}

// Error wraps an underlying cause with the Kind the caller's error
// callback (§6.3) is expected to switch on.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, msg string) error {
	return &Error{Kind: k, Msg: msg}
}

func wrapErr(k Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Msg: msg, Err: err}
}

// IsKind reports whether err (or something it wraps) is a *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	for err != nil {
		if pe, ok := err.(*Error); ok {
			e = pe
			break
		}
		err = errors.Unwrap(err)
	}
	return e != nil && e.Kind == k
}

var (
	// ErrNotFound is returned by object/page lookups that miss.
	ErrNotFound = newErr(NotFoundError, "object not found")

	// ErrStreamAlreadyOpen signals a second stream opened before the
	// first was closed (§5: "a single open stream per document at any
	// time").
	ErrStreamAlreadyOpen = newErr(StateError, "a stream is already open on this document")

	// ErrDocumentSealed signals a write attempted after Close.
	ErrDocumentSealed = newErr(StateError, "document is sealed")

	// ErrDocumentPoisoned signals a write attempted after an I/O error
	// poisoned the document (§"Failure semantics").
	ErrDocumentPoisoned = newErr(StateError, "document is poisoned by a prior I/O error")

	// ErrMaxParseDepth signals the recursive value parser exceeded its
	// depth cap (§4.5, shared with §4.7's /Prev chain cap).
	ErrMaxParseDepth = newErr(ParseError, "maximum nesting depth exceeded")

	// ErrPDFACombinesWithEncryption is the PolicyError for §4.11's
	// mutual-exclusion rule between PDF/A and encryption.
	ErrPDFACombinesWithEncryption = newErr(PolicyError, "a PDF/A document cannot be encrypted")
)
