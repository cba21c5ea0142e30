// Package tagerr defines the error taxonomy shared by the structure helper
// and every container reader/writer: not HTTP status codes, but the kinds of
// failure a caller needs to branch on (missing atom vs. unsupported format
// vs. a save that would silently truncate a field).
package tagerr

import (
	"errors"
	"net/http"
)

// Kind classifies a tag-library error so callers can branch on it without
// string-matching the message.
type Kind string

const (
	// KindMalformed means a required atom or field was missing or
	// structurally broken. Reads recover locally when the atom is optional;
	// a missing required atom aborts the read.
	KindMalformed Kind = "malformed_input"
	// KindUnsupported means the file uses a variant this module
	// deliberately does not understand (e.g. an mp7t/mp7b meta handler).
	KindUnsupported Kind = "unsupported_format"
	// KindOverflow means a computed value can't fit the width of the field
	// that must hold it. Saves abort without touching the file.
	KindOverflow Kind = "overflow"
	// KindIO wraps an underlying I/O failure (short read, seek past EOF,
	// permission error, temp-file rename failure).
	KindIO Kind = "io_error"
	// KindProgrammer marks a condition that should never occur for correct
	// callers: overlapping zones, a zone outside the file, negative
	// padding. Treat as a programming mistake to fix, not a runtime state
	// to recover from.
	KindProgrammer Kind = "programmer_error"
)

// Error is a classified error. It carries a Kind so callers can use
// errors.As to decide how to react, and a Message for humans and logs.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.Kind == e.Kind
}

func (e *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.Kind = e.Kind
	te.Message = e.Message
	return true
}

// HTTPStatus maps a Kind onto the nearest HTTP status, for callers (CLIs,
// servers) that need to surface one; the library itself never does HTTP.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindMalformed, KindOverflow:
		return http.StatusUnprocessableEntity
	case KindUnsupported:
		return http.StatusUnsupportedMediaType
	case KindIO:
		return http.StatusInternalServerError
	case KindProgrammer:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Malformed builds a KindMalformed error describing the missing or broken
// atom/field.
func Malformed(msg string) error {
	return &Error{Kind: KindMalformed, Message: msg}
}

// Unsupported builds a KindUnsupported error.
func Unsupported(msg string) error {
	return &Error{Kind: KindUnsupported, Message: msg}
}

// Overflow builds a KindOverflow error.
func Overflow(msg string) error {
	return &Error{Kind: KindOverflow, Message: msg}
}

// Programmer builds a KindProgrammer error. These indicate a bug in the
// caller (or this module) rather than bad input.
func Programmer(msg string) error {
	return &Error{Kind: KindProgrammer, Message: msg}
}

// Of reports whether err carries the given Kind.
func Of(err error, kind Kind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}
