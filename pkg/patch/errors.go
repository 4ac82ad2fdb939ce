package patch

import (
	"errors"
	"fmt"
)

// ErrorKind classifies structured patch errors. Parse-time kinds pin down
// what was wrong with the input; the remaining kinds cover application and
// setup failures.
type ErrorKind string

const (
	// ErrMalformedPatch covers header or body lines that fit no grammar.
	ErrMalformedPatch ErrorKind = "malformed_patch"
	// ErrMalformedRange marks an unparsable hunk range line.
	ErrMalformedRange ErrorKind = "malformed_range"
	// ErrLineCountMismatch means a hunk body disagrees with its declared counts.
	ErrLineCountMismatch ErrorKind = "line_count_mismatch"
	// ErrUnexpectedEof means the input ended inside a hunk.
	ErrUnexpectedEof ErrorKind = "unexpected_eof"
	// ErrUnsupportedBinary marks a GIT binary patch, which cannot be applied.
	ErrUnsupportedBinary ErrorKind = "unsupported_binary"
	// ErrMismatch means a target file did not hold the expected pre-image.
	ErrMismatch ErrorKind = "mismatch"
	// ErrIoFailure wraps filesystem errors hit while reading or writing targets.
	ErrIoFailure ErrorKind = "io_failure"
	// ErrInvalidConfiguration rejects unusable option combinations up front.
	ErrInvalidConfiguration ErrorKind = "invalid_configuration"
)

// Error is the structured error produced by this package. File names the
// patch target when known and leads the rendered text so failures read as
// "target: problem". Line is the 1-based input line for parse errors.
type Error struct {
	Kind    ErrorKind
	File    string
	Line    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.File != "" {
		return e.File + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the ErrorKind from err, unwrapping as needed. It returns
// the empty kind for nil and for errors not raised by this package.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsFatal reports whether err should abort with exit status 2 rather than
// count as a rejected-hunk failure.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case ErrMismatch, "":
		return false
	default:
		return true
	}
}

func malformedAt(kind ErrorKind, line int, text string) *Error {
	return &Error{
		Kind:    kind,
		Line:    line,
		Message: fmt.Sprintf("malformed patch at line %d: %s", line, text),
	}
}

func unexpectedEOF(line int) *Error {
	return &Error{
		Kind:    ErrUnexpectedEof,
		Line:    line,
		Message: "unexpected end of file in patch",
	}
}

func ioFailure(file string, err error) *Error {
	return &Error{Kind: ErrIoFailure, File: file, Err: err}
}

func configError(format string, args ...any) *Error {
	return &Error{Kind: ErrInvalidConfiguration, Message: fmt.Sprintf(format, args...)}
}
