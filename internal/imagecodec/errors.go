package imagecodec

import (
	"errors"
	"fmt"
)

// DecodeErrorKind categorizes why an image could not be decoded.
type DecodeErrorKind int

const (
	UnrecognizedFormat DecodeErrorKind = iota
	Corrupt
	IO
)

func (k DecodeErrorKind) String() string {
	switch k {
	case UnrecognizedFormat:
		return "unrecognized format"
	case Corrupt:
		return "corrupt image"
	case IO:
		return "I/O error"
	default:
		return "unknown decode error"
	}
}

var (
	ErrUnrecognizedFormat = errors.New("unrecognized image format")
	ErrCorrupt            = errors.New("corrupt image data")
	ErrIO                 = errors.New("image I/O failure")
	ErrInvalidEncoding    = errors.New("invalid transport encoding")
)

// DecodeError is returned by Decode and DecodeFile.
type DecodeError struct {
	Kind DecodeErrorKind
	Path string // empty when decoding in-memory bytes
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is lets callers match on the kind sentinels with errors.Is.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrUnrecognizedFormat:
		return e.Kind == UnrecognizedFormat
	case ErrCorrupt:
		return e.Kind == Corrupt
	case ErrIO:
		return e.Kind == IO
	}
	return false
}

// EncodingError is returned when a transport payload cannot be decoded back
// into bytes.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%v: %v", ErrInvalidEncoding, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

func (e *EncodingError) Is(target error) bool {
	return target == ErrInvalidEncoding
}
