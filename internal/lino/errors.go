package lino

import (
	"errors"
	"fmt"
)

var (
	// ErrUnterminatedString is returned when a quoted reference is not
	// closed before the end of input.
	ErrUnterminatedString = errors.New("lino: unterminated quoted reference")
	// ErrUnexpectedEnd is returned when the input ends inside an open link.
	ErrUnexpectedEnd = errors.New("lino: unexpected end of input")
	// ErrExpectedReference is returned when a reference token is required
	// but the next character cannot start one.
	ErrExpectedReference = errors.New("lino: expected reference")
)

// UnknownTagError is returned when a link carries a type tag the codec does
// not know how to decode.
type UnknownTagError struct {
	Tag string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("lino: unknown type tag %q", e.Tag)
}

// UnsupportedTypeError is returned by Encode for Go values outside the
// codec's value model.
type UnsupportedTypeError struct {
	Value any
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("lino: unsupported value type %T", e.Value)
}
