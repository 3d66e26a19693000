package handler

import "errors"

// Kind classifies the failures a route handler can report.
type Kind uint8

const (
	// Internal is an unhandled fault. It is always surfaced as a bare 500.
	Internal Kind = iota
	// UnprocessableInput is surfaced as a 422 carrying Error.Msg as plain text.
	UnprocessableInput
)

func (k Kind) String() string {
	switch k {
	case UnprocessableInput:
		return "unprocessable_input"
	default:
		return "internal"
	}
}

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Unprocessable returns an UnprocessableInput error with the given message.
func Unprocessable(msg string) error {
	return &Error{Kind: UnprocessableInput, Msg: msg}
}

// KindOf reports the kind of err. Errors that are not an *Error, or do not
// wrap one, are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
