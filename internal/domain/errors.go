package domain

import "fmt"

// ErrorKind classifies failures surfaced to the user.
type ErrorKind string

const (
	KindNoVoiceSelected ErrorKind = "no_voice_selected"
	KindConnection      ErrorKind = "connection"
	KindServer          ErrorKind = "server"
	KindInvalidInput    ErrorKind = "invalid_input"
	KindIO              ErrorKind = "io"
	KindPlayback        ErrorKind = "playback"
)

// Sentinels for errors.Is; any *Error of the same kind matches.
var (
	ErrNoVoiceSelected = &Error{Kind: KindNoVoiceSelected, Message: "no voice selected"}
	ErrConnection      = &Error{Kind: KindConnection, Message: "cannot reach server"}
	ErrServer          = &Error{Kind: KindServer, Message: "server error"}
	ErrInvalidInput    = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrIO              = &Error{Kind: KindIO, Message: "i/o failure"}
	ErrPlayback        = &Error{Kind: KindPlayback, Message: "playback failed"}
)

// Error is a kind-aware error with an optional underlying cause.
type Error struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode,omitempty"`
	Err        error     `json:"-"`
}

// NewError builds an error of the given kind.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Error formats the failure for logs and notifications.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error sharing the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Title returns a short notification heading for the kind.
func (k ErrorKind) Title() string {
	switch k {
	case KindNoVoiceSelected:
		return "No Voice Selected"
	case KindConnection:
		return "Connection Error"
	case KindServer:
		return "Server Error"
	case KindInvalidInput:
		return "Invalid Input"
	case KindIO:
		return "File Error"
	case KindPlayback:
		return "Playback Error"
	default:
		return "Error"
	}
}
