// Package envelope defines the uniform success/failure wrapper returned by
// every service operation across the request boundary.
package envelope

import "github.com/khoahotran/town-notes/pkg/apperror"

// Envelope carries either a response (IsOK) or a message, never both.
type Envelope[T any] struct {
	IsOK     bool    `json:"isOK"`
	Message  *string `json:"message,omitempty"`
	Response *T      `json:"response,omitempty"`
}

// Ack is the payload of operations that succeed without returning data.
type Ack struct{}

func OK[T any](v T) Envelope[T] {
	return Envelope[T]{IsOK: true, Response: &v}
}

func Fail[T any](message string) Envelope[T] {
	if message == "" {
		message = "request failed"
	}
	return Envelope[T]{IsOK: false, Message: &message}
}

// FromError converts err into a failed envelope using the AppError message.
func FromError[T any](err error) Envelope[T] {
	return Fail[T](apperror.MessageOf(err))
}

// Valid reports whether exactly one of the two paths is populated.
func (e Envelope[T]) Valid() bool {
	if e.IsOK {
		return e.Response != nil && e.Message == nil
	}
	return e.Response == nil && e.Message != nil
}

// Err returns nil for a successful envelope and an error carrying the
// message otherwise.
func (e Envelope[T]) Err() error {
	if e.IsOK {
		return nil
	}
	msg := ""
	if e.Message != nil {
		msg = *e.Message
	}
	return &Failure{Message: msg}
}

type Failure struct {
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}
