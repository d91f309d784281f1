package domain

import (
	"github.com/pkg/errors"
)

// Kind buckets every failure the client can surface. The UI decides
// presentation from the kind alone: validation inline, not-found as an
// empty state, authorization as a re-auth prompt, transport as a
// generic retryable banner.
type Kind int

const (
	KindTransport Kind = iota
	KindValidation
	KindNotFound
	KindAuthorization
)

var (
	ErrPasteNotFound = NewErr(KindNotFound, "PASTE_NOT_FOUND", "paste not found")
	ErrUnauthorized  = NewErr(KindAuthorization, "UNAUTHORIZED", "unauthorized")
	ErrNotLoggedIn   = NewErr(KindAuthorization, "NOT_LOGGED_IN", "not logged in")
)

type Err struct {
	Kind Kind   `json:"-"`
	Code string `json:"code"`
	Msg  string `json:"message"`
}

func (e *Err) Error() string { return e.Msg }

func NewErr(kind Kind, code, msg string) *Err {
	return &Err{Kind: kind, Code: code, Msg: msg}
}

// Validation wraps a structured 4xx message from the server.
func Validation(msg string) *Err {
	return NewErr(KindValidation, "INVALID_REQUEST", msg)
}

// Transport wraps a network failure or a malformed response.
func Transport(msg string) *Err {
	return NewErr(KindTransport, "TRANSPORT_FAILURE", msg)
}

// KindOf unwraps err and reports its kind. Unclassified errors count as
// transport failures, the only safe default for a network client.
func KindOf(err error) Kind {
	if e, ok := err.(*Err); ok {
		return e.Kind
	}
	if e, ok := errors.Cause(err).(*Err); ok {
		return e.Kind
	}
	return KindTransport
}

func IsValidation(err error) bool    { return err != nil && KindOf(err) == KindValidation }
func IsNotFound(err error) bool      { return err != nil && KindOf(err) == KindNotFound }
func IsAuthorization(err error) bool { return err != nil && KindOf(err) == KindAuthorization }
func IsTransport(err error) bool     { return err != nil && KindOf(err) == KindTransport }
