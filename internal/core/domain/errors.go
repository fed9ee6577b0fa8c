package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindBadRequest     ErrorKind = "BadRequest"
	KindNotFound       ErrorKind = "NotFound"
	KindForbidden      ErrorKind = "Forbidden"
	KindInternalServer ErrorKind = "InternalServerError"
)

// Error est l'erreur typée du domaine. Le transport la traduit en code de statut.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func BadRequest(format string, args ...any) error {
	return newError(KindBadRequest, format, args...)
}

func NotFound(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newError(KindForbidden, format, args...)
}

func InternalServer(format string, args ...any) error {
	return newError(KindInternalServer, format, args...)
}

func newError(kind ErrorKind, format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Message: msg}
}

// KindOf retourne la catégorie d'une erreur. Toute erreur non typée est interne.
func KindOf(err error) ErrorKind {
	var domErr *Error
	if errors.As(err, &domErr) {
		return domErr.Kind
	}
	return KindInternalServer
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// ErrUserAlreadyExists signale un user-added rejoué (livraison at-least-once).
// Ce n'est PAS l'échec "zéro ligne affectée".
var ErrUserAlreadyExists = errors.New("user replica already exists")
