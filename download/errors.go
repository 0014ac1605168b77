package download

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the HTTP layer. The values are the
// error_kind strings clients see.
type Kind string

const (
	KindInvalidURL          Kind = "InvalidUrl"
	KindNotFound            Kind = "NotFound"
	KindUnsupported         Kind = "Unsupported"
	KindProviderError       Kind = "ProviderError"
	KindStorageUnconfigured Kind = "StorageUnconfigured"
	KindStorageUnavailable  Kind = "StorageUnavailable"
	KindBadRequest          Kind = "BadRequest"
)

// Error carries a Kind and a client-safe Message. Err holds the underlying
// cause for logs and never reaches a response body.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrapf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
