package domain

import "errors"

// ErrorKind groups domain errors by how callers should react to them.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindConflict
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindValidation
	KindTooManyRequests
)

func (k ErrorKind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindTooManyRequests:
		return "too_many_requests"
	default:
		return "internal"
	}
}

// Error carries a stable machine-readable code next to a human message.
// Two errors with the same code match under errors.Is.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrEmailInUse        = &Error{Kind: KindConflict, Code: "SIGNUP_EMAIL_IN_USE", Message: "email already in use"}
	ErrUserNotFound      = &Error{Kind: KindNotFound, Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrBadCredentials    = &Error{Kind: KindUnauthorized, Code: "LOGIN_BAD_CREDENTIAL", Message: "invalid email or password"}
	ErrInvalidToken      = &Error{Kind: KindUnauthorized, Code: "INVALID_TOKEN", Message: "invalid or expired token"}
	ErrTokenNotFound     = &Error{Kind: KindNotFound, Code: "TOKEN_NOT_FOUND", Message: "token not found"}
	ErrTenantMismatch    = &Error{Kind: KindForbidden, Code: "TENANT_MISMATCH", Message: "tenant mismatch"}
	ErrUserInactive      = &Error{Kind: KindForbidden, Code: "USER_INACTIVE", Message: "user is not active"}
	ErrTooManyAttempts   = &Error{Kind: KindTooManyRequests, Code: "LOGIN_THROTTLED", Message: "too many failed login attempts"}
	ErrSigningKeyMissing = &Error{Kind: KindInternal, Code: "JWT_SECRET_NOT_FOUND", Message: "jwt signing secret is not configured"}
	ErrInternal          = &Error{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: "internal error"}
)

// Internal wraps an infrastructure failure. Domain errors pass through untouched
// so their code survives the wrap.
func Internal(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: KindInternal, Code: ErrInternal.Code, Message: op, Err: err}
}

// Validation builds a client input error.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_FAILED", Message: msg}
}

// KindOf reports the kind of err, defaulting to KindInternal.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
