package httperr

import "errors"

// BadRequestError is a client error carrying the machine-readable code the
// HTTP layer renders.
type BadRequestError struct {
	code string
	msg  string
}

func (e *BadRequestError) Error() string { return e.msg }

func (e *BadRequestError) Code() string { return e.code }

func NewBadRequestCode(code string, msg string) error {
	return &BadRequestError{code: code, msg: msg}
}

func IsBadRequest(err error) bool {
	_, ok := errors.AsType[*BadRequestError](err)
	return ok
}

type NotFoundError struct {
	code string
	msg  string
}

func (e *NotFoundError) Error() string { return e.msg }

func (e *NotFoundError) Code() string { return e.code }

func NewNotFound(code string, msg string) error { return &NotFoundError{code: code, msg: msg} }

func IsNotFound(err error) bool {
	_, ok := errors.AsType[*NotFoundError](err)
	return ok
}

type codedError interface {
	error
	Code() string
}

// Code returns the code of the first coded error in err's chain.
func Code(err error) (string, bool) {
	if e, ok := errors.AsType[codedError](err); ok {
		return e.Code(), true
	}
	return "", false
}
