package constants

import (
	"errors"
	"net/http"
)

// CodedError несёт HTTP-код, с которым ошибка уходит клиенту.
type CodedError struct {
	code int
	msg  string
	err  error
}

func NewCodedError(code int, msg string) *CodedError {
	return &CodedError{code: code, msg: msg}
}

func (e *CodedError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *CodedError) Message() string {
	return e.msg
}

func (e *CodedError) Code() int {
	return e.code
}

func (e *CodedError) Unwrap() error {
	return e.err
}

// Is сравнивает по коду и сообщению, чтобы errors.Is работал с обёрнутыми копиями.
func (e *CodedError) Is(target error) bool {
	var ce *CodedError
	if !errors.As(target, &ce) {
		return false
	}
	return ce.code == e.code && ce.msg == e.msg
}

// Wrap возвращает копию ошибки с причиной.
func (e *CodedError) Wrap(err error) *CodedError {
	return &CodedError{code: e.code, msg: e.msg, err: err}
}

// WithMessage возвращает ошибку того же класса с уточнённым сообщением.
func (e *CodedError) WithMessage(msg string) *CodedError {
	return &CodedError{code: e.code, msg: msg, err: e.err}
}

var (
	ErrBadRequest         = NewCodedError(http.StatusBadRequest, "bad request")
	ErrMissingScope       = NewCodedError(http.StatusBadRequest, "missing scope")
	ErrInvalidPeriod      = NewCodedError(http.StatusBadRequest, "invalid period")
	ErrUnauthorized       = NewCodedError(http.StatusUnauthorized, "unauthorized")
	ErrInvalidCredentials = NewCodedError(http.StatusUnauthorized, "invalid municipality or password")
	ErrForbidden          = NewCodedError(http.StatusForbidden, "forbidden")
	ErrNotFound           = NewCodedError(http.StatusNotFound, "not found")
	ErrConflict           = NewCodedError(http.StatusConflict, "conflict")
	ErrInternal           = NewCodedError(http.StatusInternalServerError, "internal error")
)

// Ошибки слоя хранения, сопоставляются в store.wrapErr.
var (
	ErrDBNotFound     = ErrNotFound.WithMessage("record not found")
	ErrDBConflict     = ErrConflict.WithMessage("record already exists")
	ErrDBReferenced   = ErrConflict.WithMessage("record is still referenced")
	ErrDBTableMissing = errors.New("table does not exist")
)

// BadRequest: короткий способ получить 400 с понятным сообщением.
func BadRequest(msg string) *CodedError {
	return ErrBadRequest.WithMessage(msg)
}

// IsCode сообщает, есть ли в цепочке CodedError с указанным кодом.
func IsCode(err error, code int) bool {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code() == code
	}
	return false
}
