package domain

import "errors"

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrLoanNotFound      = errors.New("loan not found")
	ErrBookUnavailable   = errors.New("book is not available for borrowing")
	ErrNoActiveLoan      = errors.New("no active loan found for this book")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrInactiveAccount   = errors.New("account is disabled")
	ErrHasLoans          = errors.New("record still has loans")
)

// DuplicateError 唯一键冲突，Field 对应 json 字段名
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string { return e.Field + " already exists" }

func IsNotFound(err error) bool {
	return errors.Is(err, ErrBookNotFound) || errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrLoanNotFound)
}
