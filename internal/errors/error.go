package errors

import "errors"

var (
	ErrRecordNotFound  = errors.New("record was not found")
	ErrMalformedRecord = errors.New("record is not a valid sgf file")
	ErrSessionNotFound = errors.New("viewer session was not found")
	ErrNoRecordLoaded  = errors.New("no record is loaded")
	ErrInternal        = errors.New("internal error")
)
