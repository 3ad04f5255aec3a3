package domain

import "errors"

// ErrInvalidPhoneNumber is returned when input can't be parsed as a phone
// number, with or without a guessed country.
var ErrInvalidPhoneNumber = errors.New("invalid phone number")

// ErrorCode is the machine-readable error reported to API clients.
type ErrorCode string

const (
	ErrCodeNone               ErrorCode = ""
	ErrCodeLimitAcceded       ErrorCode = "limit_acceded"
	ErrCodeNumberMissing      ErrorCode = "number_missing"
	ErrCodeReceiverMissing    ErrorCode = "receiver_missing"
	ErrCodeReceiverValidation ErrorCode = "receiver_validation"
	ErrCodeNexmoError         ErrorCode = "nexmo_error"
)
