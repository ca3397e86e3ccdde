package response

import "errors"

type Response struct {
	ResponseError `json:"error,omitzero"`
}

type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

//Error Codes
type ErrCode string

var (
	FAILED_REQUEST       ErrCode = "REQUEST_FAILED"
	BAD_REQUEST          ErrCode = "FAILED_TO_DECODE"
	NOT_FOUND            ErrCode = "NOT_FOUND"
	LOCKED               ErrCode = "LOCKED"
	CONFLICT             ErrCode = "CONFLICT"
	VALIDATION_FAILED    ErrCode = "VALIDATION_FAILED"
	CONSTRAINT_VIOLATION ErrCode = "CONSTRAINT_VIOLATION"
)

var (
	ErrBadRequest  = errors.New("bad request")
	ErrNotFound    = errors.New("resource not found")
	ErrLocked      = errors.New("resource is locked")
	ErrConflict    = errors.New("appointment conflicts with existing bookings")
	ErrValidation  = errors.New("validation failed")
	ErrBadTimezone = errors.New("unknown timezone")
)

func Error(code, msg string) Response {
	return Response{
		ResponseError: ResponseError{
			Code:    code,
			Message: msg,
		},
	}
}
