package model

import "fmt"

type Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param"`
	Code    any    `json:"code"`
}

type ErrorWithStatusCode struct {
	Error
	StatusCode int `json:"status_code"`
}

// AsError lets relay errors travel through plain error returns.
func (e *ErrorWithStatusCode) AsError() error {
	if e == nil {
		return nil
	}
	return &RelayError{ErrorWithStatusCode: *e}
}

// RelayError is the error type returned by the completion client when the
// provider (or litegate itself) rejected a request.
type RelayError struct {
	ErrorWithStatusCode
}

func (e *RelayError) Error() string {
	if e.Code != nil && fmt.Sprint(e.Code) != "" {
		return fmt.Sprintf("%s (status %d, code %v)", e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}
