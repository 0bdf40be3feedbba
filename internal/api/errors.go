package api

import (
	"fmt"
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("server returned %d: %s: %s", e.StatusCode, e.Message, e.Err.Error())
	}

	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}
