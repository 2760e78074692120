package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSession is the class of failures reported by the recognition
	// service.
	ErrSession = errors.New("recognition session failed")
	// ErrConnect marks a failure to open the transport or send the start
	// request.
	ErrConnect = errors.New("connect recognition session")
	// ErrConnectTimeout is recorded as a warning when neither start nor
	// failure is signaled before the connect deadline.
	ErrConnectTimeout = errors.New("no start confirmation before deadline")
)

// ServiceError is a TaskFailed reported by the gateway or synthesized from
// a transport read failure.
type ServiceError struct {
	Status     int
	StatusText string
	Message    string
}

func (e *ServiceError) Error() string {
	switch {
	case e.StatusText != "" && e.Status != 0:
		return fmt.Sprintf("%v: %s (status %d)", ErrSession, e.StatusText, e.Status)
	case e.StatusText != "":
		return fmt.Sprintf("%v: %s", ErrSession, e.StatusText)
	case e.Message != "":
		return fmt.Sprintf("%v: %s", ErrSession, e.Message)
	default:
		return ErrSession.Error()
	}
}

func (e *ServiceError) Unwrap() error {
	return ErrSession
}
