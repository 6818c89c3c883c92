package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors
var (
	ErrRunInProgress      = errors.New("dialer: a batch run is already in progress")
	ErrLeaseNotOwned      = errors.New("dialer: run lease not owned by this runner")
	ErrMalformedOutcome   = errors.New("dialer: malformed call outcome")
	ErrCallNotFinished    = errors.New("dialer: call has not finished")
	ErrInvalidCursor      = errors.New("dialer: cursor cell is not an integer")
	ErrInvalidPhoneNumber = errors.New("dialer: invalid phone number")
)

// GatewayError is returned by the telephony gateway for transport failures
// and non-2xx responses.
type GatewayError struct {
	Op         string
	StatusCode int // 0 when the request never got a response
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("gateway %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("gateway %s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("gateway %s: %s", e.Op, e.Message)
	}
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the gateway answered 404 for the requested resource.
func (e *GatewayError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Temporary reports whether retrying the same request could succeed.
func (e *GatewayError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
