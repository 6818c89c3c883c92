package core

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatewayError_WithStatus(t *testing.T) {
	err := &GatewayError{Op: "get-call", StatusCode: http.StatusNotFound, Message: "call not found"}

	assert.Equal(t, "gateway get-call: status 404: call not found", err.Error())
	assert.True(t, err.NotFound())
	assert.False(t, err.Temporary())
}

func TestGatewayError_Transport(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&GatewayError{Op: "create-phone-call", Err: cause})

	var gwErr *GatewayError
	assert.True(t, errors.As(err, &gwErr))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, gwErr.Temporary())
	assert.False(t, gwErr.NotFound())
}

func TestGatewayError_Temporary(t *testing.T) {
	assert.True(t, (&GatewayError{StatusCode: http.StatusTooManyRequests}).Temporary())
	assert.True(t, (&GatewayError{StatusCode: http.StatusBadGateway}).Temporary())
	assert.False(t, (&GatewayError{StatusCode: http.StatusUnauthorized}).Temporary())
}

func TestErrorVariables(t *testing.T) {
	// Verify all error variables are defined
	assert.NotNil(t, ErrRunInProgress)
	assert.NotNil(t, ErrLeaseNotOwned)
	assert.NotNil(t, ErrMalformedOutcome)
	assert.NotNil(t, ErrCallNotFinished)
	assert.NotNil(t, ErrInvalidCursor)
	assert.NotNil(t, ErrInvalidPhoneNumber)
}
