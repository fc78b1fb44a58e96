package gateway

import (
	"net/http"

	"github.com/danieldean2000/oscorm-dashboard/errors"
	"google.golang.org/grpc/codes"
)

// UnavailableMessage is the diagnostic shown when the login endpoint could
// not be used.
const UnavailableMessage = "Backend server error. Please check if backend is running."

var (
	// ErrBackendUnavailable is returned by Login when the backend could not be
	// reached or answered with something other than the login contract.
	ErrBackendUnavailable = errors.NewC(UnavailableMessage, codes.Unavailable)

	// ErrRejected matches every *RejectedError.
	ErrRejected = errors.NewC("gateway: credentials rejected", codes.Unauthenticated)
)

// RejectedError carries the backend's explanation for a refused login. Its
// message is the backend's, verbatim.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// Is matches ErrRejected.
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// Code implements the errors package's coded error interface.
func (e *RejectedError) Code() codes.Code {
	return codes.Unauthenticated
}

// HTTPStatusCode maps to 401.
func (e *RejectedError) HTTPStatusCode() int {
	return http.StatusUnauthorized
}

// unavailableError reports UnavailableMessage while keeping the underlying
// cause reachable through errors.Is and errors.As.
type unavailableError struct {
	cause error
}

func (e *unavailableError) Error() string {
	return UnavailableMessage
}

func (e *unavailableError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrBackendUnavailable}
	}
	return []error{ErrBackendUnavailable, e.cause}
}
