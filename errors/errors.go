// Package errors is a fork of `github.com/go-errors/errors` that adds support
// for gRPC status codes and HTTP status mapping to stack-carrying errors.
//
// Errors returned across component boundaries in this module are *Error
// values so callers can recover a status code:
//
//	var ErrUnavailable = errors.NewC("backend unavailable", codes.Unavailable)
//
//	func Fetch() error {
//	    return errors.Mark(ErrUnavailable, 0).Append("connection refused")
//	}
//
//	if errors.Is(err, ErrUnavailable) {
//	    log.Println(errors.HTTPStatusCode(err)) // 503
//	}
package errors

import (
	baseErrors "errors"
	"fmt"
	"net/http"
	"runtime"

	"google.golang.org/grpc/codes"
)

// The maximum number of stackframes on any error.
var MaxStackDepth = 50

// Error is an error with an attached stacktrace. It can be used
// wherever the builtin error interface is expected.
type Error struct {
	Err    error
	stack  []uintptr
	frames []StackFrame
	prefix string

	// gRPC status code to associate with the error.
	code codes.Code
}

// New makes an Error from the given value. If that value is already an
// error then it will be used directly, if not, it will be passed to
// fmt.Errorf("%v"). The stacktrace will point to the line of code that
// called New.
func New(e any) *Error {
	return newError(e, codes.Unknown, 1)
}

// NewC makes an Error with a status code defined.
func NewC(e any, code codes.Code) *Error {
	return newError(e, code, 1)
}

func newError(e any, code codes.Code, skip int) *Error {
	var err error
	switch e := e.(type) {
	case error:
		err = e
	default:
		err = fmt.Errorf("%v", e)
	}

	stack := make([]uintptr, MaxStackDepth)
	length := runtime.Callers(2+skip, stack[:])
	return &Error{
		Err:   err,
		stack: stack[:length],
		code:  code,
	}
}

// Wrap makes an Error from the given value. If that value is already an
// error then it will be used directly, if not, it will be passed to
// fmt.Errorf("%v"). The skip parameter indicates how far up the stack
// to start the stacktrace. 0 is from the current call, 1 from its caller, etc.
func Wrap(e any, skip int) *Error {
	if e == nil {
		return nil
	}

	var err error

	switch e := e.(type) {
	case *Error:
		return e
	case error:
		err = e
	default:
		err = fmt.Errorf("%v", e)
	}

	stack := make([]uintptr, MaxStackDepth)
	length := runtime.Callers(2+skip, stack[:])
	return &Error{
		Err:   err,
		stack: stack[:length],
		code:  codes.Unknown,
	}
}

// MaybeWrap is like Wrap but returns a plain nil error interface when e is
// nil, so it can be used directly in return statements.
func MaybeWrap(e error, skip int) error {
	if e == nil {
		return nil
	}
	return Wrap(e, 1+skip)
}

// WrapPrefix makes an Error from the given value. If that value is already an
// error then it will be used directly, if not, it will be passed to
// fmt.Errorf("%v"). The prefix parameter is used to add a prefix to the
// error message when calling Error(). The skip parameter indicates how far
// up the stack to start the stacktrace. 0 is from the current call,
// 1 from its caller, etc.
func WrapPrefix(e any, prefix string, skip int) *Error {
	if e == nil {
		return nil
	}

	err := Wrap(e, 1+skip)

	if err.prefix != "" {
		prefix = fmt.Sprintf("%s: %s", prefix, err.prefix)
	}

	return &Error{
		Err:    err.Err,
		stack:  err.stack,
		code:   err.code,
		prefix: prefix,
	}
}

// Mark takes an error and sets the stack trace from the point it was called,
// overriding any previous stack trace that may have been set. The skip parameter
// indicates how far up the stack to start the stacktrace. 0 is from the current
// call, 1 from its caller, etc.
//
// Marking a sentinel returns a copy, so sentinels can be safely annotated with
// Append without being mutated.
func Mark(e any, skip int) *Error {
	if e == nil {
		return nil
	}
	if err, ok := e.(*Error); ok {
		stack := make([]uintptr, MaxStackDepth)
		length := runtime.Callers(2+skip, stack[:])
		return &Error{
			Err:    err.Err,
			stack:  stack[:length],
			code:   err.code,
			prefix: err.prefix,
		}
	}

	return Wrap(e, 1+skip)
}

// Errorf creates a new error with the given message. You can use it
// as a drop-in replacement for fmt.Errorf() to provide descriptive
// errors in return values.
func Errorf(format string, a ...any) *Error {
	return Wrap(fmt.Errorf(format, a...), 1)
}

// Error returns the underlying error's message.
func (err *Error) Error() string {
	msg := err.Err.Error()
	if err.prefix != "" {
		msg = fmt.Sprintf("%s: %s", err.prefix, msg)
	}
	return msg
}

// Append adds detail to the error message while preserving the identity of
// the wrapped error for Is and As.
func (err *Error) Append(detail string) *Error {
	err.Err = fmt.Errorf("%w: %s", err.Err, detail)
	return err
}

// Is reports whether target is an *Error wrapping the same underlying error,
// which allows marked copies of sentinels to match the original.
func (err *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return baseErrors.Is(err.Err, t.Err)
	}
	return false
}

// MinimalStack returns a compact stack of at most n frames, skipping the
// first skip frames. Useful for structured log fields.
func (err *Error) MinimalStack(skip, n int) []string {
	frames := err.StackFrames()
	if skip >= len(frames) {
		return nil
	}
	frames = frames[skip:]
	if len(frames) > n {
		frames = frames[:n]
	}
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Short())
	}
	return out
}

// StackFrames returns an array of frames containing information about the
// stack.
func (err *Error) StackFrames() []StackFrame {
	if err.frames == nil {
		err.frames = make([]StackFrame, len(err.stack))
		for i, pc := range err.stack {
			err.frames[i] = NewStackFrame(pc)
		}
	}
	return err.frames
}

// Unwrap the error (implements api for As function).
func (err *Error) Unwrap() error {
	return err.Err
}

// Code returns the gRPC status code associated with the error.
func (err *Error) Code() codes.Code {
	return err.code
}

// HTTPStatusCode returns the HTTP status code mapped from the gRPC code.
func (err *Error) HTTPStatusCode() int {
	switch err.code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Code returns a gRPC status code for an error. If the error is nil, it returns
// codes.OK. If any error in the chain exposes a `Code()` method, it is
// returned. Otherwise codes.Unknown is returned.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var e codedError
	if As(err, &e) {
		return e.Code()
	}
	return codes.Unknown
}

// HTTPStatusCode returns an HTTP status code for an error. If the error is nil,
// it returns http.StatusOK. If any error in the chain exposes a
// `HTTPStatusCode()` method, it is returned. Otherwise
// http.StatusInternalServerError is returned.
func HTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var e httpError
	if As(err, &e) {
		return e.HTTPStatusCode()
	}
	return http.StatusInternalServerError
}

type codedError interface {
	Code() codes.Code
}

type httpError interface {
	HTTPStatusCode() int
}
