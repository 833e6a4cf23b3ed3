package apperror

import "errors"

// AppError carries an HTTP status code alongside a user-facing message.
type AppError struct {
	Code    int    // HTTP Status Code (e.g., 400, 404)
	Message string // Safe to show to the client
	Err     error  // Underlying cause, logged but never rendered

	// sentinel is the error WithCause copied this one from.
	sentinel *AppError
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the same sentinel. Copies made by WithCause
// match the sentinel they were derived from; distinct sentinels never match,
// even when they share a code and message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e == t || (e.sentinel != nil && e.sentinel == t)
}

// New creates a new AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithCause returns a copy of the sentinel carrying err as its cause.
func WithCause(sentinel *AppError, err error) *AppError {
	appErr := Wrap(err, sentinel.Code, sentinel.Message)
	appErr.sentinel = sentinel
	if sentinel.sentinel != nil {
		appErr.sentinel = sentinel.sentinel
	}
	return appErr
}

// StatusCode returns the HTTP status of err, or fallback when err is not an AppError.
func StatusCode(err error, fallback int) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return fallback
}
