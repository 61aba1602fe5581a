package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own, such as an owner-scoped venue write.
// Handlers translate it into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")
