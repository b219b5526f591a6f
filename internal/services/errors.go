package services

import "errors"

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPersistenceFailure = errors.New("user store unavailable")

	ErrUnauthorized   = errors.New("authentication required")
	ErrForbidden      = errors.New("insufficient role")
	ErrSessionRevoked = errors.New("session user no longer exists")

	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("email already exists")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrInvalidRole  = errors.New("invalid role")

	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrMediaTooLarge    = errors.New("media exceeds size limit")
	ErrMediaSize        = errors.New("media size must be known and positive")

	ErrInvalidClass     = errors.New("invalid class selected")
	ErrInvalidSubject   = errors.New("invalid subject selected")
	ErrInvalidChapter   = errors.New("invalid chapter selected")
	ErrInvalidPlacement = errors.New("invalid class, subject or chapter selected")
)
