package service

import "errors"

var (
	// ErrAuthFailure is returned for every failed credential check. Unknown
	// users and wrong secrets are deliberately indistinguishable.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrInvalidToken is returned for tokens with a bad signature, issuer,
	// audience, algorithm or shape.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrNotFound signals that a keyed operation matched no row.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller's role is insufficient.
	ErrForbidden = errors.New("forbidden")
	// ErrUnknownEntity is returned for names absent from the public catalog.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrReadOnly is returned for writes to a read-only entity.
	ErrReadOnly = errors.New("entity is read-only")
	// ErrImageHost is returned when an image URL points outside the
	// configured delete hosts.
	ErrImageHost = errors.New("image host not allowed")
)
