package domain

import "errors"

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotSignedIn     = errors.New("not signed in")
	ErrSessionExpired  = errors.New("session expired")
)
