package errs

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrUpstream    = errors.New("upstream error")
	ErrUnavailable = errors.New("service unavailable")

	// Классы ошибок клиента: чтение, запись, realtime-подписка
	ErrFetch        = errors.New("fetch failed")
	ErrWrite        = errors.New("write failed")
	ErrSubscription = errors.New("subscription failed")
)

// FromStatus маппит статус ответа платформы на sentinel
func FromStatus(code int) error {
	switch {
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return ErrInvalidInput
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusForbidden:
		return ErrForbidden
	case code >= http.StatusInternalServerError:
		return ErrUnavailable
	default:
		return ErrUpstream
	}
}
