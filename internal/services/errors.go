package services

import (
	"errors"
	"time"

	"hospverse/internal/repos"
)

var (
	ErrBadCreds          = errors.New("invalid email or password")
	ErrDemoCreds         = errors.New("invalid credentials")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrNotFound          = repos.ErrNotFound
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInsufficientStock = repos.ErrInsufficientStock
	ErrOverpayment       = repos.ErrOverpayment
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrForbidden         = errors.New("forbidden")
)

// Clock lets tests pin "today".
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

func (c Clock) today() string { return c.now().Format(dateLayout) }

const (
	dateLayout = "2006-01-02"
	tsLayout   = "2006-01-02 15:04:05"
)
