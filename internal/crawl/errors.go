package crawl

import (
	"context"
	"errors"
)

var (
	ErrTransient        = errors.New("transient failure")
	ErrSelectorMismatch = errors.New("selector mismatch")
	ErrSessionExpired   = errors.New("session expired")
	ErrBlocked          = errors.New("blocked by source")
)

type Kind int

const (
	KindNone Kind = iota
	KindTransient
	KindSelectorMismatch
	KindSessionExpired
	KindBlocked
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "Transient"
	case KindSelectorMismatch:
		return "SelectorMismatch"
	case KindSessionExpired:
		return "SessionExpired"
	case KindBlocked:
		return "Blocked"
	case KindCancelled:
		return "Cancelled"
	default:
		return ""
	}
}

// Retryable reports whether the walker may retry the same page.
func (k Kind) Retryable() bool { return k == KindTransient }

// KindOf classifies err. Sentinels win over context errors so a session
// that wraps its own request timeout as ErrTransient stays retryable.
// Anything unrecognised is Transient.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrSessionExpired):
		return KindSessionExpired
	case errors.Is(err, ErrBlocked):
		return KindBlocked
	case errors.Is(err, ErrSelectorMismatch):
		return KindSelectorMismatch
	case errors.Is(err, ErrTransient):
		return KindTransient
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindTransient
	}
}
